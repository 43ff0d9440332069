package engine

import (
	"time"

	"github.com/meshroute/routeengine/internal/meshroute"
)

// ingress folds an inbound Advertisement from src into the Remote-View
// Store, recomputes the Route Table on material change, and arms a fast
// reply if the sender asked for one (SPEC_FULL.md §4.5.3).
func (e *Engine) ingress(src meshroute.PeerId, adv meshroute.Advertisement) {
	updated := e.views.Upsert(src, adv)
	if updated {
		e.version.Inc()
		e.publishRouteTable(meshroute.RebuildWithMaxHops(e.id, e.views.Snapshot(), e.cfg.MaxHops))
	}

	if adv.NeedReply {
		e.armFastReply(src, adv)
	}

	if updated || adv.NeedReply {
		e.notifySync()
	}
}

// armFastReply decides how soon the Advertiser should re-send to peer,
// given that peer just told us its view needs refreshing. If our records
// show peer is already demonstrably behind, the next Advertiser pass sends
// immediately; otherwise the reply is deferred so both sides already in
// agreement don't re-advertise on every single request.
func (e *Engine) armFastReply(peer meshroute.PeerId, adv meshroute.Advertisement) {
	e.lastSend.Mutate(peer, func(v meshroute.VersionVector, ok bool) meshroute.VersionVector {
		if !ok {
			// Nothing sent yet: the zero-value LastSend is already far
			// enough in the past to force an immediate send.
			return meshroute.VersionVector{}
		}

		stale := v.MyVersionWhenSent != e.version.Get() ||
			!v.HasTheirVersionWeAcked || v.TheirVersionWeAcked != adv.Version
		if stale {
			v.LastSend = time.Time{}
			return v
		}

		deferBy := e.cfg.SendRoutePeriod - e.cfg.SendRouteFastReply
		if e.cfg.Clock.Now().Sub(v.LastSend) < deferBy {
			v.LastSend = e.cfg.Clock.Now().Add(-deferBy)
		}
		return v
	})
}
