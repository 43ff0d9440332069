package engine

import (
	"context"
	"errors"

	"github.com/meshroute/routeengine/internal/meshroute"
	"github.com/meshroute/routeengine/internal/wire"
)

// runAdvertiser is the periodic task of SPEC_FULL.md §4.5.1. It refreshes
// Self-View, then for each directly-connected peer either skips re-sending
// (steady state, both sides agree) or sends a fresh Advertisement.
func (e *Engine) runAdvertiser(ctx context.Context) error {
	ticker := e.cfg.Clock.NewTicker(e.cfg.AdvertiserTick)
	defer ticker.Stop()

	for {
		if e.selfView.Refresh(e.cfg.Context) {
			e.version.Inc()
		}

		peers, err := e.iface.ListPeers(ctx)
		if err != nil {
			e.cfg.Logger.Error("advertiser: list peers", "err", err)
		} else {
			e.advertiseTo(ctx, peers)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-e.needSync:
		case <-ticker.Chan():
		}
	}
}

// advertiseTo runs step 3 of the Advertiser loop body over the currently
// connected peer set, replacing lastSend with the freshly computed
// generation (step 4): peers no longer connected are simply absent from
// next and so drop out of the map.
func (e *Engine) advertiseTo(ctx context.Context, peers []meshroute.PeerId) {
	now := e.cfg.Clock.Now()
	next := make(map[meshroute.PeerId]meshroute.VersionVector, len(peers))

	for _, p := range peers {
		prev, hadPrev := e.lastSend.Get(p)
		view, hasView := e.views.Get(p)

		theyAreCurrent := hasView && view.Advertisement.HasPeerVersion &&
			view.Advertisement.PeerVersion == e.version.Get()

		elapsed := e.cfg.SendRoutePeriod // effectively "never sent"
		if hadPrev {
			elapsed = now.Sub(prev.LastSend)
		}

		if theyAreCurrent && hadPrev && elapsed < e.cfg.SendRoutePeriod {
			next[p] = prev
			continue
		}

		peerVersionEchoed := uint32(0)
		hasPeerVersionEchoed := false
		if hasView {
			peerVersionEchoed = view.Advertisement.Version
			hasPeerVersionEchoed = true
		}

		adv := meshroute.Advertisement{
			Myself:         e.selfView.Snapshot(),
			Neighbors:      e.neighborsForAdvertisement(),
			Version:        e.version.Get(),
			HasPeerVersion: hasPeerVersionEchoed,
			PeerVersion:    peerVersionEchoed,
			NeedReply:      !theyAreCurrent,
		}
		e.send(ctx, p, adv)

		next[p] = meshroute.VersionVector{
			MyVersionWhenSent:      e.version.Get(),
			HasTheirVersionWeAcked: hasPeerVersionEchoed,
			TheirVersionWeAcked:    peerVersionEchoed,
			LastSend:               now,
		}
	}

	e.lastSend.Replace(next)
}

// neighborsForAdvertisement projects the current Route Table into the
// PeerAttributes form carried on the wire, setting each entry's Cost to
// this peer's own best known cost to that neighbor.
func (e *Engine) neighborsForAdvertisement() []meshroute.PeerAttributes {
	entries := e.routeTable.Load().Snapshot()
	out := make([]meshroute.PeerAttributes, len(entries))
	for i, entry := range entries {
		attr := entry.Attributes
		attr.Cost = entry.Cost
		out[i] = attr
	}
	return out
}

// send encodes and transmits adv to dest, classifying the failure modes of
// SPEC_FULL.md §7: an unconnected peer is debug-logged only (the Reaper
// will clean it up), anything else is error-logged but never aborts the
// loop.
func (e *Engine) send(ctx context.Context, dest meshroute.PeerId, adv meshroute.Advertisement) {
	data, truncated, err := wire.Encode(adv)
	if err != nil {
		e.cfg.Logger.Error("advertiser: encode advertisement", "dest", dest, "err", err)
		return
	}
	if truncated {
		e.cfg.Logger.Warn("advertisement truncated to fit wire limit", "dest", dest)
	}

	const routePacketPriority = 0
	if err := e.iface.SendRoutePacket(ctx, data, routePacketPriority, dest); err != nil {
		if errors.Is(err, meshroute.ErrPeerNotConnected) {
			e.cfg.Logger.Debug("advertiser: peer not connected, skipping", "dest", dest)
			return
		}
		e.cfg.Logger.Error("advertiser: send failed", "dest", dest, "err", err)
		return
	}

	e.metrics.AdvertisementsSent.Inc()
}
