package engine

import (
	"context"

	"github.com/meshroute/routeengine/internal/meshroute"
)

// runReaper is the periodic task of SPEC_FULL.md §4.5.2. It only handles
// the "no longer connected" half of invariant 6; the "aged out" half rides
// on the Remote-View Store's own TTL eviction (onViewExpired).
func (e *Engine) runReaper(ctx context.Context) error {
	ticker := e.cfg.Clock.NewTicker(e.cfg.ReaperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
		}

		peers, err := e.iface.ListPeers(ctx)
		if err != nil {
			e.cfg.Logger.Error("reaper: list peers", "err", err)
			continue
		}

		connected := make(map[meshroute.PeerId]bool, len(peers))
		for _, p := range peers {
			connected[p] = true
		}

		removed := false
		for _, sender := range e.views.Keys() {
			if connected[sender] {
				continue
			}
			e.views.Remove(sender)
			removed = true
		}

		if removed {
			e.rebuildAndAdvance()
		}
	}
}
