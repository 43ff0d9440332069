// Package peernet defines the PeerInterface collaborator consumed by the
// routing engine (tunnel send + connected-peer enumeration), plus two
// reference implementations: an in-memory fake for tests and a plain UDP
// transport for the demo binary. The real tunnel transport, NAT traversal
// and control-packet envelope belong to the enclosing mesh daemon and are
// out of scope here; see SPEC_FULL.md §1 and §6.
package peernet

import (
	"context"

	"github.com/meshroute/routeengine/internal/meshroute"
)

// Interface is the collaborator the Sync Engine uses to send Advertisements
// and to learn which peers are currently directly connected.
type Interface interface {
	// SendRoutePacket delivers data to dest. Implementations should return
	// meshroute.ErrPeerNotConnected (or an error satisfying
	// errors.Is(err, meshroute.ErrPeerNotConnected)) when there is no
	// active tunnel to dest, so the engine can classify the failure per
	// SPEC_FULL.md §7 without it being treated as a noteworthy error.
	SendRoutePacket(ctx context.Context, data []byte, priority int, dest meshroute.PeerId) error

	// ListPeers returns the set of peers this node currently shares an
	// active tunnel with.
	ListPeers(ctx context.Context) ([]meshroute.PeerId, error)
}
