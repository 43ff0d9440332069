// Package meshroute implements a distance-vector routing engine for a mesh
// of peers connected by point-to-point tunnels. See SPEC_FULL.md at the
// repository root for the full design.
package meshroute

import (
	"errors"
	"net/netip"

	"github.com/google/uuid"
)

// PeerId is a 128-bit opaque peer identifier. uuid.UUID is a comparable
// [16]byte array, so it can key a map directly and supports == for bitwise
// equality.
type PeerId = uuid.UUID

// PeerAttributes is the set of attributes a peer advertises about itself.
type PeerAttributes struct {
	PeerID PeerId

	// HasIPv4 distinguishes "no overlay address" from the zero netip.Addr,
	// which is itself a valid (if degenerate) value.
	HasIPv4 bool
	IPv4    netip.Addr

	ProxyCIDRs []netip.Prefix

	HasHostname bool
	Hostname    string

	// UDPNATType mirrors the STUN-derived NAT classification tag; its
	// concrete values are defined by the enclosing mesh daemon's STUN
	// collector and are opaque to this engine.
	UDPNATType int8

	// Cost is only meaningful when this PeerAttributes appears in an
	// Advertisement's Neighbors list: it is the advertiser's own best
	// known cost to that neighbor (0 for a peer advertising itself in
	// Myself). It plays no part in Self-View's change detection.
	Cost int
}

// Equal reports whether two PeerAttributes advertise the same values,
// ignoring slice/ordering concerns that don't affect routing semantics.
// ProxyCIDRs is compared order-independently (same prefixes, same counts).
// Equal deliberately ignores Cost: it is control-plane routing state, not
// an advertised attribute of the peer itself.
func (a PeerAttributes) Equal(b PeerAttributes) bool {
	if a.PeerID != b.PeerID || a.HasIPv4 != b.HasIPv4 || a.HasHostname != b.HasHostname ||
		a.Hostname != b.Hostname || a.UDPNATType != b.UDPNATType {
		return false
	}
	if a.HasIPv4 && a.IPv4 != b.IPv4 {
		return false
	}
	if len(a.ProxyCIDRs) != len(b.ProxyCIDRs) {
		return false
	}
	seen := make(map[netip.Prefix]int, len(a.ProxyCIDRs))
	for _, p := range a.ProxyCIDRs {
		seen[p]++
	}
	for _, p := range b.ProxyCIDRs {
		seen[p]--
	}
	for _, n := range seen {
		if n != 0 {
			return false
		}
	}
	return true
}

// RouteEntry is a derived entry of the Route Table: the best currently
// known path to a destination peer.
type RouteEntry struct {
	Destination PeerId
	NextHop     PeerId
	Cost        int
	Attributes  PeerAttributes
}

// Advertisement is the wire message exchanged between directly-connected
// peers. See SPEC_FULL.md §6 for the wire format.
type Advertisement struct {
	Myself    PeerAttributes
	Neighbors []PeerAttributes
	Version   uint32

	HasPeerVersion bool
	PeerVersion    uint32

	NeedReply bool
}

var (
	// ErrPeerNotConnected is returned by a PeerInterface implementation's
	// SendRoutePacket when the destination peer has no active tunnel.
	ErrPeerNotConnected = errors.New("meshroute: peer not connected")

	// ErrMalformedAdvertisement is returned/logged when an inbound
	// Advertisement fails to decode or its Myself.PeerID does not match
	// the tunnel-level sender.
	ErrMalformedAdvertisement = errors.New("meshroute: malformed advertisement")
)
