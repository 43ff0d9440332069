package meshroute

import (
	"net/netip"
	"sort"

	"github.com/gaissmai/bart"
)

// MaxHops is the hop-count ceiling (spec §3 invariant 1, §6). Entries whose
// cost would exceed it are never installed.
const MaxHops = 6

// RouteTable is the authoritative next-hop and address-index store consumed
// by the forwarding hot path. A rebuild never mutates a live RouteTable in
// place; Engine republishes a freshly built one behind an atomic pointer so
// readers never observe a partially-built table (SPEC_FULL.md §4.2, §5).
type RouteTable struct {
	routes    map[PeerId]RouteEntry
	ipv4Index map[netip.Addr]PeerId
	cidrIndex *bart.Table[PeerId]
}

func newRouteTable() *RouteTable {
	return &RouteTable{
		routes:    make(map[PeerId]RouteEntry),
		ipv4Index: make(map[netip.Addr]PeerId),
		cidrIndex: new(bart.Table[PeerId]),
	}
}

// NextHop returns the next-hop peer for dest, if reachable.
func (t *RouteTable) NextHop(dest PeerId) (PeerId, bool) {
	e, ok := t.routes[dest]
	if !ok {
		return PeerId{}, false
	}
	return e.NextHop, true
}

// PeerForIPv4 resolves an IPv4 destination address to the peer that should
// receive it: first the exact overlay-address index, then the longest
// matching proxy-CIDR prefix (SPEC_FULL.md §4.2).
func (t *RouteTable) PeerForIPv4(ip netip.Addr) (PeerId, bool) {
	if id, ok := t.ipv4Index[ip]; ok {
		return id, true
	}
	return t.cidrIndex.Lookup(ip)
}

// Snapshot returns a point-in-time list of route entries, sorted by
// destination PeerId for stable output.
func (t *RouteTable) Snapshot() []RouteEntry {
	out := make([]RouteEntry, 0, len(t.routes))
	for _, e := range t.routes {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Destination.String() < out[j].Destination.String()
	})
	return out
}

// Rebuild runs the rebuild algorithm of SPEC_FULL.md §4.2 over views using
// the normative MaxHops ceiling. It is a thin wrapper over
// RebuildWithMaxHops for callers that don't override the ceiling.
func Rebuild(myID PeerId, views map[PeerId]RemoteView) *RouteTable {
	return RebuildWithMaxHops(myID, views, MaxHops)
}

// RebuildWithMaxHops is Rebuild with an operator-overridden hop-count
// ceiling (internal/config's MaxHops tunable, SPEC_FULL.md §6). views is
// iterated in sender-PeerId order so that, combined with the documented
// first-writer tie-break, two rebuilds over the same view contents always
// produce a byte-identical result (DESIGN.md Open Question 2).
func RebuildWithMaxHops(myID PeerId, views map[PeerId]RemoteView, maxHops int) *RouteTable {
	t := newRouteTable()

	senders := make([]PeerId, 0, len(views))
	for s := range views {
		senders = append(senders, s)
	}
	sort.Slice(senders, func(i, j int) bool {
		return senders[i].String() < senders[j].String()
	})

	for _, s := range senders {
		view := views[s]
		t.update(s, 1, view.Advertisement.Myself, maxHops)
		for _, n := range view.Advertisement.Neighbors {
			if n.PeerID == myID {
				continue
			}
			t.update(s, n.Cost+1, n, maxHops)
		}
	}

	return t
}

// update installs or improves a single route. Per DESIGN.md Open Question
// 3, the maxHops ceiling is checked before any write, including the
// address indices, rather than writing them first and pruning after.
func (t *RouteTable) update(nextHop PeerId, cost int, attr PeerAttributes, maxHops int) {
	if cost > maxHops {
		return
	}

	dest := attr.PeerID
	existing, exists := t.routes[dest]
	if exists && existing.Cost <= cost {
		return
	}

	entry := RouteEntry{
		Destination: dest,
		NextHop:     nextHop,
		Cost:        cost,
		Attributes:  attr,
	}
	t.routes[dest] = entry

	if attr.HasIPv4 {
		t.ipv4Index[attr.IPv4] = dest
	}
	for _, cidr := range attr.ProxyCIDRs {
		t.cidrIndex.Insert(cidr, dest)
	}
}
