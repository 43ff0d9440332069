package meshroute

import (
	"net/netip"
	"sync"
)

// SelfContext is the subset of the global-context collaborator that
// Self-View needs. Defined locally, rather than importing the
// globalctx package directly, so this package stays free of any
// dependency on the external-collaborator packages; globalctx.Context
// satisfies this interface structurally.
type SelfContext interface {
	GetID() PeerId
	GetIPv4() (netip.Addr, bool)
	GetProxyCIDRs() []netip.Prefix
	GetHostname() (string, bool)
	GetUDPNATType() int8
}

// SelfView holds this peer's own advertisable attributes. It is
// single-writer (the Advertiser, via Refresh) and multi-reader (everything
// that builds an outgoing Advertisement).
type SelfView struct {
	mu    sync.RWMutex
	attrs PeerAttributes
}

// NewSelfView seeds a SelfView for the given peer id. Refresh must be
// called at least once before Snapshot reflects the GlobalContext.
func NewSelfView(id PeerId) *SelfView {
	return &SelfView{attrs: PeerAttributes{PeerID: id}}
}

// Snapshot returns the current attributes.
func (s *SelfView) Snapshot() PeerAttributes {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attrs
}

// Refresh reads IPv4, hostname, proxy CIDRs and UDP NAT type from ctx and
// replaces the stored attributes if any field differs. It reports whether
// a field changed so the caller can bump VersionMonotone.
func (s *SelfView) Refresh(ctx SelfContext) bool {
	next := PeerAttributes{PeerID: ctx.GetID()}
	if ip, ok := ctx.GetIPv4(); ok {
		next.HasIPv4 = true
		next.IPv4 = ip
	}
	next.ProxyCIDRs = ctx.GetProxyCIDRs()
	if name, ok := ctx.GetHostname(); ok {
		next.HasHostname = true
		next.Hostname = name
	}
	next.UDPNATType = ctx.GetUDPNATType()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attrs.Equal(next) {
		return false
	}
	s.attrs = next
	return true
}
