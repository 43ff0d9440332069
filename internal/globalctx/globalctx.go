// Package globalctx defines the GlobalContext collaborator consumed by the
// routing engine's Self-View component, plus a static reference
// implementation for tests and the demo binary. The real mesh daemon's
// live context (STUN collection, live interface enumeration) is out of
// scope for this module; see SPEC_FULL.md §1 and §6.
package globalctx

import (
	"net/netip"
	"sync"

	"github.com/meshroute/routeengine/internal/meshroute"
)

// Context is the collaborator interface the Self-View component reads from
// on every Advertiser tick.
type Context interface {
	GetID() meshroute.PeerId
	GetIPv4() (netip.Addr, bool)
	GetProxyCIDRs() []netip.Prefix
	GetHostname() (string, bool)
	GetUDPNATType() int8
}

// Static is a mutable-but-simple Context backed by a mutex, suitable for
// tests (where attributes change mid-test to exercise Self-View.Refresh)
// and for the demo binary (where attributes are fixed at startup but the
// interface still allows later reconfiguration).
type Static struct {
	mu sync.RWMutex

	id          meshroute.PeerId
	hasIPv4     bool
	ipv4        netip.Addr
	proxyCIDRs  []netip.Prefix
	hasHostname bool
	hostname    string
	udpNATType  int8
}

// NewStatic builds a Static context for the given peer id. Use the Set*
// setters to populate optional attributes before handing it to the engine,
// or call the setters later to simulate attribute churn.
func NewStatic(id meshroute.PeerId) *Static {
	return &Static{id: id}
}

func (s *Static) GetID() meshroute.PeerId { return s.id }

func (s *Static) SetIPv4(ip netip.Addr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasIPv4 = true
	s.ipv4 = ip
}

func (s *Static) ClearIPv4() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasIPv4 = false
	s.ipv4 = netip.Addr{}
}

func (s *Static) GetIPv4() (netip.Addr, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ipv4, s.hasIPv4
}

func (s *Static) SetProxyCIDRs(cidrs []netip.Prefix) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proxyCIDRs = append([]netip.Prefix(nil), cidrs...)
}

func (s *Static) GetProxyCIDRs() []netip.Prefix {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]netip.Prefix(nil), s.proxyCIDRs...)
}

func (s *Static) SetHostname(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasHostname = true
	s.hostname = name
}

func (s *Static) GetHostname() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hostname, s.hasHostname
}

func (s *Static) SetUDPNATType(t int8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.udpNATType = t
}

func (s *Static) GetUDPNATType() int8 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.udpNATType
}
