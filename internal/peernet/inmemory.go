package peernet

import (
	"context"
	"fmt"
	"sync"

	"github.com/meshroute/routeengine/internal/meshroute"
)

// Handler processes a packet addressed to a peer; wire it to
// Engine.HandleAdvertisement.
type Handler func(ctx context.Context, src meshroute.PeerId, data []byte) error

// Hub wires a set of InMemory peers together, for tests that need to
// construct arbitrary mesh topologies (linear chains, stars, partitions)
// deterministically and without real sockets.
type Hub struct {
	mu       sync.RWMutex
	handlers map[meshroute.PeerId]Handler
	links    map[meshroute.PeerId]map[meshroute.PeerId]bool
}

// NewHub creates an empty in-memory mesh.
func NewHub() *Hub {
	return &Hub{
		handlers: make(map[meshroute.PeerId]Handler),
		links:    make(map[meshroute.PeerId]map[meshroute.PeerId]bool),
	}
}

// NewPeer registers a new node in the hub and returns its Interface. handler
// is invoked for every packet addressed to this peer.
func (h *Hub) NewPeer(id meshroute.PeerId, handler Handler) *InMemory {
	h.mu.Lock()
	h.handlers[id] = handler
	if h.links[id] == nil {
		h.links[id] = make(map[meshroute.PeerId]bool)
	}
	h.mu.Unlock()
	return &InMemory{hub: h, id: id}
}

// ConnectBoth marks a and b as directly connected in both directions.
func (h *Hub) ConnectBoth(a, b meshroute.PeerId) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.links[a][b] = true
	h.links[b][a] = true
}

// DisconnectBoth removes the link between a and b in both directions.
func (h *Hub) DisconnectBoth(a, b meshroute.PeerId) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.links[a], b)
	delete(h.links[b], a)
}

// InMemory is a fake Interface backed by a Hub, for deterministic tests.
type InMemory struct {
	hub *Hub
	id  meshroute.PeerId
}

// SendRoutePacket implements Interface.
func (p *InMemory) SendRoutePacket(ctx context.Context, data []byte, priority int, dest meshroute.PeerId) error {
	p.hub.mu.RLock()
	connected := p.hub.links[p.id][dest]
	handler := p.hub.handlers[dest]
	p.hub.mu.RUnlock()

	if !connected || handler == nil {
		return fmt.Errorf("peernet: send to %s: %w", dest, meshroute.ErrPeerNotConnected)
	}
	return handler(ctx, p.id, append([]byte(nil), data...))
}

// ListPeers implements Interface.
func (p *InMemory) ListPeers(ctx context.Context) ([]meshroute.PeerId, error) {
	p.hub.mu.RLock()
	defer p.hub.mu.RUnlock()
	peers := make([]meshroute.PeerId, 0, len(p.hub.links[p.id]))
	for id, up := range p.hub.links[p.id] {
		if up {
			peers = append(peers, id)
		}
	}
	return peers, nil
}
