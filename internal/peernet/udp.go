package peernet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/meshroute/routeengine/internal/meshroute"
)

// UDPInterface is a reference Interface implementation over a single UDP
// socket, for the demo binary. It keeps a small address book mapping known
// PeerIds to UDP endpoints; the enclosing mesh daemon is responsible for
// populating that book as tunnels come up and down (NAT traversal and
// tunnel establishment are out of scope here, see SPEC_FULL.md §1).
type UDPInterface struct {
	log  *slog.Logger
	conn *net.UDPConn

	mu      sync.RWMutex
	peers   map[meshroute.PeerId]*net.UDPAddr
	byAddr  map[string]meshroute.PeerId
	handler Handler

	cancel context.CancelFunc
	done   chan struct{}
}

// ListenUDP binds to bindAddr (e.g. ":7946") and returns a configured
// UDPInterface. Call Start to begin dispatching inbound packets to handler.
func ListenUDP(log *slog.Logger, bindAddr string) (*UDPInterface, error) {
	laddr, err := net.ResolveUDPAddr("udp", bindAddr)
	if err != nil {
		return nil, fmt.Errorf("peernet: resolve bind address: %w", err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("peernet: listen udp: %w", err)
	}
	return &UDPInterface{
		log:    log,
		conn:   conn,
		peers:  make(map[meshroute.PeerId]*net.UDPAddr),
		byAddr: make(map[string]meshroute.PeerId),
	}, nil
}

// LocalAddr returns the bound socket address.
func (u *UDPInterface) LocalAddr() net.Addr { return u.conn.LocalAddr() }

// AddPeer registers (or updates) the UDP endpoint for a directly-connected
// peer. Until a peer is added here, inbound packets claiming to be from it
// are dropped and ListPeers will not report it.
func (u *UDPInterface) AddPeer(id meshroute.PeerId, addr *net.UDPAddr) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if old, ok := u.peers[id]; ok {
		delete(u.byAddr, old.String())
	}
	u.peers[id] = addr
	u.byAddr[addr.String()] = id
}

// RemovePeer forgets a peer's endpoint; its next advertisement is ignored
// until re-added.
func (u *UDPInterface) RemovePeer(id meshroute.PeerId) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if addr, ok := u.peers[id]; ok {
		delete(u.byAddr, addr.String())
		delete(u.peers, id)
	}
}

// SendRoutePacket implements Interface. priority is accepted for interface
// compatibility but unused: a single UDP socket has no send-side QoS knob
// here.
func (u *UDPInterface) SendRoutePacket(ctx context.Context, data []byte, priority int, dest meshroute.PeerId) error {
	u.mu.RLock()
	addr, ok := u.peers[dest]
	u.mu.RUnlock()
	if !ok {
		return fmt.Errorf("peernet: send to %s: %w", dest, meshroute.ErrPeerNotConnected)
	}

	_, err := u.conn.WriteToUDP(data, addr)
	if err != nil {
		return fmt.Errorf("peernet: write to %s: %w", dest, err)
	}
	return nil
}

// ListPeers implements Interface.
func (u *UDPInterface) ListPeers(ctx context.Context) ([]meshroute.PeerId, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]meshroute.PeerId, 0, len(u.peers))
	for id := range u.peers {
		out = append(out, id)
	}
	return out, nil
}

// Start launches the read loop in a goroutine and returns immediately. The
// loop dispatches each datagram to handler after resolving its source
// address back to a registered PeerId; it exits when the socket is closed,
// or at the first read that returns after ctx is cancelled.
func (u *UDPInterface) Start(ctx context.Context, handler Handler) {
	runCtx, cancel := context.WithCancel(ctx)
	u.cancel = cancel
	u.done = make(chan struct{})
	u.handler = handler

	go u.readLoop(runCtx)
}

// Close stops the read loop and closes the socket.
func (u *UDPInterface) Close() error {
	if u.cancel != nil {
		u.cancel()
	}
	err := u.conn.Close()
	if u.done != nil {
		<-u.done
	}
	return err
}

func (u *UDPInterface) readLoop(ctx context.Context) {
	defer close(u.done)

	buf := make([]byte, 64*1024)
	for {
		if ctx.Err() != nil {
			return
		}

		n, raddr, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return
			}
			u.log.Warn("peernet: udp read error", "err", err)
			continue
		}

		u.mu.RLock()
		src, known := u.byAddr[raddr.String()]
		u.mu.RUnlock()
		if !known {
			u.log.Debug("peernet: dropping packet from unregistered address", "addr", raddr.String())
			continue
		}

		data := append([]byte(nil), buf[:n]...)
		if err := u.handler(ctx, src, data); err != nil {
			u.log.Warn("peernet: handler error", "src", src, "err", err)
		}
	}
}
