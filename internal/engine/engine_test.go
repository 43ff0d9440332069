package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/meshroute/routeengine/internal/globalctx"
	"github.com/meshroute/routeengine/internal/meshroute"
	"github.com/meshroute/routeengine/internal/peernet"
)

type testPeer struct {
	engine *Engine
	ctx    *globalctx.Static
	iface  peernet.Interface
	id     meshroute.PeerId
}

// buildPeer constructs an Engine registered in hub but does not Open it,
// so tests can finish wiring up the topology (ConnectBoth) before the
// Advertiser's first pass runs and observes it.
func buildPeer(t *testing.T, hub *peernet.Hub, fc clockwork.Clock) testPeer {
	t.Helper()

	id := uuid.New()
	gctx := globalctx.NewStatic(id)

	e, err := New(id, Config{
		Logger:  discardLogger(),
		Context: gctx,
		Clock:   fc,
	})
	require.NoError(t, err)

	iface := hub.NewPeer(id, func(ctx context.Context, src meshroute.PeerId, data []byte) error {
		return e.HandleAdvertisement(ctx, src, data)
	})

	return testPeer{engine: e, ctx: gctx, iface: iface, id: id}
}

func (p testPeer) open(t *testing.T) {
	t.Helper()
	require.NoError(t, p.engine.Open(context.Background(), p.iface))
	t.Cleanup(func() { _ = p.engine.Close() })
}

func TestEngine_DirectNeighborsLearnEachOther(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	hub := peernet.NewHub()
	fc := clockwork.NewFakeClock()

	a := buildPeer(t, hub, fc)
	b := buildPeer(t, hub, fc)
	hub.ConnectBoth(a.id, b.id)
	a.open(t)
	b.open(t)

	require.Eventually(t, func() bool {
		nh, ok := a.engine.NextHop(b.id)
		return ok && nh == b.id
	}, time.Second, time.Millisecond)

	require.Eventually(t, func() bool {
		nh, ok := b.engine.NextHop(a.id)
		return ok && nh == a.id
	}, time.Second, time.Millisecond)
}

func TestEngine_TransitiveChainConverges(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	hub := peernet.NewHub()
	fc := clockwork.NewFakeClock()

	a := buildPeer(t, hub, fc)
	b := buildPeer(t, hub, fc)
	c := buildPeer(t, hub, fc)
	hub.ConnectBoth(a.id, b.id)
	hub.ConnectBoth(b.id, c.id)
	a.open(t)
	b.open(t)
	c.open(t)

	require.Eventually(t, func() bool {
		nh, ok := a.engine.NextHop(c.id)
		return ok && nh == b.id
	}, 2*time.Second, time.Millisecond)

	require.Eventually(t, func() bool {
		for _, e := range a.engine.Snapshot() {
			if e.Destination == c.id {
				return e.Cost == 2
			}
		}
		return false
	}, 2*time.Second, time.Millisecond)
}

func TestEngine_ReaperRemovesDisconnectedPeer(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	hub := peernet.NewHub()
	fc := clockwork.NewFakeClock()

	a := buildPeer(t, hub, fc)
	b := buildPeer(t, hub, fc)
	hub.ConnectBoth(a.id, b.id)
	a.open(t)
	b.open(t)

	require.Eventually(t, func() bool {
		_, ok := a.engine.NextHop(b.id)
		return ok
	}, time.Second, time.Millisecond)

	hub.DisconnectBoth(a.id, b.id)

	require.Eventually(t, func() bool {
		fc.Advance(defaultReaperInterval)
		_, ok := a.engine.NextHop(b.id)
		return !ok
	}, 2*time.Second, time.Millisecond)
}

func TestEngine_SelfViewChangePropagates(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	hub := peernet.NewHub()
	fc := clockwork.NewFakeClock()

	a := buildPeer(t, hub, fc)
	b := buildPeer(t, hub, fc)
	hub.ConnectBoth(a.id, b.id)
	a.open(t)
	b.open(t)

	require.Eventually(t, func() bool {
		_, ok := b.engine.NextHop(a.id)
		return ok
	}, time.Second, time.Millisecond)

	a.ctx.SetHostname("node-a")

	require.Eventually(t, func() bool {
		fc.Advance(defaultAdvertiserTickEvery)
		for _, e := range b.engine.Snapshot() {
			if e.Destination == a.id {
				return e.Attributes.Hostname == "node-a"
			}
		}
		return false
	}, time.Second, time.Millisecond)
}

func TestEngine_CloseStopsGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := peernet.NewHub()
	fc := clockwork.NewFakeClock()
	a := buildPeer(t, hub, fc)
	a.open(t)

	require.NoError(t, a.engine.Close())
}
