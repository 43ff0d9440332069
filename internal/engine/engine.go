package engine

import (
	"context"
	"fmt"
	"net/netip"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/meshroute/routeengine/internal/meshroute"
	"github.com/meshroute/routeengine/internal/peernet"
	"github.com/meshroute/routeengine/internal/telemetry"
	"github.com/meshroute/routeengine/internal/wire"
)

// Engine is the public entry point: it wires Self-View, Route Table,
// Remote-View Store and Version Monotone into the two periodic tasks
// (Advertiser, Reaper) and the Ingress handler, and exposes the Route API
// (SPEC_FULL.md §6).
type Engine struct {
	id  meshroute.PeerId
	cfg Config

	selfView *meshroute.SelfView
	views    *meshroute.RemoteViewStore
	version  *meshroute.Version
	lastSend *meshroute.LastSendMap
	metrics  *telemetry.Metrics

	routeTable atomic.Pointer[meshroute.RouteTable]

	iface    peernet.Interface
	needSync chan struct{}

	cancel context.CancelFunc
	eg     *errgroup.Group
}

// New builds an Engine for id. cfg is validated and defaulted in place.
func New(id meshroute.PeerId, cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		id:       id,
		cfg:      cfg,
		selfView: meshroute.NewSelfView(id),
		version:  &meshroute.Version{},
		lastSend: meshroute.NewLastSendMap(),
		metrics:  telemetry.New(cfg.Registerer),
		needSync: make(chan struct{}, 1),
	}
	e.views = meshroute.NewRemoteViewStore(cfg.Logger, cfg.RouteExpiry, e.onViewExpired)
	e.publishRouteTable(meshroute.RebuildWithMaxHops(id, nil, cfg.MaxHops))
	return e, nil
}

// Open starts the Advertiser and Reaper against iface. The returned error
// is non-nil only if the engine was already open.
func (e *Engine) Open(ctx context.Context, iface peernet.Interface) error {
	if e.cancel != nil {
		return fmt.Errorf("engine: already open")
	}

	e.iface = iface
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.views.Start(runCtx)

	eg, egCtx := errgroup.WithContext(runCtx)
	e.eg = eg
	eg.Go(func() error { return e.runAdvertiser(egCtx) })
	eg.Go(func() error { return e.runReaper(egCtx) })

	e.cfg.Logger.Info("engine opened", "peer_id", e.id)
	return nil
}

// Close cancels the Advertiser and Reaper and waits for them to exit.
func (e *Engine) Close() error {
	if e.cancel == nil {
		return nil
	}
	e.cancel()
	err := e.eg.Wait()
	e.cancel = nil
	return err
}

// NextHop returns the next-hop peer for dest, if reachable.
func (e *Engine) NextHop(dest meshroute.PeerId) (meshroute.PeerId, bool) {
	return e.routeTable.Load().NextHop(dest)
}

// PeerForIPv4 resolves an IPv4 destination address to a next-hop peer.
func (e *Engine) PeerForIPv4(ip netip.Addr) (meshroute.PeerId, bool) {
	return e.routeTable.Load().PeerForIPv4(ip)
}

// Snapshot returns the current route table contents.
func (e *Engine) Snapshot() []meshroute.RouteEntry {
	return e.routeTable.Load().Snapshot()
}

// Version returns the current route table generation counter.
func (e *Engine) Version() uint32 {
	return e.version.Get()
}

// HandleAdvertisement is the inbound packet filter hand-off point: it
// decodes payload as an Advertisement and feeds it to Ingress, dropping it
// with a warn-log on decode failure or a PeerID/sender mismatch
// (SPEC_FULL.md §6, §7).
func (e *Engine) HandleAdvertisement(ctx context.Context, src meshroute.PeerId, payload []byte) error {
	adv, dropped, err := wire.Decode(payload)
	if err != nil {
		e.cfg.Logger.Warn("dropping malformed advertisement", "src", src, "err", err)
		e.metrics.AdvertisementsDropped.WithLabelValues(telemetry.DropReasonMalformed).Inc()
		return err
	}
	for _, cidr := range dropped {
		e.cfg.Logger.Warn("dropping unparseable proxy cidr in advertisement", "src", src, "cidr", cidr)
		e.metrics.AdvertisementsDropped.WithLabelValues(telemetry.DropReasonUnparseableCIDR).Inc()
	}

	if adv.Myself.PeerID != src {
		e.cfg.Logger.Warn("dropping advertisement with mismatched sender",
			"tunnel_src", src, "claimed_peer_id", adv.Myself.PeerID)
		e.metrics.AdvertisementsDropped.WithLabelValues(telemetry.DropReasonMismatchedSender).Inc()
		return meshroute.ErrMalformedAdvertisement
	}

	e.metrics.AdvertisementsReceived.Inc()
	e.ingress(src, adv)
	return nil
}

// publishRouteTable swaps in rt, and refreshes the gauges that mirror the
// Route Table, Remote-View Store and Version Monotone sizes.
func (e *Engine) publishRouteTable(rt *meshroute.RouteTable) {
	e.routeTable.Store(rt)
	e.metrics.RouteTableSize.Set(float64(len(rt.Snapshot())))
	e.metrics.RemoteViewCount.Set(float64(len(e.views.Keys())))
	e.metrics.Version.Set(float64(e.version.Get()))
}

// rebuildAndAdvance recomputes the Route Table from the current
// Remote-View Store contents, bumps the version, and wakes the
// Advertiser. The Reaper and TTL expiry use it; Ingress performs the same
// version bump and rebuild inline (ingress.go) and wakes the Advertiser
// after arming any fast reply.
func (e *Engine) rebuildAndAdvance() {
	e.version.Inc()
	e.publishRouteTable(meshroute.RebuildWithMaxHops(e.id, e.views.Snapshot(), e.cfg.MaxHops))
	e.notifySync()
}

// notifySync wakes a blocked Advertiser iteration, if any, without
// blocking itself.
func (e *Engine) notifySync() {
	select {
	case e.needSync <- struct{}{}:
	default:
	}
}

// onViewExpired is the Remote-View Store's OnEviction hook for TTL-driven
// expiry (the "aged out" half of invariant 6); it runs the same
// rebuild-and-notify path the Reaper's explicit disconnection removal
// uses.
func (e *Engine) onViewExpired(meshroute.PeerId) {
	e.rebuildAndAdvance()
}
