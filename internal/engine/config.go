// Package engine wires the Self-View, Route Table, Remote-View Store and
// Version Monotone components (internal/meshroute) together with the
// external PeerInterface and GlobalContext collaborators into the Sync
// Engine: the Advertiser, the Reaper, and the Ingress handler. See
// SPEC_FULL.md §4.5 and §5.
package engine

import (
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/meshroute/routeengine/internal/globalctx"
	"github.com/meshroute/routeengine/internal/meshroute"
)

// Normative tunable defaults (SPEC_FULL.md §6).
const (
	DefaultSendRoutePeriod     = 60 * time.Second
	DefaultSendRouteFastReply  = 5 * time.Second
	DefaultRouteExpiry         = 70 * time.Second
	defaultReaperInterval      = 1 * time.Second
	defaultAdvertiserTickEvery = 1 * time.Second
)

// Config provides all dependencies and tunables for the Sync Engine.
// Fields marked "Required" must be set; Validate enforces this and applies
// defaults where appropriate.
type Config struct {
	// Required object fields.
	Logger  *slog.Logger
	Context globalctx.Context

	// Clock is used for all timing decisions (ticks, elapsed-time
	// comparisons). Tests inject clockwork.NewFakeClock(); production
	// wiring uses clockwork.NewRealClock().
	Clock clockwork.Clock

	// Tunables; zero values are defaulted by Validate.
	SendRoutePeriod    time.Duration
	SendRouteFastReply time.Duration
	RouteExpiry        time.Duration
	ReaperInterval     time.Duration
	AdvertiserTick     time.Duration

	// MaxHops overrides the Route Table's hop-count ceiling
	// (meshroute.MaxHops by default). SPEC_FULL.md §6 lists this among the
	// tunables an operator may override via internal/config.
	MaxHops int

	// Registerer receives this Engine's metrics (internal/telemetry). Nil
	// defaults to a private prometheus.NewRegistry(), so unrelated Engine
	// instances in the same process (as in tests) never collide over
	// metric names; cmd/routed passes its own prometheus.NewRegistry() and
	// serves that registry at /metrics.
	Registerer prometheus.Registerer
}

// Validate verifies required fields and applies defaults for optional
// ones.
func (c *Config) Validate() error {
	if c.Logger == nil {
		return errors.New("engine: logger is required")
	}
	if c.Context == nil {
		return errors.New("engine: global context is required")
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.SendRoutePeriod <= 0 {
		c.SendRoutePeriod = DefaultSendRoutePeriod
	}
	if c.SendRouteFastReply <= 0 {
		c.SendRouteFastReply = DefaultSendRouteFastReply
	}
	if c.SendRouteFastReply >= c.SendRoutePeriod {
		return errors.New("engine: send route fast reply must be less than send route period")
	}
	if c.RouteExpiry <= 0 {
		c.RouteExpiry = DefaultRouteExpiry
	}
	if c.ReaperInterval <= 0 {
		c.ReaperInterval = defaultReaperInterval
	}
	if c.AdvertiserTick <= 0 {
		c.AdvertiserTick = defaultAdvertiserTickEvery
	}
	if c.MaxHops <= 0 {
		c.MaxHops = meshroute.MaxHops
	}
	if c.Registerer == nil {
		c.Registerer = prometheus.NewRegistry()
	}
	return nil
}
