// Package api exposes the Sync Engine's Route Table over HTTP: each
// ServeXHandler constructor closes over its collaborators and returns a
// plain http.HandlerFunc.
package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meshroute/routeengine/internal/meshroute"
)

// RouteSource is the narrow view of Engine the HTTP surface needs.
type RouteSource interface {
	Snapshot() []meshroute.RouteEntry
	Version() uint32
}

// Route is the JSON representation of one Route Table entry.
type Route struct {
	Destination string   `json:"destination"`
	NextHop     string   `json:"next_hop"`
	Cost        int      `json:"cost"`
	Hostname    string   `json:"hostname,omitempty"`
	IPv4        string   `json:"ipv4,omitempty"`
	ProxyCIDRs  []string `json:"proxy_cidrs,omitempty"`
}

func routeFor(e meshroute.RouteEntry) Route {
	rt := Route{
		Destination: e.Destination.String(),
		NextHop:     e.NextHop.String(),
		Cost:        e.Cost,
	}
	if e.Attributes.HasHostname {
		rt.Hostname = e.Attributes.Hostname
	}
	if e.Attributes.HasIPv4 {
		rt.IPv4 = e.Attributes.IPv4.String()
	}
	for _, cidr := range e.Attributes.ProxyCIDRs {
		rt.ProxyCIDRs = append(rt.ProxyCIDRs, cidr.String())
	}
	return rt
}

// ServeRoutesHandler serves the current Route Table snapshot, sorted by
// destination for a stable response across calls.
func ServeRoutesHandler(src RouteSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries := src.Snapshot()
		routes := make([]Route, len(entries))
		for i, e := range entries {
			routes[i] = routeFor(e)
		}
		sort.Slice(routes, func(i, j int) bool {
			return routes[i].Destination < routes[j].Destination
		})

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(routes); err != nil {
			http.Error(w, "failed to encode routes", http.StatusInternalServerError)
			return
		}
	}
}

// VersionResponse is the JSON body of ServeVersionHandler.
type VersionResponse struct {
	Version uint32 `json:"version"`
}

// ServeVersionHandler serves the engine's current version counter.
func ServeVersionHandler(src RouteSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(VersionResponse{Version: src.Version()})
	}
}

// HealthResponse is the JSON body of ServeHealthHandler.
type HealthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

// ServeHealthHandler serves a trivial liveness probe for the demo binary.
func ServeHealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(HealthResponse{Status: "ok", Time: time.Now()})
	}
}

// ServeMetricsHandler exposes gatherer in the Prometheus text exposition
// format.
func ServeMetricsHandler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
