package config

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

type ConfigResponse struct {
	Status string `json:"status"`
}

// NewUpdateHandler exposes UpdateFromJSON over HTTP so an operator can push
// a new tunables file without a restart.
func NewUpdateHandler(log *slog.Logger, cfg *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		if err := cfg.UpdateFromJSON(body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		log.Info("configuration updated",
			"send_route_period_seconds", cfg.SendRoutePeriodSeconds,
			"send_route_fast_reply_seconds", cfg.SendRouteFastReplySeconds,
			"route_expiry_seconds", cfg.RouteExpirySeconds,
			"max_hops", cfg.MaxHops,
		)

		res := ConfigResponse{Status: "ok"}

		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(res); err != nil {
			http.Error(w, fmt.Sprintf("error generating response: %v", err), http.StatusInternalServerError)
		}
	}
}
