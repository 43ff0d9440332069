package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/meshroute/routeengine/internal/api"
	"github.com/meshroute/routeengine/internal/config"
	"github.com/meshroute/routeengine/internal/engine"
	"github.com/meshroute/routeengine/internal/globalctx"
	"github.com/meshroute/routeengine/internal/peernet"
)

func newServeCmd(verbose *bool) *cobra.Command {
	var (
		id         string
		listenAddr string
		apiAddr    string
		peers      []string
		configPath string
		hostname   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the routing engine against a UDP peer transport.",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(*verbose)

			peerID, err := resolvePeerID(id)
			if err != nil {
				return err
			}

			cfg := engineConfig(log)
			var onDiskCfg *config.Config
			if configPath != "" {
				onDisk, err := config.Load(configPath)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				applyConfigOverrides(&cfg, onDisk)
				onDiskCfg = onDisk
			}

			gctx := globalctx.NewStatic(peerID)
			if hostname != "" {
				gctx.SetHostname(hostname)
			}
			cfg.Context = gctx

			eng, err := engine.New(peerID, cfg)
			if err != nil {
				return fmt.Errorf("failed to build engine: %w", err)
			}

			iface, err := peernet.ListenUDP(log, listenAddr)
			if err != nil {
				return fmt.Errorf("failed to listen udp: %w", err)
			}
			defer iface.Close()

			for _, p := range peers {
				peerID, addr, err := parsePeerSpec(p)
				if err != nil {
					return fmt.Errorf("invalid --peer %q: %w", p, err)
				}
				iface.AddPeer(peerID, addr)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			iface.Start(ctx, eng.HandleAdvertisement)

			if err := eng.Open(ctx, iface); err != nil {
				return fmt.Errorf("failed to open engine: %w", err)
			}
			defer eng.Close()

			reg, _ := cfg.Registerer.(*prometheus.Registry)
			srv := &http.Server{
				Addr:    apiAddr,
				Handler: apiMux(eng, reg, log, onDiskCfg),
			}
			go func() {
				log.Info("api server listening", "addr", apiAddr)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("api server failed", "err", err)
				}
			}()

			log.Info("routed started", "peer_id", peerID, "listen_addr", iface.LocalAddr().String())
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)

			log.Info("routed stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "this peer's id (uuid); random if unset")
	cmd.Flags().StringVar(&listenAddr, "listen-addr", ":7946", "UDP address to bind the peer transport")
	cmd.Flags().StringVar(&apiAddr, "api-addr", "127.0.0.1:8080", "HTTP address for the observation API")
	cmd.Flags().StringSliceVar(&peers, "peer", nil, "directly-connected peer as uuid@host:port, repeatable")
	cmd.Flags().StringVar(&configPath, "config", "", "path to a tunables JSON file")
	cmd.Flags().StringVar(&hostname, "hostname", "", "hostname to advertise")

	return cmd
}

func engineConfig(log *slog.Logger) engine.Config {
	return engine.Config{
		Logger:     log,
		Clock:      clockwork.NewRealClock(),
		Registerer: prometheus.NewRegistry(),
	}
}

func applyConfigOverrides(cfg *engine.Config, onDisk *config.Config) {
	if v := onDisk.SendRoutePeriod(); v > 0 {
		cfg.SendRoutePeriod = v
	}
	if v := onDisk.SendRouteFastReply(); v > 0 {
		cfg.SendRouteFastReply = v
	}
	if v := onDisk.RouteExpiry(); v > 0 {
		cfg.RouteExpiry = v
	}
	if v := onDisk.MaxHopsOverride(); v > 0 {
		cfg.MaxHops = v
	}
}

func apiMux(eng *engine.Engine, reg *prometheus.Registry, log *slog.Logger, onDiskCfg *config.Config) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/routes", api.ServeRoutesHandler(eng))
	mux.HandleFunc("/version", api.ServeVersionHandler(eng))
	mux.HandleFunc("/health", api.ServeHealthHandler())
	if reg != nil {
		mux.Handle("/metrics", api.ServeMetricsHandler(reg))
	}
	if onDiskCfg != nil {
		mux.HandleFunc("/config", config.NewUpdateHandler(log, onDiskCfg))
	}
	return mux
}

func resolvePeerID(id string) (uuid.UUID, error) {
	if id == "" {
		return uuid.New(), nil
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("invalid --id: %w", err)
	}
	return parsed, nil
}

func parsePeerSpec(spec string) (uuid.UUID, *net.UDPAddr, error) {
	parts := strings.SplitN(spec, "@", 2)
	if len(parts) != 2 {
		return uuid.UUID{}, nil, fmt.Errorf("expected uuid@host:port")
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.UUID{}, nil, fmt.Errorf("invalid peer id: %w", err)
	}
	addr, err := net.ResolveUDPAddr("udp", parts[1])
	if err != nil {
		return uuid.UUID{}, nil, fmt.Errorf("invalid peer address: %w", err)
	}
	return id, addr, nil
}
