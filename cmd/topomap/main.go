package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"topomap/internal/config"
	"topomap/internal/db"
	"topomap/internal/devicefile"
	"topomap/internal/enrichment/rdns"
	"topomap/internal/enrichment/snmp"
	"topomap/internal/httpapi"
	"topomap/internal/metrics"
	"topomap/internal/refresher"
	"topomap/internal/viewer"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		boot := httpapi.NewLogger("info")
		boot.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := httpapi.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	viewers := viewer.NewRegistry(logger.With().Str("component", "viewer").Logger(), m)

	src, pool := openSource(ctx, logger, cfg)
	defer pool.Close()

	r := refresher.New(logger.With().Str("component", "refresher").Logger(), src, viewers, refresher.Options{
		Interval: cfg.RefreshInterval,
		Timeout:  cfg.RefreshTimeout,
	}, m)
	go r.Run(ctx)

	if fs, ok := src.(*devicefile.Source); ok {
		go func() {
			if err := devicefile.Watch(ctx, logger, fs.Path(), 0, r.Trigger); err != nil {
				logger.Error().Err(err).Msg("device file watcher stopped")
			}
		}()
	}

	go pruneSessions(ctx, viewers, cfg.SessionIdleTimeout)

	opts := httpapi.Options{
		Metrics:        m,
		Refresh:        r.Trigger,
		SuggestLimit:   cfg.SuggestLimit,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}
	if pool != nil {
		opts.Ping = pool.Ping
	}
	h := httpapi.NewHandler(logger, viewers, opts)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Str("source", src.Name()).Msg("topomap listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info().Msg("shutdown complete")
}

// openSource builds the configured device source. The pool is nil unless the
// source is postgres.
func openSource(ctx context.Context, logger zerolog.Logger, cfg config.Config) (refresher.Source, *db.Pool) {
	switch cfg.DeviceSource {
	case config.SourcePostgres:
		pool, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		if cfg.DeviceFile != "" {
			seedDatabase(ctx, logger, pool, cfg.DeviceFile)
		}
		return db.NewDeviceSource(pool.Queries()), pool

	case config.SourceSNMP:
		var resolver snmp.HostnameResolver
		if cfg.DNSServer != "" {
			resolver = rdns.NewResolver(cfg.DNSServer, 0)
		}
		client := snmp.NewClient(snmp.Config{
			Community: cfg.SNMPCommunity,
			Version:   cfg.SNMPVersion,
			Port:      cfg.SNMPPort,
			Timeout:   cfg.SNMPTimeout,
			Retries:   cfg.SNMPRetries,
		})
		targets := snmp.ParseTargets(cfg.SNMPTargets)
		return snmp.NewSource(logger.With().Str("component", "snmp").Logger(), client, targets, resolver, cfg.SNMPWorkers), nil

	default:
		return devicefile.NewSource(cfg.DeviceFile), nil
	}
}

func seedDatabase(ctx context.Context, logger zerolog.Logger, pool *db.Pool, path string) {
	devices, err := devicefile.Load(path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", path).Msg("failed to read seed device file")
	}
	n, err := pool.ImportDevices(ctx, devices)
	if err != nil {
		logger.Fatal().Err(err).Str("path", path).Msg("failed to seed topology tables")
	}
	logger.Info().Int("devices", n).Str("path", path).Msg("topology tables seeded")
}

func pruneSessions(ctx context.Context, viewers *viewer.Registry, maxIdle time.Duration) {
	interval := maxIdle / 4
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			viewers.Prune(maxIdle)
		}
	}
}
