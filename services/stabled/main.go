package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"stablecore/observability/logging"
	telemetry "stablecore/observability/otel"
	"stablecore/services/stabled/config"
	"stablecore/services/stabled/server"
	"stablecore/services/stabled/storage"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "services/stabled/config.yaml", "path to stabled configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("STABLE_ENV"))
	logger := logging.Setup("stabled", env)

	otlpEndpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	otlpHeaders := telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	insecure := true
	if value := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			insecure = parsed
		}
	}
	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "stabled",
		Environment: env,
		Endpoint:    otlpEndpoint,
		Insecure:    insecure,
		Headers:     otlpHeaders,
		Metrics:     true,
		Traces:      true,
	})
	if err != nil {
		log.Fatalf("init telemetry: %v", err)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("stabled: load config: %v", err)
	}

	dsn, err := storage.FileDSN(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("stabled: resolve storage DSN: %v", err)
	}
	store, err := storage.Open(dsn)
	if err != nil {
		log.Fatalf("stabled: open storage: %v", err)
	}
	defer store.Close()

	srv, err := server.New(server.Config{
		ListenAddress: cfg.ListenAddress,
		BearerToken:   cfg.Admin.BearerToken,
	}, store, logger)
	if err != nil {
		log.Fatalf("stabled: server: %v", err)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go runRetentionSweep(rootCtx, store, logger, cfg.Audit)

	if err := srv.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("http server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func runRetentionSweep(ctx context.Context, store *storage.Storage, logger *slog.Logger, audit config.AuditConfig) {
	ticker := time.NewTicker(audit.Interval.Duration)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			cutoff := now.Add(-audit.Retention.Duration)
			removed, err := store.PruneReceipts(ctx, cutoff)
			if err != nil {
				logger.Error("prune receipts", slog.String("error", err.Error()))
				continue
			}
			if removed > 0 {
				logger.Info("pruned receipts", slog.Int64("removed", removed))
			}
		}
	}
}
