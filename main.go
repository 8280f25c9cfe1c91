// Command bili-relay is the main entrypoint for the archive relay bot.
// It:
//   - Loads configuration and initializes structured logging.
//   - Selects the policy storage backend (writable file dir or read-only
//     env-seeded) once at startup.
//   - Connects the Twitch chat front-end and the request orchestrator.
//   - Exposes a minimal HTTP server with /healthz, /status, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM; in-flight polling tasks are
// abandoned without persisting their state.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/onnwee/bili-relay/archiver"
	"github.com/onnwee/bili-relay/chat"
	"github.com/onnwee/bili-relay/config"
	"github.com/onnwee/bili-relay/policy"
	"github.com/onnwee/bili-relay/relay"
	"github.com/onnwee/bili-relay/resolver"
	"github.com/onnwee/bili-relay/server"
	"github.com/onnwee/bili-relay/storage"
	"github.com/onnwee/bili-relay/telemetry"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load(".env")

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))

	// Config; the archive service base URL is mandatory.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("bili-relay", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	base, err := archiver.ParseBase(cfg.ArchiverAPIBase)
	if err != nil {
		slog.Error("invalid archive service base URL", slog.Any("err", err))
		os.Exit(1)
	}
	arch := archiver.New(base)

	// Storage backend is chosen exactly once here and injected everywhere.
	backend, err := storage.New(cfg.StateBackend, cfg.StateDir, map[string]string{
		"admins":    cfg.SeedAdmins,
		"blacklist": cfg.SeedBlacklist,
	})
	if err != nil {
		slog.Error("storage backend init failed", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("storage backend selected", slog.String("backend", cfg.StateBackend))
	pol := policy.NewStore(backend)

	notifier := chat.NewNotifier()
	orch := relay.New(arch, resolver.New(), notifier,
		relay.WithSchedule(cfg.PollAttempts, cfg.PollBaseDelay, cfg.PollStepDelay))
	bot := &chat.Bot{
		Handler:          orch,
		Queue:            arch,
		Policy:           pol,
		BlacklistEnabled: cfg.EnableBlacklist,
	}

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.ValidateChatReady(); err != nil {
		slog.Info("chat front-end disabled (missing twitch creds)", slog.Any("err", err))
	} else {
		go func() {
			if err := chat.Start(ctx, cfg, bot, notifier); err != nil {
				slog.Error("chat front-end exited with error", slog.Any("err", err))
			}
		}()
	}

	// HTTP server (health/status/metrics)
	go func() {
		if err := server.Start(ctx, &server.Handlers{Pollers: orch, Archive: arch}, cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}
