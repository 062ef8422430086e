// Command spellproof is the main entry point for the Spellproof spelling
// verification server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/spellproof/spellproof/internal/app"
	"github.com/spellproof/spellproof/internal/config"
	"github.com/spellproof/spellproof/internal/eventlog"
	"github.com/spellproof/spellproof/internal/gateway"
	"github.com/spellproof/spellproof/internal/health"
	"github.com/spellproof/spellproof/internal/learning"
	"github.com/spellproof/spellproof/internal/mappingstore"
	"github.com/spellproof/spellproof/internal/observe"
	"github.com/spellproof/spellproof/internal/resilience"
	"github.com/spellproof/spellproof/internal/vocab"
	"github.com/spellproof/spellproof/pkg/provider/stt"
	"github.com/spellproof/spellproof/pkg/provider/stt/deepgram"
	"github.com/spellproof/spellproof/pkg/provider/stt/noop"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "spellproof: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "spellproof: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("spellproof starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	metrics := observe.DefaultMetrics()

	// ── Storage ───────────────────────────────────────────────────────────────
	var (
		pool     *pgxpool.Pool
		events   eventlog.Store
		mappings mappingstore.Store
	)
	if cfg.Database.URL != "" {
		pool, err = pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			slog.Error("failed to create database pool", "err", err)
			return 1
		}
		defer pool.Close()

		eventStore := eventlog.NewPostgresStore(pool)
		mappingStore := mappingstore.NewPostgresStore(pool)
		if err := eventStore.Migrate(ctx); err != nil {
			slog.Error("event log migration failed", "err", err)
			return 1
		}
		if err := mappingStore.Migrate(ctx); err != nil {
			slog.Error("mapping store migration failed", "err", err)
			return 1
		}
		events, mappings = eventStore, mappingStore
	} else {
		slog.Warn("no database configured, attempts and learned mappings will not survive restarts")
		events, mappings = eventlog.NewMemStore(), mappingstore.NewMemStore()
	}

	// ── Speech provider ───────────────────────────────────────────────────────
	provider, err := buildRecognizer(cfg)
	if err != nil {
		slog.Error("failed to build speech provider", "err", err)
		return 1
	}

	// ── Application ───────────────────────────────────────────────────────────
	eventLogger := eventlog.NewLogger(events, eventlog.WithDropHook(func(eventlog.Event) {
		metrics.DroppedEvents.Add(context.Background(), 1)
	}))
	engine := learning.New(events, mappings, learning.Config{
		WindowDays:        cfg.Learning.WindowDays,
		MaxEvents:         cfg.Learning.MaxEvents,
		MinOccurrences:    cfg.Learning.MinOccurrences,
		InitialConfidence: cfg.Learning.InitialConfidence,
		ReinforceStep:     cfg.Learning.ReinforceStep,
		MaxConfidence:     cfg.Learning.MaxConfidence,
	})
	service := app.NewService(mappings, eventLogger, engine, app.WithMetrics(metrics))

	var sweeper *app.Sweeper
	if cfg.Scheduler.Enabled {
		window := time.Duration(cfg.Learning.WindowDays) * 24 * time.Hour
		sweeper = app.NewSweeper(service, events, cfg.Scheduler.Interval, window, cfg.Scheduler.UserLimit)
		if err := sweeper.Start(); err != nil {
			slog.Error("failed to start learning sweeper", "err", err)
			return 1
		}
	}

	// ── HTTP routes ───────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.Handle("/ws/recognize", gateway.NewServer(provider,
		gateway.WithMetrics(metrics),
		gateway.WithDefaults(cfg.Provider.STT.Language, cfg.Provider.STT.SampleRate),
		gateway.WithKeywords(vocab.SpellingKeywords()),
	))
	service.Register(mux)

	checkers := []health.Checker{}
	if pool != nil {
		checkers = append(checkers, health.Database(pool))
	}
	health.New(checkers...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           observe.Middleware(metrics)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)
	slog.Info("server ready — press Ctrl+C to shut down")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if cfg.Server.TLS != nil {
			err = server.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()

		// ── Graceful shutdown ─────────────────────────────────────────────────
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		slog.Info("shutdown signal received, stopping…")
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	if sweeper != nil {
		sweeper.Stop()
	}
	if err := eventLogger.Close(); err != nil {
		slog.Warn("event logger close error", "err", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := otelShutdown(shutdownCtx); err != nil {
		slog.Warn("telemetry shutdown error", "err", err)
	}

	slog.Info("goodbye")
	return 0
}

// buildRecognizer assembles the speech provider chain from configuration.
// The configured provider is always wrapped in a circuit-breaking fallback
// chain even when it is the only entry, so repeated upstream failures stop
// hammering the vendor.
func buildRecognizer(cfg *config.Config) (stt.Provider, error) {
	chain := resilience.NewRecognizerFallback()

	switch cfg.Provider.STT.Name {
	case "noop":
		chain.Add("noop", noop.New())
		return chain, nil
	case "deepgram", "":
		var opts []deepgram.Option
		if cfg.Provider.STT.Model != "" {
			opts = append(opts, deepgram.WithModel(cfg.Provider.STT.Model))
		}
		if cfg.Provider.STT.Language != "" {
			opts = append(opts, deepgram.WithLanguage(cfg.Provider.STT.Language))
		}
		if cfg.Provider.STT.SampleRate != 0 {
			opts = append(opts, deepgram.WithSampleRate(cfg.Provider.STT.SampleRate))
		}
		dg, err := deepgram.New(cfg.Provider.STT.APIKey, opts...)
		if err != nil {
			return nil, err
		}
		chain.Add("deepgram", dg)
	default:
		return nil, fmt.Errorf("main: unknown stt provider %q", cfg.Provider.STT.Name)
	}

	if cfg.Provider.STT.NoopFallback {
		chain.Add("noop", noop.New())
	}
	return chain, nil
}

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        Spellproof — startup summary   ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printRow("STT provider", orDefault(cfg.Provider.STT.Name, "deepgram"))
	printRow("STT model", orDefault(cfg.Provider.STT.Model, "(provider default)"))
	printRow("Language", cfg.Provider.STT.Language)
	if cfg.Database.URL != "" {
		printRow("Database", "postgres")
	} else {
		printRow("Database", "in-memory")
	}
	if cfg.Scheduler.Enabled {
		printRow("Learning sweep", cfg.Scheduler.Interval.String())
	} else {
		printRow("Learning sweep", "(disabled)")
	}
	if cfg.Server.ListenAddr != "" {
		printRow("Listen addr", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printRow(label, value string) {
	fmt.Printf("║  %-15s : %-19s ║\n", label, value)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
