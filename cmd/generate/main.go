// Command generate produces the synthetic fraud-labeled transaction dataset.
//
// It builds a deterministic population of users, devices, accounts and KYC
// submissions, then streams labeled transactions in batches to either
// PostgreSQL (DATABASE_URL set) or JSONL files (OUTPUT_DIR).
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/boxylabs/fraudgen/internal/config"
	"github.com/boxylabs/fraudgen/internal/logging"
	"github.com/boxylabs/fraudgen/internal/metrics"
	"github.com/boxylabs/fraudgen/internal/population"
	"github.com/boxylabs/fraudgen/internal/rules"
	"github.com/boxylabs/fraudgen/internal/sample"
	"github.com/boxylabs/fraudgen/internal/sink"
	"github.com/boxylabs/fraudgen/internal/stream"
	"github.com/boxylabs/fraudgen/internal/window"
)

// Build info - set by ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(config.DefaultLogLevel, config.DefaultLogFormat).
			Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting fraudgen",
		"version", Version,
		"commit", Commit,
		"build_time", BuildTime,
		"users", cfg.UserCount,
		"target", cfg.TargetCount,
		"seed", cfg.RandomSeed,
	)

	metrics.Register()
	if cfg.MetricsAddr != "" {
		startMetricsListener(cfg.MetricsAddr, logger)
	}

	out, err := openSink(cfg, logger)
	if err != nil {
		logger.Error("failed to open sink", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = run(ctx, cfg, out, logger)
	if cerr := out.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("close sink: %w", cerr)
	}
	if err != nil {
		logger.Error("generation failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, out sink.Sink, logger *slog.Logger) error {
	src := sample.New(cfg.RandomSeed)

	builder, err := population.NewBuilder(cfg.UserCount, cfg.StartDate, cfg.EndDate, src)
	if err != nil {
		return fmt.Errorf("population builder: %w", err)
	}

	buildStart := time.Now()
	pop := builder.Build()
	logger.Info("population built",
		"users", len(pop.Users),
		"devices", len(pop.Devices),
		"accounts", len(pop.Accounts),
		"elapsed", time.Since(buildStart),
	)

	if err := out.WritePopulation(ctx, pop); err != nil {
		return fmt.Errorf("write population: %w", err)
	}

	store := window.NewStore(window.DefaultCapacity)
	store.SeedIPHistory(pop.IPHistory)
	engine := rules.NewEngine(src)

	gen := stream.New(stream.Config{
		TargetCount: cfg.TargetCount,
		Start:       cfg.StartDate,
		Horizon:     cfg.EndDate,
		BatchSize:   cfg.BatchSize,
	}, pop, store, engine, src, logger)

	streamStart := time.Now()
	stats, err := gen.Run(ctx, out)
	if err != nil {
		return fmt.Errorf("stream: %w", err)
	}

	logger.Info("generation complete",
		"generated", stats.Generated,
		"fraud", stats.Fraud,
		"batches", stats.Batches,
		"skipped", stats.Skipped,
		"elapsed", time.Since(streamStart),
	)
	return nil
}

// openSink selects PostgreSQL when DATABASE_URL is set, JSONL otherwise.
func openSink(cfg *config.Config, logger *slog.Logger) (sink.Sink, error) {
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		logger.Info("writing to postgres")
		return sink.NewPostgres(db), nil
	}

	s, err := sink.NewJSONL(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("open jsonl sink: %w", err)
	}
	logger.Info("writing jsonl files", "dir", cfg.OutputDir)
	return s, nil
}

func startMetricsListener(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics listener failed", "error", err)
		}
	}()
	logger.Info("metrics listening", "addr", addr)
}
