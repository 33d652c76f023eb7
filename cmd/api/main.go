package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "autolead_backend/internal/http"
	"autolead_backend/internal/ingest"
	"autolead_backend/internal/ingest/classifier"
	"autolead_backend/internal/meta"
	"autolead_backend/internal/notify"
	"autolead_backend/internal/pipeline"
	"autolead_backend/platform/ai/claude"
	"autolead_backend/platform/config"
	"autolead_backend/platform/db"
	"autolead_backend/platform/events"
	"autolead_backend/platform/logger"
	"autolead_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting api", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.Migrate(cfg.DatabaseURL)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	queue, err := pipeline.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task queue client", "error", err)
		panic("failed to initialize task queue client: " + err.Error())
	}
	defer func() { _ = queue.Close() }()

	rules, err := classifierRules(cfg, log)
	if err != nil {
		panic("failed to load spam rules: " + err.Error())
	}

	val := validator.New()
	aiClient := claude.New(cfg)
	if !cfg.IsAIEnabled() {
		log.Warn("ANTHROPIC_API_KEY not configured; classification runs degraded")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	ingestModule := ingest.NewModule(pool, queue, eventBus, meta.NewClient(cfg), aiClient, cfg, rules, val, log)

	// Sales-rep alerts ride the event bus out to the broker.
	if cfg.IsAlertEnabled() {
		alerts, err := notify.NewAlertPublisher(cfg, log)
		if err != nil {
			log.Error("failed to initialize alert publisher", "error", err)
			panic("failed to initialize alert publisher: " + err.Error())
		}
		defer alerts.Close()
		alerts.RegisterHandlers(eventBus)
		log.Info("alert publisher initialized", "exchange", cfg.AlertExchange)
	} else {
		log.Warn("AMQP_URL not configured; sales-rep alerts disabled")
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			ingestModule,
		},
	}

	engine := apphttp.NewRouter(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func classifierRules(cfg config.ClassifierConfig, log *logger.Logger) (classifier.Rules, error) {
	rules, err := classifier.LoadRules(cfg.GetSpamRulesPath())
	if err != nil {
		return rules, err
	}
	if cfg.GetSpamRulesPath() != "" {
		log.Info("spam rules loaded", "path", cfg.GetSpamRulesPath())
	}
	return rules, nil
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
