package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"autolead_backend/internal/ingest"
	"autolead_backend/internal/ingest/classifier"
	"autolead_backend/internal/meta"
	"autolead_backend/internal/notify"
	"autolead_backend/internal/pipeline"
	"autolead_backend/internal/tenant"
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
	log.Info("starting worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)

	// Process re-enqueues the notify step, so the worker needs its own client.
	queue, err := pipeline.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task queue client", "error", err)
		panic("failed to initialize task queue client: " + err.Error())
	}
	defer func() { _ = queue.Close() }()

	rules, err := classifier.LoadRules(cfg.GetSpamRulesPath())
	if err != nil {
		log.Error("failed to load spam rules", "error", err)
		panic("failed to load spam rules: " + err.Error())
	}

	val := validator.New()
	aiClient := claude.New(cfg)

	ingestModule := ingest.NewModule(pool, queue, eventBus, meta.NewClient(cfg), aiClient, cfg, rules, val, log)

	var sender notify.Sender
	if cfg.EmailEnabled {
		sender = notify.NewSMTPSender(cfg)
	} else {
		log.Warn("SMTP not configured; auto-responses disabled")
	}

	notifyService := notify.NewService(
		notify.NewRepository(pool),
		tenant.NewRepository(pool),
		notify.NewResponder(aiClient, log),
		sender,
		eventBus,
		log,
	)

	if cfg.IsAlertEnabled() {
		alerts, err := notify.NewAlertPublisher(cfg, log)
		if err != nil {
			log.Error("failed to initialize alert publisher", "error", err)
			panic("failed to initialize alert publisher: " + err.Error())
		}
		defer alerts.Close()
		alerts.RegisterHandlers(eventBus)
	} else {
		log.Warn("AMQP_URL not configured; sales-rep alerts disabled")
	}

	worker, err := pipeline.NewWorker(cfg, ingestModule.Service(), notifyService, log)
	if err != nil {
		log.Error("failed to initialize pipeline worker", "error", err)
		panic("failed to initialize pipeline worker: " + err.Error())
	}

	worker.Run(ctx)
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
