package pipeline

import (
	"context"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"autolead_backend/platform/config"
	"autolead_backend/platform/logger"
)

// Processor runs the async pipeline stages. Satisfied by *service.Service.
type Processor interface {
	Process(ctx context.Context, inquiryID uuid.UUID, reprocess bool) error
}

// Notifier dispatches the downstream notification for a committed lead.
// Satisfied by *notify.Service.
type Notifier interface {
	Dispatch(ctx context.Context, leadID, inquiryID uuid.UUID) error
}

// Worker consumes pipeline tasks.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor Processor
	notifier  Notifier
	log       *logger.Logger
}

// NewWorker creates the asynq worker.
func NewWorker(cfg config.SchedulerConfig, processor Processor, notifier Notifier, log *logger.Logger) (*Worker, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetWorkerConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			"default": 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		processor: processor,
		notifier:  notifier,
		log:       log,
	}

	mux.HandleFunc(TaskIngestProcess, w.handleProcess)
	mux.HandleFunc(TaskIngestReprocess, w.handleReprocess)
	mux.HandleFunc(TaskLeadNotify, w.handleNotify)

	return w, nil
}

// Run serves tasks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("pipeline worker stopped", "error", err)
	}
}

func (w *Worker) handleProcess(ctx context.Context, task *asynq.Task) error {
	inquiryID, err := parseInquiryID(task)
	if err != nil {
		return err
	}
	return w.processor.Process(ctx, inquiryID, false)
}

func (w *Worker) handleReprocess(ctx context.Context, task *asynq.Task) error {
	inquiryID, err := parseInquiryID(task)
	if err != nil {
		return err
	}
	return w.processor.Process(ctx, inquiryID, true)
}

func (w *Worker) handleNotify(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseNotifyPayload(task)
	if err != nil {
		return err
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return err
	}
	inquiryID, err := uuid.Parse(payload.InquiryID)
	if err != nil {
		return err
	}

	return w.notifier.Dispatch(ctx, leadID, inquiryID)
}

func parseInquiryID(task *asynq.Task) (uuid.UUID, error) {
	payload, err := ParseProcessPayload(task)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(payload.InquiryID)
}
