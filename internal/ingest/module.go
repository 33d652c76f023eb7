package ingest

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"autolead_backend/internal/events"
	apphttp "autolead_backend/internal/http"
	"autolead_backend/internal/ingest/adapter"
	"autolead_backend/internal/ingest/classifier"
	"autolead_backend/internal/ingest/repository"
	"autolead_backend/internal/ingest/service"
	"autolead_backend/internal/tenant"
	"autolead_backend/platform/config"
	"autolead_backend/platform/logger"
	"autolead_backend/platform/validator"
)

// Config is the configuration surface the module reads.
type Config interface {
	config.MetaConfig
	config.AIConfig
}

// Module is the ingestion bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	service *service.Service
}

// NewModule creates and initializes the ingestion module with all its
// dependencies. The AI client is shared between classification and
// extraction; the queue is nil-safe only in tests.
func NewModule(
	pool *pgxpool.Pool,
	queue service.Queue,
	bus events.Bus,
	graph service.LeadFetcher,
	ai classifier.Completer,
	cfg Config,
	rules classifier.Rules,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	resolver := tenant.NewResolver(tenant.NewRepository(pool))
	repo := repository.NewRepository(pool)

	svc := service.NewService(
		resolver,
		adapter.NewFormAdapter(val),
		adapter.NewEmailAdapter(),
		adapter.NewSocialAdapter(),
		classifier.NewClassifier(classifier.NewPrefilter(rules), ai, cfg.GetAnthropicModel(), log),
		classifier.NewExtractor(ai, log),
		repo,
		queue,
		bus,
		graph,
		cfg,
		log,
	)

	return &Module{
		handler: NewHandler(svc),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "ingest"
}

// Service exposes the orchestrator for the task worker.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts ingestion routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public webhook endpoints (rate limited, no JWT)
	webhookGroup := ctx.V1.Group("/webhook")
	webhookGroup.Use(ctx.WebhookRateLimiter.RateLimit())
	webhookGroup.POST("/forms/:tenantId", m.handler.HandleFormSubmission)
	webhookGroup.POST("/email", m.handler.HandleInboundEmail)
	webhookGroup.GET("/meta", m.handler.HandleMetaVerify)
	webhookGroup.POST("/meta", m.handler.HandleMetaWebhook)

	// Admin inquiry surface (JWT auth + admin role)
	adminGroup := ctx.Admin.Group("/inquiries")
	adminGroup.GET("", m.handler.HandleListInquiries)
	adminGroup.GET("/:id", m.handler.HandleGetInquiry)
	adminGroup.POST("/:id/reprocess", m.handler.HandleReprocess)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
