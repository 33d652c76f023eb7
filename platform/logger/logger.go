// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// TenantIDKey is the context key for tenant ID
	TenantIDKey contextKey = "tenant_id"
	// InquiryIDKey is the context key for the inbound inquiry being processed
	InquiryIDKey contextKey = "inquiry_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger enriched with request-scoped values.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	out := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		out = &Logger{Logger: out.With(slog.String("request_id", requestID))}
	}

	if tenantID, ok := ctx.Value(TenantIDKey).(string); ok && tenantID != "" {
		out = out.WithTenantID(tenantID)
	}

	if inquiryID, ok := ctx.Value(InquiryIDKey).(string); ok && inquiryID != "" {
		out = &Logger{Logger: out.With(slog.String("inquiry_id", inquiryID))}
	}

	return out
}

// WithTenantID returns a logger with tenant ID attached.
func (l *Logger) WithTenantID(tenantID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("tenant_id", tenantID)),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// SecurityEvent logs authenticity failures on inbound webhooks
// (invalid signatures, unknown verify tokens).
func (l *Logger) SecurityEvent(event, source, clientIP, reason string) {
	l.Warn("security_event",
		slog.String("event", event),
		slog.String("source", source),
		slog.String("client_ip", clientIP),
		slog.String("reason", reason),
	)
}

// PipelineOutcome logs the terminal state of one inbound event so every
// inquiry is auditable after the fact.
func (l *Logger) PipelineOutcome(inquiryID, source, state, leadID string) {
	l.Info("pipeline_outcome",
		slog.String("inquiry_id", inquiryID),
		slog.String("source", source),
		slog.String("state", state),
		slog.String("lead_id", leadID),
	)
}

// AIDegraded logs an AI-backed step that fell back to its degraded result.
func (l *Logger) AIDegraded(step string, err error) {
	l.Warn("ai_degraded",
		slog.String("step", step),
		slog.String("error", err.Error()),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
