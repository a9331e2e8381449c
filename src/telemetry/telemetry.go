// Package telemetry emits the structured events and counters the
// surrounding system consumes. Events go to the structured logger;
// counters and histograms are recorded against the global OTel
// MeterProvider — how either is transported or exported is the outer
// system's concern, not the core's.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fernhealth/fertility-support-agent/src/agent"
)

const meterName = "github.com/fernhealth/fertility-support-agent"

// Recorder bundles the instruments and the event logger for one process.
// Safe for concurrent use; instrument increments may interleave freely.
type Recorder struct {
	logger *slog.Logger

	requests   metric.Int64Counter
	errors     metric.Int64Counter
	injections metric.Int64Counter
	latency    metric.Float64Histogram
	tokens     metric.Int64Histogram
}

// NewRecorder creates the process-wide recorder.
func NewRecorder(logger *slog.Logger) (*Recorder, error) {
	meter := otel.Meter(meterName)

	requests, err := meter.Int64Counter("scoring_requests_total",
		metric.WithDescription("Total number of scoring requests"))
	if err != nil {
		return nil, fmt.Errorf("creating requests counter: %w", err)
	}
	errCounter, err := meter.Int64Counter("scoring_errors_total",
		metric.WithDescription("Total number of errors"))
	if err != nil {
		return nil, fmt.Errorf("creating errors counter: %w", err)
	}
	injections, err := meter.Int64Counter("injection_attempts_total",
		metric.WithDescription("Total number of injection attempts detected"))
	if err != nil {
		return nil, fmt.Errorf("creating injections counter: %w", err)
	}
	latency, err := meter.Float64Histogram("scoring_latency_seconds",
		metric.WithDescription("Latency of scoring requests in seconds"))
	if err != nil {
		return nil, fmt.Errorf("creating latency histogram: %w", err)
	}
	tokens, err := meter.Int64Histogram("scoring_tokens_used",
		metric.WithDescription("Approximate tokens used per request"))
	if err != nil {
		return nil, fmt.Errorf("creating tokens histogram: %w", err)
	}

	return &Recorder{
		logger:     logger.With("area", "telemetry"),
		requests:   requests,
		errors:     errCounter,
		injections: injections,
		latency:    latency,
		tokens:     tokens,
	}, nil
}

// InjectionDetected records an injection attempt. Detection does not
// block the request, so this is informational plus a counter increment.
func (r *Recorder) InjectionDetected(ctx context.Context, correlationID string, patterns []string, preview string) {
	r.injections.Add(ctx, 1)
	r.logger.Warn("injection_detected",
		"correlation_id", correlationID,
		"patterns", patterns,
		"message_preview", preview,
	)
}

// ScoreGenerated records a completed scoring run.
func (r *Recorder) ScoreGenerated(ctx context.Context, correlationID string, res agent.ScoreResult, injectionDetected bool) {
	r.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", "success"),
		attribute.String("action", string(res.RecommendedAction)),
	))
	r.latency.Record(ctx, float64(res.LatencyMS)/1000.0)
	r.tokens.Record(ctx, int64(res.TokensUsed))

	r.logger.Info("score_generated",
		"correlation_id", correlationID,
		"score", res.Score,
		"confidence", res.Confidence,
		"action", string(res.RecommendedAction),
		"latency_ms", res.LatencyMS,
		"tokens_used", res.TokensUsed,
		"injection_detected", injectionDetected,
	)
}

// ValidationFailed records a request rejected by the input defense layer.
func (r *Recorder) ValidationFailed(ctx context.Context, correlationID string, err error) {
	r.errors.Add(ctx, 1, metric.WithAttributes(attribute.String("error_type", "validation")))
	r.logger.Warn("validation_error",
		"correlation_id", correlationID,
		"error", err.Error(),
	)
}

// InternalError records a request that failed inside the pipeline.
func (r *Recorder) InternalError(ctx context.Context, correlationID string, err error) {
	r.errors.Add(ctx, 1, metric.WithAttributes(attribute.String("error_type", "internal")))
	r.logger.Error("internal_error",
		"correlation_id", correlationID,
		"error", err.Error(),
	)
}
