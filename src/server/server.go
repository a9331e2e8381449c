// Package server exposes the scoring pipeline over HTTP: POST /score,
// GET /health, and a root service descriptor.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"

	"github.com/fernhealth/fertility-support-agent/src/agent"
	"github.com/fernhealth/fertility-support-agent/src/config"
	"github.com/fernhealth/fertility-support-agent/src/defense"
	"github.com/fernhealth/fertility-support-agent/src/llm"
	"github.com/fernhealth/fertility-support-agent/src/telemetry"
)

const (
	serviceName    = "fertility-support-agent"
	serviceVersion = "0.1.0"

	// maxPreviewLen caps how much of a message appears in injection events.
	maxPreviewLen = 100

	healthTimeout   = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Scorer runs the scoring pipeline on a sanitized message.
type Scorer interface {
	ScoreMessage(ctx context.Context, message string) (agent.ScoreResult, error)
}

// Server bundles the dependencies required by the HTTP handlers.
type Server struct {
	cfg      config.Config
	logger   *slog.Logger
	scorer   Scorer
	llm      llm.Client
	detector *defense.Detector
	recorder *telemetry.Recorder
	mux      *http.ServeMux
}

// New creates a Server and registers its routes.
func New(
	cfg config.Config,
	logger *slog.Logger,
	scorer Scorer,
	llmClient llm.Client,
	detector *defense.Detector,
	recorder *telemetry.Recorder,
) *Server {
	s := &Server{
		cfg:      cfg,
		logger:   logger.With("area", "server"),
		scorer:   scorer,
		llm:      llmClient,
		detector: detector,
		recorder: recorder,
		mux:      http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /score", s.handleScore)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /{$}", s.handleRoot)

	return s
}

// Handler returns the route mux, primarily for tests.
func (s *Server) Handler() http.Handler { return s.mux }

// Run starts the listener and blocks until SIGINT/SIGTERM or ctx
// cancellation, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Server.Addr, err)
	}
	s.logger.Info("listening", "addr", ln.Addr().String())

	srv := &http.Server{Handler: s.mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

type scoreRequest struct {
	Message string `json:"message"`
}

type scoreResponse struct {
	agent.ScoreResult
	TraceID           string `json:"trace_id"`
	InjectionDetected bool   `json:"injection_detected"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleScore runs the full request flow: validate, detect, sanitize,
// score, respond. Validation failures surface their specific reason to
// the caller; every other failure collapses to a generic internal error.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := uuid.NewString()

	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	validated, err := defense.Validate(req.Message, s.cfg.Scoring.MaxMessageLength)
	if err != nil {
		var verr *defense.ValidationError
		if errors.As(err, &verr) {
			s.recorder.ValidationFailed(ctx, correlationID, verr)
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Detail})
			return
		}
		s.recorder.InternalError(ctx, correlationID, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	scan := s.detector.Detect(validated)
	if scan.Detected {
		s.recorder.InjectionDetected(ctx, correlationID, scan.MatchedPatterns, preview(validated))
	}

	// Sanitization is unconditional; the pipeline only ever sees the
	// sanitized text.
	sanitized := defense.Sanitize(validated)

	result, err := s.scorer.ScoreMessage(ctx, sanitized)
	if err != nil {
		s.recorder.InternalError(ctx, correlationID, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	s.recorder.ScoreGenerated(ctx, correlationID, result, scan.Detected)

	writeJSON(w, http.StatusOK, scoreResponse{
		ScoreResult:       result,
		TraceID:           correlationID,
		InjectionDetected: scan.Detected,
	})
}

type healthResponse struct {
	Status       string `json:"status"`
	LLMAvailable bool   `json:"llm_available"`
	Version      string `json:"version"`
}

// handleHealth pings the LLM capability with a trivial message and
// reports degraded when it cannot be reached.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	available := true
	if _, err := s.llm.Invoke(ctx, []llm.Message{{Role: llm.RoleUser, Content: "test"}}); err != nil {
		available = false
	}

	status := "healthy"
	if !available {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:       status,
		LLMAvailable: available,
		Version:      serviceVersion,
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": serviceName,
		"version": serviceVersion,
		"status":  "running",
		"endpoints": map[string]string{
			"score":  "POST /score",
			"health": "GET /health",
		},
	})
}

func preview(message string) string {
	runes := []rune(message)
	if len(runes) > maxPreviewLen {
		return string(runes[:maxPreviewLen])
	}
	return message
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
