package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/mattjoyce/imagerelay/internal/domain"
	"github.com/mattjoyce/imagerelay/internal/router"
)

// Server represents the webhook HTTP server.
type Server struct {
	config   Config
	router   router.Router
	verifier *Verifier
	logger   *slog.Logger
	server   *http.Server
}

// New creates a new webhook server instance.
func New(config Config, r router.Router, logger *slog.Logger) *Server {
	config = config.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:   config,
		router:   r,
		verifier: NewVerifier(config.Secret, config.SkipSignatureVerification),
		logger:   logger,
	}
	if s.verifier.Skipping() {
		logger.Warn("webhook signature verification is DISABLED; do not run this configuration in production")
	}
	return s
}

// Handler returns the HTTP handler serving the webhook and health routes.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// Start starts the webhook HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.config.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      s.config.ProcessTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("webhook server starting", "listen", s.config.Listen, "path", s.config.Path)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ProcessTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("webhook server error: %w", err)
	}
}

// setupRoutes configures the HTTP router.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Post(s.config.Path, s.handleWebhook)
	r.Get("/healthz", s.handleHealth)
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		s.respondError(w, http.StatusNotFound, "not found")
	})

	return r
}

// loggingMiddleware logs HTTP requests (excludes payloads).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("webhook request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleWebhook reads the raw body and hands it to Process.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, s.config.MaxBodySize+1))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if int64(len(body)) > s.config.MaxBodySize {
		s.respondError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	resp := s.Process(r.Context(), body, r.Header.Get(s.config.SignatureHeader))
	s.respondJSON(w, resp.Status, resp.Body)
}

// Process verifies and handles one delivery. body must be the raw bytes as
// received. A request that fails verification or decoding is rejected before
// any event is routed; otherwise every event is attempted and the reply is
// 200 with one result per event, in input order.
func (s *Server) Process(ctx context.Context, body []byte, signature string) Response {
	if s.verifier.Skipping() {
		s.logger.Warn("signature verification skipped for request")
	}
	if !s.verifier.Verify(body, signature) {
		s.logger.Warn("webhook signature verification failed",
			"error", domain.ErrSignatureMismatch,
			"signature_present", signature != "",
		)
		return Response{Status: http.StatusForbidden, Body: ErrorResponse{Error: "forbidden"}}
	}

	var envelope domain.Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		s.logger.Warn("webhook body rejected", "error", fmt.Errorf("%w: %v", domain.ErrMalformedRequestBody, err))
		return Response{Status: http.StatusBadRequest, Body: ErrorResponse{Error: domain.ErrMalformedRequestBody.Error()}}
	}

	results := s.dispatch(ctx, envelope.Events)

	ack := AckResponse{Status: "ok", Results: make([]EventResult, len(results))}
	counts := map[domain.Outcome]int{}
	for i, r := range results {
		ack.Results[i] = newEventResult(r)
		counts[r.Outcome]++
	}
	if len(results) > 0 {
		s.logger.Info("webhook batch processed",
			"events", len(results),
			"delivered", counts[domain.OutcomeDelivered],
			"ignored", counts[domain.OutcomeIgnored],
			"failed", counts[domain.OutcomeFailed],
		)
	}
	return Response{Status: http.StatusOK, Body: ack}
}

// dispatch routes events concurrently. A failing event never cancels its
// siblings; the batch as a whole is bounded by ProcessTimeout and survives
// the client disconnecting.
func (s *Server) dispatch(ctx context.Context, events []domain.InboundEvent) []domain.PipelineResult {
	results := make([]domain.PipelineResult, len(events))
	if len(events) == 0 {
		return results
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.ProcessTimeout)
	defer cancel()

	var g errgroup.Group
	g.SetLimit(s.config.MaxConcurrentEvents)
	for i, ev := range events {
		g.Go(func() error {
			defer func() {
				if p := recover(); p != nil {
					s.logger.Error("event routing panicked", "event_id", ev.LogID(), "panic", p)
					results[i] = domain.PipelineResult{
						EventID:   ev.LogID(),
						MessageID: ev.MessageID(),
						Outcome:   domain.OutcomeFailed,
						Err:       fmt.Errorf("panic: %v", p),
					}
				}
			}()
			results[i] = s.router.Route(ctx, ev)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Debug("write response failed", "error", err)
	}
}

// respondError sends a JSON error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: message})
}
