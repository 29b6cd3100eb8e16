// Package http exposes the report API plus health, readiness, and metrics
// endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/weather-insights/internal/domain"
	"github.com/couchcryptid/weather-insights/internal/pipeline"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// ReportRunner executes one report cycle.
type ReportRunner interface {
	Run(ctx context.Context, req pipeline.Request) (domain.InsightReport, error)
}

// Server exposes the report API and operational HTTP endpoints.
type Server struct {
	httpServer *http.Server
	runner     ReportRunner
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /v1/reports, /healthz, /readyz, and
// /metrics routes.
func NewServer(addr string, runner ReportRunner, ready ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		runner:   runner,
		validate: validator.New(),
		logger:   logger,
	}

	mux.HandleFunc("POST /v1/reports", s.handleCreateReport)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// reportRequest is the POST /v1/reports body. Dates use the YYYY-MM-DD
// layout; omitted contamination and features select the detector defaults.
type reportRequest struct {
	Start         string   `json:"start" validate:"required,datetime=2006-01-02"`
	End           string   `json:"end" validate:"required,datetime=2006-01-02"`
	Seed          int64    `json:"seed"`
	Contamination float64  `json:"contamination" validate:"gte=0,lte=0.5"`
	Features      []string `json:"features" validate:"omitempty,unique,dive,oneof=temperature humidity precipitation wind_speed"`
}

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start, _ := time.Parse(domain.DateLayout, req.Start)
	end, _ := time.Parse(domain.DateLayout, req.End)

	features := make([]domain.FieldName, 0, len(req.Features))
	for _, f := range req.Features {
		features = append(features, domain.FieldName(f))
	}

	report, err := s.runner.Run(r.Context(), pipeline.Request{
		Start:         start,
		End:           end,
		Seed:          req.Seed,
		Contamination: req.Contamination,
		Features:      features,
	})
	if err != nil {
		s.writeRunError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// writeRunError maps domain errors to HTTP statuses: bad input is the
// caller's fault, too little data is unprocessable, anything else is ours.
func (s *Server) writeRunError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, verr.Error())
		return
	}
	var ierr *domain.InsufficientDataError
	if errors.As(err, &ierr) {
		writeError(w, http.StatusUnprocessableEntity, ierr.Error())
		return
	}
	s.logger.Error("report request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
