// Package server exposes the optimizer over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sapat/feed-optimizer/internal/formulation"
	"github.com/sapat/feed-optimizer/internal/metrics"
	"github.com/sapat/feed-optimizer/internal/model"
	"github.com/sapat/feed-optimizer/pkg/optimization"
	"go.uber.org/zap"
)

// Optimizer runs formulation requests.
type Optimizer interface {
	Simplex(ctx context.Context, req *formulation.Request) (*optimization.Response, error)
	PSO(ctx context.Context, req *formulation.Request) (*optimization.Response, error)
	Compare(ctx context.Context, req *formulation.Request) (*optimization.Comparison, error)
}

type handler struct {
	logger         *zap.Logger
	optimizer      Optimizer
	metrics        *metrics.Metrics
	maxRequestSize int64
	solveTimeout   time.Duration
	version        string
}

// NewHandler constructs the HTTP handler that serves the optimization API.
func NewHandler(logger *zap.Logger, opt Optimizer, m *metrics.Metrics, cfg *Config, version string) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = &Config{}
		_ = cfg.normalize()
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{
		logger:         logger,
		optimizer:      opt,
		metrics:        m,
		maxRequestSize: cfg.RequestSizeBytes(),
		solveTimeout:   cfg.SolveTimeout,
		version:        trimmedVersion,
	}

	mux := http.NewServeMux()

	// Exact solve with shadow prices
	mux.HandleFunc("/optimize/simplex", h.instrument("/optimize/simplex", h.handleSimplex))

	// Heuristic solve
	mux.HandleFunc("/optimize/pso", h.instrument("/optimize/pso", h.handlePSO))

	// Both solvers side by side
	mux.HandleFunc("/optimize/compare", h.instrument("/optimize/compare", h.handleCompare))

	mux.HandleFunc("/api/version", h.instrument("/api/version", h.handleVersion))

	if m != nil {
		mux.Handle("/metrics", m.Handler())
	}

	return mux
}

// Server owns the listening http.Server.
type Server struct {
	logger *zap.Logger
	srv    *http.Server
}

// New wraps handler in an http.Server listening on cfg.Address.
func New(logger *zap.Logger, handler http.Handler, cfg *Config) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		logger: logger,
		srv: &http.Server{
			Addr:              cfg.Address,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.logger.Info("HTTP server starting",
		zap.String("op", "server.ListenAndServe"),
		zap.String("address", s.srv.Addr),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server", zap.String("op", "server.ListenAndServe"))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	case err, ok := <-errChan:
		if !ok {
			return nil
		}
		return fmt.Errorf("HTTP server error: %w", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (h *handler) instrument(path string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		h.metrics.ObserveRequest(path, rec.status)
	}
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleSimplex(w http.ResponseWriter, r *http.Request) {
	h.solve(w, r, "server.handleSimplex", h.optimizer.Simplex)
}

func (h *handler) handlePSO(w http.ResponseWriter, r *http.Request) {
	h.solve(w, r, "server.handlePSO", h.optimizer.PSO)
}

func (h *handler) solve(w http.ResponseWriter, r *http.Request, op string, run func(context.Context, *formulation.Request) (*optimization.Response, error)) {
	req, ok := h.decodeRequest(w, r, op)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.solveTimeout)
	defer cancel()

	resp, err := run(ctx, req)
	if err != nil {
		h.respondSolveError(w, err, op)
		return
	}

	status := http.StatusOK
	if !resp.Optimal() {
		status = http.StatusBadRequest
	}
	h.writeJSON(w, status, resp)
}

func (h *handler) handleCompare(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCompare"
	req, ok := h.decodeRequest(w, r, op)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.solveTimeout)
	defer cancel()

	cmp, err := h.optimizer.Compare(ctx, req)
	if err != nil {
		h.respondSolveError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, cmp)
}

func (h *handler) decodeRequest(w http.ResponseWriter, r *http.Request, op string) (*formulation.Request, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return nil, false
	}

	if h.maxRequestSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestSize)
	}

	req := &formulation.Request{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request exceeds limit of %d bytes", h.maxRequestSize), op)
			return nil, false
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to parse request: %v", err), op)
		return nil, false
	}
	return req, true
}

func (h *handler) respondSolveError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, model.ErrInvalidRequest):
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		h.respondErrorWithOp(w, http.StatusGatewayTimeout, "optimization timed out", op)
	default:
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
	}
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("optimization request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
