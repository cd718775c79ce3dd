package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"finboard/internal/core"
	"finboard/internal/engine"
)

// Store is the ledger access the API needs.
type Store interface {
	LoadSnapshot(ctx context.Context) (core.Snapshot, error)
	LoadProjectSnapshot(ctx context.Context, projectID string) (core.Snapshot, error)
	ListProjects(ctx context.Context) ([]core.Project, error)
	GetProject(ctx context.Context, id string) (core.Project, error)
	CreateProject(ctx context.Context, p core.Project) (string, error)
	CreateInvoice(ctx context.Context, inv core.Invoice) (string, error)
	CreateExpense(ctx context.Context, exp core.Expense) (string, error)
	CreatePayable(ctx context.Context, pay core.PayableInvoice) (string, error)
	CreateCreditNote(ctx context.Context, cn core.CreditNote) (string, error)
}

// Advisor generates narrative advice for a project rollup. Optional.
type Advisor interface {
	Advise(ctx context.Context, detail engine.ProjectFinancialDetail) (string, error)
}

// MetricsExporter pushes a metrics window to an external sheet. Optional.
type MetricsExporter interface {
	ExportMonthlyMetrics(ctx context.Context, metrics []engine.MonthlyMetrics) (string, error)
}

type Server struct {
	http.Server
	store       Store
	advisor     Advisor
	exporter    MetricsExporter
	rateLimiter *rateLimiter

	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run http.Server.
// advisor and exporter may be nil; their endpoints then answer 503.
func NewServer(addr string, store Store, advisor Advisor, exporter MetricsExporter) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:       store,
		advisor:     advisor,
		exporter:    exporter,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/metrics/monthly", s.withMiddleware(s.handleMonthlyMetrics))
	mux.HandleFunc("POST /api/metrics/export", s.withMiddleware(s.handleExportMetrics))

	mux.HandleFunc("GET /api/projects", s.withMiddleware(s.handleListProjects))
	mux.HandleFunc("POST /api/projects", s.withMiddleware(s.handleCreateProject))
	mux.HandleFunc("GET /api/projects/{id}/financials", s.withMiddleware(s.handleProjectFinancials))
	mux.HandleFunc("GET /api/projects/{id}/health", s.withMiddleware(s.handleProjectHealth))
	mux.HandleFunc("GET /api/projects/{id}/warnings", s.withMiddleware(s.handleProjectWarnings))
	mux.HandleFunc("GET /api/projects/{id}/insights", s.withMiddleware(s.handleProjectInsights))
	mux.HandleFunc("POST /api/projects/{id}/advice", s.withMiddleware(s.handleProjectAdvice))

	mux.HandleFunc("POST /api/scenario", s.withMiddleware(s.handleScenario))

	mux.HandleFunc("POST /api/invoices", s.withMiddleware(s.handleCreateInvoice))
	mux.HandleFunc("POST /api/expenses", s.withMiddleware(s.handleCreateExpense))
	mux.HandleFunc("POST /api/payables", s.withMiddleware(s.handleCreatePayable))
	mux.HandleFunc("POST /api/credit-notes", s.withMiddleware(s.handleCreateCreditNote))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withMiddleware adds security headers, rate limiting, and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		// Generate request ID for tracing
		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		// Apply rate limiting to mutating requests
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type ctxKey string

const requestIDKey ctxKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.ListProjects(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "store not ready")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
