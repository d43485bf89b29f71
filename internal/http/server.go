// Package http exposes the planning API: invoice import, therapy types,
// monthly plans, expenses and the dashboard overview.
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

	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/auth"
	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/core"
	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/services"
)

// Store is the storage surface the handlers need.
type Store interface {
	TherapyTypes(ctx context.Context, userID string) ([]core.TherapyType, error)
	CreateTherapyType(ctx context.Context, t core.TherapyType) (core.TherapyType, error)
	DeleteTherapyType(ctx context.Context, userID, id string) error

	SetPlannedSessions(ctx context.Context, userID, therapyTypeID string, month core.Month, planned int) error
	PlansForYear(ctx context.Context, userID string, year int) ([]core.MonthlyPlan, error)

	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	ExpensesForYear(ctx context.Context, userID string, year int) ([]core.Expense, error)
	DeleteExpense(ctx context.Context, userID, id string) error
}

type Server struct {
	http.Server

	store          Store
	authenticator  *auth.Authenticator
	planning       *services.PlanningService
	dashboard      *services.DashboardService
	invoiceSource  services.InvoiceSource
	maxUploadBytes int64

	rateLimiter *rateLimiter

	// dashboard overviews per (user, year) with eviction policy
	overviewCache    *lruCache[*services.DashboardData]
	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. invoiceSource may be nil when no shared sheet is configured.
func NewServer(addr string, store Store, authenticator *auth.Authenticator,
	planning *services.PlanningService, dashboard *services.DashboardService,
	invoiceSource services.InvoiceSource, maxUploadBytes int64) *Server {

	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:          store,
		authenticator:  authenticator,
		planning:       planning,
		dashboard:      dashboard,
		invoiceSource:  invoiceSource,
		maxUploadBytes: maxUploadBytes,
		rateLimiter:    newRateLimiter(),

		overviewCache:    newLRUCache[*services.DashboardData](100, time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("POST /api/import", s.withMiddleware(s.handleImport))
	mux.HandleFunc("POST /api/import/sheet", s.withMiddleware(s.handleImportSheet))

	mux.HandleFunc("GET /api/therapy-types", s.withMiddleware(s.handleListTherapyTypes))
	mux.HandleFunc("POST /api/therapy-types", s.withMiddleware(s.handleCreateTherapyType))
	mux.HandleFunc("DELETE /api/therapy-types/{id}", s.withMiddleware(s.handleDeleteTherapyType))

	mux.HandleFunc("GET /api/plans", s.withMiddleware(s.handleListPlans))
	mux.HandleFunc("PUT /api/plans", s.withMiddleware(s.handleUpsertPlan))

	mux.HandleFunc("GET /api/expenses", s.withMiddleware(s.handleListExpenses))
	mux.HandleFunc("POST /api/expenses", s.withMiddleware(s.handleCreateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.withMiddleware(s.handleDeleteExpense))

	mux.HandleFunc("GET /api/dashboard", s.withMiddleware(s.handleDashboard))

	return s
}

// withMiddleware adds security headers, rate limiting and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		// Rate limit mutating requests only; reads stay cheap.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
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
			"duration_ms", duration.Milliseconds())
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

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
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok")
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ready")
}

// startCacheCleanup periodically drops expired dashboard entries.
func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cleaned := s.overviewCache.CleanExpired(); cleaned > 0 {
				slog.Debug("Cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown stops the cleanup goroutines and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
