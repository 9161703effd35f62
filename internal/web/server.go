// Package web provides the read-only HTTP report viewer.
//
// The viewer loads scenarios from the configured data directory on request
// and renders their audit, chain and query reports as HTML pages or JSON.
// It never writes to the data files.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/wite2/internal/audit"
	"github.com/JonMunkholm/wite2/internal/config"
	"github.com/JonMunkholm/wite2/internal/core"
	"github.com/JonMunkholm/wite2/internal/history"
	"github.com/JonMunkholm/wite2/internal/web/middleware"
)

// HistoryReader is the part of the history store the viewer reads.
type HistoryReader interface {
	ListRuns(ctx context.Context, limit int) ([]history.Run, error)
	Findings(ctx context.Context, id int64) ([]audit.Finding, error)
}

// Server is the HTTP server of the report viewer.
type Server struct {
	cfg     *config.Config
	auditor *audit.Auditor
	history HistoryReader
	limiter *core.Limiter
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a new Server. hist may be nil when no history database
// is configured.
func NewServer(cfg *config.Config, hist HistoryReader) *Server {
	s := &Server{
		cfg:     cfg,
		auditor: audit.New(cfg.Rules.AuditRules(), cfg.Data.Encoding, cfg.Batch.Workers),
		history: hist,
		limiter: core.NewLimiter(cfg.Server.MaxConcurrentLoads, cfg.Server.LoadWaitTime),
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))

	// Security hardening
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(&s.cfg.Security))

		// Pages
		r.Get("/", s.handleDashboard)
		r.Get("/scenario/{scenario}/audit", s.handleAuditPage)
		r.Get("/scenario/{scenario}/chains", s.handleChainsPage)
		r.Get("/history", s.handleHistoryPage)
		r.Get("/history/{id}", s.handleRunPage)

		// API routes
		r.Route("/api", func(r chi.Router) {
			r.Get("/scenarios", s.handleListScenarios)
			r.Get("/layouts", s.handleLayouts)
			r.Get("/scenario/{scenario}/audit", s.handleAudit)
			r.Get("/scenario/{scenario}/chains", s.handleChains)
			r.Get("/scenario/{scenario}/orphans", s.handleOrphans)
			r.Get("/scenario/{scenario}/inventory", s.handleInventory)
			r.Get("/scenario/{scenario}/excess", s.handleExcess)
			r.Get("/scenario/{scenario}/refs/{wid}", s.handleRefs)
			r.Get("/history", s.handleListRuns)
			r.Get("/history/{id}", s.handleRunFindings)
			r.Get("/status", s.handleLoadStatus)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("server starting", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown waits for in-flight loads, then stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if active := s.limiter.Active(); active > 0 {
		slog.Info("waiting for scenario loads to complete", "active", active)
		if err := s.limiter.WaitForDrain(ctx); err != nil {
			slog.Warn("scenario loads did not complete in time", "error", err)
		}
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// Pages carry inline styles only
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'")

		// Control referrer information
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"status": "ok", "time": time.Now().UTC()})
}
