// Package http serves the JSON API: yearly analysis reports, cost and
// income summaries, the fleet roster and ledger imports.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"flotas/internal/log"
	"flotas/internal/services"
)

type Server struct {
	http.Server

	analysis *services.AnalysisService
	importer *services.ImportService

	logger     *log.Logger
	structured *log.StructuredLogger

	rateLimiter *rateLimiter
	metrics     securityMetrics

	started      time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server. The importer may be nil for a read-only deployment.
func NewServer(addr string, analysis *services.AnalysisService, importer *services.ImportService, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	httpLogger := logger.WithComponent(log.ComponentHTTP)

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		analysis:    analysis,
		importer:    importer,
		logger:      httpLogger,
		structured:  log.NewStructuredLogger(httpLogger),
		rateLimiter: newRateLimiter(importRateLimit),
		started:     time.Now(),
	}

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("/api/years", s.withMiddleware(s.handleYears))
	mux.HandleFunc("/api/analysis", s.withMiddleware(s.handleAnalysis))
	mux.HandleFunc("/api/costs", s.withMiddleware(s.handleCosts))
	mux.HandleFunc("/api/income", s.withMiddleware(s.handleIncome))
	mux.HandleFunc("/api/vehicles", s.withMiddleware(s.handleVehicles))
	mux.HandleFunc("/api/ledger/import", s.withMiddleware(s.handleImportLedger))

	return s
}

// withMiddleware adds request IDs, security headers, rate limiting and
// request logging around a handler.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), log.LoggerContextKey, s.logger.With(log.FieldRequestID, requestID))
		r = r.WithContext(ctx)

		s.structured.LogHTTPStart(ctx, r, clientIP)

		if detectSuspiciousRequest(r, &s.metrics) {
			s.logger.WarnContext(ctx, "Suspicious request detected",
				log.FieldClientIP, clientIP,
				log.FieldPath, r.URL.Path)
		}

		// Imports are the only expensive writes; only POSTs are limited.
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP, &s.metrics) {
			s.logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.structured.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Shutdown stops the cleanup goroutines and then the HTTP server.
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
