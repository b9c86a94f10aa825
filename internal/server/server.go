// Package server exposes the ledger over a JSON HTTP API for a browser front end.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"exchange-ledger/internal/intake"
	"exchange-ledger/internal/ledger"
	"exchange-ledger/internal/reporter"
	"exchange-ledger/pkg/errors"
	"exchange-ledger/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"
)

// Config holds HTTP server settings.
type Config struct {
	Addr            string
	RateLimit       float64
	RateBurst       int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Locale          language.Tag
}

// DefaultConfig returns a configuration listening on localhost:8080.
func DefaultConfig() *Config {
	return &Config{
		Addr:            "127.0.0.1:8080",
		RateLimit:       10,
		RateBurst:       30,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		Locale:          language.English,
	}
}

// Server serves the ledger API.
type Server struct {
	config  *Config
	store   *ledger.Store
	intake  *intake.Service
	reports *reporter.ReportBuilder
	logger  logger.Logger

	mu          sync.RWMutex
	diagnostics []string
}

// New creates a Server over store. intake may be nil to disable POST /api/transactions.
func New(config *Config, store *ledger.Store, svc *intake.Service) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	return &Server{
		config:  config,
		store:   store,
		intake:  svc,
		reports: reporter.NewReportBuilder(reporter.NewNumberFormatter(config.Locale)),
		logger:  logger.GetGlobalLogger().WithComponent("server"),
	}
}

// SetDiagnostics records load problems to be reported by the dashboard.
func (s *Server) SetDiagnostics(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diagnostics = diagnosticMessages(err)
}

func (s *Server) currentDiagnostics() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.diagnostics...)
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(CORS)
	if s.config.RateLimit > 0 {
		burst := s.config.RateBurst
		if burst <= 0 {
			burst = 1
		}
		r.Use(RateLimit(rate.NewLimiter(rate.Limit(s.config.RateLimit), burst)))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/deals", s.handleDeals)
		r.Get("/deals/{dealID}/report", s.handleReport)
		r.Get("/transactions", s.handleTransactions)
		r.Post("/transactions", s.handleCreateTransaction)
		r.Post("/refresh", s.handleRefresh)
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.config.Addr).Info("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return errors.InternalError(errors.CodeUnexpectedError, "http_server", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		s.logger.Info("Shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

func diagnosticMessages(err error) []string {
	if err == nil {
		return nil
	}
	if summary, ok := errors.AsErrorSummary(err); ok {
		return summary.Messages()
	}
	return []string{err.Error()}
}
