// Package server exposes the dashboard API: leads, signals, the map
// layer, permit alerts, report export, and on-demand scans.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/lead-master/internal/model"
	"github.com/sells-group/lead-master/internal/scan"
	"github.com/sells-group/lead-master/internal/store"
)

// PermitFetcher returns the current permit-alert list.
type PermitFetcher interface {
	Fetch(ctx context.Context) ([]model.PermitAlert, error)
}

// ScanRunner runs one scan pass.
type ScanRunner interface {
	Run(ctx context.Context) (*scan.Result, error)
}

// Server is the dashboard HTTP API.
type Server struct {
	store    store.Store
	permits  PermitFetcher
	scanner  ScanRunner
	origins  []string
	scanning atomic.Bool
}

// Option configures the server.
type Option func(*Server)

// WithAllowedOrigins restricts CORS to the given origins. The default
// is to allow any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// New wires the API over the given store. The permit fetcher and scan
// runner may be nil; their endpoints then return 503.
func New(st store.Store, permits PermitFetcher, scanner ScanRunner, opts ...Option) *Server {
	s := &Server{
		store:   st,
		permits: permits,
		scanner: scanner,
		origins: []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi router with CORS for the dashboard UI.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/leads", s.handleListLeads)
		r.Get("/leads/{name}", s.handleGetLead)
		r.Get("/signals", s.handleListSignals)
		r.Get("/map", s.handleMap)
		r.Get("/permits", s.handlePermits)
		r.Post("/scan", s.handleScan)
		r.Get("/export", s.handleExport)
	})
	return r
}

// ListenAndServe runs the API until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		zap.L().Info("api listening", zap.Int("port", port))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
