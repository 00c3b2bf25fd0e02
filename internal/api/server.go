// Package api exposes upload sessions over a local HTTP API for the kiosk
// front end.
package api

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/printomat/pkg/observability"
	"github.com/matzehuels/printomat/pkg/session"
)

// Server timeouts.
const (
	readTimeout     = 30 * time.Second
	writeTimeout    = 60 * time.Second
	shutdownTimeout = 10 * time.Second

	// DefaultCleanupInterval is how often expired sessions are closed.
	DefaultCleanupInterval = time.Minute
)

// Server routes API requests to a session manager.
type Server struct {
	manager *session.Manager
	logger  *log.Logger
	router  chi.Router

	// CleanupInterval controls the expiry sweep in ListenAndServe.
	CleanupInterval time.Duration
}

// New creates a server for manager. A nil logger discards output.
func New(manager *session.Manager, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	s := &Server{
		manager:         manager,
		logger:          logger,
		CleanupInterval: DefaultCleanupInterval,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.closeSession)
			r.Route("/documents/{index}", func(r chi.Router) {
				r.Post("/select", s.selectDocument)
				r.Get("/preview", s.previewDocument)
				r.Post("/rotate", s.rotateDocument)
				r.Post("/impose", s.imposeDocument)
				r.Post("/restore", s.restoreDocument)
				r.Patch("/options", s.updateOptions)
				r.Post("/save", s.saveDocument)
				r.Post("/discard", s.discardDocument)
			})
		})
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// observe reports every request to the HTTP hooks.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		hooks := observability.HTTP()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		hooks.OnResponse(r.Context(), r.Method, r.URL.Path, status, time.Since(start))
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down and
// closes every live session so active documents are finalized.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	ticker := time.NewTicker(s.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case err := <-errCh:
			if stderrors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ticker.C:
			if n := s.manager.Cleanup(ctx); n > 0 {
				s.logger.Info("expired sessions closed", "count", n)
			}
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			err := srv.Shutdown(shutdownCtx)
			if cerr := s.manager.CloseAll(shutdownCtx); cerr != nil {
				s.logger.Warn("closing sessions on shutdown", "error", cerr)
			}
			return err
		}
	}
}
