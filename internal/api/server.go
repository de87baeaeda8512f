// Package api serves the scheduling engine over a local JSON HTTP API
// (`revise serve`).
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/manav03panchal/revise/internal/engine"
	"github.com/manav03panchal/revise/internal/logging"
)

// Server exposes engine operations as HTTP handlers.
type Server struct {
	engine          *engine.Engine
	shutdownTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithShutdownTimeout bounds how long Serve waits for in-flight requests.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) { s.shutdownTimeout = d }
}

// New creates a server over e.
func New(e *engine.Engine, opts ...Option) *Server {
	s := &Server{engine: e, shutdownTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/topics", s.listTopics)
		r.Post("/topics", s.createTopic)
		r.Route("/topics/{ref}", func(r chi.Router) {
			r.Get("/", s.getTopic)
			r.Patch("/", s.renameTopic)
			r.Delete("/", s.deleteTopic)
			r.Post("/revise", s.markRevised)
			r.Put("/strategy", s.changeStrategy)
			r.Get("/history", s.topicHistory)
		})

		r.Get("/due", s.due)
		r.Get("/calendar", s.calendar)

		r.Get("/strategies", s.listStrategies)
		r.Post("/strategies", s.createStrategy)
		r.Delete("/strategies/{ref}", s.deleteStrategy)
	})

	return r
}

// Serve listens on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on an existing listener until ctx is cancelled.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	logging.Info("api listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logging.Info("api stopped")
	return nil
}

// requestLogger tags the request context with chi's request id and logs
// each request once it completes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.WithOperation(r.Context(), logging.SourceAPI, middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(ctx))

		logging.FromContext(ctx).Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			logging.KeyStatus, ww.Status(),
			"duration", time.Since(start).String())
	})
}
