package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ericmichael/llm-deployment/logging"
	"github.com/ericmichael/llm-deployment/runner"
)

const (
	defaultMaxBodyBytes  = 1 << 20
	defaultMaxAudioBytes = 25 << 20
)

// Options configures a Server.
type Options struct {
	// Addr is the listen address used by ListenAndServe.
	Addr string
	// MaxBodyBytes caps JSON request bodies.
	MaxBodyBytes int64
	// MaxAudioBytes caps uploaded recordings.
	MaxAudioBytes int64
	Logger        logging.Logger
}

// Server serves the thread API on top of a Runner.
type Server struct {
	runner *runner.Runner
	router chi.Router
	logger logging.Logger
	opts   Options

	httpServer *http.Server
}

// New creates a Server for r.
func New(r *runner.Runner, optFns ...func(o *Options)) *Server {
	opts := Options{
		Addr:          ":8080",
		MaxBodyBytes:  defaultMaxBodyBytes,
		MaxAudioBytes: defaultMaxAudioBytes,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	logger := logging.OrNoOp(opts.Logger)
	if sl, ok := logger.(*logging.StructuredLogger); ok {
		logger = sl.WithComponent("server")
	}

	s := &Server{
		runner: r,
		logger: logger,
		opts:   opts,
	}

	s.router = s.routes()

	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Route("/threads", func(r chi.Router) {
		r.Post("/", s.handleCreateThread)
		r.Get("/", s.handleListThreads)

		r.Route("/{threadID}", func(r chi.Router) {
			r.Get("/", s.handleGetThread)
			r.Delete("/", s.handleDeleteThread)
			r.Get("/messages", s.handleListMessages)
			r.Post("/messages", s.handlePostMessage)
			r.Post("/audio", s.handlePostAudio)
			r.Post("/cancel", s.handleCancel)
		})
	})

	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("server.listening", "addr", s.opts.Addr)

		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server.shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Debug("server.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", chiMiddleware.GetReqID(r.Context()),
		)
	})
}
