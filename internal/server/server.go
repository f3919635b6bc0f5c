// Package server implements the heapscope HTTP API. It lets CI jobs
// and dashboards upload heap dumps, query type statistics and
// retention paths, and diff snapshots without a local installation.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/heapscope/pkg/cache"
)

// Options configures a Server.
type Options struct {
	// Addr is the listen address, host:port.
	Addr string

	// MaxSnapshots bounds the in-memory snapshot registry.
	MaxSnapshots int

	// MaxUploadBytes caps the accepted dump size. 0 means the default.
	MaxUploadBytes int64

	// Cache stores parsed graphs keyed by dump content, so re-uploading
	// the same dump skips the parse. Nil disables caching.
	Cache cache.Cache

	// Logger receives request and lifecycle logs. Nil uses the default.
	Logger *log.Logger
}

// DefaultMaxUploadBytes caps uploads at 512 MiB.
const DefaultMaxUploadBytes = 512 << 20

// Server is the heapscope HTTP API server.
type Server struct {
	opts     Options
	registry *Registry
	cache    cache.Cache
	keyer    cache.Keyer
	logger   *log.Logger
	http     *http.Server
}

// New creates a server with its routes mounted.
func New(opts Options) (*Server, error) {
	if opts.MaxSnapshots <= 0 {
		opts.MaxSnapshots = 32
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	registry, err := NewRegistry(opts.MaxSnapshots)
	if err != nil {
		return nil, err
	}

	c := opts.Cache
	if c == nil {
		c = cache.NewNullCache()
	}

	s := &Server{
		opts:     opts,
		registry: registry,
		cache:    c,
		keyer:    cache.NewScopedKeyer(cache.NewDefaultKeyer(), "api"),
		logger:   opts.Logger,
	}
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Router builds the chi route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(s.observe)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", s.handleHealth)

		r.Route("/snapshots", func(r chi.Router) {
			r.Post("/", s.handleUpload)
			r.Get("/", s.handleList)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleStatistics)
				r.Delete("/", s.handleDelete)
				r.Get("/types", s.handleTypes)
				r.Get("/paths/{node}", s.handlePaths)
			})
		})

		r.Get("/compare/{baseline}/{current}", s.handleCompare)
	})

	return r
}

// ListenAndServe serves until the context is canceled, then shuts the
// listener down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.opts.Addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("server shutting down")
		return s.http.Shutdown(shutdownCtx)
	}
}

// Close releases the cache backend.
func (s *Server) Close() error {
	return s.cache.Close()
}
