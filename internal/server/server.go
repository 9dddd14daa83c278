// Package server is the local HTTP bridge the player plugin talks to. It
// exposes the bookmark store and forwards sync requests to a syncer.Handler.
package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/harshpatel5940/reelmark/internal/bookmark"
	"github.com/harshpatel5940/reelmark/internal/logger"
	"github.com/harshpatel5940/reelmark/internal/metrics"
	"github.com/harshpatel5940/reelmark/internal/store"
	"github.com/harshpatel5940/reelmark/internal/syncer"
)

// SyncHandler is the part of syncer.Handler the bridge uses.
type SyncHandler interface {
	HandleSync(ctx context.Context, p syncer.Payload, bookmarks []bookmark.Bookmark, target syncer.Target) []bookmark.Bookmark
}

type Options struct {
	Listen      string
	RateLimit   int           // requests per minute per client IP, 0 disables
	SyncTimeout time.Duration // watchdog window, used to size the write timeout
}

// Deps are the collaborators the routes need.
type Deps struct {
	Store   store.Store
	Sync    SyncHandler
	Metrics *metrics.Recorder // optional
}

// Server wraps the HTTP server and its router.
type Server struct {
	http   *http.Server
	router chi.Router
	log    logger.Logger
	deps   Deps
}

func New(opts Options, log logger.Logger, d Deps) *Server {
	s := &Server{log: log, deps: d}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	if opts.RateLimit > 0 {
		r.Use(rateLimit(opts.RateLimit, time.Minute))
	}

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/bookmarks", s.handleListBookmarks)
		r.Put("/bookmarks", s.handleReplaceBookmarks)
		r.Post("/sync", s.handleSync)
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}
	s.router = r

	syncTimeout := opts.SyncTimeout
	if syncTimeout <= 0 {
		syncTimeout = syncer.DefaultTimeout
	}
	s.http = &http.Server{
		Addr:              opts.Listen,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      syncTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start runs the HTTP server (blocks until error or shutdown).
func (s *Server) Start() error {
	s.log.Infof("HTTP bridge listening on %s", s.http.Addr)
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server with the provided context deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("HTTP bridge shutting down")
	return s.http.Shutdown(ctx)
}

func rateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
			writeError(w, http.StatusTooManyRequests, "rate_limit_exceeded")
		}),
	)
}
