package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/iTrooz/favicon-cache/internal/cache"
	"github.com/iTrooz/favicon-cache/internal/config"
	"github.com/iTrooz/favicon-cache/internal/favicon"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Server represents the favicon server
type Server struct {
	config          *config.Config
	source          *cache.DiskSource
	favicon         *favicon.Middleware
	handler         http.Handler
	shutdownTimeout time.Duration
}

// New creates a new server
func New(cfg *config.Config) (*Server, error) {
	shutdownTimeout, err := cfg.GetShutdownTimeout()
	if err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	fallback, err := newFallback(cfg)
	if err != nil {
		return nil, err
	}

	source := cache.NewDisk(cfg.Favicon.BaseDir)
	icons := favicon.New(source, favicon.Options{
		IconPath:     cfg.Favicon.IconPath,
		MaxCacheDays: favicon.Days(cfg.Favicon.MaxCacheDays),
	})

	router := httprouter.New()
	router.GET("/healthz", health)
	router.NotFound = fallback
	// Let the fallback answer every method on unknown routes
	router.HandleMethodNotAllowed = false

	return &Server{
		config:          cfg,
		source:          source,
		favicon:         icons,
		handler:         logRequests(icons.Handler(router)),
		shutdownTimeout: shutdownTimeout,
	}, nil
}

// newFallback builds the handler for every request the server does not answer itself
func newFallback(cfg *config.Config) (http.Handler, error) {
	upstream, err := cfg.GetUpstreamURL()
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}
	if upstream == nil {
		return http.NotFoundHandler(), nil
	}

	proxy := httputil.NewSingleHostReverseProxy(upstream)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logrus.Errorf("Failed to forward %s %s to %s: %v", r.Method, r.URL.Path, upstream, err)
		w.WriteHeader(http.StatusBadGateway)
	}
	return proxy, nil
}

func health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte("ok")); err != nil {
		logrus.Errorf("Failed to write health response: %v", err)
	}
}

// Handler returns the root HTTP handler (exported for testing)
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Favicon returns the favicon middleware
func (s *Server) Favicon() *favicon.Middleware {
	return s.favicon
}

// IconFile returns the on-disk path of the served icon
func (s *Server) IconFile() string {
	return s.source.Path(s.favicon.Options().IconPath)
}

// Start starts the server and blocks until ctx is done or the listener fails.
// On ctx end, in-flight requests get the shutdown timeout to complete.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logrus.Infof("Starting favicon server on port %d", s.config.Server.Port)
	logrus.Infof("Icon file: %s", s.IconFile())
	logrus.Infof("Max cache age: %d days", s.favicon.Options().CacheDays())
	if s.config.Upstream.URL != "" {
		logrus.Infof("Upstream: %s", s.config.Upstream.URL)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logrus.Infof("Shutting down favicon server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		return nil
	})

	return g.Wait()
}
