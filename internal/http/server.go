// Package http serves the host integration API, health probes and metrics.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"djfriend/internal/core"
	"djfriend/internal/flood"
	"djfriend/internal/i18n"
)

const shutdownTimeout = 10 * time.Second

// EventSubmitter is the arbitration entry point.
type EventSubmitter interface {
	SubmitEvent(ctx context.Context, ev core.PlaybackEvent) (core.Decision, error)
	SourceDisconnected(ctx context.Context, sourceID string) error
}

// PageReader serves suggestion pages.
type PageReader interface {
	GetPage(offset, size int) core.Page
}

// LinkService resolves streaming links on behalf of a requester.
type LinkService interface {
	Resolve(ctx context.Context, requester string, track core.TrackIdentity) (core.LinkResult, error)
}

// Deps are the services behind the API routes. Links may be nil, in which
// case the link route answers 503.
type Deps struct {
	Events    EventSubmitter
	Pages     PageReader
	Links     LinkService
	Limiter   *flood.Floodgate
	Localizer *i18n.Localizer
	Metrics   *Metrics
}

// Server implements core.MetricsRecorder through its embedded Metrics.
type Server struct {
	*Metrics

	config *core.ServerConfig
	logger *zap.Logger
	server *http.Server
	ready  atomic.Bool
}

func NewServer(config *core.ServerConfig, deps Deps, logger *zap.Logger) *Server {
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics()
	}
	if deps.Localizer == nil {
		deps.Localizer = i18n.NewLocalizer(i18n.DefaultLanguage)
	}

	s := &Server{
		Metrics: deps.Metrics,
		config:  config,
		logger:  logger.Named("http"),
	}
	api := &api{deps: deps, logger: s.logger}
	s.server = createHTTPServer(config, s.setupRoutes(api))
	return s
}

func createHTTPServer(config *core.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
}

func (s *Server) setupRoutes(api *api) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "djfriend"})
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		if !s.ready.Load() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting", "service": "djfriend"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "service": "djfriend"})
	})

	mux.Handle("GET /metrics", promhttp.HandlerFor(s.Metrics.Registry(), promhttp.HandlerOpts{}))

	mux.HandleFunc("POST /api/v1/events", api.postEvent)
	mux.HandleFunc("DELETE /api/v1/sources/{id}", api.deleteSource)
	mux.HandleFunc("GET /api/v1/now-playing", api.getNowPlaying)
	mux.HandleFunc("GET /api/v1/suggestions", api.getSuggestions)
	mux.HandleFunc("GET /api/v1/link", api.getLink)

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(indexPage))
	})

	return mux
}

// Handler exposes the routes for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// SetReady flips the /readyz answer.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

const indexPage = `<!DOCTYPE html>
<html>
<head>
    <title>DJ Friend</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .header { color: #333; }
        .endpoint { margin: 10px 0; }
        .endpoint a { text-decoration: none; color: #0066cc; }
        .endpoint a:hover { text-decoration: underline; }
    </style>
</head>
<body>
    <h1 class="header">🎵 DJ Friend</h1>
    <p>Now-playing arbitration and track suggestions</p>

    <h2>Endpoints</h2>
    <div class="endpoint">🎧 <a href="/api/v1/now-playing">Now playing</a></div>
    <div class="endpoint">💡 <a href="/api/v1/suggestions">Suggestions</a></div>
    <div class="endpoint">📊 <a href="/metrics">Metrics</a> - Prometheus metrics</div>
    <div class="endpoint">💚 <a href="/healthz">Health</a> - Health check</div>
    <div class="endpoint">✅ <a href="/readyz">Ready</a> - Readiness check</div>
</body>
</html>`
