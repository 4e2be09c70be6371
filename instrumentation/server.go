package instrumentation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server exposes /metrics over plain HTTP, mirroring core/metrics_server.go's
// httpLoop: a dedicated http.Server with conservative idle/header timeouts,
// started in its own goroutine and stopped via graceful Shutdown.
type Server struct {
	http *http.Server
}

// NewServer builds (but does not start) the metrics HTTP server bound to
// addr, serving gatherer's metrics at /metrics.
func NewServer(addr string, gatherer prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           mux,
			IdleTimeout:       1 * time.Minute,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Run starts the server and blocks until it is shut down. logger receives a
// single info line on startup.
func (s *Server) Run(logger *zap.SugaredLogger) error {
	logger.Infof("metrics server listening on %s", s.http.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("metrics server: %w", err)
}

// Shutdown gracefully stops the server, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
