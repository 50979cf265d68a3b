// Package httpapi exposes the session service over HTTP/JSON.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/abhisek/examcore/internal/config"
	"github.com/abhisek/examcore/internal/metrics"
	"github.com/abhisek/examcore/internal/session"
)

const shutdownTimeout = 5 * time.Second

// Server routes HTTP requests to a session.Service.
type Server struct {
	svc      *session.Service
	cfg      config.HTTPConfig
	log      *zap.Logger
	metrics  *metrics.Recorder
	gatherer prometheus.Gatherer
	engine   *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the access and error logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithMetrics records request metrics into rec and serves gatherer on
// /metrics.
func WithMetrics(rec *metrics.Recorder, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = rec
		s.gatherer = gatherer
	}
}

// New builds a Server and its routes.
func New(svc *session.Service, cfg config.HTTPConfig, opts ...Option) *Server {
	s := &Server{svc: svc, cfg: cfg, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	s.engine = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), s.accessLog(), s.observe())

	r.GET("/healthz", s.health)
	if s.gatherer != nil {
		h := promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})
		r.GET("/metrics", gin.WrapH(h))
	}

	v1 := r.Group("/v1/users/:user")
	v1.Use(rateLimit(s.cfg.RateLimit))
	{
		v1.GET("/queue", s.getQueue)
		v1.POST("/attempts", s.submitAttempt)
		v1.GET("/attempts", s.listAttempts)
		v1.GET("/mastery", s.getMastery)
		v1.GET("/items/:item/status", s.itemStatus)
	}
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}
