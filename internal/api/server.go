// Package api serves the pokedex use cases over HTTP with gin. Handlers
// translate service errors into status codes and send empty error bodies.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/pokedex/internal/service"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8000"

// shutdownTimeout bounds graceful shutdown in Run.
const shutdownTimeout = 10 * time.Second

// Server is the HTTP front end.
type Server struct {
	engine  *gin.Engine
	service *service.Service
	logger  *zap.Logger
	metrics *httpMetrics
}

// New builds the gin engine, registering HTTP collectors with reg and
// exposing reg on /metrics.
func New(svc *service.Service, reg *prometheus.Registry, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine:  gin.New(),
		service: svc,
		logger:  logger.Named("api"),
		metrics: newHTTPMetrics(reg),
	}

	s.registerMiddlewares()
	s.registerRoutes(reg)
	return s
}

// Handler returns the engine as an http.Handler.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) registerMiddlewares() {
	s.engine.Use(gin.Recovery())
	s.engine.Use(requestID())
	s.engine.Use(s.requestLogger())
	s.engine.Use(s.metrics.middleware())
}

func (s *Server) registerRoutes(reg *prometheus.Registry) {
	s.engine.GET("/health", s.healthCheck)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	s.engine.POST("/", s.createPokemon)
	s.engine.GET("/", s.fetchAllPokemons)
	s.engine.GET("/:number", s.fetchPokemon)
	s.engine.DELETE("/:number", s.deletePokemon)
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("HTTP server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
