// Package server exposes the booster service over HTTP for the web UI.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/richinex/booster/config"
	"github.com/richinex/booster/service"
)

const (
	maxBodyBytes        = 1 << 20 // 1 MiB
	shutdownGracePeriod = 10 * time.Second
	readTimeout         = 30 * time.Second
	idleTimeout         = 120 * time.Second
)

// Server is the HTTP API.
type Server struct {
	svc     *service.Service
	app     *echo.Echo
	address string
	log     zerolog.Logger
}

// New constructs an HTTP server wired with routing and middleware.
func New(cfg config.ServerConfig, svc *service.Service, log zerolog.Logger) (*Server, error) {
	if svc == nil {
		return nil, errors.New("service must not be nil")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(log)

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency: true,
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Int64("latency_ms", v.Latency.Milliseconds()).
				Msg("request")
			return nil
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, echo.HeaderAccept},
	}))

	addr := cfg.Addr
	if addr == "" {
		addr = ":8000"
	}
	srv := &Server{svc: svc, app: e, address: addr, log: log}
	srv.registerRoutes()
	return srv, nil
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.app
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info().Str("addr", s.address).Msg("starting server")

	// No write timeout: chat and compare responses stream for as long as
	// the provider does.
	httpServer := &http.Server{
		Addr:        s.address,
		Handler:     s.app,
		ReadTimeout: readTimeout,
		IdleTimeout: idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.log.Info().Msg("server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.app.GET("/", s.handleRoot)
	s.app.GET("/health", s.handleHealth)

	api := s.app.Group("/api")
	api.GET("/providers", s.handleProviders)
	api.GET("/models", s.handleModels)
	api.PUT("/models/:id", s.handleSaveModel)
	api.POST("/models/:id/catalog", s.handleCatalog)
	api.POST("/custom-interfaces", s.handleAddCustom)
	api.DELETE("/custom-interfaces/:id", s.handleDeleteCustom)
	api.PUT("/active-model", s.handleActiveModel)
	api.POST("/connection-test", s.handleConnectionTest)
	api.POST("/chat", s.handleChat)
	api.POST("/compare", s.handleCompare)
}
