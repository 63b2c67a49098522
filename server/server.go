// Package server exposes the quilltap HTTP API: chat message streaming
// over SSE, chat history, and provider model listings. HTTP plumbing stays
// thin here; turn orchestration lives in the chat package.
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

	"github.com/foundry-9/quilltap/config"
	"github.com/foundry-9/quilltap/llm"
	"github.com/foundry-9/quilltap/store"
	"github.com/foundry-9/quilltap/tools"
)

const (
	shutdownGracePeriod = 10 * time.Second
	readTimeout         = 30 * time.Second
	idleTimeout         = 120 * time.Second
	modelListTimeout    = 15 * time.Second
)

type Server struct {
	cfg      *config.Config
	registry *llm.Registry
	store    *store.Store
	tools    *tools.Registry
	app      *echo.Echo
	logger   zerolog.Logger
}

// New constructs an HTTP server wired with routing and middleware.
func New(cfg *config.Config, registry *llm.Registry, st *store.Store, toolReg *tools.Registry, logger zerolog.Logger) (*Server, error) {
	if registry == nil {
		return nil, errors.New("registry must not be nil")
	}
	if st == nil {
		return nil, errors.New("store must not be nil")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency: true,
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Int64("latencyMs", v.Latency.Milliseconds()).
				Err(v.Error).
				Msg("request")
			return nil
		},
	}))

	srv := &Server{
		cfg:      cfg,
		registry: registry,
		store:    st,
		tools:    toolReg,
		app:      e,
		logger:   logger.With().Str("component", "server").Logger(),
	}

	srv.registerRoutes()

	return srv, nil
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info().Str("addr", s.cfg.Server.Listen).Msg("Starting server")

	httpServer := &http.Server{
		Addr:        s.cfg.Server.Listen,
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
		s.logger.Info().Msg("Server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.app.GET("/health", s.handleHealth)
	s.app.GET("/v1/providers", s.handleProviders)
	s.app.GET("/v1/providers/:name/models", s.handleModels)
	s.app.GET("/v1/chats/:chatID/messages", s.handleHistory)
	s.app.POST("/v1/chats/:chatID/messages", s.handleSendMessage)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// resolveProvider builds a provider from its registry identifier using the
// configured credentials.
func (s *Server) resolveProvider(name string) (llm.Provider, error) {
	opts := s.cfg.ProviderOptions(name, s.logger)
	return s.registry.Resolve(name, opts)
}
