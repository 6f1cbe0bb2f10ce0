// Package server собирает HTTP сервер списков: маршруты, middleware, подписки.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/iudanet/listsync/internal/server/handlers"
	"github.com/iudanet/listsync/internal/server/middleware"
	"github.com/iudanet/listsync/internal/server/storage"
)

// Config - параметры сервера
type Config struct {
	Addr            string
	Version         string
	JWT             handlers.JWTConfig
	Hub             handlers.HubConfig
	RateLimit       int // запросов на пользователя за RateWindow; 0 - без ограничения
	RateWindow      time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the production defaults without the JWT secret
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		Version:         "dev",
		JWT:             handlers.JWTConfig{AccessTokenTTL: 30 * 24 * time.Hour},
		Hub:             handlers.DefaultHubConfig(),
		RateLimit:       600,
		RateWindow:      time.Minute,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server - HTTP сервер списков
type Server struct {
	logger  *slog.Logger
	handler http.Handler
	hub     *handlers.Hub
	limiter *middleware.RateLimiter
	cfg     Config
}

// New собирает сервер поверх хранилища
func New(cfg Config, store storage.Storage, logger *slog.Logger) *Server {
	s := &Server{
		logger: logger,
		cfg:    cfg,
		hub:    handlers.NewHub(logger, cfg.Hub),
	}

	health := handlers.NewHealthHandler(logger, store, cfg.Version)
	lists := handlers.NewListsHandler(logger, store, s.hub)
	deltas := handlers.NewDeltasHandler(logger, store, store, s.hub)

	protected := http.NewServeMux()
	protected.HandleFunc("GET /api/v1/lists", lists.GetLists)
	protected.HandleFunc("POST /api/v1/lists", lists.CreateList)
	protected.HandleFunc("DELETE /api/v1/lists/{id}", lists.DeleteList)
	protected.HandleFunc("DELETE /api/v1/lists/{id}/participants/me", lists.LeaveList)
	protected.HandleFunc("POST /api/v1/lists/{id}/deltas", deltas.PushDelta)
	protected.HandleFunc("GET /api/v1/lists/{id}/deltas", deltas.GetDeltas)
	protected.HandleFunc("GET /api/v1/subscribe", s.hub.Subscribe)

	var authorized http.Handler = protected
	if cfg.RateLimit > 0 {
		s.limiter = middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
		authorized = middleware.RateLimitMiddleware(s.limiter, logger)(authorized)
	}
	authorized = middleware.AuthMiddleware(logger, cfg.JWT)(authorized)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", health.Health)
	mux.Handle("/api/v1/", authorized)

	s.handler = middleware.RecoveryMiddleware(logger)(
		middleware.LoggingMiddleware(logger, "/api/v1/health")(mux),
	)

	return s
}

// Handler возвращает корневой http.Handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Hub возвращает реестр подписок
func (s *Server) Hub() *handlers.Hub {
	return s.hub
}

// Run слушает cfg.Addr до отмены ctx
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve обслуживает ln до отмены ctx, затем корректно останавливается
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", "addr", ln.Addr().String(), "version", s.cfg.Version)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.close()
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")

	// websocket-соединения hijacked: Shutdown их не ждет, закрываем сами
	s.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	s.close()
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

func (s *Server) close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}
