// Пакет server — HTTP-сервер Pindrop с TLS и graceful shutdown.
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arturkryukov/pindrop/internal/api/handlers"
	"github.com/arturkryukov/pindrop/internal/api/middleware"
	"github.com/arturkryukov/pindrop/internal/config"
)

// Handlers — набор обработчиков для маршрутизации.
type Handlers struct {
	Files       *handlers.FilesHandler
	Transfers   *handlers.TransfersHandler
	Maintenance *handlers.MaintenanceHandler
	Health      *handlers.HealthHandler
}

// Server — HTTP-сервер Pindrop.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
func New(cfg *config.Config, logger *slog.Logger, h Handlers) *Server {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.MetricsMiddleware())

	// API v1
	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/files", h.Files.UploadFiles)
		r.Get("/files/{pin}", h.Files.GetFileMetadata)
		r.Get("/files/{pin}/download", h.Files.DownloadFile)
		r.Get("/transfers", h.Transfers.ListTransfers)
		r.Post("/maintenance/sweep", h.Maintenance.Sweep)
	})

	// Health endpoints для Kubernetes probes
	router.Get("/health/live", h.Health.HealthLive)
	router.Get("/health/ready", h.Health.HealthReady)

	// Prometheus
	router.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Настройка TLS
	if cfg.TLSCert != "" && cfg.TLSKey != "" {
		srv.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown с таймаутом из
// конфигурации.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
			slog.Bool("tls", s.cfg.TLSCert != ""),
		)

		var err error
		if s.cfg.TLSCert != "" && s.cfg.TLSKey != "" {
			err = s.httpServer.ListenAndServeTLS(s.cfg.TLSCert, s.cfg.TLSKey)
		} else {
			err = s.httpServer.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
