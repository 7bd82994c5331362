// Точка входа Pindrop — сервиса обмена файлами по 4-значному PIN.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/arturkryukov/pindrop/internal/api/handlers"
	"github.com/arturkryukov/pindrop/internal/api/middleware"
	"github.com/arturkryukov/pindrop/internal/config"
	"github.com/arturkryukov/pindrop/internal/server"
	"github.com/arturkryukov/pindrop/internal/service"
	"github.com/arturkryukov/pindrop/internal/storage/blobstore"
	"github.com/arturkryukov/pindrop/internal/storage/snapshot"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("Pindrop запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("data_dir", cfg.DataDir),
		slog.Duration("retention", cfg.Retention),
	)

	// --- Инициализация компонентов ---

	// 1. Хранилище блобов
	blobs, err := blobstore.New(cfg.DataDir)
	if err != nil {
		logger.Error("Ошибка инициализации BlobStore", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Снапшот метаданных
	store, err := snapshot.New(cfg.SnapshotPath, logger)
	if err != nil {
		logger.Error("Ошибка инициализации снапшота метаданных", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Начальное значение gauge активных трансферов
	t, err := store.Load()
	if err != nil {
		logger.Error("Ошибка чтения снапшота метаданных", slog.String("error", err.Error()))
		os.Exit(1)
	}
	middleware.TransfersActive.Set(float64(len(t)))
	logger.Info("Снапшот метаданных загружен", slog.Int("records", len(t)))

	// 3. Сервисы
	cache := service.NewCacheService(cfg.CacheSize, cfg.CacheTTL)
	transferSvc := service.NewTransferService(cfg, store, blobs, cache, logger)
	sweeper := service.NewSweeper(store, blobs, cache, cfg.Retention, cfg.SweepInterval, logger)

	// 4. Очистка при старте: истёкшие за время простоя записи
	// убираются до приёма первого запроса
	result, err := sweeper.RunOnce()
	if err != nil {
		logger.Error("Ошибка стартовой очистки", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Стартовая очистка завершена",
		slog.Int("removed", result.Removed),
		slog.Int("errors", result.Errors),
	)

	// 5. Фоновая очистка по тикеру
	sweeper.Start(context.Background())

	// 6. Handlers
	filesHandler := handlers.NewFilesHandler(transferSvc, cfg.Retention, logger)
	transfersHandler := handlers.NewTransfersHandler(transferSvc, cfg.Retention, logger)
	maintenanceHandler := handlers.NewMaintenanceHandler(sweeper, logger)
	healthHandler := handlers.NewHealthHandler(cfg.DataDir, store)

	// 7. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, server.Handlers{
		Files:       filesHandler,
		Transfers:   transfersHandler,
		Maintenance: maintenanceHandler,
		Health:      healthHandler,
	})

	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// --- Graceful shutdown фоновых процессов ---
	logger.Info("Остановка фоновых процессов...")
	sweeper.Stop()

	logger.Info("Pindrop остановлен")
}
