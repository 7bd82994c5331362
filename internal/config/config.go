// Пакет config — загрузка и валидация конфигурации Pindrop
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Pindrop.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Путь к директории хранения блобов
	DataDir string
	// Путь к файлу снапшота метаданных (по умолчанию
	// {DataDir}/file_metadata.json)
	SnapshotPath string
	// Срок хранения файла с момента загрузки
	Retention time.Duration
	// Интервал фоновой очистки (0 — только очистка при старте)
	SweepInterval time.Duration
	// Максимальный размер файла в байтах
	MaxFileSize int64
	// Максимальное количество записей в LRU-кэше метаданных
	CacheSize int
	// TTL записи LRU-кэша
	CacheTTL time.Duration
	// Путь к TLS сертификату (опционально)
	TLSCert string
	// Путь к TLS приватному ключу (опционально)
	TLSKey string
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}

	// PD_PORT — порт HTTP-сервера (по умолчанию 8080)
	port, err := getEnvInt("PD_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("PD_PORT: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("PD_PORT: значение %d вне допустимого диапазона 1-65535", port)
	}
	cfg.Port = port

	// PD_DATA_DIR — обязательный
	cfg.DataDir, err = getEnvRequired("PD_DATA_DIR")
	if err != nil {
		return nil, err
	}

	// PD_SNAPSHOT_PATH — путь к снапшоту метаданных.
	// По умолчанию лежит рядом с блобами, как в историческом формате.
	cfg.SnapshotPath = getEnvDefault("PD_SNAPSHOT_PATH", filepath.Join(cfg.DataDir, "file_metadata.json"))

	// PD_RETENTION — срок хранения файлов (по умолчанию 24h)
	cfg.Retention, err = getEnvDuration("PD_RETENTION", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("PD_RETENTION: %w", err)
	}
	if cfg.Retention <= 0 {
		return nil, fmt.Errorf("PD_RETENTION: значение должно быть положительным")
	}

	// PD_SWEEP_INTERVAL — интервал фоновой очистки (по умолчанию 1h).
	// 0 отключает фоновый цикл: очистка выполняется только при старте.
	cfg.SweepInterval, err = getEnvDuration("PD_SWEEP_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("PD_SWEEP_INTERVAL: %w", err)
	}
	if cfg.SweepInterval < 0 {
		return nil, fmt.Errorf("PD_SWEEP_INTERVAL: значение не может быть отрицательным")
	}

	// PD_MAX_FILE_SIZE — максимальный размер файла (по умолчанию 1 GB)
	maxFileSize, err := getEnvInt64("PD_MAX_FILE_SIZE", 1073741824)
	if err != nil {
		return nil, fmt.Errorf("PD_MAX_FILE_SIZE: %w", err)
	}
	if maxFileSize <= 0 {
		return nil, fmt.Errorf("PD_MAX_FILE_SIZE: значение должно быть положительным")
	}
	cfg.MaxFileSize = maxFileSize

	// PD_CACHE_SIZE — размер LRU-кэша метаданных (по умолчанию 1024)
	cacheSize, err := getEnvInt("PD_CACHE_SIZE", 1024)
	if err != nil {
		return nil, fmt.Errorf("PD_CACHE_SIZE: %w", err)
	}
	if cacheSize <= 0 {
		return nil, fmt.Errorf("PD_CACHE_SIZE: значение должно быть положительным")
	}
	cfg.CacheSize = cacheSize

	// PD_CACHE_TTL — TTL записи кэша (по умолчанию 1m)
	cfg.CacheTTL, err = getEnvDuration("PD_CACHE_TTL", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("PD_CACHE_TTL: %w", err)
	}
	if cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("PD_CACHE_TTL: значение должно быть положительным")
	}

	// PD_TLS_CERT / PD_TLS_KEY — опциональные, задаются парой
	cfg.TLSCert = getEnvDefault("PD_TLS_CERT", "")
	cfg.TLSKey = getEnvDefault("PD_TLS_KEY", "")
	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		return nil, fmt.Errorf("PD_TLS_CERT и PD_TLS_KEY должны быть заданы вместе")
	}

	// PD_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("PD_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("PD_LOG_LEVEL: %w", err)
	}

	// PD_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("PD_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("PD_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// PD_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("PD_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PD_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 24h)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
