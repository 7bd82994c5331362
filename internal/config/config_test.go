package config

import (
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// setRequiredEnv задаёт минимальный набор переменных окружения.
func setRequiredEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PD_DATA_DIR", dir)
	return dir
}

// TestLoad_Defaults проверяет значения по умолчанию.
func TestLoad_Defaults(t *testing.T) {
	dir := setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("ошибка загрузки конфигурации: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port: ожидалось 8080, получено %d", cfg.Port)
	}
	if cfg.DataDir != dir {
		t.Errorf("DataDir: ожидалось %s, получено %s", dir, cfg.DataDir)
	}
	if want := filepath.Join(dir, "file_metadata.json"); cfg.SnapshotPath != want {
		t.Errorf("SnapshotPath: ожидалось %s, получено %s", want, cfg.SnapshotPath)
	}
	if cfg.Retention != 24*time.Hour {
		t.Errorf("Retention: ожидалось 24h, получено %v", cfg.Retention)
	}
	if cfg.SweepInterval != time.Hour {
		t.Errorf("SweepInterval: ожидалось 1h, получено %v", cfg.SweepInterval)
	}
	if cfg.MaxFileSize != 1073741824 {
		t.Errorf("MaxFileSize: ожидалось 1 GB, получено %d", cfg.MaxFileSize)
	}
	if cfg.CacheSize != 1024 {
		t.Errorf("CacheSize: ожидалось 1024, получено %d", cfg.CacheSize)
	}
	if cfg.CacheTTL != time.Minute {
		t.Errorf("CacheTTL: ожидалось 1m, получено %v", cfg.CacheTTL)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel: ожидалось info, получено %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat: ожидалось json, получено %q", cfg.LogFormat)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout: ожидалось 5s, получено %v", cfg.ShutdownTimeout)
	}
}

// TestLoad_MissingDataDir проверяет ошибку при отсутствии обязательной
// переменной.
func TestLoad_MissingDataDir(t *testing.T) {
	t.Setenv("PD_DATA_DIR", "")

	_, err := Load()
	if err == nil {
		t.Fatal("ожидалась ошибка при незаданной PD_DATA_DIR")
	}
	if !strings.Contains(err.Error(), "PD_DATA_DIR") {
		t.Errorf("ошибка должна упоминать PD_DATA_DIR: %v", err)
	}
}

// TestLoad_Overrides проверяет чтение переопределённых значений.
func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PD_PORT", "9000")
	t.Setenv("PD_RETENTION", "48h")
	t.Setenv("PD_SWEEP_INTERVAL", "0")
	t.Setenv("PD_MAX_FILE_SIZE", "1048576")
	t.Setenv("PD_LOG_LEVEL", "debug")
	t.Setenv("PD_LOG_FORMAT", "text")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("ошибка загрузки конфигурации: %v", err)
	}

	if cfg.Port != 9000 {
		t.Errorf("Port: ожидалось 9000, получено %d", cfg.Port)
	}
	if cfg.Retention != 48*time.Hour {
		t.Errorf("Retention: ожидалось 48h, получено %v", cfg.Retention)
	}
	if cfg.SweepInterval != 0 {
		t.Errorf("SweepInterval: ожидалось 0, получено %v", cfg.SweepInterval)
	}
	if cfg.MaxFileSize != 1048576 {
		t.Errorf("MaxFileSize: ожидалось 1 MiB, получено %d", cfg.MaxFileSize)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel: ожидалось debug, получено %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat: ожидалось text, получено %q", cfg.LogFormat)
	}
}

// TestLoad_InvalidValues проверяет отказ при некорректных значениях.
func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"нечисловой порт", "PD_PORT", "abc"},
		{"порт вне диапазона", "PD_PORT", "70000"},
		{"некорректная длительность", "PD_RETENTION", "сутки"},
		{"отрицательный retention", "PD_RETENTION", "-1h"},
		{"отрицательный интервал очистки", "PD_SWEEP_INTERVAL", "-5m"},
		{"нулевой размер файла", "PD_MAX_FILE_SIZE", "0"},
		{"недопустимый уровень логирования", "PD_LOG_LEVEL", "trace"},
		{"недопустимый формат логов", "PD_LOG_FORMAT", "xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("ожидалась ошибка для %s=%q", tt.key, tt.value)
			}
		})
	}
}

// TestLoad_TLSPair проверяет, что сертификат и ключ задаются парой.
func TestLoad_TLSPair(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PD_TLS_CERT", "/tmp/cert.pem")

	if _, err := Load(); err == nil {
		t.Fatal("ожидалась ошибка при заданном сертификате без ключа")
	}
}
