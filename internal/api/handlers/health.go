// health.go — обработчики health endpoints для Kubernetes probes.
package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/arturkryukov/pindrop/internal/config"
	"github.com/arturkryukov/pindrop/internal/storage/snapshot"
)

// statusFail — строковая константа для статуса "fail" в health checks.
const statusFail = "fail"

// HealthHandler реализует health endpoints: /health/live, /health/ready.
type HealthHandler struct {
	version string
	// dataDir — путь к директории блобов (для проверки FS)
	dataDir string
	// store — снапшот метаданных (для проверки читаемости)
	store *snapshot.Store
}

// NewHealthHandler создаёт обработчик health endpoints.
func NewHealthHandler(dataDir string, store *snapshot.Store) *HealthHandler {
	return &HealthHandler{
		version: config.Version,
		dataDir: dataDir,
		store:   store,
	}
}

// HealthLive обрабатывает GET /health/live.
// Возвращает 200, если процесс жив. Не проверяет зависимости.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   "pindrop",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// HealthReady обрабатывает GET /health/ready.
// Проверяет: доступность директории данных на запись и читаемость
// снапшота метаданных.
func (h *HealthHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	overallStatus := "ok"
	httpStatus := http.StatusOK

	fsCheck := h.checkFilesystem()
	if fsCheck["status"] != "ok" {
		overallStatus = statusFail
		httpStatus = http.StatusServiceUnavailable
	}

	snapCheck := h.checkSnapshot()
	if snapCheck["status"] != "ok" {
		overallStatus = statusFail
		httpStatus = http.StatusServiceUnavailable
	}

	resp := map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   "pindrop",
		"checks": map[string]any{
			"filesystem": fsCheck,
			"snapshot":   snapCheck,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(resp)
}

// checkFilesystem проверяет доступность директории данных на запись.
func (h *HealthHandler) checkFilesystem() map[string]any {
	testFile := filepath.Join(h.dataDir, ".health_check")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return map[string]any{
			"status":  statusFail,
			"message": "Директория данных недоступна для записи: " + err.Error(),
		}
	}
	_ = os.Remove(testFile)

	return map[string]any{
		"status": "ok",
	}
}

// checkSnapshot проверяет, что снапшот метаданных читается.
func (h *HealthHandler) checkSnapshot() map[string]any {
	t, err := h.store.Load()
	if err != nil {
		return map[string]any{
			"status":  statusFail,
			"message": "Снапшот метаданных не читается: " + err.Error(),
		}
	}

	return map[string]any{
		"status":  "ok",
		"records": len(t),
	}
}
