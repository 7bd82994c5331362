// maintenance.go — обработчик POST /api/v1/maintenance/sweep.
// Ручной запуск очистки истёкших записей.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	apierrors "github.com/arturkryukov/pindrop/internal/api/errors"
	"github.com/arturkryukov/pindrop/internal/service"
)

// SweepRunner — интерфейс запуска одного прохода очистки.
// Позволяет тестировать handler без полного Sweeper.
type SweepRunner interface {
	RunOnce() (*service.SweepResult, error)
}

// sweepResponse — ответ на ручной запуск очистки.
type sweepResponse struct {
	Removed    int    `json:"removed"`
	Errors     int    `json:"errors"`
	DurationMs int64  `json:"duration_ms"`
	Status     string `json:"status"`
}

// MaintenanceHandler — обработчик endpoints обслуживания.
type MaintenanceHandler struct {
	sweeper SweepRunner
	logger  *slog.Logger
}

// NewMaintenanceHandler создаёт обработчик maintenance endpoints.
func NewMaintenanceHandler(sweeper SweepRunner, logger *slog.Logger) *MaintenanceHandler {
	return &MaintenanceHandler{
		sweeper: sweeper,
		logger:  logger.With(slog.String("component", "maintenance_handler")),
	}
}

// Sweep обрабатывает POST /api/v1/maintenance/sweep.
// Синхронно выполняет один проход очистки и возвращает итог.
func (h *MaintenanceHandler) Sweep(w http.ResponseWriter, _ *http.Request) {
	result, err := h.sweeper.RunOnce()
	if err != nil {
		h.logger.Error("Ошибка ручного запуска очистки", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Ошибка выполнения очистки")
		return
	}

	status := "ok"
	if result.Errors > 0 {
		status = "partial"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(sweepResponse{
		Removed:    result.Removed,
		Errors:     result.Errors,
		DurationMs: result.Duration.Milliseconds(),
		Status:     status,
	})
}
