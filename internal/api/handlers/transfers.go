// transfers.go — административный список активных трансферов.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/arturkryukov/pindrop/internal/api/errors"
	"github.com/arturkryukov/pindrop/internal/service"
)

// transfersResponse — ответ списка трансферов.
type transfersResponse struct {
	Transfers  []fileResponse `json:"transfers"`
	Total      int            `json:"total"`
	TotalBytes int64          `json:"total_bytes"`
}

// TransfersHandler реализует GET /api/v1/transfers.
type TransfersHandler struct {
	svc       *service.TransferService
	retention time.Duration
	logger    *slog.Logger
}

// NewTransfersHandler создаёт обработчик списка трансферов.
func NewTransfersHandler(svc *service.TransferService, retention time.Duration, logger *slog.Logger) *TransfersHandler {
	return &TransfersHandler{
		svc:       svc,
		retention: retention,
		logger:    logger.With(slog.String("component", "transfers_handler")),
	}
}

// ListTransfers обрабатывает GET /api/v1/transfers.
// Возвращает все активные записи (новые первые), их количество и
// суммарный размер.
func (h *TransfersHandler) ListTransfers(w http.ResponseWriter, _ *http.Request) {
	records, totalBytes, err := h.svc.List()
	if err != nil {
		h.logger.Error("Ошибка получения списка трансферов", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервиса")
		return
	}

	resp := transfersResponse{
		Transfers:  make([]fileResponse, 0, len(records)),
		Total:      len(records),
		TotalBytes: totalBytes,
	}
	for _, rec := range records {
		resp.Transfers = append(resp.Transfers, fileResponse{
			Pin:        rec.PIN,
			Filename:   rec.Filename,
			Size:       rec.Size,
			Type:       rec.ContentType,
			Checksum:   rec.Checksum,
			UploadTime: rec.UploadedAt,
			ExpiresAt:  rec.ExpiresAt(h.retention),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
