// files.go — обработчики файловых endpoints: загрузка, метаданные по
// PIN, скачивание.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/arturkryukov/pindrop/internal/api/errors"
	"github.com/arturkryukov/pindrop/internal/domain/model"
	"github.com/arturkryukov/pindrop/internal/pin"
	"github.com/arturkryukov/pindrop/internal/service"
)

// maxMultipartMemory — порог буферизации multipart-формы в памяти,
// остальное уходит во временные файлы.
const maxMultipartMemory = 32 << 20 // 32 MiB

// fileResponse — представление записи в ответах API.
type fileResponse struct {
	Pin        string    `json:"pin"`
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	Type       string    `json:"type,omitempty"`
	Checksum   string    `json:"checksum,omitempty"`
	UploadTime time.Time `json:"upload_time"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// failedUpload — описание файла, который не удалось зарегистрировать.
type failedUpload struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// uploadResponse — ответ на загрузку (возможно частично успешную).
type uploadResponse struct {
	Uploaded []fileResponse `json:"uploaded"`
	Failed   []failedUpload `json:"failed,omitempty"`
}

// FilesHandler реализует файловые endpoints.
type FilesHandler struct {
	svc       *service.TransferService
	retention time.Duration
	logger    *slog.Logger
}

// NewFilesHandler создаёт обработчик файловых endpoints.
func NewFilesHandler(svc *service.TransferService, retention time.Duration, logger *slog.Logger) *FilesHandler {
	return &FilesHandler{
		svc:       svc,
		retention: retention,
		logger:    logger.With(slog.String("component", "files_handler")),
	}
}

// UploadFiles обрабатывает POST /api/v1/files.
// Принимает multipart-форму с полем "files" (одно или несколько
// значений). Каждый файл регистрируется независимо: на выходе — списки
// успешных и неуспешных. 201, если зарегистрирован хотя бы один файл.
func (h *FilesHandler) UploadFiles(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		apierrors.ValidationError(w, "Некорректная multipart-форма: "+err.Error())
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	parts := r.MultipartForm.File["files"]
	if len(parts) == 0 {
		apierrors.ValidationError(w, "В форме нет файлов (ожидается поле files)")
		return
	}

	resp := uploadResponse{Uploaded: []fileResponse{}}
	var firstErr error

	for _, part := range parts {
		f, err := part.Open()
		if err != nil {
			resp.Failed = append(resp.Failed, failedUpload{
				Filename: part.Filename,
				Error:    "не удалось открыть часть формы: " + err.Error(),
			})
			continue
		}

		rec, err := h.svc.Register(service.RegisterParams{
			Reader:      f,
			Filename:    part.Filename,
			ContentType: part.Header.Get("Content-Type"),
			Size:        part.Size,
		})
		_ = f.Close()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			resp.Failed = append(resp.Failed, failedUpload{
				Filename: part.Filename,
				Error:    err.Error(),
			})
			continue
		}

		resp.Uploaded = append(resp.Uploaded, h.toResponse(rec))
	}

	// Все файлы отклонены — отдаём статус по первой ошибке сервиса.
	// Если до сервиса не дошла ни одна часть (все упали на открытии),
	// это проблема формы клиента, а не хранилища.
	if len(resp.Uploaded) == 0 {
		if firstErr == nil {
			apierrors.ValidationError(w, "Не удалось прочитать ни одну часть формы")
			return
		}
		h.writeTransferError(w, firstErr)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(resp)
}

// GetFileMetadata обрабатывает GET /api/v1/files/{pin}.
// Возвращает метаданные записи без содержимого.
func (h *FilesHandler) GetFileMetadata(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "pin")

	rec, err := h.svc.Resolve(code)
	if err != nil {
		h.writeTransferError(w, err)
		return
	}
	if rec == nil {
		apierrors.NotFound(w, "Файл с PIN "+code+" не найден")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(h.toResponse(rec))
}

// DownloadFile обрабатывает GET /api/v1/files/{pin}/download.
// Отдаёт содержимое блоба потоком с поддержкой Range-запросов.
func (h *FilesHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "pin")

	f, rec, err := h.svc.Open(code)
	if err != nil {
		h.writeTransferError(w, err)
		return
	}
	if rec == nil {
		apierrors.NotFound(w, "Файл с PIN "+code+" не найден")
		return
	}
	defer f.Close()

	disposition := mime.FormatMediaType("attachment", map[string]string{
		"filename": rec.Filename,
	})
	w.Header().Set("Content-Disposition", disposition)
	if rec.ContentType != "" {
		w.Header().Set("Content-Type", rec.ContentType)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	if rec.Checksum != "" {
		w.Header().Set("ETag", `"`+rec.Checksum+`"`)
	}

	// ServeContent сам обрабатывает Range и If-Modified-Since
	http.ServeContent(w, r, rec.Filename, rec.UploadedAt, f)
}

// toResponse собирает API-представление записи.
func (h *FilesHandler) toResponse(rec *model.FileRecord) fileResponse {
	return fileResponse{
		Pin:        rec.PIN,
		Filename:   rec.Filename,
		Size:       rec.Size,
		Type:       rec.ContentType,
		Checksum:   rec.Checksum,
		UploadTime: rec.UploadedAt,
		ExpiresAt:  rec.ExpiresAt(h.retention),
	}
}

// writeTransferError переводит ошибку сервиса в HTTP-ответ.
func (h *FilesHandler) writeTransferError(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		apierrors.InternalError(w, "Неизвестная ошибка")
	case errors.Is(err, service.ErrInvalidPin):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrFileTooLarge):
		apierrors.FileTooLarge(w, err.Error())
	case errors.Is(err, pin.ErrSpaceExhausted):
		apierrors.PinSpaceExhausted(w, err.Error())
	default:
		h.logger.Error("Внутренняя ошибка обработки запроса", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервиса")
	}
}
