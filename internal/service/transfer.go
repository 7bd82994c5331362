// transfer.go — фасад трансферов: регистрация загрузки, разрешение PIN
// и выдача содержимого. Единственная точка входа для HTTP-слоя:
// ошибки нижних компонентов (снапшот, блобы) не просачиваются наружу
// иначе как через контракт этого сервиса.
package service

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/arturkryukov/pindrop/internal/api/middleware"
	"github.com/arturkryukov/pindrop/internal/config"
	"github.com/arturkryukov/pindrop/internal/domain/model"
	"github.com/arturkryukov/pindrop/internal/pin"
	"github.com/arturkryukov/pindrop/internal/storage/blobstore"
	"github.com/arturkryukov/pindrop/internal/storage/snapshot"
)

// ErrInvalidPin — PIN неверной формы (не ровно 4 цифры).
// Проверяется до любого обращения к хранилищу.
var ErrInvalidPin = errors.New("PIN должен состоять ровно из 4 цифр")

// ErrFileTooLarge — размер файла превышает настроенный лимит.
var ErrFileTooLarge = errors.New("файл превышает максимальный размер")

// RegisterParams — параметры регистрации загрузки.
type RegisterParams struct {
	// Reader — поток данных файла
	Reader io.Reader
	// Filename — оригинальное имя файла
	Filename string
	// ContentType — MIME-тип файла (может быть пустым)
	ContentType string
	// Size — заявленный размер файла в байтах
	Size int64
}

// TransferService — фасад над Blob Store, снапшотом метаданных и
// аллокатором PIN.
type TransferService struct {
	cfg    *config.Config
	store  *snapshot.Store
	blobs  *blobstore.BlobStore
	cache  *CacheService
	logger *slog.Logger
}

// NewTransferService создаёт фасад трансферов.
func NewTransferService(
	cfg *config.Config,
	store *snapshot.Store,
	blobs *blobstore.BlobStore,
	cache *CacheService,
	logger *slog.Logger,
) *TransferService {
	return &TransferService{
		cfg:    cfg,
		store:  store,
		blobs:  blobs,
		cache:  cache,
		logger: logger.With(slog.String("component", "transfer_service")),
	}
}

// Register регистрирует загрузку: записывает блоб, выделяет PIN и
// сохраняет запись метаданных.
//
// Порядок гарантирует crash-корректность: блоб полностью сброшен на
// диск ДО сохранения снапшота, поэтому запись никогда не ссылается на
// отсутствующие байты. Обратное не гарантируется: при ошибке
// сохранения снапшота блоб остаётся сиротой и не откатывается —
// PIN в этом случае не выдаётся.
//
// Выделение PIN и вставка записи выполняются внутри одной критической
// секции снапшота: две конкурентные регистрации не могут получить
// одинаковый PIN.
func (s *TransferService) Register(params RegisterParams) (*model.FileRecord, error) {
	if params.Size > s.cfg.MaxFileSize {
		middleware.OperationsTotal.WithLabelValues("register", "rejected").Inc()
		return nil, fmt.Errorf("%w: %d байт при лимите %d", ErrFileTooLarge, params.Size, s.cfg.MaxFileSize)
	}

	// 1. Блоб на диск (temp → fsync → rename)
	saved, err := s.blobs.Save(params.Reader, params.Filename)
	if err != nil {
		middleware.OperationsTotal.WithLabelValues("register", "failure").Inc()
		return nil, fmt.Errorf("ошибка записи блоба: %w", err)
	}

	// 2. Выделение PIN + вставка записи под lock снапшота
	var rec *model.FileRecord
	err = s.store.Update(func(t snapshot.Table) (bool, error) {
		code, allocErr := pin.Allocate(t)
		if allocErr != nil {
			return false, allocErr
		}

		rec = &model.FileRecord{
			PIN:         code,
			Filename:    params.Filename,
			BlobPath:    saved.BlobPath,
			Size:        saved.Size,
			ContentType: normalizeContentType(params.ContentType),
			Checksum:    saved.Checksum,
			UploadedAt:  time.Now().UTC(),
		}
		t[code] = rec
		return true, nil
	})
	if err != nil {
		// Снапшот не сохранён: PIN не выдаём, блоб-сирота остаётся
		// до внешней гигиены хранилища
		middleware.OperationsTotal.WithLabelValues("register", "failure").Inc()
		s.logger.Warn("Регистрация не удалась, блоб остаётся сиротой",
			slog.String("blob_path", saved.BlobPath),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("ошибка регистрации метаданных: %w", err)
	}

	s.cache.Set(rec.PIN, rec)

	middleware.OperationsTotal.WithLabelValues("register", "success").Inc()
	middleware.TransfersActive.Inc()

	s.logger.Info("Файл зарегистрирован",
		slog.String("pin", rec.PIN),
		slog.String("filename", rec.Filename),
		slog.Int64("size", rec.Size),
		slog.String("checksum", rec.Checksum),
	)

	return rec, nil
}

// Resolve разрешает PIN в запись метаданных.
//
// Исходы:
//   - PIN неверной формы → ErrInvalidPin, хранилище не трогается;
//   - PIN неизвестен или запись истекла → (nil, nil) — нормальный
//     отрицательный результат, не ошибка;
//   - запись есть, но блоб пропал с диска → запись удаляется
//     (самовосстановление) и возвращается (nil, nil);
//   - сбой хранилища → ошибка.
//
// Истёкшая, но ещё не убранная очисткой запись считается отсутствующей;
// физическое удаление остаётся за Sweeper.
func (s *TransferService) Resolve(code string) (*model.FileRecord, error) {
	if !pin.Valid(code) {
		return nil, ErrInvalidPin
	}

	now := time.Now().UTC()

	if rec, ok := s.cache.Get(code); ok {
		if rec.IsExpired(now, s.cfg.Retention) {
			s.cache.Delete(code)
			return nil, nil
		}
		if s.blobs.Exists(rec.BlobPath) {
			return rec, nil
		}
		// Кэш пережил блоб — падаем в общий путь самовосстановления
		s.purgeStale(code)
		return nil, nil
	}

	t, err := s.store.Load()
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки снапшота: %w", err)
	}

	rec, ok := t[code]
	if !ok {
		return nil, nil
	}

	if rec.IsExpired(now, s.cfg.Retention) {
		return nil, nil
	}

	if !s.blobs.Exists(rec.BlobPath) {
		s.purgeStale(code)
		return nil, nil
	}

	s.cache.Set(code, rec)
	return rec, nil
}

// Open разрешает PIN и открывает блоб для потоковой отдачи.
// Семантика отсутствия — как у Resolve. Вызывающий код обязан закрыть файл.
func (s *TransferService) Open(code string) (*os.File, *model.FileRecord, error) {
	rec, err := s.Resolve(code)
	if err != nil || rec == nil {
		return nil, nil, err
	}

	f, err := s.blobs.Open(rec.BlobPath)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			// Блоб исчез между Resolve и Open — чистим и считаем отсутствующим
			s.purgeStale(code)
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("ошибка чтения блоба: %w", err)
	}

	middleware.OperationsTotal.WithLabelValues("fetch", "success").Inc()

	s.logger.Debug("Файл выдан",
		slog.String("pin", code),
		slog.String("filename", rec.Filename),
		slog.Int64("size", rec.Size),
	)

	return f, rec, nil
}

// Fetch разрешает PIN и возвращает содержимое блоба целиком.
// Семантика отсутствия — как у Resolve.
func (s *TransferService) Fetch(code string) ([]byte, *model.FileRecord, error) {
	f, rec, err := s.Open(code)
	if err != nil || rec == nil {
		return nil, nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка чтения блоба: %w", err)
	}

	return data, rec, nil
}

// List возвращает все активные записи (новые первые) и суммарный
// размер в байтах. Используется административным списком трансферов.
func (s *TransferService) List() ([]*model.FileRecord, int64, error) {
	t, err := s.store.Load()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка загрузки снапшота: %w", err)
	}

	records := make([]*model.FileRecord, 0, len(t))
	var totalBytes int64
	for _, rec := range t {
		records = append(records, rec)
		totalBytes += rec.Size
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].UploadedAt.After(records[j].UploadedAt)
	})

	return records, totalBytes, nil
}

// purgeStale удаляет запись, чей блоб пропал с диска.
// Ошибка удаления не фатальна: запись вычистится при следующем
// обращении или очисткой.
func (s *TransferService) purgeStale(code string) {
	s.cache.Delete(code)

	err := s.store.Update(func(t snapshot.Table) (bool, error) {
		if _, ok := t[code]; !ok {
			return false, nil
		}
		delete(t, code)
		return true, nil
	})
	if err != nil {
		s.logger.Error("Ошибка удаления записи с пропавшим блобом",
			slog.String("pin", code),
			slog.String("error", err.Error()),
		)
		return
	}

	middleware.TransfersActive.Dec()
	s.logger.Info("Запись с пропавшим блобом удалена", slog.String("pin", code))
}

// normalizeContentType убирает параметры MIME-типа (charset и т.д.).
// Пустой тип остаётся пустым: тип — опциональное поле записи.
func normalizeContentType(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	return strings.TrimSpace(contentType)
}
