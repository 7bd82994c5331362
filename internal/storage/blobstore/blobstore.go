// Пакет blobstore — операции с физическими файлами (блобами) на диске.
// Обеспечивает streaming-запись с подсчётом SHA-256 на лету, чтение
// и идемпотентное удаление. Блобы для разных путей независимы и не
// требуют взаимной блокировки — синхронизация нужна только таблице
// метаданных.
package blobstore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound — блоб отсутствует на диске. Вызывающий код обязан
// трактовать это как "файл истёк или пропал", а не как внутреннюю ошибку.
var ErrNotFound = errors.New("блоб не найден")

// BlobStore — управление блобами в директории данных.
type BlobStore struct {
	// dataDir — корневая директория хранения блобов (PD_DATA_DIR)
	dataDir string
}

// SaveResult — результат сохранения блоба на диск.
type SaveResult struct {
	// BlobPath — имя блоба относительно dataDir
	BlobPath string
	// FullPath — абсолютный путь блоба на диске
	FullPath string
	// Size — размер записанных данных в байтах
	Size int64
	// Checksum — SHA-256 хэш содержимого
	Checksum string
}

// New создаёт BlobStore. Создаёт директорию данных, если её нет.
func New(dataDir string) (*BlobStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}

	return &BlobStore{dataDir: dataDir}, nil
}

// Save записывает данные из reader на диск с подсчётом SHA-256 на лету.
// Формат имени блоба: {name}_{timestamp}_{uuid}{ext} — не зависит от PIN,
// поэтому блоб полностью записывается и сбрасывается на диск ДО того,
// как будет выделен PIN и сохранена запись метаданных.
//
// Паттерн: temp файл → запись + SHA-256 → fsync → atomic rename.
// При ошибке temp файл удаляется.
func (bs *BlobStore) Save(reader io.Reader, originalFilename string) (*SaveResult, error) {
	blobName := generateBlobName(originalFilename)
	fullPath := bs.FullPath(blobName)
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	// Streaming запись с одновременным подсчётом SHA-256
	hasher := sha256.New()
	tee := io.TeeReader(reader, hasher)

	size, err := io.Copy(f, tee)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	// fsync — гарантия записи на диск до возврата (вызывающий код
	// полагается на это для порядка blob-write → metadata-save)
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &SaveResult{
		BlobPath: blobName,
		FullPath: fullPath,
		Size:     size,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Open открывает блоб для чтения и возвращает *os.File.
// Отсутствующий блоб — ErrNotFound. Вызывающий код обязан закрыть файл.
func (bs *BlobStore) Open(blobPath string) (*os.File, error) {
	f, err := os.Open(bs.FullPath(blobPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, blobPath)
		}
		return nil, fmt.Errorf("ошибка открытия блоба %s: %w", blobPath, err)
	}

	return f, nil
}

// Delete удаляет блоб с диска. Отсутствующий блоб не является
// ошибкой (идемпотентность).
func (bs *BlobStore) Delete(blobPath string) error {
	err := os.Remove(bs.FullPath(blobPath))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления блоба %s: %w", blobPath, err)
	}
	return nil
}

// Exists проверяет существование блоба на диске.
func (bs *BlobStore) Exists(blobPath string) bool {
	_, err := os.Stat(bs.FullPath(blobPath))
	return err == nil
}

// FullPath возвращает абсолютный путь блоба на диске.
func (bs *BlobStore) FullPath(blobPath string) string {
	return filepath.Join(bs.dataDir, blobPath)
}

// DataDir возвращает путь к директории данных.
func (bs *BlobStore) DataDir() string {
	return bs.dataDir
}

// generateBlobName генерирует имя блоба для хранения на диске.
// Формат: {name}_{timestamp}_{uuid}{ext}
// Пример: report_20260828150405_a1b2c3d4.pdf
func generateBlobName(originalFilename string) string {
	ext := filepath.Ext(originalFilename)
	name := strings.TrimSuffix(originalFilename, ext)

	name = sanitize(name)

	// Ограничиваем длину имени для предотвращения проблем с FS
	if len(name) > 50 {
		name = name[:50]
	}

	ts := time.Now().UTC().Format("20060102150405")
	uid := uuid.New().String()[:8] // Короткий UUID для уникальности

	if ext != "" {
		return fmt.Sprintf("%s_%s_%s%s", name, ts, uid, ext)
	}
	return fmt.Sprintf("%s_%s_%s", name, ts, uid)
}

// sanitize убирает небезопасные символы из строки для использования
// в имени файла. Оставляет только буквы, цифры, дефис и подчёркивание.
func sanitize(s string) string {
	var result strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' ||
			(r >= 0x0400 && r <= 0x04FF) { // Кириллица
			result.WriteRune(r)
		}
	}
	if result.Len() == 0 {
		return "file"
	}
	return result.String()
}
