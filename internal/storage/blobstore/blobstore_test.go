package blobstore

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestNew_CreatesDirectory проверяет создание директории данных.
func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	bs, err := New(dir)
	if err != nil {
		t.Fatalf("ошибка создания BlobStore: %v", err)
	}

	if bs.DataDir() != dir {
		t.Errorf("ожидался путь %s, получен %s", dir, bs.DataDir())
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("директория не создана: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("путь не является директорией")
	}
}

// TestSave проверяет сохранение блоба с подсчётом SHA-256.
func TestSave(t *testing.T) {
	bs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания BlobStore: %v", err)
	}

	content := []byte("Hello, World! Тестовые данные для проверки.")
	result, err := bs.Save(bytes.NewReader(content), "test-photo.jpg")
	if err != nil {
		t.Fatalf("ошибка сохранения: %v", err)
	}

	if result.Size != int64(len(content)) {
		t.Errorf("размер: ожидалось %d, получено %d", len(content), result.Size)
	}

	expectedHash := sha256.Sum256(content)
	expectedChecksum := hex.EncodeToString(expectedHash[:])
	if result.Checksum != expectedChecksum {
		t.Errorf("checksum: ожидалось %s, получено %s", expectedChecksum, result.Checksum)
	}

	if _, err := os.Stat(result.FullPath); os.IsNotExist(err) {
		t.Error("блоб не найден на диске")
	}

	// Формат имени: {name}_{timestamp}_{uuid}{ext}
	if !strings.Contains(result.BlobPath, "test-photo") {
		t.Errorf("имя блоба должно содержать оригинальное имя: %s", result.BlobPath)
	}
	if !strings.HasSuffix(result.BlobPath, ".jpg") {
		t.Errorf("имя блоба должно сохранять расширение: %s", result.BlobPath)
	}
	if strings.Count(result.BlobPath, "_") < 2 {
		t.Errorf("имя блоба должно содержать timestamp и uuid: %s", result.BlobPath)
	}
}

// TestSave_NoTempLeftover проверяет отсутствие временных файлов
// после успешной записи.
func TestSave_NoTempLeftover(t *testing.T) {
	dir := t.TempDir()
	bs, err := New(dir)
	if err != nil {
		t.Fatalf("ошибка создания BlobStore: %v", err)
	}

	if _, err := bs.Save(strings.NewReader("данные"), "a.txt"); err != nil {
		t.Fatalf("ошибка сохранения: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ошибка чтения директории: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("остался временный файл: %s", e.Name())
		}
	}
}

// TestOpen_RoundTrip проверяет чтение сохранённого блоба.
func TestOpen_RoundTrip(t *testing.T) {
	bs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания BlobStore: %v", err)
	}

	content := []byte("содержимое блоба")
	result, err := bs.Save(bytes.NewReader(content), "doc.pdf")
	if err != nil {
		t.Fatalf("ошибка сохранения: %v", err)
	}

	f, err := bs.Open(result.BlobPath)
	if err != nil {
		t.Fatalf("ошибка открытия: %v", err)
	}
	defer f.Close()

	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ошибка чтения: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("содержимое не совпадает: ожидалось %q, получено %q", content, got)
	}
}

// TestOpen_NotFound проверяет ErrNotFound для отсутствующего блоба.
func TestOpen_NotFound(t *testing.T) {
	bs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания BlobStore: %v", err)
	}

	_, err = bs.Open("нет-такого-блоба.bin")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("ожидалась ErrNotFound, получено: %v", err)
	}
}

// TestDelete_Idempotent проверяет идемпотентность удаления.
func TestDelete_Idempotent(t *testing.T) {
	bs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания BlobStore: %v", err)
	}

	result, err := bs.Save(strings.NewReader("x"), "tmp.bin")
	if err != nil {
		t.Fatalf("ошибка сохранения: %v", err)
	}

	if err := bs.Delete(result.BlobPath); err != nil {
		t.Fatalf("ошибка удаления: %v", err)
	}
	if bs.Exists(result.BlobPath) {
		t.Error("блоб не удалён")
	}

	// Повторное удаление — не ошибка
	if err := bs.Delete(result.BlobPath); err != nil {
		t.Errorf("повторное удаление должно быть идемпотентным: %v", err)
	}
}

// TestSave_UniqueNames проверяет, что одинаковые имена файлов дают
// разные блобы.
func TestSave_UniqueNames(t *testing.T) {
	bs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания BlobStore: %v", err)
	}

	r1, err := bs.Save(strings.NewReader("первый"), "same.txt")
	if err != nil {
		t.Fatalf("ошибка сохранения: %v", err)
	}
	r2, err := bs.Save(strings.NewReader("второй"), "same.txt")
	if err != nil {
		t.Fatalf("ошибка сохранения: %v", err)
	}

	if r1.BlobPath == r2.BlobPath {
		t.Errorf("два блоба получили одинаковое имя: %s", r1.BlobPath)
	}
}

// TestFullPath проверяет, что Save возвращает путь, согласованный
// с FullPath по относительному имени блоба.
func TestFullPath(t *testing.T) {
	dir := t.TempDir()
	bs, err := New(dir)
	if err != nil {
		t.Fatalf("ошибка создания BlobStore: %v", err)
	}

	result, err := bs.Save(strings.NewReader("данные"), "doc.txt")
	if err != nil {
		t.Fatalf("ошибка сохранения: %v", err)
	}

	if got := bs.FullPath(result.BlobPath); got != result.FullPath {
		t.Errorf("FullPath(%q) = %q, ожидалось %q", result.BlobPath, got, result.FullPath)
	}
	if want := filepath.Join(dir, result.BlobPath); result.FullPath != want {
		t.Errorf("FullPath: ожидалось %q, получено %q", want, result.FullPath)
	}
}

// TestSanitize проверяет очистку опасных символов в имени.
func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report", "report"},
		{"отчёт", "отчёт"},
		{"../../etc/passwd", "etcpasswd"},
		{"a b c", "abc"},
		{"///", "file"},
	}

	for _, tt := range tests {
		if got := sanitize(tt.in); got != tt.want {
			t.Errorf("sanitize(%q) = %q, ожидалось %q", tt.in, got, tt.want)
		}
	}
}
