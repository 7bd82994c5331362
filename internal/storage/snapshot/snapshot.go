// Пакет snapshot — персистентная таблица соответствия PIN → FileRecord.
// Вся таблица хранится одним JSON-снапшотом (file_metadata.json) и
// переписывается целиком при каждом изменении. Все операции
// load-modify-save проходят через один process-wide mutex (Update),
// что исключает lost-update гонки между конкурентными загрузками,
// скачиваниями и очисткой.
//
// Запись атомарна: temp файл → fsync → rename, поэтому конкурентный
// Load видит либо предыдущий, либо новый полный снапшот, но никогда
// частичный файл.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/arturkryukov/pindrop/internal/domain/model"
)

// Table — полная таблица активных трансферов: PIN → FileRecord.
type Table map[string]*model.FileRecord

// Store — хранилище снапшота метаданных.
// Единственный владелец файла снапшота: все остальные компоненты
// работают с таблицей только через Load/Save/Update.
type Store struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// New создаёт хранилище снапшота. Директория файла создаётся,
// если её ещё нет; сам файл — лениво, при первом Save.
func New(path string, logger *slog.Logger) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию снапшота %s: %w", dir, err)
	}

	return &Store{
		path:   path,
		logger: logger.With(slog.String("component", "snapshot")),
	}, nil
}

// Path возвращает путь к файлу снапшота.
func (s *Store) Path() string {
	return s.path
}

// Load читает персистентный снапшот и возвращает таблицу.
// Отсутствующий файл — нормальная ситуация (пустая таблица).
// Повреждённый JSON логируется и тоже даёт пустую таблицу:
// сервис продолжает работать, потеряв старые записи.
// Прочие ошибки ввода-вывода возвращаются вызывающему.
func (s *Store) Load() (Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save сериализует таблицу и атомарно заменяет снапшот.
func (s *Store) Save(t Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(t)
}

// Update выполняет полный цикл load-modify-save под одним захватом
// mutex. fn получает загруженную таблицу и мутирует её на месте;
// возвращённый флаг changed определяет, нужно ли сохранять.
// Составные операции (регистрация, очистка, удаление протухшей
// записи) обязаны идти через Update, а не через пару Load+Save.
func (s *Store) Update(fn func(Table) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.load()
	if err != nil {
		return err
	}

	changed, err := fn(t)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	return s.save(t)
}

// load — чтение снапшота без захвата mutex (вызывающий уже держит его).
func (s *Store) load() (Table, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Table{}, nil
		}
		return nil, fmt.Errorf("ошибка чтения снапшота %s: %w", s.path, err)
	}

	var raw map[string]*model.FileRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Warn("Снапшот метаданных повреждён, начинаем с пустой таблицы",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
		return Table{}, nil
	}

	// PIN — ключ таблицы, восстанавливаем его в записях.
	// null-значение — частный случай повреждения: запись
	// пропускается, сервис продолжает работать.
	t := make(Table, len(raw))
	for pin, rec := range raw {
		if rec == nil {
			s.logger.Warn("Снапшот содержит пустую запись, пропускаем",
				slog.String("path", s.path),
				slog.String("pin", pin),
			)
			continue
		}
		rec.PIN = pin
		t[pin] = rec
	}

	return t, nil
}

// save — атомарная запись снапшота без захвата mutex.
// Паттерн: JSON → temp файл → fsync → atomic rename.
func (s *Store) save(t Table) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации снапшота: %w", err)
	}

	tmpPath := s.path + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи снапшота: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return nil
}
