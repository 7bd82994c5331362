// Пакет model — доменные модели Pindrop.
// FileRecord — запись об одном активном трансфере, используется
// как in-memory представление и как формат значения в снапшоте
// file_metadata.json (ключ снапшота — PIN).
package model

import (
	"time"
)

// FileRecord — метаданные одного загруженного файла.
// Сериализованный формат совместим с историческим снапшотом:
// {"filename": ..., "filepath": ..., "size": ..., "upload_time": ..., "type": ...}.
// Поля type и checksum опциональны — старые снапшоты без них
// читаются без ошибок.
type FileRecord struct {
	// PIN — 4-значный цифровой код, первичный ключ записи.
	// В снапшоте не дублируется (является ключом таблицы),
	// заполняется при загрузке.
	PIN string `json:"-"`

	// Filename — оригинальное имя файла при загрузке
	Filename string `json:"filename"`

	// BlobPath — имя блоба в директории данных (относительный путь).
	// Принадлежит Blob Store, запись лишь ссылается на него.
	BlobPath string `json:"filepath"`

	// Size — размер оригинального файла в байтах
	Size int64 `json:"size"`

	// ContentType — MIME-тип файла (опционально, может отсутствовать)
	ContentType string `json:"type,omitempty"`

	// Checksum — SHA-256 хэш содержимого (опционально)
	Checksum string `json:"checksum,omitempty"`

	// UploadedAt — дата и время загрузки (UTC).
	// Устанавливается один раз при создании записи.
	UploadedAt time.Time `json:"upload_time"`
}

// IsExpired проверяет, истёк ли срок хранения записи.
func (r *FileRecord) IsExpired(now time.Time, retention time.Duration) bool {
	return now.Sub(r.UploadedAt) > retention
}

// ExpiresAt возвращает момент истечения срока хранения.
func (r *FileRecord) ExpiresAt(retention time.Duration) time.Time {
	return r.UploadedAt.Add(retention)
}
