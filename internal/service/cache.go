// Пакет service — бизнес-логика Pindrop.
// cache.go — LRU-кэш записей метаданных с TTL поверх
// hashicorp/golang-lru/v2/expirable. Снимает чтение снапшота с диска
// на горячем пути resolve; короткий TTL и явная инвалидация при
// очистке/удалении не дают кэшу пережить запись.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arturkryukov/pindrop/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pd_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш метаданных",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pd_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша метаданных",
	})
)

// CacheService — LRU-кэш записей с автоматическим TTL.
type CacheService struct {
	cache *expirable.LRU[string, *model.FileRecord]
}

// NewCacheService создаёт LRU-кэш с указанным максимальным размером и TTL.
// maxSize — максимальное количество записей в кэше.
// ttl — время жизни записи после добавления.
func NewCacheService(maxSize int, ttl time.Duration) *CacheService {
	cache := expirable.NewLRU[string, *model.FileRecord](maxSize, nil, ttl)
	return &CacheService{cache: cache}
}

// Get возвращает FileRecord из кэша по PIN.
// Возвращает (запись, true) при hit или (nil, false) при miss.
// Обновляет Prometheus-метрики hit/miss.
func (c *CacheService) Get(pin string) (*model.FileRecord, bool) {
	val, ok := c.cache.Get(pin)
	if ok {
		cacheHitsTotal.Inc()
		return val, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет запись в кэше.
func (c *CacheService) Set(pin string, record *model.FileRecord) {
	c.cache.Add(pin, record)
}

// Delete удаляет запись из кэша (инвалидация при очистке или
// самовосстановлении resolve).
func (c *CacheService) Delete(pin string) {
	c.cache.Remove(pin)
}

// Purge полностью очищает кэш.
func (c *CacheService) Purge() {
	c.cache.Purge()
}
