// cache.go — LRU-кэш записей файлов с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
// Записи неизменяемы, поэтому инвалидация не нужна: запись уходит по TTL или LRU.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/file-service/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fs_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш записей.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fs_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша записей.",
	})
	cacheSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fs_cache_skipped_total",
		Help: "Записи, не помещённые в кэш из-за размера payload.",
	})
)

// CacheService — per-instance кэш записей по unique_name.
type CacheService struct {
	cache      *expirable.LRU[string, *model.FileRecord]
	maxPayload int64
}

// NewCacheService создаёт LRU-кэш.
// maxSize — максимальное количество записей, ttl — время жизни записи,
// maxPayload — записи с большим payload не кэшируются.
func NewCacheService(maxSize int, ttl time.Duration, maxPayload int64) *CacheService {
	return &CacheService{
		cache:      expirable.NewLRU[string, *model.FileRecord](maxSize, nil, ttl),
		maxPayload: maxPayload,
	}
}

// Get возвращает запись из кэша.
// Обновляет Prometheus-метрики hit/miss.
func (c *CacheService) Get(uniqueName string) (*model.FileRecord, bool) {
	val, ok := c.cache.Get(uniqueName)
	if ok {
		cacheHitsTotal.Inc()
		return val, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет запись, если её payload не превышает лимит.
func (c *CacheService) Set(record *model.FileRecord) bool {
	if int64(len(record.Payload)) > c.maxPayload {
		cacheSkippedTotal.Inc()
		return false
	}
	c.cache.Add(record.UniqueName, record)
	return true
}

// Len возвращает количество записей в кэше.
func (c *CacheService) Len() int {
	return c.cache.Len()
}
