package cache

import (
	"context"
	"time"

	"github.com/annel0/rivergen/internal/world"
)

// ChunkLoader загружает сохраненные массивы чанка.
// storage.RiverDataRepo удовлетворяет этому интерфейсу.
type ChunkLoader interface {
	Load(ctx context.Context, chunkX, chunkZ int) (*world.ChunkRiverData, bool, error)
}

// ChunkLoaderFunc адаптирует функцию к ChunkLoader
type ChunkLoaderFunc func(ctx context.Context, chunkX, chunkZ int) (*world.ChunkRiverData, bool, error)

// Load вызывает f
func (f ChunkLoaderFunc) Load(ctx context.Context, chunkX, chunkZ int) (*world.ChunkRiverData, bool, error) {
	return f(ctx, chunkX, chunkZ)
}

// CacheMetrics содержит метрики производительности кеша.
type CacheMetrics struct {
	// Общие метрики
	TotalRequests int64   `json:"total_requests"`
	CacheHits     int64   `json:"cache_hits"`
	CacheMisses   int64   `json:"cache_misses"`
	HitRatio      float64 `json:"hit_ratio"`

	// Загрузка из хранилища при промахе
	Loads         int64   `json:"loads"`
	LoadErrors    int64   `json:"load_errors"`
	AvgLoadMs     float64 `json:"avg_load_ms"`
	MaxLoadMs     float64 `json:"max_load_ms"`
	Invalidations int64   `json:"invalidations"`

	LastUpdate time.Time `json:"last_update"`
}
