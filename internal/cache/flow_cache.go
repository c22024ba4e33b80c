package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/rivergen/internal/config"
	"github.com/annel0/rivergen/internal/eventbus"
	"github.com/annel0/rivergen/internal/logging"
	"github.com/annel0/rivergen/internal/river"
	"github.com/annel0/rivergen/internal/vec"
	"github.com/annel0/rivergen/internal/world"
	"github.com/dgraph-io/ristretto"
	"golang.org/x/sync/singleflight"
)

// DefaultMaxChunks - размер кеша по умолчанию, в чанках
const DefaultMaxChunks = 200

// entry - значение в кеше. data == nil означает, что для чанка ничего не сохранено.
type entry struct {
	data *world.ChunkRiverData
}

// FlowCache - ограниченный кеш прочитанных массивов течения для запросов физики.
// Промахи загружаются через ChunkLoader; одновременные промахи по одному чанку
// объединяются в одну загрузку.
type FlowCache struct {
	cache  *ristretto.Cache
	loader ChunkLoader
	cfg    *config.RiverConfig
	group  singleflight.Group
	logger *logging.Logger

	mu      sync.Mutex
	metrics CacheMetrics
	loadSum time.Duration
}

// NewFlowCache создает кеш на maxChunks чанков (<= 0 - DefaultMaxChunks)
func NewFlowCache(loader ChunkLoader, cfg *config.RiverConfig, maxChunks int64) (*FlowCache, error) {
	if maxChunks <= 0 {
		maxChunks = DefaultMaxChunks
	}

	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        maxChunks * 10,
		MaxCost:            maxChunks,
		BufferItems:        64,
		// Стоимость записи - один чанк
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("не удалось создать кеш течения: %w", err)
	}

	return &FlowCache{
		cache:  c,
		loader: loader,
		cfg:    cfg,
		logger: logging.GetComponentLogger(logging.ComponentCache),
	}, nil
}

func cacheKey(chunkX, chunkZ int) string {
	return fmt.Sprintf("%d:%d", chunkX, chunkZ)
}

// Chunk возвращает массивы чанка из кеша или хранилища; nil, если чанк не сохранен
func (fc *FlowCache) Chunk(ctx context.Context, chunkX, chunkZ int) (*world.ChunkRiverData, error) {
	key := cacheKey(chunkX, chunkZ)

	if v, ok := fc.cache.Get(key); ok {
		fc.record(true)
		return v.(entry).data, nil
	}
	fc.record(false)

	v, err, _ := fc.group.Do(key, func() (interface{}, error) {
		start := time.Now()
		data, found, err := fc.loader.Load(ctx, chunkX, chunkZ)
		fc.recordLoad(time.Since(start), err)
		if err != nil {
			return nil, err
		}
		if !found {
			data = nil
		}

		e := entry{data: data}
		fc.cache.Set(key, e, 1)
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("не удалось загрузить чанк (%d, %d): %w", chunkX, chunkZ, err)
	}
	return v.(entry).data, nil
}

// FlowAt возвращает течение в мировой колонке, умноженное на скорость рек.
// ok == false, если течения нет, чанк не сохранен или течение отключено.
func (fc *FlowCache) FlowAt(ctx context.Context, x, z int) (float64, float64, bool, error) {
	if fc.cfg.DisableFlow {
		return 0, 0, false, nil
	}

	pos := vec.Vec2{X: x, Y: z}
	chunk := pos.ToChunkCoords()
	data, err := fc.Chunk(ctx, chunk.X, chunk.Y)
	if err != nil || data == nil || !data.HasFlow {
		return 0, 0, false, err
	}

	local := pos.LocalInChunk()
	fx, fz := data.FlowAt(local.X, local.Y)
	if fx <= river.NoFlow || fz <= river.NoFlow {
		return 0, 0, false, nil
	}
	return fx * fc.cfg.RiverSpeed, fz * fc.cfg.RiverSpeed, true, nil
}

// Invalidate удаляет чанк из кеша
func (fc *FlowCache) Invalidate(chunkX, chunkZ int) {
	fc.cache.Del(cacheKey(chunkX, chunkZ))

	fc.mu.Lock()
	fc.metrics.Invalidations++
	fc.mu.Unlock()
}

// Wait дожидается применения буферизованных записей кеша
func (fc *FlowCache) Wait() {
	fc.cache.Wait()
}

// Clear очищает кеш
func (fc *FlowCache) Clear() {
	fc.cache.Clear()
}

// SubscribeInvalidations сбрасывает кеш чанка при каждом событии ChunkPersisted
func (fc *FlowCache) SubscribeInvalidations(ctx context.Context, bus eventbus.EventBus) (eventbus.Subscription, error) {
	filter := eventbus.Filter{Types: []string{eventbus.TypeChunkPersisted}}
	return bus.Subscribe(ctx, filter, func(_ context.Context, ev *eventbus.Envelope) {
		payload, err := eventbus.Decode[eventbus.ChunkPersisted](ev)
		if err != nil {
			fc.logger.Warn("Инвалидация кеша: %v", err)
			return
		}
		fc.Invalidate(payload.ChunkX, payload.ChunkZ)
	})
}

// GetMetrics возвращает метрики кеша
func (fc *FlowCache) GetMetrics() *CacheMetrics {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	m := fc.metrics
	if m.TotalRequests > 0 {
		m.HitRatio = float64(m.CacheHits) / float64(m.TotalRequests)
	}
	if m.Loads > 0 {
		m.AvgLoadMs = float64(fc.loadSum.Microseconds()) / float64(m.Loads) / 1000
	}
	m.LastUpdate = time.Now()
	return &m
}

// Close освобождает ресурсы кеша
func (fc *FlowCache) Close() {
	fc.cache.Close()
}

func (fc *FlowCache) record(hit bool) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	fc.metrics.TotalRequests++
	if hit {
		fc.metrics.CacheHits++
	} else {
		fc.metrics.CacheMisses++
	}
}

func (fc *FlowCache) recordLoad(d time.Duration, err error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	fc.metrics.Loads++
	if err != nil {
		fc.metrics.LoadErrors++
	}
	fc.loadSum += d
	if ms := float64(d.Microseconds()) / 1000; ms > fc.metrics.MaxLoadMs {
		fc.metrics.MaxLoadMs = ms
	}
}
