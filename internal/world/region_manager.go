package world

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/rivergen/internal/config"
	"github.com/annel0/rivergen/internal/eventbus"
	"github.com/annel0/rivergen/internal/logging"
	"github.com/annel0/rivergen/internal/observability"
	"github.com/annel0/rivergen/internal/river"
	"github.com/annel0/rivergen/internal/util"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const (
	oceanSalt int64 = 0x4f434541 // "OCEA"

	// oceanMargin - узлов карты океанов за каждой границей региона
	oceanMargin = 2
)

// OceanProvider возвращает источник океаничности для плиты
type OceanProvider func(plateX, plateZ int) river.OceanicitySource

// RegionManager строит регионы по запросу и хранит их до конца работы процесса.
// Для каждого ключа построение выполняется не более одного раза, даже при
// одновременных запросах из разных горутин.
type RegionManager struct {
	cfg   *config.RiverConfig
	seed  int64
	ocean OceanProvider

	regions   map[regionKey]*river.Region
	regionsMu sync.RWMutex
	group     singleflight.Group

	metrics *Metrics
	bus     eventbus.EventBus
	logger  *logging.Logger
	stats   regionManagerStats
}

// regionKey представляет ключ региона
type regionKey struct {
	x, z int
}

func (k regionKey) String() string {
	return fmt.Sprintf("%d:%d", k.x, k.z)
}

// regionManagerStats содержит счетчики менеджера регионов
type regionManagerStats struct {
	builds     atomic.Int64
	hits       atomic.Int64
	failures   atomic.Int64
	buildNanos atomic.Int64
}

// RegionManagerStats - снимок статистики менеджера регионов
type RegionManagerStats struct {
	Regions    int     `json:"regions"`
	Builds     int64   `json:"builds"`
	Hits       int64   `json:"hits"`
	Failures   int64   `json:"failures"`
	AvgBuildMs float64 `json:"avg_build_ms"`
}

// NewRegionManager создаёт менеджер регионов мира с сидом seed.
// ocean == nil означает мир без океанов; metrics и bus могут быть nil.
func NewRegionManager(cfg *config.RiverConfig, seed int64, ocean OceanProvider, metrics *Metrics, bus eventbus.EventBus) *RegionManager {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if ocean == nil {
		ocean = func(int, int) river.OceanicitySource { return nil }
	}

	return &RegionManager{
		cfg:     cfg,
		seed:    seed,
		ocean:   ocean,
		regions: make(map[regionKey]*river.Region),
		metrics: metrics,
		bus:     bus,
		logger:  logging.GetWorldLogger(),
	}
}

// Get возвращает регион плиты (plateX, plateZ), строя его при первом обращении
func (rm *RegionManager) Get(ctx context.Context, plateX, plateZ int) (*river.Region, error) {
	key := regionKey{plateX, plateZ}

	if region := rm.lookup(key); region != nil {
		rm.stats.hits.Add(1)
		return region, nil
	}

	v, err, _ := rm.group.Do(key.String(), func() (interface{}, error) {
		// Пока ждали, регион мог построить другой вызов
		if region := rm.lookup(key); region != nil {
			return region, nil
		}
		return rm.build(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*river.Region), nil
}

// ForChunk возвращает регион, которому принадлежит чанк
func (rm *RegionManager) ForChunk(ctx context.Context, chunkX, chunkZ int) (*river.Region, error) {
	plateX, plateZ := river.PlateForChunk(rm.cfg, chunkX, chunkZ)
	return rm.Get(ctx, plateX, plateZ)
}

// Cached возвращает уже построенный регион, не запуская построение
func (rm *RegionManager) Cached(plateX, plateZ int) (*river.Region, bool) {
	region := rm.lookup(regionKey{plateX, plateZ})
	return region, region != nil
}

func (rm *RegionManager) lookup(key regionKey) *river.Region {
	rm.regionsMu.RLock()
	defer rm.regionsMu.RUnlock()
	return rm.regions[key]
}

func (rm *RegionManager) build(ctx context.Context, key regionKey) (*river.Region, error) {
	ctx, span := observability.Tracer().Start(ctx, "region.build", trace.WithAttributes(
		attribute.Int("plate.x", key.x),
		attribute.Int("plate.z", key.z),
		attribute.Int64("world.seed", rm.seed),
	))
	defer span.End()

	start := time.Now()
	region, err := river.BuildRegion(rm.cfg, rm.seed, key.x, key.z, rm.ocean(key.x, key.z))
	if err != nil {
		rm.stats.failures.Add(1)
		rm.metrics.buildFailures.Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		rm.logger.Error("Ошибка построения региона (%d, %d): %v", key.x, key.z, err)
		return nil, err
	}
	elapsed := time.Since(start)

	rm.regionsMu.Lock()
	rm.regions[key] = region
	count := len(rm.regions)
	rm.regionsMu.Unlock()

	stats := region.Stats()
	rm.stats.builds.Add(1)
	rm.stats.buildNanos.Add(elapsed.Nanoseconds())
	rm.metrics.regionBuild.Observe(elapsed.Seconds())
	rm.metrics.regionsCached.Set(float64(count))
	rm.metrics.riversBuilt.Add(float64(stats.Rivers))
	rm.metrics.nodesBuilt.Add(float64(stats.Nodes))

	span.SetAttributes(
		attribute.Int("region.rivers", stats.Rivers),
		attribute.Int("region.nodes", stats.Nodes),
		attribute.Int("region.segments", stats.Segments),
	)

	rm.logger.Info("🌊 Регион (%d, %d) построен за %v: рек %d, узлов %d, озер %d, отброшено %d",
		key.x, key.z, elapsed.Round(time.Millisecond), stats.Rivers, stats.Nodes, stats.Lakes, stats.Discarded)

	eventbus.Emit(ctx, rm.bus, eventbus.TypeRegionBuilt, 5, eventbus.RegionBuilt{
		PlateX:     key.x,
		PlateZ:     key.z,
		Rivers:     stats.Rivers,
		Nodes:      stats.Nodes,
		Lakes:      stats.Lakes,
		Segments:   stats.Segments,
		DurationMs: elapsed.Milliseconds(),
	})

	return region, nil
}

// Regions возвращает построенные регионы, упорядоченные по координатам плиты
func (rm *RegionManager) Regions() []*river.Region {
	rm.regionsMu.RLock()
	out := make([]*river.Region, 0, len(rm.regions))
	for _, region := range rm.regions {
		out = append(out, region)
	}
	rm.regionsMu.RUnlock()

	slices.SortFunc(out, func(a, b *river.Region) int {
		if a.PlateX != b.PlateX {
			return a.PlateX - b.PlateX
		}
		return a.PlateZ - b.PlateZ
	})
	return out
}

// Count возвращает количество построенных регионов
func (rm *RegionManager) Count() int {
	rm.regionsMu.RLock()
	defer rm.regionsMu.RUnlock()
	return len(rm.regions)
}

// Stats возвращает статистику менеджера
func (rm *RegionManager) Stats() RegionManagerStats {
	s := RegionManagerStats{
		Regions:  rm.Count(),
		Builds:   rm.stats.builds.Load(),
		Hits:     rm.stats.hits.Load(),
		Failures: rm.stats.failures.Load(),
	}
	if s.Builds > 0 {
		s.AvgBuildMs = float64(rm.stats.buildNanos.Load()) / float64(s.Builds) / 1e6
	}
	return s
}

// Config возвращает параметры генерации
func (rm *RegionManager) Config() *config.RiverConfig {
	return rm.cfg
}

// Seed возвращает сид мира
func (rm *RegionManager) Seed() int64 {
	return rm.seed
}

// DefaultOceanProvider строит для каждой плиты шумовую карту океанов с шагом в четыре зоны.
// Карта захватывает oceanMargin узлов за границами, поэтому соседние плиты согласованы.
func DefaultOceanProvider(cfg *config.RiverConfig, seed int64) OceanProvider {
	oceanSeed := util.CombineSeeds(seed, oceanSalt)
	cellSize := float64(cfg.ZoneSize * 4)

	return func(plateX, plateZ int) river.OceanicitySource {
		regionSize := float64(cfg.RegionSize())
		cells := int(math.Ceil(regionSize/cellSize)) + 2*oceanMargin + 1
		originX := float64(plateX)*regionSize - oceanMargin*cellSize
		originZ := float64(plateZ)*regionSize - oceanMargin*cellSize
		return river.NewNoiseOceanGrid(oceanSeed, cells, cellSize, originX, originZ, cfg.MapHeight)
	}
}
