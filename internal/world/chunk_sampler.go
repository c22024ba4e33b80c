package world

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/annel0/rivergen/internal/eventbus"
	"github.com/annel0/rivergen/internal/observability"
	"github.com/annel0/rivergen/internal/river"
	"github.com/annel0/rivergen/internal/vec"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// ChunkSampler заполняет массивы рек для чанков 32x32.
// Строки чанка (одинаковый localX) обрабатываются параллельно ограниченным числом горутин.
type ChunkSampler struct {
	regions *RegionManager
	valley  *ValleyBlend
	workers int
	metrics *Metrics
	bus     eventbus.EventBus
}

// NewChunkSampler создаёт драйвер выборки. workers <= 0 означает runtime.NumCPU().
func NewChunkSampler(regions *RegionManager, workers int) *ChunkSampler {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &ChunkSampler{
		regions: regions,
		valley:  NewValleyBlend(regions.Config(), regions.Seed()),
		workers: workers,
		metrics: regions.metrics,
		bus:     regions.bus,
	}
}

// SampleChunk строит (при необходимости) регион чанка и вычисляет выборку каждой колонки.
// Колонка (localX, localZ) соответствует мировой точке (chunkX*32+localX, chunkZ*32+localZ).
func (cs *ChunkSampler) SampleChunk(ctx context.Context, chunkX, chunkZ int) (*ChunkRiverData, error) {
	region, err := cs.regions.ForChunk(ctx, chunkX, chunkZ)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить регион чанка (%d, %d): %w", chunkX, chunkZ, err)
	}

	ctx, span := observability.Tracer().Start(ctx, "chunk.sample", trace.WithAttributes(
		attribute.Int("chunk.x", chunkX),
		attribute.Int("chunk.z", chunkZ),
	))
	defer span.End()

	start := time.Now()
	data := NewChunkRiverData(chunkX, chunkZ)
	segs := region.SegmentsNearChunk(chunkX, chunkZ)
	sampler := region.Sampler()
	baseX := chunkX * vec.ChunkSize
	baseZ := chunkZ * vec.ChunkSize

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cs.workers)

	for lx := 0; lx < vec.ChunkSize; lx++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			wx := float64(baseX + lx)
			for lz := 0; lz < vec.ChunkSize; lz++ {
				wz := float64(baseZ + lz)
				dx, dz := sampler.Distort(wx, wz)
				s := sampler.Sample(region.Network, segs, region.ToLocal(dx, dz))
				data.setColumn(ColumnIndex(lx, lz), s, cs.valley.Factor(s, wx, wz))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	data.summarize(region.Config().MaxValleyWidth)

	cs.metrics.chunksSampled.Inc()
	cs.metrics.samplesTotal.Add(ColumnsInChunk)
	cs.metrics.chunkDuration.Observe(time.Since(start).Seconds())
	span.SetAttributes(
		attribute.Int("chunk.candidates", len(segs)),
		attribute.Bool("chunk.has_flow", data.HasFlow),
	)

	eventbus.Emit(ctx, cs.bus, eventbus.TypeChunkSampled, 1, eventbus.ChunkSampled{
		ChunkX:        chunkX,
		ChunkZ:        chunkZ,
		HasFlow:       data.HasFlow,
		InValleyRange: data.InValleyRange,
	})

	return data, nil
}

// SampleChunks обрабатывает чанки по очереди; параллельность внутри каждого чанка.
// При ошибке возвращает уже готовые чанки и ошибку.
func (cs *ChunkSampler) SampleChunks(ctx context.Context, coords []vec.Vec2) ([]*ChunkRiverData, error) {
	out := make([]*ChunkRiverData, 0, len(coords))
	for _, c := range coords {
		data, err := cs.SampleChunk(ctx, c.X, c.Y)
		if err != nil {
			return out, err
		}
		out = append(out, data)
	}
	return out, nil
}

// ChunksAround возвращает координаты квадрата чанков со стороной 2*radius+1 вокруг (centerX, centerZ)
func ChunksAround(centerX, centerZ, radius int) []vec.Vec2 {
	if radius < 0 {
		return nil
	}
	side := 2*radius + 1
	out := make([]vec.Vec2, 0, side*side)
	for x := centerX - radius; x <= centerX+radius; x++ {
		for z := centerZ - radius; z <= centerZ+radius; z++ {
			out = append(out, vec.Vec2{X: x, Y: z})
		}
	}
	return out
}

// Regions возвращает менеджер регионов драйвера
func (cs *ChunkSampler) Regions() *RegionManager {
	return cs.regions
}

// SampleColumn возвращает выборку и множитель долины одной мировой колонки
func (cs *ChunkSampler) SampleColumn(ctx context.Context, x, z int) (river.Sample, float64, error) {
	plateX, plateZ := river.PlateForBlock(cs.regions.Config(), x, z)
	region, err := cs.regions.Get(ctx, plateX, plateZ)
	if err != nil {
		return river.Sample{}, 0, err
	}
	wx, wz := float64(x), float64(z)
	s := region.SampleAt(wx, wz)
	return s, cs.valley.Factor(s, wx, wz), nil
}
