package cache

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/annel0/rivergen/internal/config"
	"github.com/annel0/rivergen/internal/eventbus"
	"github.com/annel0/rivergen/internal/river"
	"github.com/annel0/rivergen/internal/storage"
	"github.com/annel0/rivergen/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flowChunk - чанк, в котором течение есть только в колонке (1, 2)
func flowChunk(chunkX, chunkZ int) *world.ChunkRiverData {
	data := world.NewChunkRiverData(chunkX, chunkZ)
	for i := range data.Flow {
		data.Flow[i] = river.NoFlow
	}
	i := world.ColumnIndex(1, 2)
	data.Flow[2*i] = 0.6
	data.Flow[2*i+1] = -0.8
	data.HasFlow = true
	return data
}

// countingLoader считает обращения к хранилищу
type countingLoader struct {
	repo  *storage.MemoryRiverRepo
	calls atomic.Int64
}

func (l *countingLoader) Load(ctx context.Context, chunkX, chunkZ int) (*world.ChunkRiverData, bool, error) {
	l.calls.Add(1)
	return l.repo.Load(ctx, chunkX, chunkZ)
}

func newTestCache(t *testing.T, cfg *config.RiverConfig) (*FlowCache, *countingLoader) {
	t.Helper()

	repo := storage.NewMemoryRiverRepo()
	_, err := repo.Save(context.Background(), flowChunk(-1, 3))
	require.NoError(t, err)

	loader := &countingLoader{repo: repo}
	fc, err := NewFlowCache(loader, cfg, 16)
	require.NoError(t, err)
	t.Cleanup(fc.Close)
	return fc, loader
}

func TestFlowCache_FlowAt(t *testing.T) {
	cfg := config.DefaultRivers()
	fc, _ := newTestCache(t, &cfg)
	ctx := context.Background()

	// Колонка (1, 2) чанка (-1, 3): мировые координаты (-31, 98)
	fx, fz, ok, err := fc.FlowAt(ctx, -31, 98)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 0.6*cfg.RiverSpeed, fx, 1e-6)
	assert.InDelta(t, -0.8*cfg.RiverSpeed, fz, 1e-6)

	_, _, ok, err = fc.FlowAt(ctx, -32, 96)
	require.NoError(t, err)
	assert.False(t, ok, "в колонке без течения ok == false")

	_, _, ok, err = fc.FlowAt(ctx, 5000, 5000)
	require.NoError(t, err)
	assert.False(t, ok, "несохраненный чанк не дает течения")
}

func TestFlowCache_DisableFlow(t *testing.T) {
	cfg := config.DefaultRivers()
	cfg.DisableFlow = true
	fc, loader := newTestCache(t, &cfg)

	fx, fz, ok, err := fc.FlowAt(context.Background(), -31, 98)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, fx)
	assert.Zero(t, fz)
	assert.Zero(t, loader.calls.Load(), "при отключенном течении хранилище не читается")
}

func TestFlowCache_HitsAndInvalidation(t *testing.T) {
	cfg := config.DefaultRivers()
	fc, loader := newTestCache(t, &cfg)
	ctx := context.Background()

	_, err := fc.Chunk(ctx, -1, 3)
	require.NoError(t, err)
	fc.Wait()

	data, err := fc.Chunk(ctx, -1, 3)
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, int64(1), loader.calls.Load(), "повторный запрос обслуживается из кеша")

	// Отсутствие данных тоже кешируется
	missing, err := fc.Chunk(ctx, 9, 9)
	require.NoError(t, err)
	assert.Nil(t, missing)
	fc.Wait()
	_, err = fc.Chunk(ctx, 9, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(2), loader.calls.Load())

	fc.Invalidate(-1, 3)
	_, err = fc.Chunk(ctx, -1, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), loader.calls.Load(), "после инвалидации чанк перечитывается")

	m := fc.GetMetrics()
	assert.Equal(t, int64(5), m.TotalRequests)
	assert.Equal(t, int64(2), m.CacheHits)
	assert.Equal(t, int64(3), m.Loads)
	assert.Equal(t, int64(1), m.Invalidations)
	assert.InDelta(t, 0.4, m.HitRatio, 1e-9)
}

func TestFlowCache_ConcurrentMissesLoadOnce(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int64
	loader := ChunkLoaderFunc(func(ctx context.Context, chunkX, chunkZ int) (*world.ChunkRiverData, bool, error) {
		calls.Add(1)
		<-release
		return flowChunk(chunkX, chunkZ), true, nil
	})

	cfg := config.DefaultRivers()
	fc, err := NewFlowCache(loader, &cfg, 0)
	require.NoError(t, err)
	defer fc.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := fc.Chunk(context.Background(), 4, 4)
			assert.NoError(t, err)
			assert.NotNil(t, data)
		}()
	}

	// Ждем, пока первый вызов дойдет до хранилища
	for calls.Load() == 0 {
		runtime.Gosched()
	}
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int64(8))
	assert.GreaterOrEqual(t, calls.Load(), int64(1))
}

func TestFlowCache_LoadError(t *testing.T) {
	boom := errors.New("хранилище недоступно")
	loader := ChunkLoaderFunc(func(context.Context, int, int) (*world.ChunkRiverData, bool, error) {
		return nil, false, boom
	})

	cfg := config.DefaultRivers()
	fc, err := NewFlowCache(loader, &cfg, 4)
	require.NoError(t, err)
	defer fc.Close()

	_, _, _, err = fc.FlowAt(context.Background(), 0, 0)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(1), fc.GetMetrics().LoadErrors)
}

func TestFlowCache_SubscribeInvalidations(t *testing.T) {
	cfg := config.DefaultRivers()
	fc, loader := newTestCache(t, &cfg)
	ctx := context.Background()

	bus := eventbus.NewMemoryBus(8)
	_, err := fc.SubscribeInvalidations(ctx, bus)
	require.NoError(t, err)

	_, err = fc.Chunk(ctx, -1, 3)
	require.NoError(t, err)
	fc.Wait()

	p := storage.NewPersister(loader.repo, bus)
	require.NoError(t, p.Persist(ctx, flowChunk(-1, 3)))
	require.NoError(t, bus.Close())

	assert.Equal(t, int64(1), fc.GetMetrics().Invalidations)
	_, err = fc.Chunk(ctx, -1, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), loader.calls.Load())
}
