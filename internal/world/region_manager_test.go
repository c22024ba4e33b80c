package world

import (
	"context"
	"sync"
	"testing"

	"github.com/annel0/rivergen/internal/config"
	"github.com/annel0/rivergen/internal/eventbus"
	"github.com/annel0/rivergen/internal/river"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionManagerBuildsOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	var (
		mu     sync.Mutex
		builds int
	)
	ocean := func(plateX, plateZ int) river.OceanicitySource {
		mu.Lock()
		builds++
		mu.Unlock()
		return westOcean(plateX, plateZ)
	}
	rm := NewRegionManager(testRivers(), 11, ocean, metrics, nil)

	const callers = 16
	results := make([]*river.Region, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			region, err := rm.Get(context.Background(), 0, 0)
			assert.NoError(t, err)
			results[i] = region
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, builds, "регион строится не более одного раза")
	for i := 1; i < callers; i++ {
		assert.Same(t, results[0], results[i])
	}

	stats := rm.Stats()
	assert.Equal(t, 1, stats.Regions)
	assert.Equal(t, int64(1), stats.Builds)
	assert.Zero(t, stats.Failures)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.regionsCached))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.regionBuild))
	assert.Equal(t, float64(results[0].Stats().Rivers), testutil.ToFloat64(metrics.riversBuilt))
}

func TestRegionManagerForChunk(t *testing.T) {
	rm := newTestManager(t, 5, nil)
	ctx := context.Background()

	chunksInRegion := rm.Config().ChunksInRegion()

	a, err := rm.ForChunk(ctx, 0, 0)
	require.NoError(t, err)
	b, err := rm.ForChunk(ctx, chunksInRegion-1, chunksInRegion-1)
	require.NoError(t, err)
	assert.Same(t, a, b, "чанки одной плиты используют один регион")

	c, err := rm.ForChunk(ctx, -1, 0)
	require.NoError(t, err)
	assert.Equal(t, -1, c.PlateX)
	assert.Equal(t, 0, c.PlateZ)

	regions := rm.Regions()
	require.Len(t, regions, 2)
	assert.Equal(t, -1, regions[0].PlateX, "регионы упорядочены по координатам плиты")

	cached, ok := rm.Cached(0, 0)
	assert.True(t, ok)
	assert.Same(t, a, cached)
	_, ok = rm.Cached(7, 7)
	assert.False(t, ok)

	assert.Equal(t, int64(1), rm.Stats().Hits)
}

func TestRegionManagerDeterministicAcrossManagers(t *testing.T) {
	a := buildSeedRegion(t, newTestManager(t, 21, nil))
	b := buildSeedRegion(t, newTestManager(t, 21, nil))
	assert.Equal(t, a.Network, b.Network)
}

func TestRegionManagerInvalidConfig(t *testing.T) {
	cfg := testRivers()
	cfg.SegmentsInRiver = 0
	rm := NewRegionManager(cfg, 1, nil, nil, nil)

	_, err := rm.Get(context.Background(), 0, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalid)
	assert.Equal(t, 0, rm.Count(), "неудачное построение не кешируется")
	assert.Equal(t, int64(1), rm.Stats().Failures)
}

func TestRegionManagerPublishesEvent(t *testing.T) {
	bus := eventbus.NewMemoryBus(8)

	var (
		mu     sync.Mutex
		events []eventbus.RegionBuilt
	)
	_, err := bus.Subscribe(context.Background(), eventbus.Filter{Types: []string{eventbus.TypeRegionBuilt}}, func(_ context.Context, ev *eventbus.Envelope) {
		payload, err := eventbus.Decode[eventbus.RegionBuilt](ev)
		if err == nil {
			mu.Lock()
			events = append(events, payload)
			mu.Unlock()
		}
	})
	require.NoError(t, err)

	rm := newTestManager(t, 3, bus)
	region := buildSeedRegion(t, rm)
	buildSeedRegion(t, rm)
	require.NoError(t, bus.Close())

	require.Len(t, events, 1, "повторный запрос берет регион из кеша")
	stats := region.Stats()
	assert.Equal(t, stats.Rivers, events[0].Rivers)
	assert.Equal(t, stats.Segments, events[0].Segments)
}

func TestDefaultOceanProvider(t *testing.T) {
	cfg := testRivers()
	provider := DefaultOceanProvider(cfg, 9)

	size := float64(cfg.RegionSize())
	left := provider(0, 0)
	right := provider(1, 0)

	// Карты соседних плит совпадают в общей полосе
	for _, z := range []float64{0, 1000, 4000, 8000} {
		x := size - 100
		assert.InDelta(t, left.Oceanicity(x, z), right.Oceanicity(x, z), 1e-9)
		assert.InDelta(t, left.Oceanicity(size+100, z), right.Oceanicity(size+100, z), 1e-9)
	}

	again := DefaultOceanProvider(cfg, 9)(0, 0)
	assert.Equal(t, left.Oceanicity(500, 500), again.Oceanicity(500, 500))
}
