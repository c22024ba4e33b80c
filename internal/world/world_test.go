package world

import (
	"context"
	"testing"

	"github.com/annel0/rivergen/internal/config"
	"github.com/annel0/rivergen/internal/eventbus"
	"github.com/annel0/rivergen/internal/river"
	"github.com/stretchr/testify/require"
)

// testRivers - регион 32x32 зоны без искажения берегов
func testRivers() *config.RiverConfig {
	cfg := config.DefaultRivers()
	cfg.ZonesInRegion = 32
	cfg.MinNodes = 3
	cfg.MinSize = 1
	cfg.RiverSpawnChance = 0.5
	cfg.RiverDistortionStrength = 0
	return &cfg
}

// westOcean - океан западнее мировой координаты x = 1280 на каждой плите
func westOcean(plateX, _ int) river.OceanicitySource {
	return river.OceanicityFunc(func(worldX, _ float64) float64 {
		if worldX < 1280 {
			return 255
		}
		return 0
	})
}

func newTestManager(t *testing.T, seed int64, bus eventbus.EventBus) *RegionManager {
	t.Helper()
	return NewRegionManager(testRivers(), seed, westOcean, nil, bus)
}

// riverColumn возвращает мировую колонку на середине первого сегмента первой реки региона
func riverColumn(t *testing.T, region *river.Region) (int, int) {
	t.Helper()
	rivers := region.ActiveRivers()
	require.NotEmpty(t, rivers, "в регионе должна быть река")

	net := region.Network
	seg := net.Segment(net.Node(rivers[0].Nodes[0]).Segments[0])
	p := seg.Mid.Add(region.Origin)
	return int(p.X), int(p.Y)
}

func buildSeedRegion(t *testing.T, rm *RegionManager) *river.Region {
	t.Helper()
	region, err := rm.Get(context.Background(), 0, 0)
	require.NoError(t, err)
	return region
}
