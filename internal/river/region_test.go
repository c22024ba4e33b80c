package river

import (
	"math/rand"
	"testing"

	"github.com/annel0/rivergen/internal/config"
	"github.com/annel0/rivergen/internal/spatial"
	"github.com/annel0/rivergen/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// generationConfig - регион 32x32 зоны с океаном на западе
func generationConfig() *config.RiverConfig {
	cfg := config.DefaultRivers()
	cfg.ZonesInRegion = 32
	cfg.MinNodes = 3
	cfg.MinSize = 1
	cfg.RiverSpawnChance = 0.5
	return &cfg
}

var generationSeeds = []int64{1, 2, 3, 4, 5}

func buildTestRegion(t *testing.T, cfg *config.RiverConfig, seed int64) *Region {
	t.Helper()
	region, err := BuildRegion(cfg, seed, 0, 0, westOcean(1280))
	require.NoError(t, err)
	return region
}

func TestBuildRegionDeterministic(t *testing.T) {
	cfg := generationConfig()

	a := buildTestRegion(t, cfg, 77)
	b := buildTestRegion(t, cfg, 77)

	assert.Equal(t, a.Network, b.Network, "одинаковый сид дает одинаковую сеть")
	assert.Equal(t, a.Stats(), b.Stats())

	for i := 0; i < 50; i++ {
		x, z := 1300+float64(i)*97.5, float64(i)*160.25
		assert.Equal(t, a.SampleAt(x, z), b.SampleAt(x, z))
	}
}

func TestBuildRegionProducesRivers(t *testing.T) {
	cfg := generationConfig()

	total := 0
	for _, seed := range generationSeeds {
		total += len(buildTestRegion(t, cfg, seed).ActiveRivers())
	}
	assert.Greater(t, total, 0, "на побережье должна появиться хотя бы одна река")
}

func TestRiversDoNotOverlap(t *testing.T) {
	cfg := generationConfig()

	for _, seed := range generationSeeds {
		region := buildTestRegion(t, cfg, seed)
		net := region.Network

		var nodes []*Node
		for _, r := range region.ActiveRivers() {
			for _, id := range r.Nodes {
				if node := net.Node(id); !node.IsLake {
					nodes = append(nodes, node)
				}
			}
		}

		for i := range nodes {
			for j := i + 1; j < len(nodes); j++ {
				if nodes[i].River == nodes[j].River {
					continue
				}
				assert.False(t, nodes[i].Envelope.Intersects(nodes[j].Envelope),
					"сид %d: узлы %d и %d разных рек пересекаются", seed, nodes[i].ID, nodes[j].ID)
			}
		}
	}
}

func TestRiversRespectMinNodes(t *testing.T) {
	cfg := generationConfig()

	for _, seed := range generationSeeds {
		region := buildTestRegion(t, cfg, seed)

		live := make(map[int32]bool)
		for i := range region.Network.Rivers {
			r := &region.Network.Rivers[i]
			if r.Discarded {
				assert.Less(t, len(r.Nodes), cfg.MinNodes)
				continue
			}
			assert.GreaterOrEqual(t, len(r.Nodes), cfg.MinNodes)
			live[r.ID] = true
		}

		for _, segID := range region.SegmentsIn(spatial.InfiniteBounds()) {
			node := region.Network.SegmentNode(region.Network.Segment(segID))
			assert.True(t, live[node.River], "сид %d: в индексе сегмент отброшенной реки", seed)
		}
	}
}

func TestRiverSizesMonotonic(t *testing.T) {
	cfg := generationConfig()
	cfg.LakeChance = 0

	for _, seed := range generationSeeds {
		region := buildTestRegion(t, cfg, seed)

		for _, r := range region.ActiveRivers() {
			for _, id := range r.Nodes {
				node := region.Network.Node(id)
				assert.LessOrEqual(t, cfg.MinSize, node.EndSize)
				assert.LessOrEqual(t, node.EndSize, node.StartSize)
				assert.LessOrEqual(t, node.StartSize, cfg.MaxSize)
				if node.StartSize < cfg.MaxSize {
					assert.InDelta(t, cfg.RiverGrowth, node.StartSize-node.EndSize, 1e-9)
				}
			}
		}
	}
}

func TestGrownNodesStayInsideRegion(t *testing.T) {
	cfg := generationConfig()
	size := float64(cfg.RegionSize())

	for _, seed := range generationSeeds {
		region := buildTestRegion(t, cfg, seed)
		for _, r := range region.ActiveRivers() {
			for _, id := range r.Nodes {
				node := region.Network.Node(id)
				if node.IsLake {
					continue
				}
				assert.True(t, node.End.X >= 0 && node.End.X <= size && node.End.Y >= 0 && node.End.Y <= size)
				assert.LessOrEqual(t, node.Start.DistanceTo(node.End), cfg.MinLength+float64(cfg.LengthVariation)+1e-9)
			}
		}
	}
}

func TestRegionSampleInsideRiver(t *testing.T) {
	cfg := generationConfig()
	cfg.RiverDistortionStrength = 0

	for _, seed := range generationSeeds {
		region := buildTestRegion(t, cfg, seed)
		for _, r := range region.ActiveRivers() {
			seg := region.Network.Segment(region.Network.Node(r.Nodes[0]).Segments[0])
			world := seg.Mid.Add(region.Origin)

			s := region.SampleAt(world.X, world.Y)
			assert.Equal(t, 0.0, s.RiverDistance, "середина сегмента лежит в русле")
			assert.Greater(t, s.BankFactor, 0.0)

			chunk := vec.Vec2{X: int(world.X), Y: int(world.Y)}.ToChunkCoords()
			assert.Contains(t, region.SegmentsNearChunk(chunk.X, chunk.Y), seg.ID)
		}
	}
}

func TestRegionStatsAndDebug(t *testing.T) {
	cfg := generationConfig()
	region := buildTestRegion(t, cfg, 3)

	stats := region.Stats()
	assert.Equal(t, len(region.ActiveRivers()), stats.Rivers)
	assert.Equal(t, len(region.Network.Rivers), stats.Rivers+stats.Discarded)
	assert.Equal(t, 5*32, stats.OceanZones)
	assert.Equal(t, 32, stats.CoastalZones)
	assert.Equal(t, stats.Segments, stats.SegmentIndex.Items)

	assert.Len(t, region.Debug(DebugStarts), stats.Rivers)
	assert.Len(t, region.Debug(DebugOcean), stats.OceanZones)
	assert.Len(t, region.Debug(DebugCoastal), stats.CoastalZones)
	assert.Len(t, region.Debug(DebugLand), 32*32-stats.OceanZones)
	assert.Len(t, region.Debug(DebugFull), 2*stats.Segments)

	view, err := ParseDebugView("coastal")
	require.NoError(t, err)
	assert.Equal(t, DebugCoastal, view)
	_, err = ParseDebugView("rivers")
	assert.Error(t, err)
}

func TestNearestRiversDistinct(t *testing.T) {
	cfg := generationConfig()
	region := buildTestRegion(t, cfg, 2)

	ids := region.NearestRivers(2000, 4000, 3, 0)
	seen := make(map[int32]bool)
	for _, id := range ids {
		assert.False(t, seen[id], "реки не повторяются")
		seen[id] = true
	}
	assert.LessOrEqual(t, len(ids), 3)
}

func TestNearestRiversWithinRadius(t *testing.T) {
	cfg := generationConfig()
	region := buildTestRegion(t, cfg, 2)

	rivers := region.ActiveRivers()
	require.NotEmpty(t, rivers)
	target := rivers[0]

	net := region.Network
	p := net.Segment(net.Node(target.Nodes[0]).Segments[0]).Mid.Add(region.Origin)

	t.Run("точка на реке", func(t *testing.T) {
		ids := region.NearestRivers(p.X, p.Y, 5, 1)
		assert.Contains(t, ids, target.ID, "река, на которой стоит точка, попадает в радиус")
	})

	t.Run("точка за пределами радиуса", func(t *testing.T) {
		far := float64(region.Size) * 10
		assert.Empty(t, region.NearestRivers(far, far, 5, 10))
	})
}

func TestBuildRegionInvalidConfig(t *testing.T) {
	cfg := generationConfig()
	cfg.ZoneSize = 0

	_, err := BuildRegion(cfg, 1, 0, 0, nil)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestPlateAddressing(t *testing.T) {
	cfg := generationConfig()
	chunks := cfg.ChunksInRegion()

	x, z := PlateForChunk(cfg, -1, chunks)
	assert.Equal(t, -1, x)
	assert.Equal(t, 1, z)

	x, z = PlateForChunk(cfg, chunks-1, 0)
	assert.Equal(t, 0, x)
	assert.Equal(t, 0, z)

	x, z = PlateForBlock(cfg, -cfg.RegionSize(), cfg.RegionSize()-1)
	assert.Equal(t, -1, x)
	assert.Equal(t, 0, z)
}

func TestSeededRiversGrowInTurn(t *testing.T) {
	cfg := generationConfig()
	cfg.RiverSpawnChance = 1

	interleaved := 0
	for _, seed := range generationSeeds {
		zones := NewZoneField(cfg, westOcean(1280), vec.Vec2Float{})
		b := newBuilder(cfg, rand.New(rand.NewSource(seed)), zones)
		b.seedRivers()

		rivers := len(b.net.Rivers)
		require.Greater(t, rivers, 1, "сид %d: с побережья должно стартовать несколько рек", seed)

		growing := 0
		for i := range b.net.Rivers {
			r := b.net.River(int32(i))
			require.NotEmpty(t, r.Nodes, "сид %d: река %d без узлов не должна оставаться", seed, i)
			assert.Equal(t, int32(i), r.Nodes[0], "сид %d: первые узлы всех рек создаются до роста любой из них", seed)
			if len(r.Nodes) > 1 {
				assert.GreaterOrEqual(t, r.Nodes[1], int32(rivers),
					"сид %d: второй узел реки %d появляется только после первых узлов всех рек", seed, i)
				growing++
			}
		}
		if growing > 1 {
			interleaved++
		}
	}
	assert.Greater(t, interleaved, 0, "хотя бы в одном регионе несколько рек должны расти поочередно")
}
