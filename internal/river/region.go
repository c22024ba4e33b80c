package river

import (
	"fmt"
	"math/rand"

	"github.com/annel0/rivergen/internal/config"
	"github.com/annel0/rivergen/internal/spatial"
	"github.com/annel0/rivergen/internal/util"
	"github.com/annel0/rivergen/internal/vec"
)

// Region - сгенерированная плита с речной сетью и индексами.
// После BuildRegion только читается и безопасна для одновременных запросов.
type Region struct {
	PlateX, PlateZ int
	Origin         vec.Vec2Float // мировые координаты локальной точки (0, 0)
	Size           int
	Zones          *ZoneField
	Network        *Network

	cfg      *config.RiverConfig
	nodes    *spatial.RTree[nodeRef]
	segments *spatial.RTree[segmentRef]
	sampler  *Sampler
}

// RegionStats - сводка по сгенерированному региону
type RegionStats struct {
	PlateX       int           `json:"plate_x"`
	PlateZ       int           `json:"plate_z"`
	Rivers       int           `json:"rivers"`
	Discarded    int           `json:"discarded"`
	Nodes        int           `json:"nodes"`
	Lakes        int           `json:"lakes"`
	Segments     int           `json:"segments"`
	OceanZones   int           `json:"ocean_zones"`
	CoastalZones int           `json:"coastal_zones"`
	SegmentIndex spatial.Stats `json:"segment_index"`
	NodeIndex    spatial.Stats `json:"node_index"`
}

// BuildRegion генерирует речную сеть плиты (plateX, plateZ).
// Результат полностью определяется worldSeed, координатами плиты, cfg и ocean.
func BuildRegion(cfg *config.RiverConfig, worldSeed int64, plateX, plateZ int, ocean OceanicitySource) (*Region, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("не удалось построить регион (%d, %d): %w", plateX, plateZ, err)
	}

	size := cfg.RegionSize()
	origin := vec.Vec2Float{X: float64(plateX * size), Y: float64(plateZ * size)}
	zones := NewZoneField(cfg, ocean, origin)

	rng := rand.New(rand.NewSource(util.Hash2(worldSeed, plateX, plateZ)))
	b := newBuilder(cfg, rng, zones)
	b.seedRivers()
	b.finish()

	return &Region{
		PlateX:   plateX,
		PlateZ:   plateZ,
		Origin:   origin,
		Size:     size,
		Zones:    zones,
		Network:  b.net,
		cfg:      cfg,
		nodes:    b.nodeIndex,
		segments: indexSegments(b.net, cfg),
		sampler:  NewSampler(cfg, worldSeed),
	}, nil
}

// PlateForChunk возвращает плиту, которой принадлежит чанк (с округлением вниз для отрицательных координат)
func PlateForChunk(cfg *config.RiverConfig, chunkX, chunkZ int) (int, int) {
	p := vec.Vec2{X: chunkX, Y: chunkZ}.FloorDiv(cfg.ChunksInRegion())
	return p.X, p.Y
}

// PlateForBlock возвращает плиту, которой принадлежит мировая точка
func PlateForBlock(cfg *config.RiverConfig, x, z int) (int, int) {
	p := vec.Vec2{X: x, Y: z}.FloorDiv(cfg.RegionSize())
	return p.X, p.Y
}

// ToLocal переводит мировые координаты в локальные координаты региона
func (r *Region) ToLocal(worldX, worldZ float64) vec.Vec2Float {
	return vec.Vec2Float{X: worldX - r.Origin.X, Y: worldZ - r.Origin.Y}
}

// SegmentsIn возвращает сегменты, чьи прямоугольники пересекают env (локальные координаты)
func (r *Region) SegmentsIn(env spatial.Envelope) []int32 {
	hits := r.segments.Search(env)
	ids := make([]int32, len(hits))
	for i, h := range hits {
		ids[i] = h.id
	}
	return ids
}

// SegmentsNearChunk возвращает кандидатов для выборки всех колонок мирового чанка.
// Запрос расширяется на силу искажения, чтобы смещенные точки не теряли сегменты.
func (r *Region) SegmentsNearChunk(chunkX, chunkZ int) []int32 {
	corner := r.ToLocal(float64(chunkX*vec.ChunkSize), float64(chunkZ*vec.ChunkSize))
	env := spatial.Envelope{
		MinX: corner.X,
		MinY: corner.Y,
		MaxX: corner.X + vec.ChunkSize,
		MaxY: corner.Y + vec.ChunkSize,
	}
	return r.SegmentsIn(env.Expand(r.cfg.RiverDistortionStrength))
}

// SampleAt возвращает выборку для одной мировой точки
func (r *Region) SampleAt(worldX, worldZ float64) Sample {
	dx, dz := r.sampler.Distort(worldX, worldZ)
	p := r.ToLocal(dx, dz)
	segs := r.SegmentsIn(spatial.EnvelopeOf(p))
	return r.sampler.Sample(r.Network, segs, p)
}

// Sampler возвращает семплер региона
func (r *Region) Sampler() *Sampler {
	return r.sampler
}

// Config возвращает параметры, с которыми построен регион
func (r *Region) Config() *config.RiverConfig {
	return r.cfg
}

// ActiveRivers возвращает реки, прошедшие отбор по minNodes
func (r *Region) ActiveRivers() []*River {
	result := make([]*River, 0, len(r.Network.Rivers))
	for i := range r.Network.Rivers {
		if !r.Network.Rivers[i].Discarded {
			result = append(result, &r.Network.Rivers[i])
		}
	}
	return result
}

// NearestRivers возвращает до k живых рек, ближайших к мировой точке, в пределах maxDistance
func (r *Region) NearestRivers(worldX, worldZ float64, k int, maxDistance float64) []int32 {
	p := r.ToLocal(worldX, worldZ)
	seen := make(map[int32]struct{}, k)
	result := make([]int32, 0, k)

	for _, ref := range r.nodes.Knn(0, p.X, p.Y, maxDistance, nil) {
		if _, ok := seen[ref.river]; ok {
			continue
		}
		seen[ref.river] = struct{}{}
		result = append(result, ref.river)
		if len(result) == k {
			break
		}
	}
	return result
}

// Stats собирает статистику региона
func (r *Region) Stats() RegionStats {
	s := RegionStats{
		PlateX:       r.PlateX,
		PlateZ:       r.PlateZ,
		Segments:     r.segments.Count(),
		SegmentIndex: r.segments.GetStats(),
		NodeIndex:    r.nodes.GetStats(),
	}
	s.OceanZones, s.CoastalZones = r.Zones.Counts()

	for i := range r.Network.Rivers {
		river := &r.Network.Rivers[i]
		if river.Discarded {
			s.Discarded++
			continue
		}
		s.Rivers++
		for _, nodeID := range river.Nodes {
			s.Nodes++
			if r.Network.Node(nodeID).IsLake {
				s.Lakes++
			}
		}
	}
	return s
}
