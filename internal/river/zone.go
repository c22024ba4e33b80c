package river

import (
	"math"

	"github.com/annel0/rivergen/internal/config"
	"github.com/annel0/rivergen/internal/vec"
)

// Zone - квадратная ячейка региона для грубой классификации суша/океан/побережье.
type Zone struct {
	X, Z          int           // индекс в сетке зон
	Center        vec.Vec2Float // центр в локальных координатах региона
	Oceanicity    float64
	Ocean         bool
	Coastal       bool    // суша, граничащая с океаном по 8 соседям
	OceanDistance float64 // расстояние до центра ближайшей океанской зоны, -1 для океана
}

// ZoneField - сетка зон региона. После построения только читается.
type ZoneField struct {
	size     int
	zoneSize float64
	zones    []Zone // zones[x*size+z]
}

// zoneNeighbours4 - смещения соседей для обхода в ширину
var zoneNeighbours4 = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

// NewZoneField классифицирует зоны и вычисляет расстояния до океана.
// origin - мировые координаты локальной точки (0, 0) региона.
func NewZoneField(cfg *config.RiverConfig, ocean OceanicitySource, origin vec.Vec2Float) *ZoneField {
	f := &ZoneField{
		size:     cfg.ZonesInRegion,
		zoneSize: float64(cfg.ZoneSize),
		zones:    make([]Zone, cfg.ZonesInRegion*cfg.ZonesInRegion),
	}

	half := float64(cfg.ZoneSize / 2)
	for x := 0; x < f.size; x++ {
		for z := 0; z < f.size; z++ {
			zone := &f.zones[x*f.size+z]
			zone.X, zone.Z = x, z
			zone.Center = vec.Vec2Float{
				X: float64(x*cfg.ZoneSize) + half,
				Y: float64(z*cfg.ZoneSize) + half,
			}

			if ocean != nil {
				zone.Oceanicity = ocean.Oceanicity(origin.X+zone.Center.X, origin.Y+zone.Center.Y)
			}
			if zone.Oceanicity > cfg.OceanThreshold {
				zone.Ocean = true
				zone.OceanDistance = -1
			}
		}
	}

	f.computeOceanDistances(float64(cfg.RegionSize()))
	f.markCoastal()
	return f
}

// computeOceanDistances запускает ограниченный по расстоянию обход в ширину из каждой зоны суши.
// Соседи, чей центр дальше от исходной зоны, чем уже найденный океан, не раскрываются.
func (f *ZoneField) computeOceanDistances(regionSize float64) {
	visited := make([]int32, len(f.zones))
	queue := make([]int, 0, 64)
	var stamp int32

	for i := range f.zones {
		origin := &f.zones[i]
		if origin.Ocean {
			continue
		}

		stamp++
		closest := math.MaxFloat64
		queue = append(queue[:0], i)

		for head := 0; head < len(queue); head++ {
			current := &f.zones[queue[head]]

			if current.Ocean {
				closest = math.Min(closest, origin.Center.DistanceTo(current.Center))
				continue
			}

			for _, d := range zoneNeighbours4 {
				nx, nz := current.X+d[0], current.Z+d[1]
				if nx < 0 || nx >= f.size || nz < 0 || nz >= f.size {
					continue
				}

				idx := nx*f.size + nz
				if visited[idx] == stamp {
					continue
				}
				if origin.Center.DistanceTo(f.zones[idx].Center) > closest {
					continue
				}

				visited[idx] = stamp
				queue = append(queue, idx)
			}
		}

		origin.OceanDistance = math.Min(closest, regionSize*2)
	}
}

func (f *ZoneField) markCoastal() {
	for i := range f.zones {
		zone := &f.zones[i]
		if zone.Ocean {
			continue
		}
		for _, nb := range f.Around(zone.X, zone.Z, 1) {
			if nb.Ocean {
				zone.Coastal = true
				break
			}
		}
	}
}

// Size возвращает количество зон вдоль стороны региона
func (f *ZoneField) Size() int {
	return f.size
}

// At возвращает зону по индексу сетки (индексы должны быть в пределах)
func (f *ZoneField) At(x, z int) *Zone {
	return &f.zones[x*f.size+z]
}

// ZoneAt возвращает зону, содержащую локальную точку. Индексы прижимаются к краям сетки.
func (f *ZoneField) ZoneAt(p vec.Vec2Float) *Zone {
	x := clampIndex(p.X/f.zoneSize, f.size)
	z := clampIndex(p.Y/f.zoneSize, f.size)
	return f.At(x, z)
}

func clampIndex(v float64, size int) int {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > float64(size-1) {
		return size - 1
	}
	return int(v)
}

// Around возвращает зоны в квадрате радиуса radius вокруг (x, z), не выходя за сетку.
// Порядок обхода: X снаружи, Z внутри.
func (f *ZoneField) Around(x, z, radius int) []*Zone {
	result := make([]*Zone, 0, (2*radius+1)*(2*radius+1))
	for dx := -radius; dx <= radius; dx++ {
		for dz := -radius; dz <= radius; dz++ {
			nx, nz := x+dx, z+dz
			if nx < 0 || nx >= f.size || nz < 0 || nz >= f.size {
				continue
			}
			result = append(result, f.At(nx, nz))
		}
	}
	return result
}

// FindHighest поднимается от зоны к соседу с наибольшим расстоянием до океана,
// пока находится строго более высокий сосед, но не более hops шагов.
func (f *ZoneField) FindHighest(zone *Zone, hops int) *Zone {
	for ; hops > 0; hops-- {
		best := zone
		for _, nb := range f.Around(zone.X, zone.Z, 1) {
			if nb.OceanDistance > best.OceanDistance {
				best = nb
			}
		}
		if best == zone {
			break
		}
		zone = best
	}
	return zone
}

// Counts возвращает количество океанских и прибрежных зон
func (f *ZoneField) Counts() (ocean, coastal int) {
	for i := range f.zones {
		if f.zones[i].Ocean {
			ocean++
		}
		if f.zones[i].Coastal {
			coastal++
		}
	}
	return ocean, coastal
}
