package river

import (
	"math"

	"github.com/annel0/rivergen/internal/util"
)

// OceanicitySource возвращает "океаничность" в мировой точке.
// Зоны, где значение превышает порог из конфигурации, считаются океаном.
type OceanicitySource interface {
	Oceanicity(worldX, worldZ float64) float64
}

// OceanicityFunc адаптирует функцию к OceanicitySource
type OceanicityFunc func(worldX, worldZ float64) float64

// Oceanicity вызывает f
func (f OceanicityFunc) Oceanicity(worldX, worldZ float64) float64 {
	return f(worldX, worldZ)
}

// OceanHeightFactor - множитель значений грубой карты океанов для мира заданной высоты.
func OceanHeightFactor(mapHeight int) float64 {
	return float64(mapHeight) / 256.0 * 0.3333
}

// OceanGrid - грубая сетка океаничности с билинейной интерполяцией между узлами.
type OceanGrid struct {
	Values   []int   // построчно: Values[z*Size+x]
	Size     int     // узлов вдоль стороны
	CellSize float64 // блоков между соседними узлами
	OriginX  float64 // мировая координата узла (0, 0)
	OriginZ  float64
	Scale    float64
}

// Oceanicity интерполирует четыре ближайших узла. Точки за пределами сетки прижимаются к краю.
func (g *OceanGrid) Oceanicity(worldX, worldZ float64) float64 {
	if g.Size <= 0 || len(g.Values) < g.Size*g.Size {
		return 0
	}

	fx := (worldX - g.OriginX) / g.CellSize
	fz := (worldZ - g.OriginZ) / g.CellSize

	x0, tx := g.cell(fx)
	z0, tz := g.cell(fz)
	x1 := min(x0+1, g.Size-1)
	z1 := min(z0+1, g.Size-1)

	value := util.BiLerp(
		float64(g.at(x0, z0)), float64(g.at(x1, z0)),
		float64(g.at(x0, z1)), float64(g.at(x1, z1)),
		tx, tz,
	)
	return value * g.Scale
}

func (g *OceanGrid) cell(f float64) (int, float64) {
	base := math.Floor(f)
	i := int(base)
	if i < 0 {
		return 0, 0
	}
	if i >= g.Size-1 {
		return g.Size - 1, 0
	}
	return i, f - base
}

func (g *OceanGrid) at(x, z int) int {
	return g.Values[z*g.Size+x]
}

// NewNoiseOceanGrid заполняет сетку низкочастотным шумом Перлина.
// Используется инструментами и тестами вместо карт океанов игрового движка.
func NewNoiseOceanGrid(seed int64, size int, cellSize, originX, originZ float64, mapHeight int) *OceanGrid {
	noise := util.NewOctaveNoise(seed, 0.1731, 3, 0.5, 2)

	values := make([]int, size*size)
	for z := 0; z < size; z++ {
		for x := 0; x < size; x++ {
			// Сетка глобальная: одинаковые мировые координаты дают одинаковое значение
			// Смещение 0.5 уводит выборку с узлов решетки, где шум Перлина равен нулю
			gx := originX/cellSize + float64(x) + 0.5
			gz := originZ/cellSize + float64(z) + 0.5
			values[z*size+x] = int(util.Clamp(noise.Noise2D(gx, gz)*2, 0, 1) * 255)
		}
	}

	return &OceanGrid{
		Values:   values,
		Size:     size,
		CellSize: cellSize,
		OriginX:  originX,
		OriginZ:  originZ,
		Scale:    OceanHeightFactor(mapHeight),
	}
}
