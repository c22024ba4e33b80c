package world

import (
	"math"

	"github.com/annel0/rivergen/internal/river"
	"github.com/annel0/rivergen/internal/vec"
)

// ColumnsInChunk - число колонок в чанке 32x32
const ColumnsInChunk = vec.ChunkSize * vec.ChunkSize

// ChunkRiverData содержит результат выборки всех колонок одного чанка.
// Колонка (localX, localZ) хранится по индексу localX*32 + localZ.
type ChunkRiverData struct {
	ChunkX int `json:"chunk_x"`
	ChunkZ int `json:"chunk_z"`

	// Flow - течение, чередуются X и Z: Flow[2i], Flow[2i+1]
	Flow     []float32 `json:"flow"`
	Distance []uint16  `json:"distance"`
	Bank     []float32 `json:"bank"`
	Valley   []float32 `json:"valley"`

	HasFlow       bool `json:"has_flow"`        // хотя бы у одной колонки есть течение
	InValleyRange bool `json:"in_valley_range"` // хотя бы одна колонка ближе 2*maxValleyWidth к реке
}

// NewChunkRiverData создает пустой набор массивов чанка
func NewChunkRiverData(chunkX, chunkZ int) *ChunkRiverData {
	return &ChunkRiverData{
		ChunkX:   chunkX,
		ChunkZ:   chunkZ,
		Flow:     make([]float32, ColumnsInChunk*2),
		Distance: make([]uint16, ColumnsInChunk),
		Bank:     make([]float32, ColumnsInChunk),
		Valley:   make([]float32, ColumnsInChunk),
	}
}

// ColumnIndex возвращает индекс колонки в массивах чанка
func ColumnIndex(localX, localZ int) int {
	return localX*vec.ChunkSize + localZ
}

// Coords возвращает координаты чанка
func (d *ChunkRiverData) Coords() vec.Vec2 {
	return vec.Vec2{X: d.ChunkX, Y: d.ChunkZ}
}

// FlowAt возвращает течение в колонке. Если течения нет, обе компоненты равны river.NoFlow.
func (d *ChunkRiverData) FlowAt(localX, localZ int) (float64, float64) {
	i := ColumnIndex(localX, localZ) * 2
	return float64(d.Flow[i]), float64(d.Flow[i+1])
}

// setColumn записывает выборку в колонку. Горутины пишут в разные колонки без блокировок.
func (d *ChunkRiverData) setColumn(i int, s river.Sample, valley float64) {
	d.Flow[2*i] = float32(s.FlowX)
	d.Flow[2*i+1] = float32(s.FlowZ)
	d.Distance[i] = saturateDistance(s.RiverDistance)
	d.Bank[i] = float32(s.BankFactor)
	d.Valley[i] = float32(valley)
}

// summarize выставляет флаги чанка по заполненным массивам
func (d *ChunkRiverData) summarize(maxValleyWidth float64) {
	d.HasFlow = false
	d.InValleyRange = false

	limit := 2 * maxValleyWidth
	for i := 0; i < ColumnsInChunk; i++ {
		if float64(d.Flow[2*i]) > river.NoFlow {
			d.HasFlow = true
		}
		if float64(d.Distance[i]) <= limit {
			d.InValleyRange = true
		}
	}
}

// saturateDistance отбрасывает дробную часть и ограничивает значение диапазоном uint16
func saturateDistance(d float64) uint16 {
	if d <= 0 || math.IsNaN(d) {
		return 0
	}
	if d >= math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(d)
}
