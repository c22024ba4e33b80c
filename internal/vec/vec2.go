package vec

import "math"

// ChunkShift и ChunkSize описывают колонный чанк 32x32.
const (
	ChunkShift = 5
	ChunkSize  = 1 << ChunkShift
	ChunkMask  = ChunkSize - 1
)

// Vec2 представляет 2D координаты на сетке (блоки, чанки, зоны, плиты).
// Y соответствует мировой оси Z.
type Vec2 struct {
	X, Y int
}

// ToChunkCoords преобразует координаты блока в координаты чанка
func (v Vec2) ToChunkCoords() Vec2 {
	return Vec2{X: v.X >> ChunkShift, Y: v.Y >> ChunkShift} // Деление на 32 с округлением вниз
}

// LocalInChunk возвращает локальные координаты внутри чанка
func (v Vec2) LocalInChunk() Vec2 {
	return Vec2{X: v.X & ChunkMask, Y: v.Y & ChunkMask}
}

// FloorDiv делит обе координаты на size с округлением вниз (корректно для отрицательных).
func (v Vec2) FloorDiv(size int) Vec2 {
	return Vec2{X: floorDiv(v.X, size), Y: floorDiv(v.Y, size)}
}

// Mul умножает обе координаты на скаляр
func (v Vec2) Mul(scalar int) Vec2 {
	return Vec2{X: v.X * scalar, Y: v.Y * scalar}
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := float64(v.X - other.X)
	dy := float64(v.Y - other.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
