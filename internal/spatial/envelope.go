package spatial

import (
	"math"

	"github.com/annel0/rivergen/internal/vec"
)

// Envelope - осевыравненный прямоугольник (X соответствует мировой X, Y - мировой Z).
type Envelope struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// EmptyBounds возвращает пустой прямоугольник, нейтральный для Extend.
func EmptyBounds() Envelope {
	return Envelope{
		MinX: math.Inf(1),
		MinY: math.Inf(1),
		MaxX: math.Inf(-1),
		MaxY: math.Inf(-1),
	}
}

// InfiniteBounds возвращает прямоугольник, пересекающийся с любым другим.
func InfiniteBounds() Envelope {
	return Envelope{
		MinX: math.Inf(-1),
		MinY: math.Inf(-1),
		MaxX: math.Inf(1),
		MaxY: math.Inf(1),
	}
}

// EnvelopeOf строит наименьший прямоугольник, содержащий все точки.
func EnvelopeOf(points ...vec.Vec2Float) Envelope {
	env := EmptyBounds()
	for _, p := range points {
		env = env.ExtendPoint(p)
	}
	return env
}

// Area возвращает площадь (0 для пустого прямоугольника).
func (e Envelope) Area() float64 {
	return math.Max(e.MaxX-e.MinX, 0) * math.Max(e.MaxY-e.MinY, 0)
}

// Margin возвращает полупериметр.
func (e Envelope) Margin() float64 {
	return math.Max(e.MaxX-e.MinX, 0) + math.Max(e.MaxY-e.MinY, 0)
}

// IsEmpty сообщает, что прямоугольник не содержит ни одной точки.
func (e Envelope) IsEmpty() bool {
	return e.MinX > e.MaxX || e.MinY > e.MaxY
}

// Extend возвращает прямоугольник, охватывающий оба.
func (e Envelope) Extend(other Envelope) Envelope {
	return Envelope{
		MinX: math.Min(e.MinX, other.MinX),
		MinY: math.Min(e.MinY, other.MinY),
		MaxX: math.Max(e.MaxX, other.MaxX),
		MaxY: math.Max(e.MaxY, other.MaxY),
	}
}

// ExtendPoint расширяет прямоугольник до точки.
func (e Envelope) ExtendPoint(p vec.Vec2Float) Envelope {
	return Envelope{
		MinX: math.Min(e.MinX, p.X),
		MinY: math.Min(e.MinY, p.Y),
		MaxX: math.Max(e.MaxX, p.X),
		MaxY: math.Max(e.MaxY, p.Y),
	}
}

// Expand расширяет прямоугольник на amount во все стороны.
func (e Envelope) Expand(amount float64) Envelope {
	return Envelope{
		MinX: e.MinX - amount,
		MinY: e.MinY - amount,
		MaxX: e.MaxX + amount,
		MaxY: e.MaxY + amount,
	}
}

// Intersection возвращает пересечение (может быть пустым).
func (e Envelope) Intersection(other Envelope) Envelope {
	return Envelope{
		MinX: math.Max(e.MinX, other.MinX),
		MinY: math.Max(e.MinY, other.MinY),
		MaxX: math.Min(e.MaxX, other.MaxX),
		MaxY: math.Min(e.MaxY, other.MaxY),
	}
}

// Contains проверяет, что other целиком лежит внутри e.
func (e Envelope) Contains(other Envelope) bool {
	return e.MinX <= other.MinX &&
		e.MinY <= other.MinY &&
		e.MaxX >= other.MaxX &&
		e.MaxY >= other.MaxY
}

// Intersects проверяет пересечение (касание границ считается пересечением).
func (e Envelope) Intersects(other Envelope) bool {
	return e.MinX <= other.MaxX &&
		e.MinY <= other.MaxY &&
		e.MaxX >= other.MinX &&
		e.MaxY >= other.MinY
}

// DistanceTo возвращает расстояние от точки до прямоугольника (0 внутри).
func (e Envelope) DistanceTo(x, y float64) float64 {
	dx := axisDistance(x, e.MinX, e.MaxX)
	dy := axisDistance(y, e.MinY, e.MaxY)
	return math.Sqrt(dx*dx + dy*dy)
}

func axisDistance(p, min, max float64) float64 {
	switch {
	case p < min:
		return min - p
	case p > max:
		return p - max
	default:
		return 0
	}
}
