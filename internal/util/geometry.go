package util

import (
	"math"

	"github.com/annel0/rivergen/internal/vec"
)

// Epsilon используется для защиты от деления на ноль в вырожденных случаях.
const Epsilon = 1e-9

// Projection возвращает нормированную проекцию точки на отрезок start-end, ограниченную [0, 1].
// Для отрезка нулевой длины возвращает 0.
func Projection(point, start, end vec.Vec2Float) float64 {
	dx := end.X - start.X
	dy := end.Y - start.Y
	lengthSq := dx*dx + dy*dy
	if lengthSq < Epsilon {
		return 0
	}

	v := ((point.X-start.X)*dx + (point.Y-start.Y)*dy) / lengthSq
	return Clamp(v, 0, 1)
}

// DistanceToLine возвращает расстояние от точки до отрезка start-end.
// Если проекция попадает за конец отрезка, возвращается расстояние до ближайшего конца.
func DistanceToLine(point, start, end vec.Vec2Float) float64 {
	if (start.X-end.X)*(point.X-end.X)+(start.Y-end.Y)*(point.Y-end.Y) <= 0 {
		return point.DistanceTo(end)
	}

	if (end.X-start.X)*(point.X-start.X)+(end.Y-start.Y)*(point.Y-start.Y) <= 0 {
		return point.DistanceTo(start)
	}

	numerator := math.Abs((end.Y-start.Y)*point.X - (end.X-start.X)*point.Y + end.X*start.Y - end.Y*start.X)
	return numerator / start.DistanceTo(end)
}

// LineIntersects проверяет пересечение отрезков A и B (тест по ориентации троек точек).
func LineIntersects(startA, endA, startB, endB vec.Vec2Float) bool {
	return ccw(startA, startB, endB) != ccw(endA, startB, endB) &&
		ccw(startA, endA, startB) != ccw(startA, endA, endB)
}

// ccw возвращает true, если точки a, b, c идут против часовой стрелки.
func ccw(a, b, c vec.Vec2Float) bool {
	return (c.Y-a.Y)*(b.X-a.X) > (b.Y-a.Y)*(c.X-a.X)
}

// NormalToDegrees переводит направление в угол в градусах (atan2).
func NormalToDegrees(normal vec.Vec2Float) float64 {
	return math.Atan2(normal.Y, normal.X) * (180 / math.Pi)
}

// DegreesToNormal переводит угол в градусах в единичный вектор направления.
func DegreesToNormal(degrees float64) vec.Vec2Float {
	radians := degrees * (math.Pi / 180)
	return vec.Vec2Float{X: math.Cos(radians), Y: math.Sin(radians)}
}

// Lerp линейно интерполирует между a и b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// InverseLerp возвращает положение value в диапазоне [min, max].
// Нулевой диапазон считается диапазоном длины 1.
func InverseLerp(value, min, max float64) float64 {
	span := max - min
	if math.Abs(span) < Epsilon {
		span = 1
	}
	return (value - min) / span
}

// Map переводит value из диапазона [fromMin, fromMax] в [toMin, toMax].
func Map(value, fromMin, fromMax, toMin, toMax float64) float64 {
	return InverseLerp(value, fromMin, fromMax)*(toMax-toMin) + toMin
}

// BiLerp выполняет билинейную интерполяцию четырех угловых значений.
func BiLerp(topLeft, topRight, bottomLeft, bottomRight, tx, ty float64) float64 {
	top := Lerp(topLeft, topRight, tx)
	bottom := Lerp(bottomLeft, bottomRight, tx)
	return Lerp(top, bottom, ty)
}

// Clamp ограничивает значение диапазоном [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// RoundTo округляет значение до заданного количества знаков (половины к четному).
func RoundTo(value float64, digits int) float64 {
	scale := math.Pow(10, float64(digits))
	return math.RoundToEven(value*scale) / scale
}
