package spatial

import (
	"cmp"
	"slices"
)

// Knn возвращает до k элементов, ближайших к точке (x, y) по расстоянию до их прямоугольников.
// maxDistance <= 0 снимает ограничение по расстоянию, k <= 0 снимает ограничение по количеству.
// predicate (может быть nil) отфильтровывает кандидатов.
//
// Обход не потоковый: все кандидаты в радиусе собираются и сортируются целиком,
// а k и predicate применяются уже к отсортированному списку. Для индексов узлов
// одного региона (сотни элементов) этого достаточно; без maxDistance сортируется все дерево.
func (t *RTree[T]) Knn(k int, x, y, maxDistance float64, predicate func(T) bool) []T {
	var candidates []T
	if maxDistance > 0 {
		candidates = t.QueryRange(x, y, maxDistance)
	} else {
		candidates = t.All()
	}

	type ranked struct {
		item     T
		distance float64
	}

	ordered := make([]ranked, 0, len(candidates))
	for _, it := range candidates {
		ordered = append(ordered, ranked{item: it, distance: it.Bounds().DistanceTo(x, y)})
	}
	slices.SortStableFunc(ordered, func(a, b ranked) int { return cmp.Compare(a.distance, b.distance) })

	var result []T
	for _, r := range ordered {
		if predicate != nil && !predicate(r.item) {
			continue
		}
		result = append(result, r.item)
		if k > 0 && len(result) == k {
			break
		}
	}

	return result
}

// QueryRange возвращает элементы, чьи прямоугольники лежат не дальше radius от точки.
func (t *RTree[T]) QueryRange(x, y, radius float64) []T {
	if radius < 0 {
		return nil
	}

	var result []T
	for _, it := range t.Search(Envelope{MinX: x, MinY: y, MaxX: x, MaxY: y}.Expand(radius)) {
		if it.Bounds().DistanceTo(x, y) <= radius {
			result = append(result, it)
		}
	}
	return result
}
