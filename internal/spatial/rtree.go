package spatial

import (
	"cmp"
	"fmt"
	"math"
	"slices"
)

const (
	// DefaultMaxEntries - емкость узла по умолчанию
	DefaultMaxEntries = 9

	minimumMaxEntries = 4
	minimumMinEntries = 2
	fillFactor        = 0.4
)

// Item - элемент индекса. Равенство элементов (==) используется при удалении.
type Item interface {
	comparable
	Bounds() Envelope
}

type node[T Item] struct {
	children []*node[T] // для внутренних узлов
	items    []T        // для листьев
	height   int        // у листьев 1
	bounds   Envelope
}

func newLeaf[T Item](items []T) *node[T] {
	n := &node[T]{items: items, height: 1}
	n.resetBounds()
	return n
}

func newBranch[T Item](children []*node[T], height int) *node[T] {
	n := &node[T]{children: children, height: height}
	n.resetBounds()
	return n
}

func (n *node[T]) isLeaf() bool {
	return n.height == 1
}

func (n *node[T]) size() int {
	if n.isLeaf() {
		return len(n.items)
	}
	return len(n.children)
}

func (n *node[T]) resetBounds() {
	env := EmptyBounds()
	if n.isLeaf() {
		for _, it := range n.items {
			env = env.Extend(it.Bounds())
		}
	} else {
		for _, c := range n.children {
			env = env.Extend(c.bounds)
		}
	}
	n.bounds = env
}

// RTree - R-дерево с поддержкой пакетной загрузки (STR) и разбиением узлов по R*-эвристике.
//
// Дерево не синхронизировано: вставки и удаления должны выполняться из одной горутины.
// После построения Search, All и Knn ничего не изменяют и могут вызываться параллельно.
type RTree[T Item] struct {
	root       *node[T]
	maxEntries int
	minEntries int
	count      int
}

// New создает пустое дерево. maxEntries <= 0 означает значение по умолчанию.
func New[T Item](maxEntries int) *RTree[T] {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	maxEntries = max(minimumMaxEntries, maxEntries)

	t := &RTree[T]{
		maxEntries: maxEntries,
		minEntries: max(minimumMinEntries, int(math.Ceil(float64(maxEntries)*fillFactor))),
	}
	t.Clear()
	return t
}

// Clear удаляет все элементы
func (t *RTree[T]) Clear() {
	t.root = newLeaf[T](nil)
	t.count = 0
}

// Count возвращает количество элементов
func (t *RTree[T]) Count() int {
	return t.count
}

// Height возвращает высоту дерева (1 для одного листа)
func (t *RTree[T]) Height() int {
	return t.root.height
}

// Bounds возвращает прямоугольник, охватывающий все элементы
func (t *RTree[T]) Bounds() Envelope {
	return t.root.bounds
}

// Search возвращает все элементы, чьи прямоугольники пересекаются с env.
func (t *RTree[T]) Search(env Envelope) []T {
	var result []T
	if !t.root.bounds.Intersects(env) {
		return result
	}

	queue := []*node[T]{t.root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		if n.isLeaf() {
			for _, it := range n.items {
				if it.Bounds().Intersects(env) {
					result = append(result, it)
				}
			}
			continue
		}

		for _, c := range n.children {
			if c.bounds.Intersects(env) {
				queue = append(queue, c)
			}
		}
	}

	return result
}

// All возвращает все элементы дерева.
func (t *RTree[T]) All() []T {
	result := make([]T, 0, t.count)
	return collect(result, t.root)
}

func collect[T Item](dst []T, n *node[T]) []T {
	if n.isLeaf() {
		return append(dst, n.items...)
	}
	for _, c := range n.children {
		dst = collect(dst, c)
	}
	return dst
}

// Insert добавляет элемент
func (t *RTree[T]) Insert(item T) {
	b := item.Bounds()
	path := t.chooseSubtree(b, t.root.height)

	leaf := path[len(path)-1]
	leaf.items = append(leaf.items, item)
	leaf.bounds = leaf.bounds.Extend(b)

	t.adjustPath(path)
	t.count++
}

// insertNode подвешивает поддерево на уровень level (считая от корня).
func (t *RTree[T]) insertNode(sub *node[T], level int) {
	path := t.chooseSubtree(sub.bounds, level)

	parent := path[len(path)-1]
	parent.children = append(parent.children, sub)
	parent.bounds = parent.bounds.Extend(sub.bounds)

	t.adjustPath(path)
}

// chooseSubtree спускается от корня, выбирая потомка с наименьшей площадью после расширения.
func (t *RTree[T]) chooseSubtree(b Envelope, depth int) []*node[T] {
	path := make([]*node[T], 0, depth)
	n := t.root

	for {
		path = append(path, n)
		if n.isLeaf() || len(path) == depth {
			return path
		}

		next := n.children[0]
		nextArea := next.bounds.Extend(b).Area()

		for _, c := range n.children {
			newArea := c.bounds.Extend(b).Area()
			if newArea > nextArea {
				continue
			}
			if newArea == nextArea && c.bounds.Area() >= next.bounds.Area() {
				continue
			}
			next = c
			nextArea = newArea
		}

		n = next
	}
}

// adjustPath разбивает переполненные узлы снизу вверх и обновляет границы.
func (t *RTree[T]) adjustPath(path []*node[T]) {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i].size() <= t.maxEntries {
			path[i].resetBounds()
			continue
		}

		sibling := t.split(path[i])
		if i == 0 {
			t.splitRoot(sibling)
		} else {
			parent := path[i-1]
			parent.children = append(parent.children, sibling)
			parent.bounds = parent.bounds.Extend(sibling.bounds)
		}
	}
}

func (t *RTree[T]) splitRoot(sibling *node[T]) {
	t.root = newBranch([]*node[T]{t.root, sibling}, t.root.height+1)
}

// split делит узел на два и возвращает новый правый узел.
func (t *RTree[T]) split(n *node[T]) *node[T] {
	if n.isLeaf() {
		idx := splitEntries(n.items, itemBounds[T], t.minEntries)
		right := slices.Clone(n.items[idx:])
		n.items = slices.Clip(n.items[:idx])
		n.resetBounds()
		return newLeaf(right)
	}

	idx := splitEntries(n.children, nodeBounds[T], t.minEntries)
	right := slices.Clone(n.children[idx:])
	n.children = slices.Clip(n.children[:idx])
	n.resetBounds()
	return newBranch(right, n.height)
}

func itemBounds[T Item](it T) Envelope {
	return it.Bounds()
}

func nodeBounds[T Item](n *node[T]) Envelope {
	return n.bounds
}

// splitEntries сортирует записи вдоль оси с меньшей суммой периметров
// и возвращает индекс разбиения с минимальным перекрытием, затем минимальной площадью.
func splitEntries[E any](entries []E, boundsOf func(E) Envelope, minEntries int) int {
	byMinX := func(a, b E) int { return cmp.Compare(boundsOf(a).MinX, boundsOf(b).MinX) }
	byMinY := func(a, b E) int { return cmp.Compare(boundsOf(a).MinY, boundsOf(b).MinY) }

	slices.SortStableFunc(entries, byMinX)
	marginsX := splitMargins(entries, boundsOf, minEntries)
	slices.SortStableFunc(entries, byMinY)
	marginsY := splitMargins(entries, boundsOf, minEntries)

	if marginsX < marginsY {
		slices.SortStableFunc(entries, byMinX)
	}

	best := minEntries
	bestOverlap, bestArea := math.Inf(1), math.Inf(1)
	for i := minEntries; i <= len(entries)-minEntries; i++ {
		left := enclosing(entries[:i], boundsOf)
		right := enclosing(entries[i:], boundsOf)

		overlap := left.Intersection(right).Area()
		area := left.Area() + right.Area()
		if overlap < bestOverlap || (overlap == bestOverlap && area < bestArea) {
			best, bestOverlap, bestArea = i, overlap, area
		}
	}

	return best
}

func splitMargins[E any](entries []E, boundsOf func(E) Envelope, minEntries int) float64 {
	reversed := slices.Clone(entries)
	slices.Reverse(reversed)
	return enclosingMargins(entries, boundsOf, minEntries) + enclosingMargins(reversed, boundsOf, minEntries)
}

func enclosingMargins[E any](entries []E, boundsOf func(E) Envelope, minEntries int) float64 {
	env := enclosing(entries[:minEntries], boundsOf)
	total := env.Margin()
	for i := minEntries; i < len(entries)-minEntries; i++ {
		env = env.Extend(boundsOf(entries[i]))
		total += env.Margin()
	}
	return total
}

func enclosing[E any](entries []E, boundsOf func(E) Envelope) Envelope {
	env := EmptyBounds()
	for _, e := range entries {
		env = env.Extend(boundsOf(e))
	}
	return env
}

// Delete удаляет все копии элемента. Возвращает false, если элемент не найден.
func (t *RTree[T]) Delete(item T) bool {
	return t.delete(t.root, item, item.Bounds())
}

func (t *RTree[T]) delete(n *node[T], item T, b Envelope) bool {
	if !n.bounds.Contains(b) {
		return false
	}

	if n.isLeaf() {
		removed := 0
		kept := n.items[:0]
		for _, it := range n.items {
			if it == item {
				removed++
				continue
			}
			kept = append(kept, it)
		}
		if removed == 0 {
			return false
		}

		clear(n.items[len(kept):])
		n.items = kept
		t.count -= removed
		n.resetBounds()
		return true
	}

	found := false
	for _, c := range n.children {
		if t.delete(c, item, b) {
			found = true
		}
	}
	if found {
		n.resetBounds()
	}
	return found
}

// Stats - сводка по структуре дерева
type Stats struct {
	Items  int
	Height int
	Nodes  int
	Leaves int
}

// String форматирует статистику для логов
func (s Stats) String() string {
	return fmt.Sprintf("items=%d height=%d nodes=%d leaves=%d", s.Items, s.Height, s.Nodes, s.Leaves)
}

// GetStats обходит дерево и возвращает статистику
func (t *RTree[T]) GetStats() Stats {
	stats := Stats{Items: t.count, Height: t.root.height}

	var walk func(n *node[T])
	walk = func(n *node[T]) {
		stats.Nodes++
		if n.isLeaf() {
			stats.Leaves++
			return
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(t.root)

	return stats
}
