package spatial

import (
	"cmp"
	"math"
	"slices"
)

// BulkLoad загружает набор элементов алгоритмом Sort-Tile-Recursive.
// Если дерево уже не пустое, построенное поддерево вливается в него с сохранением баланса.
func (t *RTree[T]) BulkLoad(items []T) {
	if len(items) == 0 {
		return
	}

	if t.root.isLeaf() && len(t.root.items)+len(items) < t.maxEntries {
		for _, it := range items {
			t.Insert(it)
		}
		return
	}

	if len(items) < t.minEntries {
		for _, it := range items {
			t.Insert(it)
		}
		return
	}

	dataRoot := t.buildTree(slices.Clone(items))
	t.count += len(items)

	switch {
	case t.root.size() == 0:
		t.root = dataRoot

	case t.root.height == dataRoot.height:
		if t.root.size()+dataRoot.size() <= t.maxEntries {
			if t.root.isLeaf() {
				t.root.items = append(t.root.items, dataRoot.items...)
			} else {
				t.root.children = append(t.root.children, dataRoot.children...)
			}
			t.root.resetBounds()
		} else {
			t.splitRoot(dataRoot)
		}

	default:
		if t.root.height < dataRoot.height {
			t.root, dataRoot = dataRoot, t.root
		}
		t.insertNode(dataRoot, t.root.height-dataRoot.height)
	}
}

func (t *RTree[T]) buildTree(data []T) *node[T] {
	height := t.depthFor(len(data))

	capacity := 1
	for i := 1; i < height; i++ {
		capacity *= t.maxEntries
	}
	rootMaxEntries := (len(data) + capacity - 1) / capacity

	return t.buildNodes(data, height, rootMaxEntries)
}

// depthFor возвращает ceil(log_M(n)) без плавающей арифметики.
func (t *RTree[T]) depthFor(n int) int {
	height := 1
	for capacity := t.maxEntries; capacity < n; capacity *= t.maxEntries {
		height++
	}
	return height
}

// buildNodes строит поддерево заданной высоты. data сортируется на месте.
func (t *RTree[T]) buildNodes(data []T, height, maxEntries int) *node[T] {
	if height <= 1 {
		return newLeaf(slices.Clone(data))
	}

	if len(data) <= maxEntries {
		// Цепочка из одного потомка держит все листья на одной глубине
		return newBranch([]*node[T]{t.buildNodes(data, height-1, t.maxEntries)}, height)
	}

	slices.SortStableFunc(data, func(a, b T) int { return cmp.Compare(a.Bounds().MinX, b.Bounds().MinX) })

	nodeSize := (len(data) + maxEntries - 1) / maxEntries
	subSortLength := nodeSize * int(math.Ceil(math.Sqrt(float64(maxEntries))))

	children := make([]*node[T], 0, maxEntries)
	for start := 0; start < len(data); start += subSortLength {
		slice := data[start:min(start+subSortLength, len(data))]
		slices.SortStableFunc(slice, func(a, b T) int { return cmp.Compare(a.Bounds().MinY, b.Bounds().MinY) })

		for s := 0; s < len(slice); s += nodeSize {
			children = append(children, t.buildNodes(slice[s:min(s+nodeSize, len(slice))], height-1, t.maxEntries))
		}
	}

	return newBranch(children, height)
}
