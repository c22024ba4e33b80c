package spatial

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/rtree"
)

type box struct {
	id  int
	env Envelope
}

func (b box) Bounds() Envelope { return b.env }

func randomBoxes(rng *rand.Rand, n int) []box {
	boxes := make([]box, n)
	for i := range boxes {
		x, y := rng.Float64()*1000, rng.Float64()*1000
		w, h := rng.Float64()*40, rng.Float64()*40
		boxes[i] = box{id: i, env: Envelope{MinX: x, MinY: y, MaxX: x + w, MaxY: y + h}}
	}
	return boxes
}

func randomQuery(rng *rand.Rand) Envelope {
	x, y := rng.Float64()*1000, rng.Float64()*1000
	return Envelope{MinX: x, MinY: y, MaxX: x + rng.Float64()*200, MaxY: y + rng.Float64()*200}
}

func ids(items []box) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.id
	}
	sort.Ints(out)
	return out
}

func bruteForce(items []box, query Envelope) []int {
	var out []int
	for _, it := range items {
		if it.env.Intersects(query) {
			out = append(out, it.id)
		}
	}
	sort.Ints(out)
	return out
}

func TestEnvelope(t *testing.T) {
	a := Envelope{MinX: 0, MinY: 0, MaxX: 10, MaxY: 5}
	b := Envelope{MinX: 5, MinY: 2, MaxX: 20, MaxY: 8}

	assert.Equal(t, 50.0, a.Area())
	assert.Equal(t, 15.0, a.Margin())
	assert.Equal(t, Envelope{MinX: 0, MinY: 0, MaxX: 20, MaxY: 8}, a.Extend(b))
	assert.Equal(t, 15.0, a.Intersection(b).Area())
	assert.True(t, a.Intersects(b))
	assert.False(t, a.Contains(b))
	assert.True(t, a.Extend(b).Contains(b))
	assert.True(t, EmptyBounds().IsEmpty())
	assert.Equal(t, 0.0, EmptyBounds().Area())
	assert.False(t, EmptyBounds().Intersects(a), "пустой прямоугольник ни с чем не пересекается")
	assert.True(t, InfiniteBounds().Contains(a))
	assert.Equal(t, a, EmptyBounds().Extend(a))
	assert.Equal(t, 0.0, a.DistanceTo(3, 3))
	assert.Equal(t, 5.0, a.DistanceTo(13, 9))
	assert.Equal(t, Envelope{MinX: -2, MinY: -2, MaxX: 12, MaxY: 7}, a.Expand(2))
}

func TestRTreeEmpty(t *testing.T) {
	tree := New[box](0)

	assert.Equal(t, 0, tree.Count())
	assert.Empty(t, tree.Search(InfiniteBounds()))
	assert.Empty(t, tree.All())
	assert.False(t, tree.Delete(box{id: 1}))
	tree.BulkLoad(nil)
	assert.Equal(t, 0, tree.Count())
}

func TestRTreeSearchMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for _, n := range []int{1, 3, 8, 9, 10, 50, 200, 1000} {
		items := randomBoxes(rng, n)

		t.Run("insert", func(t *testing.T) {
			tree := New[box](0)
			for _, it := range items {
				tree.Insert(it)
			}
			require.Equal(t, n, tree.Count())
			assert.Equal(t, ids(items), ids(tree.All()))

			for q := 0; q < 20; q++ {
				query := randomQuery(rng)
				assert.Equal(t, bruteForce(items, query), nilIfEmpty(ids(tree.Search(query))))
			}
		})

		t.Run("bulk", func(t *testing.T) {
			tree := New[box](4)
			tree.BulkLoad(items)
			require.Equal(t, n, tree.Count())
			assert.Equal(t, ids(items), ids(tree.All()))

			for q := 0; q < 20; q++ {
				query := randomQuery(rng)
				assert.Equal(t, bruteForce(items, query), nilIfEmpty(ids(tree.Search(query))))
			}
		})
	}
}

func nilIfEmpty(v []int) []int {
	if len(v) == 0 {
		return nil
	}
	return v
}

func TestRTreeBulkLoadEquivalence(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	items := randomBoxes(rng, 500)

	incremental := New[box](0)
	for _, it := range items {
		incremental.Insert(it)
	}

	bulk := New[box](0)
	bulk.BulkLoad(items)

	for q := 0; q < 50; q++ {
		query := randomQuery(rng)
		assert.Equal(t, ids(incremental.Search(query)), ids(bulk.Search(query)))
	}
}

func TestRTreeBulkLoadIntoExisting(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	tests := []struct {
		name        string
		first, next int
	}{
		{"малое в большое", 400, 20},
		{"большое в малое", 20, 400},
		{"равные", 150, 150},
		{"в лист", 3, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := randomBoxes(rng, tt.first)
			next := randomBoxes(rng, tt.next)
			for i := range next {
				next[i].id += tt.first
			}
			all := append(append([]box{}, first...), next...)

			tree := New[box](0)
			tree.BulkLoad(first)
			tree.BulkLoad(next)

			require.Equal(t, len(all), tree.Count())
			assert.Equal(t, ids(all), ids(tree.All()))
			for q := 0; q < 20; q++ {
				query := randomQuery(rng)
				assert.Equal(t, bruteForce(all, query), nilIfEmpty(ids(tree.Search(query))))
			}
		})
	}
}

func TestRTreeDelete(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	items := randomBoxes(rng, 300)

	tree := New[box](0)
	tree.BulkLoad(items)

	var remaining []box
	for i, it := range items {
		if i%3 == 0 {
			require.True(t, tree.Delete(it), "элемент %d должен удаляться", it.id)
			continue
		}
		remaining = append(remaining, it)
	}

	assert.Equal(t, len(remaining), tree.Count())
	assert.Equal(t, ids(remaining), ids(tree.All()))
	assert.False(t, tree.Delete(items[0]), "повторное удаление")

	for q := 0; q < 30; q++ {
		query := randomQuery(rng)
		assert.Equal(t, bruteForce(remaining, query), nilIfEmpty(ids(tree.Search(query))))
	}

	// Вставка после удаления
	extra := box{id: 10_000, env: Envelope{MinX: 1, MinY: 1, MaxX: 2, MaxY: 2}}
	tree.Insert(extra)
	assert.Contains(t, ids(tree.Search(Envelope{MinX: 0, MinY: 0, MaxX: 3, MaxY: 3})), 10_000)
}

func TestRTreeAgainstTidwall(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	items := randomBoxes(rng, 2000)

	var oracle rtree.RTreeG[int]
	tree := New[box](16)
	for _, it := range items {
		oracle.Insert([2]float64{it.env.MinX, it.env.MinY}, [2]float64{it.env.MaxX, it.env.MaxY}, it.id)
	}
	tree.BulkLoad(items)

	for q := 0; q < 100; q++ {
		query := randomQuery(rng)

		var want []int
		oracle.Search([2]float64{query.MinX, query.MinY}, [2]float64{query.MaxX, query.MaxY},
			func(min, max [2]float64, id int) bool {
				want = append(want, id)
				return true
			})
		sort.Ints(want)

		assert.Equal(t, want, nilIfEmpty(ids(tree.Search(query))))
	}
}

func TestRTreeKnn(t *testing.T) {
	tree := New[box](0)
	for i := 0; i < 10; i++ {
		x := float64(i * 10)
		tree.Insert(box{id: i, env: Envelope{MinX: x, MinY: 0, MaxX: x + 1, MaxY: 1}})
	}

	nearest := tree.Knn(3, 0, 0, 0, nil)
	require.Len(t, nearest, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{nearest[0].id, nearest[1].id, nearest[2].id})

	within := tree.Knn(0, 0, 0, 25, nil)
	assert.Equal(t, []int{0, 1, 2}, ids(within))

	odd := tree.Knn(2, 0, 0, 0, func(b box) bool { return b.id%2 == 1 })
	assert.Equal(t, []int{1, 3}, ids(odd))

	assert.Equal(t, []int{0, 1}, ids(tree.QueryRange(5, 0, 5)))
}

func TestRTreeStats(t *testing.T) {
	tree := New[box](4)
	tree.BulkLoad(randomBoxes(rand.New(rand.NewSource(5)), 100))

	stats := tree.GetStats()
	assert.Equal(t, 100, stats.Items)
	assert.Equal(t, tree.Height(), stats.Height)
	assert.Greater(t, stats.Height, 1)
	assert.Greater(t, stats.Leaves, 1)
	assert.Contains(t, stats.String(), "items=100")
}
