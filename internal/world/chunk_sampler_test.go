package world

import (
	"context"
	"sync"
	"testing"

	"github.com/annel0/rivergen/internal/eventbus"
	"github.com/annel0/rivergen/internal/river"
	"github.com/annel0/rivergen/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleChunkOnRiver(t *testing.T) {
	rm := newTestManager(t, 2, nil)
	cs := NewChunkSampler(rm, 4)
	ctx := context.Background()

	x, z := riverColumn(t, buildSeedRegion(t, rm))
	chunk := vec.Vec2{X: x, Y: z}.ToChunkCoords()
	local := vec.Vec2{X: x, Y: z}.LocalInChunk()

	data, err := cs.SampleChunk(ctx, chunk.X, chunk.Y)
	require.NoError(t, err)

	assert.True(t, data.HasFlow)
	assert.True(t, data.InValleyRange)

	i := ColumnIndex(local.X, local.Y)
	assert.Equal(t, uint16(0), data.Distance[i], "колонка на середине сегмента лежит в русле")
	assert.Greater(t, data.Bank[i], float32(0))
	fx, fz := data.FlowAt(local.X, local.Y)
	assert.Greater(t, fx, river.NoFlow)
	assert.Greater(t, fz, river.NoFlow)
}

func TestSampleChunkMatchesPointSamples(t *testing.T) {
	rm := newTestManager(t, 4, nil)
	cs := NewChunkSampler(rm, 3)
	ctx := context.Background()

	x, z := riverColumn(t, buildSeedRegion(t, rm))
	chunk := vec.Vec2{X: x, Y: z}.ToChunkCoords()

	data, err := cs.SampleChunk(ctx, chunk.X, chunk.Y)
	require.NoError(t, err)

	width := rm.Config().MaxValleyWidth
	for lx := 0; lx < vec.ChunkSize; lx++ {
		for lz := 0; lz < vec.ChunkSize; lz++ {
			wx, wz := chunk.X*vec.ChunkSize+lx, chunk.Y*vec.ChunkSize+lz
			s, valley, err := cs.SampleColumn(ctx, wx, wz)
			require.NoError(t, err)

			i := ColumnIndex(lx, lz)
			fx, fz := data.FlowAt(lx, lz)
			assert.InDelta(t, s.FlowX, fx, 1e-5, "колонка (%d, %d)", lx, lz)
			assert.InDelta(t, s.FlowZ, fz, 1e-5, "колонка (%d, %d)", lx, lz)
			assert.InDelta(t, s.BankFactor, float64(data.Bank[i]), 1e-6)
			if s.RiverDistance < width {
				assert.Equal(t, saturateDistance(s.RiverDistance), data.Distance[i])
				assert.InDelta(t, valley, float64(data.Valley[i]), 1e-6)
			}
		}
	}
}

func TestSampleChunkFarFromRivers(t *testing.T) {
	rm := newTestManager(t, 6, nil)
	cs := NewChunkSampler(rm, 0)

	// Глубоко в океане рек нет
	data, err := cs.SampleChunk(context.Background(), 2, 2)
	require.NoError(t, err)

	assert.False(t, data.HasFlow)
	assert.False(t, data.InValleyRange)
	for i := 0; i < ColumnsInChunk; i++ {
		assert.Equal(t, float32(river.NoFlow), data.Flow[2*i])
		assert.Equal(t, uint16(river.NoRiverDistance), data.Distance[i])
		assert.Equal(t, float32(1), data.Valley[i])
	}
}

func TestSampleChunkCancelled(t *testing.T) {
	rm := newTestManager(t, 6, nil)
	buildSeedRegion(t, rm)
	cs := NewChunkSampler(rm, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cs.SampleChunk(ctx, 40, 40)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSampleChunksEmitsEvents(t *testing.T) {
	bus := eventbus.NewMemoryBus(64)

	var (
		mu      sync.Mutex
		sampled []eventbus.ChunkSampled
	)
	_, err := bus.Subscribe(context.Background(), eventbus.Filter{Types: []string{eventbus.TypeChunkSampled}}, func(_ context.Context, ev *eventbus.Envelope) {
		payload, err := eventbus.Decode[eventbus.ChunkSampled](ev)
		if err == nil {
			mu.Lock()
			sampled = append(sampled, payload)
			mu.Unlock()
		}
	})
	require.NoError(t, err)

	rm := newTestManager(t, 8, bus)
	cs := NewChunkSampler(rm, 2)

	coords := ChunksAround(45, 10, 1)
	require.Len(t, coords, 9)

	out, err := cs.SampleChunks(context.Background(), coords)
	require.NoError(t, err)
	require.Len(t, out, 9)
	require.NoError(t, bus.Close())

	require.Len(t, sampled, 9)
	for i, data := range out {
		assert.Equal(t, coords[i].X, data.ChunkX)
		assert.Equal(t, coords[i].Y, data.ChunkZ)
		assert.Equal(t, data.HasFlow, sampled[i].HasFlow)
	}
}

func TestChunksAround(t *testing.T) {
	assert.Nil(t, ChunksAround(0, 0, -1))
	assert.Equal(t, []vec.Vec2{{X: 3, Y: 4}}, ChunksAround(3, 4, 0))
	assert.Len(t, ChunksAround(0, 0, 2), 25)
}
