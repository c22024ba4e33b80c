package vec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec2FloorDiv(t *testing.T) {
	tests := []struct {
		name string
		in   Vec2
		size int
		want Vec2
	}{
		{"положительные", Vec2{X: 130, Y: 5}, 64, Vec2{X: 2, Y: 0}},
		{"отрицательные", Vec2{X: -1, Y: -64}, 64, Vec2{X: -1, Y: -1}},
		{"граница", Vec2{X: -65, Y: 64}, 64, Vec2{X: -2, Y: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.FloorDiv(tt.size))
		})
	}
}

func TestVec2ChunkCoords(t *testing.T) {
	v := Vec2{X: -1, Y: 33}
	assert.Equal(t, Vec2{X: -1, Y: 1}, v.ToChunkCoords())
	assert.Equal(t, Vec2{X: 31, Y: 1}, v.LocalInChunk())
}

func TestVec2FloatGeometry(t *testing.T) {
	a := Vec2Float{X: 3, Y: 4}

	assert.InDelta(t, 5.0, a.Length(), 1e-12)
	assert.InDelta(t, 25.0, a.LengthSquared(), 1e-12)
	assert.InDelta(t, 1.0, a.Normalized().Length(), 1e-12)
	assert.Equal(t, Vec2Float{}, Vec2Float{}.Normalized(), "нулевой вектор не должен давать NaN")
	assert.Equal(t, Vec2Float{X: -4, Y: 3}, a.Perpendicular())
	assert.InDelta(t, 0.0, a.Dot(a.Perpendicular()), 1e-12)
	assert.Equal(t, Vec2Float{X: 1.5, Y: 2}, Vec2Float{}.Lerp(a, 0.5))
}
