package world

import (
	"testing"

	"github.com/annel0/rivergen/internal/config"
	"github.com/annel0/rivergen/internal/river"
	"github.com/stretchr/testify/assert"
)

func TestValleyBlendFactor(t *testing.T) {
	cfg := config.DefaultRivers()
	v := NewValleyBlend(&cfg, 42)

	t.Run("за пределами долины", func(t *testing.T) {
		s := river.Sample{RiverDistance: cfg.MaxValleyWidth}
		assert.Equal(t, 1.0, v.Factor(s, 100, 200))
	})

	t.Run("множитель растет от реки к краю долины", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			x, z := float64(i*731), float64(i*-419)
			prev := -1.0
			for d := 0.0; d < cfg.MaxValleyWidth; d += 5 {
				f := v.Factor(river.Sample{RiverDistance: d}, x, z)
				assert.GreaterOrEqual(t, f, minValleyFactor*minValleyFactor-1e-12)
				assert.LessOrEqual(t, f, 1.0)
				assert.GreaterOrEqual(t, f, prev, "точка (%v, %v), расстояние %v", x, z, d)
				prev = f
			}
		}
	})

	t.Run("полная сила долины", func(t *testing.T) {
		strong := cfg
		strong.ValleyStrengthMin = 1
		strong.ValleyStrengthMax = 1
		sv := NewValleyBlend(&strong, 42)

		// strength = max(1-1, 0.02), на русле множитель равен 0.02^2
		f := sv.Factor(river.Sample{RiverDistance: 0}, 10, 10)
		assert.InDelta(t, minValleyFactor*minValleyFactor, f, 1e-12)
	})

	t.Run("без долины", func(t *testing.T) {
		none := cfg
		none.ValleyStrengthMin = 0
		none.ValleyStrengthMax = 0
		nv := NewValleyBlend(&none, 42)
		assert.Equal(t, 1.0, nv.Factor(river.Sample{RiverDistance: 0}, 10, 10))
	})

	t.Run("детерминированность", func(t *testing.T) {
		other := NewValleyBlend(&cfg, 42)
		s := river.Sample{RiverDistance: 20}
		assert.Equal(t, v.Factor(s, 333, 777), other.Factor(s, 333, 777))
	})
}

func TestCarveHeight(t *testing.T) {
	cfg := config.DefaultRivers()

	assert.Equal(t, 118.0, CarveHeight(&cfg, 0), "без русла: уровень моря + подъем")
	assert.InDelta(t, 118.0-0.1*256, CarveHeight(&cfg, 0.1), 1e-9)
}
