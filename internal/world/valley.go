package world

import (
	"math"

	"github.com/annel0/rivergen/internal/config"
	"github.com/annel0/rivergen/internal/river"
	"github.com/annel0/rivergen/internal/util"
)

const (
	valleySalt      int64 = 0x56414c4c // "VALL"
	minValleyFactor       = 0.02
)

// ValleyBlend вычисляет, насколько сильно рельеф вокруг реки прижимается к ней.
// 1 означает, что долины нет; меньшие значения сглаживают рельеф к уровню берега.
type ValleyBlend struct {
	noise *util.SimplexNoise
	cfg   *config.RiverConfig
}

// NewValleyBlend создает смешивание долин для мира с сидом worldSeed
func NewValleyBlend(cfg *config.RiverConfig, worldSeed int64) *ValleyBlend {
	return &ValleyBlend{
		noise: util.NewSimplexNoise(util.CombineSeeds(worldSeed, valleySalt), cfg.ValleyFrequency, cfg.ValleyOctaves, 0.5),
		cfg:   cfg,
	}
}

// Factor возвращает множитель долины для выборки s в мировой колонке (x, z)
func (v *ValleyBlend) Factor(s river.Sample, x, z float64) float64 {
	width := v.cfg.MaxValleyWidth
	if s.RiverDistance >= width {
		return 1
	}

	n := util.Clamp(v.noise.Noise2D(x, z)*v.cfg.NoiseExpansion, -1, 1)
	strength := util.Map(n, -1, 1, 1-v.cfg.ValleyStrengthMin, 1-v.cfg.ValleyStrengthMax)
	strength = math.Max(strength, minValleyFactor)
	if strength >= 1 {
		return 1
	}

	f := util.Lerp(strength, 1, util.InverseLerp(s.RiverDistance, 0, width))
	return f * f
}

// CarveHeight возвращает высоту, до которой внешний генератор рельефа опускает колонку в русле
func CarveHeight(cfg *config.RiverConfig, bankFactor float64) float64 {
	return float64(cfg.SeaLevel) + cfg.HeightBoost - bankFactor*float64(cfg.MapHeight)*cfg.TopFactor
}
