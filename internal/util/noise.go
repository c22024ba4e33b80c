package util

import (
	"github.com/aquilax/go-perlin"
	opensimplex "github.com/ojrac/opensimplex-go"
)

// OctaveNoise выдает фрактальный шум Перлина с заданной частотой.
// Экземпляр только читается после создания и безопасен для параллельного использования.
type OctaveNoise struct {
	perlin    *perlin.Perlin
	frequency float64
}

// NewOctaveNoise создает октавный шум.
// gain - множитель амплитуды каждой следующей октавы, lacunarity - множитель частоты.
func NewOctaveNoise(seed int64, frequency float64, octaves int, gain, lacunarity float64) *OctaveNoise {
	if gain <= 0 {
		gain = 0.5
	}
	alpha := 1.0 / gain // go-perlin делит амплитуду на alpha на каждой октаве
	beta := lacunarity
	n := int32(octaves)
	if n < 1 {
		n = 1
	}

	return &OctaveNoise{
		perlin:    perlin.NewPerlin(alpha, beta, n, seed),
		frequency: frequency,
	}
}

// Noise2D возвращает значение шума в точке (примерно от -1 до 1).
func (n *OctaveNoise) Noise2D(x, z float64) float64 {
	return n.perlin.Noise2D(x*n.frequency, z*n.frequency)
}

// SimplexNoise - октавный OpenSimplex шум, нормированный на сумму амплитуд.
type SimplexNoise struct {
	noise       opensimplex.Noise
	frequency   float64
	octaves     int
	persistence float64
}

// NewSimplexNoise создает октавный OpenSimplex шум.
func NewSimplexNoise(seed int64, frequency float64, octaves int, persistence float64) *SimplexNoise {
	if octaves < 1 {
		octaves = 1
	}
	return &SimplexNoise{
		noise:       opensimplex.New(seed),
		frequency:   frequency,
		octaves:     octaves,
		persistence: persistence,
	}
}

// Noise2D возвращает значение от -1 до 1
func (n *SimplexNoise) Noise2D(x, z float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0
	frequency := n.frequency

	for i := 0; i < n.octaves; i++ {
		total += n.noise.Eval2(x*frequency, z*frequency) * amplitude
		maxVal += amplitude
		amplitude *= n.persistence
		frequency *= 2
	}

	return total / maxVal
}
