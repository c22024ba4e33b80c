package util

// Константы смешивания (splitmix64).
const (
	mixGamma = 0x9E3779B97F4A7C15
	mixMul1  = 0xBF58476D1CE4E5B9
	mixMul2  = 0x94D049BB133111EB
)

// Hash2 детерминированно смешивает сид мира с целочисленными координатами.
// Одинаковые аргументы всегда дают одинаковый результат на любой платформе.
func Hash2(seed int64, x, z int) int64 {
	h := uint64(seed)
	h = mix(h ^ (uint64(int64(x)) * mixGamma))
	h = mix(h ^ (uint64(int64(z)) * mixMul1))
	return int64(h)
}

// CombineSeeds смешивает сид мира с номером подсистемы (шум, океан, долины).
func CombineSeeds(seed int64, salt int64) int64 {
	return int64(mix(uint64(seed) ^ (uint64(salt) * mixGamma)))
}

func mix(z uint64) uint64 {
	z += mixGamma
	z = (z ^ (z >> 30)) * mixMul1
	z = (z ^ (z >> 27)) * mixMul2
	return z ^ (z >> 31)
}
