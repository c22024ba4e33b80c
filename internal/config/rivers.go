package config

// RiverConfig содержит параметры генерации речной сети одного региона.
// Значение создается один раз и передается явно в генератор, семплер и драйвер чанков.
type RiverConfig struct {
	// Ветвление и рост
	MinForkAngle     float64 `yaml:"min_fork_angle"`
	ForkVariation    int     `yaml:"fork_variation"`
	NormalAngle      int     `yaml:"normal_angle"`
	MinLength        float64 `yaml:"min_length"`
	LengthVariation  int     `yaml:"length_variation"`
	MinNodes         int     `yaml:"min_nodes"`
	MaxNodes         int     `yaml:"max_nodes"`
	DownhillError    int     `yaml:"downhill_error"`
	RiverSpawnChance float64 `yaml:"river_spawn_chance"`
	RiverSplitChance float64 `yaml:"river_split_chance"`

	// Ширина
	MinSize     float64 `yaml:"min_size"`
	MaxSize     float64 `yaml:"max_size"`
	RiverGrowth float64 `yaml:"river_growth"`

	// Озера
	LakeChance  float64 `yaml:"lake_chance"`
	LakeMinSize int     `yaml:"lake_min_size"`
	LakeMaxSize int     `yaml:"lake_max_size"`
	LakeLength  float64 `yaml:"lake_length"`

	// Сегменты
	SegmentsInRiver int     `yaml:"segments_in_river"`
	SegmentOffset   float64 `yaml:"segment_offset"`

	// Зоны и регион
	ZoneSize           int     `yaml:"zone_size"`
	ZonesInRegion      int     `yaml:"zones_in_region"`
	OceanThreshold     float64 `yaml:"ocean_threshold"`
	RiverPaddingBlocks float64 `yaml:"river_padding_blocks"`
	RadiusPadding      int     `yaml:"radius_padding"`

	// Русло и долина
	BaseDepth         float64 `yaml:"base_depth"`
	RiverDepth        float64 `yaml:"river_depth"`
	HeightBoost       float64 `yaml:"height_boost"`
	TopFactor         float64 `yaml:"top_factor"`
	MaxValleyWidth    float64 `yaml:"max_valley_width"`
	ValleyStrengthMin float64 `yaml:"valley_strength_min"`
	ValleyStrengthMax float64 `yaml:"valley_strength_max"`
	NoiseExpansion    float64 `yaml:"noise_expansion"`
	ValleyFrequency   float64 `yaml:"valley_frequency"`
	ValleyOctaves     int     `yaml:"valley_octaves"`

	// Искажение берегов
	RiverOctaves            int     `yaml:"river_octaves"`
	RiverFrequency          float64 `yaml:"river_frequency"`
	RiverLacunarity         float64 `yaml:"river_lacunarity"`
	RiverGain               float64 `yaml:"river_gain"`
	RiverDistortionStrength float64 `yaml:"river_distortion_strength"`

	// Течение
	RiverSpeed  float64 `yaml:"river_speed"`
	DisableFlow bool    `yaml:"disable_flow"`

	// Мир
	MapHeight int `yaml:"map_height"`
	SeaLevel  int `yaml:"sea_level"`

	// Флаги декораций, читаются внешними генераторами
	FixGravityBlocks bool `yaml:"fix_gravity_blocks"`
	Boulders         bool `yaml:"boulders"`
	GravelBeaches    bool `yaml:"gravel_beaches"`
	ValleysV2        bool `yaml:"valleys_v2"`
}

// DefaultRivers возвращает параметры по умолчанию
func DefaultRivers() RiverConfig {
	return RiverConfig{
		MinForkAngle:     10,
		ForkVariation:    35,
		NormalAngle:      20,
		MinLength:        150,
		LengthVariation:  200,
		MinNodes:         8,
		MaxNodes:         20,
		DownhillError:    1,
		RiverSpawnChance: 0.2,
		RiverSplitChance: 0.35,

		MinSize:     14,
		MaxSize:     50,
		RiverGrowth: 3,

		LakeChance:  0.15,
		LakeMinSize: 50,
		LakeMaxSize: 75,
		LakeLength:  100,

		SegmentsInRiver: 3,
		SegmentOffset:   40,

		ZoneSize:           256,
		ZonesInRegion:      128,
		OceanThreshold:     30,
		RiverPaddingBlocks: 128,
		RadiusPadding:      512,

		BaseDepth:         0.1,
		RiverDepth:        0.022,
		HeightBoost:       8,
		TopFactor:         1,
		MaxValleyWidth:    75,
		ValleyStrengthMin: 0.4,
		ValleyStrengthMax: 1,
		NoiseExpansion:    1.5,
		ValleyFrequency:   0.0008,
		ValleyOctaves:     2,

		RiverOctaves:            2,
		RiverFrequency:          0.0075,
		RiverLacunarity:         3,
		RiverGain:               0.3,
		RiverDistortionStrength: 10,

		RiverSpeed:  4,
		DisableFlow: false,

		MapHeight: 256,
		SeaLevel:  110,

		FixGravityBlocks: true,
		Boulders:         true,
		GravelBeaches:    true,
		ValleysV2:        false,
	}
}

// RegionSize возвращает размер региона (плиты) в блоках
func (c *RiverConfig) RegionSize() int {
	return c.ZoneSize * c.ZonesInRegion
}

// ChunksInRegion возвращает количество чанков 32x32 вдоль стороны региона
func (c *RiverConfig) ChunksInRegion() int {
	return c.RegionSize() / 32
}

// ChunksInZone возвращает количество чанков вдоль стороны зоны
func (c *RiverConfig) ChunksInZone() int {
	return c.ZoneSize / 32
}

// HeightScale приводит глубины, заданные для мира высотой 256, к текущей высоте мира.
func (c *RiverConfig) HeightScale() float64 {
	return 256.0 / float64(c.MapHeight)
}

// Validate проверяет только то, без чего генерация невозможна:
// размеры регионов и массивов должны быть положительными.
// Несогласованные, но положительные значения (например, MinNodes > MaxNodes) не исправляются.
func (c *RiverConfig) Validate() error {
	switch {
	case c.ZoneSize <= 0:
		return invalid("rivers.zone_size", c.ZoneSize)
	case c.ZonesInRegion <= 0:
		return invalid("rivers.zones_in_region", c.ZonesInRegion)
	case c.RegionSize() < 32:
		return invalid("rivers.zone_size*zones_in_region", c.RegionSize())
	case c.SegmentsInRiver <= 0:
		return invalid("rivers.segments_in_river", c.SegmentsInRiver)
	case c.MapHeight <= 0:
		return invalid("rivers.map_height", c.MapHeight)
	case c.LakeMaxSize < c.LakeMinSize:
		return invalid("rivers.lake_max_size", c.LakeMaxSize)
	}
	return nil
}
