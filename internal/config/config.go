package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid возвращается, когда значение конфигурации делает генерацию невозможной.
var ErrInvalid = errors.New("некорректная конфигурация")

// Config корневая структура конфигурации приложения.
type Config struct {
	Seed      int64           `yaml:"seed"`
	Rivers    RiverConfig     `yaml:"rivers"`
	Storage   StorageConfig   `yaml:"storage"`
	Redis     RedisConfig     `yaml:"redis"`
	Cache     CacheConfig     `yaml:"cache"`
	Sampling  SamplingConfig  `yaml:"sampling"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StorageConfig выбирает хранилище массивов чанков: "badger", "redis" или "memory".
type StorageConfig struct {
	Backend string `yaml:"backend"`
	DataDir string `yaml:"data_dir"`
}

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
}

// CacheConfig задает размер кеша векторов течения
type CacheConfig struct {
	MaxChunks int64 `yaml:"max_chunks"`
}

// SamplingConfig задает параллелизм выборки чанков
type SamplingConfig struct {
	Workers int `yaml:"workers"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
}

type ServerConfig struct {
	RESTPort    int `yaml:"rest_port"`
	MetricsPort int `yaml:"metrics_port"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	Endpoint    string `yaml:"endpoint"`
}

// LoggingConfig задает уровни логов. Components переопределяет уровень отдельных
// компонентов, например {"rivers": "TRACE"}.
type LoggingConfig struct {
	ConsoleLevel string            `yaml:"console_level"`
	FileLevel    string            `yaml:"file_level"`
	Dir          string            `yaml:"dir"`
	Components   map[string]string `yaml:"components"`
}

// Default возвращает конфигурацию со значениями по умолчанию
func Default() *Config {
	return &Config{
		Seed:   0,
		Rivers: DefaultRivers(),
		Storage: StorageConfig{
			Backend: "badger",
			DataDir: "data/rivers",
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "rivers:",
			TTL:       24 * time.Hour,
		},
		Cache:    CacheConfig{MaxChunks: 200},
		Sampling: SamplingConfig{Workers: 4},
		EventBus: EventBusConfig{
			Stream:    "RIVERS",
			Retention: 24,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "rivergen",
		},
		Logging: LoggingConfig{
			ConsoleLevel: "INFO",
			FileLevel:    "DEBUG",
			Dir:          "logs",
		},
	}
}

// GetRESTPort возвращает порт отладочного API с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "RIVERS_HTTP_PORT", 8088)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "RIVERS_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать путь из ENV RIVERS_CONFIG; если и он пуст, возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("RIVERS_CONFIG")
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("не удалось прочитать конфигурацию %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("не удалось разобрать конфигурацию %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv применяет переопределения из переменных окружения
func applyEnv(cfg *Config) {
	if v := os.Getenv("RIVERS_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Seed = seed
		}
	}
	if v := os.Getenv("RIVERS_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.EventBus.URL = v
	}
}

// Validate проверяет конфигурацию целиком
func (c *Config) Validate() error {
	if err := c.Rivers.Validate(); err != nil {
		return err
	}
	switch c.Storage.Backend {
	case "badger", "redis", "memory", "":
	default:
		return fmt.Errorf("%w: storage.backend=%q", ErrInvalid, c.Storage.Backend)
	}
	if c.Sampling.Workers < 0 {
		return invalid("sampling.workers", c.Sampling.Workers)
	}
	return nil
}

func invalid(field string, value int) error {
	return fmt.Errorf("%w: %s=%d", ErrInvalid, field, value)
}
