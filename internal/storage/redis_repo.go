package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/rivergen/internal/config"
	"github.com/annel0/rivergen/internal/logging"
	"github.com/annel0/rivergen/internal/world"
	"github.com/go-redis/redis/v8"
)

// RedisRiverRepo хранит массивы чанков в Redis, чтобы несколько генераторов делили результаты
type RedisRiverRepo struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisRiverRepo подключается к Redis и проверяет соединение
func NewRedisRiverRepo(cfg *config.RedisConfig) (*RedisRiverRepo, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("не удалось подключиться к Redis %s: %w", cfg.Addr, err)
	}

	logging.GetStorageLogger().Info("🔴 Подключение к Redis %s установлено", cfg.Addr)
	return &RedisRiverRepo{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		ttl:       cfg.TTL,
	}, nil
}

func (r *RedisRiverRepo) key(chunkX, chunkZ int) string {
	return r.keyPrefix + chunkKey(chunkX, chunkZ)
}

// Save сохраняет массивы чанка с TTL из конфигурации (0 - без срока)
func (r *RedisRiverRepo) Save(ctx context.Context, data *world.ChunkRiverData) (int, error) {
	blob, err := EncodeChunk(data)
	if err != nil || blob == nil {
		return 0, err
	}

	if err := r.client.Set(ctx, r.key(data.ChunkX, data.ChunkZ), blob, r.ttl).Err(); err != nil {
		return 0, fmt.Errorf("ошибка сохранения в Redis: %w", err)
	}
	return len(blob), nil
}

// Load загружает массивы чанка
func (r *RedisRiverRepo) Load(ctx context.Context, chunkX, chunkZ int) (*world.ChunkRiverData, bool, error) {
	blob, err := r.client.Get(ctx, r.key(chunkX, chunkZ)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("ошибка чтения из Redis: %w", err)
	}

	data, err := DecodeChunk(blob)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Delete удаляет массивы чанка
func (r *RedisRiverRepo) Delete(ctx context.Context, chunkX, chunkZ int) error {
	if err := r.client.Del(ctx, r.key(chunkX, chunkZ)).Err(); err != nil {
		return fmt.Errorf("ошибка удаления из Redis: %w", err)
	}
	return nil
}

// BatchSave записывает пакет через pipeline
func (r *RedisRiverRepo) BatchSave(ctx context.Context, batch []*world.ChunkRiverData) error {
	blobs, err := encodeBatch(batch)
	if err != nil {
		return err
	}
	if len(blobs) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for key, blob := range blobs {
		pipe.Set(ctx, r.keyPrefix+key, blob, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ошибка пакетной записи в Redis: %w", err)
	}
	return nil
}

// Backend возвращает имя хранилища
func (r *RedisRiverRepo) Backend() string {
	return "redis"
}

// Close закрывает соединение с Redis
func (r *RedisRiverRepo) Close() error {
	return r.client.Close()
}
