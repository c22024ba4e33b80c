package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/annel0/rivergen/internal/config"
	"github.com/annel0/rivergen/internal/world"
)

// ErrNotFound возвращается Get, если массивы чанка не сохранены
var ErrNotFound = errors.New("данные чанка не найдены")

// RiverDataRepo определяет интерфейс хранения массивов рек по чанкам.
// Массивы записываются и читаются без изменений, ключ - координаты чанка.
type RiverDataRepo interface {
	// Save кодирует и сохраняет массивы чанка.
	// Возвращает число записанных байт; 0, если чанк не содержит ничего для записи.
	Save(ctx context.Context, data *world.ChunkRiverData) (int, error)

	// Load загружает массивы чанка.
	// bool == false, если для чанка ничего не сохранено.
	Load(ctx context.Context, chunkX, chunkZ int) (*world.ChunkRiverData, bool, error)

	// Delete удаляет сохраненные массивы чанка
	Delete(ctx context.Context, chunkX, chunkZ int) error

	// BatchSave сохраняет несколько чанков за одну операцию
	BatchSave(ctx context.Context, batch []*world.ChunkRiverData) error

	// Backend возвращает имя хранилища: "badger", "redis" или "memory"
	Backend() string

	Close() error
}

// Open создает хранилище, выбранное в конфигурации
func Open(cfg *config.Config) (RiverDataRepo, error) {
	switch cfg.Storage.Backend {
	case "badger", "":
		return NewBadgerRiverRepo(cfg.Storage.DataDir)
	case "redis":
		return NewRedisRiverRepo(&cfg.Redis)
	case "memory":
		return NewMemoryRiverRepo(), nil
	default:
		return nil, fmt.Errorf("%w: storage.backend=%q", config.ErrInvalid, cfg.Storage.Backend)
	}
}

// Get загружает массивы чанка и возвращает ErrNotFound, если их нет
func Get(ctx context.Context, repo RiverDataRepo, chunkX, chunkZ int) (*world.ChunkRiverData, error) {
	data, ok, err := repo.Load(ctx, chunkX, chunkZ)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: чанк (%d, %d)", ErrNotFound, chunkX, chunkZ)
	}
	return data, nil
}

// encodeBatch кодирует пакет и пропускает чанки, которым нечего сохранять
func encodeBatch(batch []*world.ChunkRiverData) (map[string][]byte, error) {
	blobs := make(map[string][]byte, len(batch))
	for _, data := range batch {
		blob, err := EncodeChunk(data)
		if err != nil {
			return nil, err
		}
		if blob != nil {
			blobs[chunkKey(data.ChunkX, data.ChunkZ)] = blob
		}
	}
	return blobs, nil
}
