package storage

import (
	"context"
	"sync"

	"github.com/annel0/rivergen/internal/world"
)

// MemoryRiverRepo реализует RiverDataRepo в памяти.
// Хранит закодированные блоки, поэтому ведет себя так же, как дисковые хранилища.
// Данные теряются при перезапуске.
type MemoryRiverRepo struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryRiverRepo создает пустое хранилище в памяти
func NewMemoryRiverRepo() *MemoryRiverRepo {
	return &MemoryRiverRepo{
		data: make(map[string][]byte),
	}
}

// Save сохраняет массивы чанка в памяти
func (r *MemoryRiverRepo) Save(ctx context.Context, data *world.ChunkRiverData) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	blob, err := EncodeChunk(data)
	if err != nil || blob == nil {
		return 0, err
	}

	r.mu.Lock()
	r.data[chunkKey(data.ChunkX, data.ChunkZ)] = blob
	r.mu.Unlock()
	return len(blob), nil
}

// Load загружает массивы чанка из памяти
func (r *MemoryRiverRepo) Load(ctx context.Context, chunkX, chunkZ int) (*world.ChunkRiverData, bool, error) {
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	default:
	}

	r.mu.RLock()
	blob, ok := r.data[chunkKey(chunkX, chunkZ)]
	r.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	data, err := DecodeChunk(blob)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Delete удаляет массивы чанка из памяти
func (r *MemoryRiverRepo) Delete(ctx context.Context, chunkX, chunkZ int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	r.mu.Lock()
	delete(r.data, chunkKey(chunkX, chunkZ))
	r.mu.Unlock()
	return nil
}

// BatchSave сохраняет пакет под одной блокировкой
func (r *MemoryRiverRepo) BatchSave(ctx context.Context, batch []*world.ChunkRiverData) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	blobs, err := encodeBatch(batch)
	if err != nil {
		return err
	}

	r.mu.Lock()
	for key, blob := range blobs {
		r.data[key] = blob
	}
	r.mu.Unlock()
	return nil
}

// Count возвращает количество сохраненных чанков
func (r *MemoryRiverRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

// Backend возвращает имя хранилища
func (r *MemoryRiverRepo) Backend() string {
	return "memory"
}

// Close ничего не делает
func (r *MemoryRiverRepo) Close() error {
	return nil
}
