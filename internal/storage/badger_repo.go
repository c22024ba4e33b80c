package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/annel0/rivergen/internal/logging"
	"github.com/annel0/rivergen/internal/world"
	"github.com/dgraph-io/badger/v3"
)

const badgerKeyPrefix = "rivers:"

// BadgerRiverRepo хранит массивы чанков на диске в BadgerDB
type BadgerRiverRepo struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool
}

// NewBadgerRiverRepo открывает (или создает) базу в dataPath/rivers
func NewBadgerRiverRepo(dataPath string) (*BadgerRiverRepo, error) {
	dbPath := filepath.Join(dataPath, "rivers")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	logging.GetStorageLogger().Info("💾 BadgerDB открыта: %s", dbPath)
	return &BadgerRiverRepo{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
	}, nil
}

func badgerKey(chunkX, chunkZ int) []byte {
	return []byte(badgerKeyPrefix + chunkKey(chunkX, chunkZ))
}

// Save сохраняет массивы чанка
func (r *BadgerRiverRepo) Save(ctx context.Context, data *world.ChunkRiverData) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if !r.isReady {
		return 0, fmt.Errorf("хранилище не готово")
	}

	blob, err := EncodeChunk(data)
	if err != nil || blob == nil {
		return 0, err
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(data.ChunkX, data.ChunkZ), blob)
	})
	if err != nil {
		return 0, fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	return len(blob), nil
}

// Load загружает массивы чанка
func (r *BadgerRiverRepo) Load(ctx context.Context, chunkX, chunkZ int) (*world.ChunkRiverData, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if !r.isReady {
		return nil, false, fmt.Errorf("хранилище не готово")
	}

	var blob []byte
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(chunkX, chunkZ))
		if err != nil {
			return err
		}
		blob, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	data, err := DecodeChunk(blob)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Delete удаляет массивы чанка
func (r *BadgerRiverRepo) Delete(ctx context.Context, chunkX, chunkZ int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if !r.isReady {
		return fmt.Errorf("хранилище не готово")
	}

	err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(chunkX, chunkZ))
	})
	if err != nil {
		return fmt.Errorf("ошибка удаления из BadgerDB: %w", err)
	}
	return nil
}

// BatchSave записывает пакет через WriteBatch
func (r *BadgerRiverRepo) BatchSave(ctx context.Context, batch []*world.ChunkRiverData) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	blobs, err := encodeBatch(batch)
	if err != nil {
		return err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if !r.isReady {
		return fmt.Errorf("хранилище не готово")
	}

	wb := r.db.NewWriteBatch()
	defer wb.Cancel()

	for key, blob := range blobs {
		if err := wb.Set([]byte(badgerKeyPrefix+key), blob); err != nil {
			return fmt.Errorf("ошибка пакетной записи в BadgerDB: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("ошибка пакетной записи в BadgerDB: %w", err)
	}
	return nil
}

// Backend возвращает имя хранилища
func (r *BadgerRiverRepo) Backend() string {
	return "badger"
}

// Close закрывает базу
func (r *BadgerRiverRepo) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.isReady {
		return nil
	}

	r.isReady = false
	return r.db.Close()
}
