package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/annel0/rivergen/internal/config"
	"github.com/annel0/rivergen/internal/eventbus"
	"github.com/annel0/rivergen/internal/world"
)

// testRepo проверяет общий контракт RiverDataRepo
func testRepo(t *testing.T, repo RiverDataRepo) {
	ctx := context.Background()

	t.Run("Save and Load", func(t *testing.T) {
		data := sampleChunk(5, -9)

		n, err := repo.Save(ctx, data)
		if err != nil {
			t.Fatalf("Ошибка сохранения: %v", err)
		}
		if n == 0 {
			t.Fatal("Чанк с рекой должен быть записан")
		}

		got, found, err := repo.Load(ctx, 5, -9)
		if err != nil {
			t.Fatalf("Ошибка загрузки: %v", err)
		}
		if !found {
			t.Fatal("Чанк не найден")
		}
		fx, fz := got.FlowAt(0, 7)
		if fx != 0.5 || fz != -4 {
			t.Errorf("Неверное течение: (%v, %v)", fx, fz)
		}
	})

	t.Run("Load Missing", func(t *testing.T) {
		got, found, err := repo.Load(ctx, 1000, 1000)
		if err != nil {
			t.Fatalf("Ошибка при загрузке отсутствующего чанка: %v", err)
		}
		if found || got != nil {
			t.Error("Отсутствующий чанк не должен находиться")
		}

		if _, err := Get(ctx, repo, 1000, 1000); !errors.Is(err, ErrNotFound) {
			t.Errorf("Ожидалась ErrNotFound, получено %v", err)
		}
	})

	t.Run("Skip Empty", func(t *testing.T) {
		empty := world.NewChunkRiverData(77, 77)
		n, err := repo.Save(ctx, empty)
		if err != nil {
			t.Fatalf("Ошибка сохранения: %v", err)
		}
		if n != 0 {
			t.Errorf("Пустой чанк не должен записываться, записано %d байт", n)
		}
		if _, found, _ := repo.Load(ctx, 77, 77); found {
			t.Error("Пустой чанк найден в хранилище")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if _, err := repo.Save(ctx, sampleChunk(3, 3)); err != nil {
			t.Fatalf("Ошибка сохранения: %v", err)
		}
		if err := repo.Delete(ctx, 3, 3); err != nil {
			t.Fatalf("Ошибка удаления: %v", err)
		}
		if _, found, _ := repo.Load(ctx, 3, 3); found {
			t.Error("Чанк найден после удаления")
		}
	})

	t.Run("Batch Save", func(t *testing.T) {
		batch := []*world.ChunkRiverData{sampleChunk(10, 0), sampleChunk(11, 0), world.NewChunkRiverData(12, 0)}
		if err := repo.BatchSave(ctx, batch); err != nil {
			t.Fatalf("Ошибка пакетного сохранения: %v", err)
		}
		for _, x := range []int{10, 11} {
			if _, found, err := repo.Load(ctx, x, 0); err != nil || !found {
				t.Errorf("Чанк (%d, 0) не найден после пакетного сохранения: %v", x, err)
			}
		}
		if _, found, _ := repo.Load(ctx, 12, 0); found {
			t.Error("Пустой чанк из пакета не должен записываться")
		}
	})
}

func TestMemoryRiverRepo(t *testing.T) {
	repo := NewMemoryRiverRepo()
	defer repo.Close()
	testRepo(t, repo)

	t.Run("Cancelled Context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := repo.Save(ctx, sampleChunk(0, 0)); !errors.Is(err, context.Canceled) {
			t.Errorf("Ожидалась context.Canceled, получено %v", err)
		}
	})
}

func TestBadgerRiverRepo(t *testing.T) {
	dir := t.TempDir()

	repo, err := NewBadgerRiverRepo(dir)
	if err != nil {
		t.Fatalf("Не удалось открыть хранилище: %v", err)
	}
	testRepo(t, repo)

	t.Run("Reopen", func(t *testing.T) {
		if err := repo.Close(); err != nil {
			t.Fatalf("Ошибка закрытия: %v", err)
		}
		if _, _, err := repo.Load(context.Background(), 5, -9); err == nil {
			t.Error("Закрытое хранилище должно возвращать ошибку")
		}

		reopened, err := NewBadgerRiverRepo(dir)
		if err != nil {
			t.Fatalf("Не удалось переоткрыть хранилище: %v", err)
		}
		defer reopened.Close()

		if _, found, err := reopened.Load(context.Background(), 5, -9); err != nil || !found {
			t.Errorf("Данные не пережили перезапуск: found=%v err=%v", found, err)
		}
	})
}

func TestRedisRiverRepo(t *testing.T) {
	cfg := config.Default().Redis
	cfg.KeyPrefix = "rivers:test:"
	cfg.TTL = time.Minute

	repo, err := NewRedisRiverRepo(&cfg)
	if err != nil {
		t.Skipf("Redis недоступен: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()
	for _, c := range [][2]int{{5, -9}, {3, 3}, {10, 0}, {11, 0}, {12, 0}, {77, 77}} {
		_ = repo.Delete(ctx, c[0], c[1])
	}
	testRepo(t, repo)
}

func TestOpen(t *testing.T) {
	cfg := config.Default()

	cfg.Storage.Backend = "memory"
	repo, err := Open(cfg)
	if err != nil {
		t.Fatalf("Ошибка открытия: %v", err)
	}
	if repo.Backend() != "memory" {
		t.Errorf("Ожидалось memory, получено %s", repo.Backend())
	}

	cfg.Storage.Backend = "badger"
	cfg.Storage.DataDir = t.TempDir()
	repo, err = Open(cfg)
	if err != nil {
		t.Fatalf("Ошибка открытия: %v", err)
	}
	defer repo.Close()
	if repo.Backend() != "badger" {
		t.Errorf("Ожидалось badger, получено %s", repo.Backend())
	}

	cfg.Storage.Backend = "mysql"
	if _, err := Open(cfg); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("Ожидалась config.ErrInvalid, получено %v", err)
	}
}

func TestPersister(t *testing.T) {
	bus := eventbus.NewMemoryBus(16)
	ctx := context.Background()

	var persisted []eventbus.ChunkPersisted
	_, err := bus.Subscribe(ctx, eventbus.Filter{Types: []string{eventbus.TypeChunkPersisted}}, func(_ context.Context, ev *eventbus.Envelope) {
		if payload, err := eventbus.Decode[eventbus.ChunkPersisted](ev); err == nil {
			persisted = append(persisted, payload)
		}
	})
	if err != nil {
		t.Fatalf("Ошибка подписки: %v", err)
	}

	repo := NewMemoryRiverRepo()
	p := NewPersister(repo, bus)

	batch := []*world.ChunkRiverData{sampleChunk(1, 2), world.NewChunkRiverData(3, 4)}
	if err := p.PersistAll(ctx, batch); err != nil {
		t.Fatalf("Ошибка сохранения: %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Fatalf("Ошибка закрытия шины: %v", err)
	}

	stats := p.Stats()
	if stats.Saved != 1 || stats.Skipped != 1 || stats.Bytes == 0 {
		t.Errorf("Неверная статистика: %+v", stats)
	}
	if repo.Count() != 1 {
		t.Errorf("В хранилище ожидался 1 чанк, найдено %d", repo.Count())
	}
	if len(persisted) != 1 || persisted[0].Backend != "memory" || int64(persisted[0].Bytes) != stats.Bytes {
		t.Errorf("Неверные события сохранения: %+v", persisted)
	}
}
