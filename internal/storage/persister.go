package storage

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/annel0/rivergen/internal/eventbus"
	"github.com/annel0/rivergen/internal/logging"
	"github.com/annel0/rivergen/internal/world"
)

// Persister сохраняет результаты выборки и сообщает о записи в шину событий
type Persister struct {
	repo   RiverDataRepo
	bus    eventbus.EventBus
	logger *logging.Logger

	saved   atomic.Int64
	skipped atomic.Int64
	bytes   atomic.Int64
}

// PersisterStats - счетчики сохранения
type PersisterStats struct {
	Saved   int64 `json:"saved"`
	Skipped int64 `json:"skipped"`
	Bytes   int64 `json:"bytes"`
}

// NewPersister создает Persister; bus может быть nil
func NewPersister(repo RiverDataRepo, bus eventbus.EventBus) *Persister {
	return &Persister{
		repo:   repo,
		bus:    bus,
		logger: logging.GetStorageLogger(),
	}
}

// Persist сохраняет массивы одного чанка. Чанки без течения и вне долин пропускаются.
func (p *Persister) Persist(ctx context.Context, data *world.ChunkRiverData) error {
	n, err := p.repo.Save(ctx, data)
	if err != nil {
		return fmt.Errorf("не удалось сохранить чанк (%d, %d): %w", data.ChunkX, data.ChunkZ, err)
	}
	if n == 0 {
		p.skipped.Add(1)
		return nil
	}

	p.saved.Add(1)
	p.bytes.Add(int64(n))
	p.logger.Debug("Чанк (%d, %d) сохранен в %s: %d байт", data.ChunkX, data.ChunkZ, p.repo.Backend(), n)

	eventbus.Emit(ctx, p.bus, eventbus.TypeChunkPersisted, 3, eventbus.ChunkPersisted{
		ChunkX:  data.ChunkX,
		ChunkZ:  data.ChunkZ,
		Backend: p.repo.Backend(),
		Bytes:   n,
	})
	return nil
}

// PersistAll сохраняет чанки по очереди и останавливается на первой ошибке
func (p *Persister) PersistAll(ctx context.Context, batch []*world.ChunkRiverData) error {
	for _, data := range batch {
		if err := p.Persist(ctx, data); err != nil {
			return err
		}
	}
	p.logger.Info("💾 Сохранено чанков: %d, пропущено: %d, байт: %d (%s)",
		p.saved.Load(), p.skipped.Load(), p.bytes.Load(), p.repo.Backend())
	return nil
}

// Stats возвращает счетчики сохранения
func (p *Persister) Stats() PersisterStats {
	return PersisterStats{
		Saved:   p.saved.Load(),
		Skipped: p.skipped.Load(),
		Bytes:   p.bytes.Load(),
	}
}

// Repo возвращает хранилище
func (p *Persister) Repo() RiverDataRepo {
	return p.repo
}
