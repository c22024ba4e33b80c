package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Типы событий генератора
const (
	TypeRegionBuilt    = "RegionBuilt"
	TypeChunkSampled   = "ChunkSampled"
	TypeChunkPersisted = "ChunkPersisted"
)

// Source - имя источника событий по умолчанию
const Source = "rivergen"

const payloadVersion = 1

// RegionBuilt публикуется после построения речной сети региона
type RegionBuilt struct {
	PlateX     int   `json:"plate_x"`
	PlateZ     int   `json:"plate_z"`
	Rivers     int   `json:"rivers"`
	Nodes      int   `json:"nodes"`
	Lakes      int   `json:"lakes"`
	Segments   int   `json:"segments"`
	DurationMs int64 `json:"duration_ms"`
}

// ChunkSampled публикуется после выборки всех колонок чанка
type ChunkSampled struct {
	ChunkX        int  `json:"chunk_x"`
	ChunkZ        int  `json:"chunk_z"`
	HasFlow       bool `json:"has_flow"`
	InValleyRange bool `json:"in_valley_range"`
}

// ChunkPersisted публикуется после записи массивов чанка в хранилище
type ChunkPersisted struct {
	ChunkX  int    `json:"chunk_x"`
	ChunkZ  int    `json:"chunk_z"`
	Backend string `json:"backend"`
	Bytes   int    `json:"bytes"`
}

// NewEnvelope упаковывает полезную нагрузку в JSON и присваивает событию UUID
func NewEnvelope(eventType string, priority int, payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("не удалось сериализовать событие %s: %w", eventType, err)
	}

	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    Source,
		EventType: eventType,
		Version:   payloadVersion,
		Priority:  priority,
		Payload:   data,
	}, nil
}

// Decode разбирает полезную нагрузку события
func Decode[T any](ev *Envelope) (T, error) {
	var payload T
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		return payload, fmt.Errorf("не удалось разобрать событие %s: %w", ev.EventType, err)
	}
	return payload, nil
}
