package eventbus

import (
	"context"

	"github.com/annel0/rivergen/internal/logging"
)

var globalBus EventBus

// Init устанавливает глобальную шину.
func Init(bus EventBus) { globalBus = bus }

// Publish отправляет событие в глобальную шину, если она инициализирована.
func Publish(ctx context.Context, ev *Envelope) error {
	if globalBus == nil {
		return nil
	}
	return globalBus.Publish(ctx, ev)
}

// Emit упаковывает и публикует событие в bus. Ошибки только логируются:
// события служат для наблюдения и не должны прерывать генерацию.
func Emit(ctx context.Context, bus EventBus, eventType string, priority int, payload any) {
	if bus == nil {
		bus = globalBus
	}
	if bus == nil {
		return
	}

	ev, err := NewEnvelope(eventType, priority, payload)
	if err != nil {
		logging.Warn("EventBus: %v", err)
		return
	}
	if err := bus.Publish(ctx, ev); err != nil {
		logging.Warn("EventBus: не удалось опубликовать %s: %v", eventType, err)
	}
}
