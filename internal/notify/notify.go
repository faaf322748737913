// Пакет notify — исходящие уведомления о подтверждённой брони.
// Доставка best-effort и полностью отвязана от финализации: сбой канала
// логируется и никогда не откатывает CONFIRMED.
package notify

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ConfirmationEvent — одно событие «бронь подтверждена».
type ConfirmationEvent struct {
	BookingID uuid.UUID `json:"booking_id"`
	UserID    uuid.UUID `json:"user_id"`

	CenterName   string    `json:"center_name"`
	ServiceID    uuid.UUID `json:"service_id"`
	SlotStartsAt time.Time `json:"slot_starts_at"`

	// Сумма в минорных единицах валюты.
	Amount int64 `json:"amount"`

	// SLA выдачи результатов, в часах.
	TurnaroundHours int `json:"turnaround_hours"`

	// Памятка по подготовке к приёму.
	Instructions string `json:"instructions"`
}

// Dispatcher отправляет событие в каналы доставки (SMS/WhatsApp/почта).
// Ошибку вызывающий не получает: fire-and-forget по контракту.
type Dispatcher interface {
	Dispatch(ctx context.Context, event ConfirmationEvent)
}

// LogDispatcher — деградация для окружений без брокера: только лог.
type LogDispatcher struct{}

func (LogDispatcher) Dispatch(ctx context.Context, event ConfirmationEvent) {
	log.Printf("[notify] booking %s confirmed for user %s (no broker configured)", event.BookingID, event.UserID)
}

// MemoryDispatcher — записывающий фейк для тестов.
type MemoryDispatcher struct {
	mu     sync.Mutex
	events []ConfirmationEvent
}

func NewMemoryDispatcher() *MemoryDispatcher {
	return &MemoryDispatcher{}
}

func (d *MemoryDispatcher) Dispatch(ctx context.Context, event ConfirmationEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
}

func (d *MemoryDispatcher) Events() []ConfirmationEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]ConfirmationEvent, len(d.events))
	copy(out, d.events)
	return out
}
