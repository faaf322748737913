// Пакет reservation превращает «выбрал слот» в гонко-безопасную бронь:
// один неистёкший hold на слот, снять может только владелец.
package reservation

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/zapisly/booking-core/internal/hold"
	"github.com/zapisly/booking-core/internal/model"
)

// Результат захвата hold'а. Conflict — ожидаемый бизнес-исход,
// не ошибка: вызывающий показывает «слот уже занят» и просит выбрать
// другой, автоматических ретраев нет.
type AcquireResult int

const (
	Acquired AcquireResult = iota
	Conflict
)

// Результат снятия hold'а.
type ReleaseResult int

const (
	Released ReleaseResult = iota
	// Hold принадлежит другому бронированию. Для вызывающего — no-op,
	// в журнал пишется аномалия.
	NotOwner
	NotFound
)

// SlotStatusStore — условный переход статуса окна в каталоге.
// Реализуется repository.GormSlotRepository.
type SlotStatusStore interface {
	UpdateStatusIfCurrent(ctx context.Context, id uuid.UUID, expected, next model.SlotStatus) (bool, error)
}

// Manager — единственный компонент, пишущий записи Hold Store.
type Manager struct {
	holds hold.Store
	slots SlotStatusStore
	ttl   time.Duration
}

const DefaultTTL = 10 * time.Minute

func NewManager(holds hold.Store, slots SlotStatusStore, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{holds: holds, slots: slots, ttl: ttl}
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Acquire атомарно захватывает hold на слот под bookingID.
// Ровно один SetIfAbsent: раздельный check-then-set заново открыл бы
// гонку, которую этот метод закрывает.
func (m *Manager) Acquire(ctx context.Context, slotID, bookingID uuid.UUID) (AcquireResult, error) {
	ok, err := m.holds.SetIfAbsent(ctx, slotID.String(), bookingID.String(), m.ttl)
	if err != nil {
		return Conflict, err
	}
	if !ok {
		return Conflict, nil
	}

	// Зеркалим hold в статус окна для витрины. Сугубо индикативно:
	// взаимное исключение обеспечивает только Hold Store.
	if m.slots != nil {
		if _, err := m.slots.UpdateStatusIfCurrent(ctx, slotID, model.SlotStatusOpen, model.SlotStatusHeld); err != nil {
			log.Printf("[reservation] mirror slot %s to held: %v", slotID, err)
		}
	}

	return Acquired, nil
}

// Release снимает hold, если им владеет bookingID.
// Чужая или запоздавшая попытка не трогает активный hold другой стороны.
func (m *Manager) Release(ctx context.Context, slotID, bookingID uuid.UUID) (ReleaseResult, error) {
	ok, err := m.holds.DeleteIfValueEquals(ctx, slotID.String(), bookingID.String())
	if err != nil {
		return NotFound, err
	}
	if ok {
		if m.slots != nil {
			if _, err := m.slots.UpdateStatusIfCurrent(ctx, slotID, model.SlotStatusHeld, model.SlotStatusOpen); err != nil {
				log.Printf("[reservation] mirror slot %s to open: %v", slotID, err)
			}
		}
		return Released, nil
	}

	// Разбираем, кого именно не оказалось.
	owner, err := m.holds.Get(ctx, slotID.String())
	if err == hold.ErrNotFound {
		return NotFound, nil
	}
	if err != nil {
		return NotFound, err
	}
	log.Printf("[reservation] release anomaly: slot %s held by %s, release attempted by %s", slotID, owner, bookingID)
	return NotOwner, nil
}

// Owns — принадлежит ли текущий hold слота данному бронированию.
func (m *Manager) Owns(ctx context.Context, slotID, bookingID uuid.UUID) (bool, error) {
	v, err := m.holds.Get(ctx, slotID.String())
	if err == hold.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == bookingID.String(), nil
}
