package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/zapisly/booking-core/internal/model"
)

// MemoryBookingRepository — детерминированная реализация для тестов.
// Семантика условного апдейта совпадает с GORM-вариантом; глобального
// состояния нет, экземпляр внедряется так же, как и продовый.
type MemoryBookingRepository struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]model.Booking
}

func NewMemoryBookingRepository() *MemoryBookingRepository {
	return &MemoryBookingRepository{
		bookings: make(map[uuid.UUID]model.Booking),
	}
}

func (r *MemoryBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	now := time.Now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now

	r.bookings[booking.ID] = *booking
	return nil
}

func (r *MemoryBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	out := b
	return &out, nil
}

func (r *MemoryBookingRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	id uuid.UUID,
	expected, next model.BookingStatus,
	fields map[string]any,
) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok || b.Status != expected {
		return false, nil
	}

	b.Status = next
	b.UpdatedAt = time.Now().UTC()

	// Интерпретируем те же имена колонок, что пишет GORM-реализация.
	for k, v := range fields {
		switch k {
		case "payment_ref":
			if ref, ok := v.(string); ok {
				b.PaymentRef = &ref
			}
		case "failure_reason":
			if reason, ok := v.(string); ok {
				b.FailureReason = reason
			}
		case "payment_payload":
			if payload, ok := v.(datatypes.JSON); ok {
				b.PaymentPayload = payload
			}
		}
	}

	r.bookings[id] = b
	return true, nil
}

func (r *MemoryBookingRepository) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) ([]model.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []model.Booking
	for _, b := range r.bookings {
		if b.UserID == userID {
			all = append(all, b)
		}
	}
	// Новые первыми, как в GORM-реализации.
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if all[j].CreatedAt.After(all[i].CreatedAt) {
				all[i], all[j] = all[j], all[i]
			}
		}
	}

	total := int64(len(all))
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}
