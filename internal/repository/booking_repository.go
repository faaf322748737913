package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zapisly/booking-core/internal/model"
)

var ErrBookingNotFound = errors.New("booking not found")

type BookingRepository interface {
	// Создать новое бронирование (в статусе pending).
	Create(ctx context.Context, booking *model.Booking) error
	// Получить бронирование по ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	// Условный переход статуса: выполняется только если текущий статус
	// равен expected. Возвращает false, если строка уже в другом статусе —
	// это точка compare-and-swap для гонок финализации.
	UpdateStatusIfCurrent(
		ctx context.Context,
		id uuid.UUID,
		expected, next model.BookingStatus,
		fields map[string]any,
	) (bool, error)
	// Бронирования пользователя, новые первыми.
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Booking, int64, error)
}

// Реализация на GORM.
type GormBookingRepository struct {
	db *gorm.DB
}

func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

func (r *GormBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *GormBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	var b model.Booking
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *GormBookingRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	id uuid.UUID,
	expected, next model.BookingStatus,
	fields map[string]any,
) (bool, error) {
	update := map[string]any{
		"status": next,
	}
	for k, v := range fields {
		update[k] = v
	}

	res := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(update)
	if res.Error != nil {
		return false, res.Error
	}

	// RowsAffected = 0 — условие не выполнилось: либо строки нет,
	// либо статус уже сменили в параллельной финализации.
	return res.RowsAffected > 0, nil
}

func (r *GormBookingRepository) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) ([]model.Booking, int64, error) {
	var (
		bookings []model.Booking
		total    int64
	)

	q := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("user_id = ?", userID)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}

	if err := q.Order("created_at DESC").Find(&bookings).Error; err != nil {
		return nil, 0, err
	}

	return bookings, total, nil
}
