package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zapisly/booking-core/internal/model"
)

var ErrSlotNotFound = errors.New("slot not found")

// SlotRepository — читающая часть каталога плюс условные переходы статуса
// окна. Каталог может быть несвежим: движок его не инвалидирует.
type SlotRepository interface {
	// Окна города по услуге за интервал. Статусом не фильтрует —
	// исключение booked/expired делает ранжировщик.
	ListByCityServiceRange(ctx context.Context, city string, serviceID uuid.UUID, from, to time.Time) ([]model.Slot, error)
	// Найти окно по ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error)
	// Условный переход статуса окна (open→held, held→booked и т.п.).
	UpdateStatusIfCurrent(ctx context.Context, id uuid.UUID, expected, next model.SlotStatus) (bool, error)
	// Создать окно (наполнение каталога, миграции, тесты).
	Create(ctx context.Context, slot *model.Slot) error
}

type GormSlotRepository struct {
	db *gorm.DB
}

func NewGormSlotRepository(db *gorm.DB) *GormSlotRepository {
	return &GormSlotRepository{db: db}
}

func (r *GormSlotRepository) ListByCityServiceRange(
	ctx context.Context,
	city string,
	serviceID uuid.UUID,
	from, to time.Time,
) ([]model.Slot, error) {
	var slots []model.Slot
	q := r.db.WithContext(ctx).
		Model(&model.Slot{}).
		Joins("JOIN centers ON centers.id = slots.center_id").
		Where("centers.city = ?", city).
		Where("slots.starts_at >= ? AND slots.starts_at < ?", from, to)

	if serviceID != uuid.Nil {
		q = q.Where("slots.service_id = ?", serviceID)
	}

	if err := q.Order("slots.starts_at ASC").Find(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *GormSlotRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	var slot model.Slot
	if err := r.db.WithContext(ctx).First(&slot, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return &slot, nil
}

func (r *GormSlotRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	id uuid.UUID,
	expected, next model.SlotStatus,
) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Slot{}).
		Where("id = ? AND status = ?", id, expected).
		Update("status", next)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormSlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	return r.db.WithContext(ctx).Create(slot).Error
}
