package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zapisly/booking-core/internal/model"
)

var ErrCenterNotFound = errors.New("center not found")

type CenterRepository interface {
	// Центры города. Read-only вход для ранжирования.
	ListByCity(ctx context.Context, city string) ([]model.Center, error)
	// Найти центр по ID (отображаемые данные для нотификаций).
	GetByID(ctx context.Context, id uuid.UUID) (*model.Center, error)
	// Создать центр (наполнение каталога, тесты).
	Create(ctx context.Context, center *model.Center) error
}

type GormCenterRepository struct {
	db *gorm.DB
}

func NewGormCenterRepository(db *gorm.DB) *GormCenterRepository {
	return &GormCenterRepository{db: db}
}

func (r *GormCenterRepository) ListByCity(ctx context.Context, city string) ([]model.Center, error) {
	var centers []model.Center
	if err := r.db.WithContext(ctx).
		Where("city = ?", city).
		Order("name ASC").
		Find(&centers).Error; err != nil {
		return nil, err
	}
	return centers, nil
}

func (r *GormCenterRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Center, error) {
	var center model.Center
	if err := r.db.WithContext(ctx).First(&center, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCenterNotFound
		}
		return nil, err
	}
	return &center, nil
}

func (r *GormCenterRepository) Create(ctx context.Context, center *model.Center) error {
	return r.db.WithContext(ctx).Create(center).Error
}
