package model

import (
	"time"

	"github.com/google/uuid"
)

// Статус бронируемого окна.
type SlotStatus string

const (
	SlotStatusOpen    SlotStatus = "open"
	SlotStatusHeld    SlotStatus = "held"
	SlotStatusBooked  SlotStatus = "booked"
	SlotStatusExpired SlotStatus = "expired"
)

// slots — бронируемые окна приёма.
// Движок каталог не порождает: только читает и переводит статусы.
type Slot struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`

	CenterID  uuid.UUID `gorm:"type:uuid;not null;index"`
	ServiceID uuid.UUID `gorm:"type:uuid;not null;index"`

	StartsAt time.Time `gorm:"type:timestamp with time zone;not null;index"`
	EndsAt   time.Time `gorm:"type:timestamp with time zone;not null"`

	// Цена в минорных единицах валюты (копейки/центы).
	Price int64 `gorm:"not null"`

	// SLA выдачи результатов, в часах.
	TurnaroundHours int `gorm:"not null;default:24"`

	Status SlotStatus `gorm:"type:varchar(32);not null;default:'open';index"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	// Навигационное поле (опционально, удобно для Preload).
	Center *Center `gorm:"foreignKey:CenterID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}
