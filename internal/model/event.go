package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Тип события аудита.
type EventType string

const (
	EventTypeBookingCreated   EventType = "booking_created"
	EventTypeBookingConfirmed EventType = "booking_confirmed"
	EventTypeBookingFailed    EventType = "booking_failed"
	EventTypeBookingCancelled EventType = "booking_cancelled"
	EventTypeBookingExpired   EventType = "booking_expired"
	// Чужая или дублирующая попытка снять hold; для вызывающего no-op.
	EventTypeHoldReleaseAnomaly EventType = "hold_release_anomaly"
)

// events — события аудита жизненного цикла бронирования.
type Event struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`

	EventType EventType `gorm:"type:varchar(64);not null;index"`

	CreatedAt time.Time `gorm:"not null;default:now();index"`

	BookingID *uuid.UUID `gorm:"type:uuid;index"`
	SlotID    *uuid.UUID `gorm:"type:uuid;index"`

	Details datatypes.JSON `gorm:"type:jsonb"`
}
