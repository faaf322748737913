package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusFailed    BookingStatus = "failed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusExpired   BookingStatus = "expired"
)

// IsTerminal — все статусы, кроме pending, терминальные:
// возврата из них в pending нет.
func (s BookingStatus) IsTerminal() bool {
	return s != BookingStatusPending
}

// bookings — долговечная запись о бронировании.
// Переходы статусов выполняет только финализатор (и явная отмена
// через его же условный апдейт), больше никто строку не пишет.
type Booking struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index"`

	// На один слот может приходиться несколько терминальных броней
	// (expired/failed/cancelled после истечения hold'а), но не больше
	// одной confirmed — это гарантируют hold и условный апдейт статуса.
	SlotID    uuid.UUID `gorm:"type:uuid;not null;index"`
	CenterID  uuid.UUID `gorm:"type:uuid;not null;index"`
	ServiceID uuid.UUID `gorm:"type:uuid;not null;index"`

	// Сумма и комиссия в минорных единицах валюты.
	Amount int64 `gorm:"not null"`
	Fee    int64 `gorm:"not null;default:0"`

	Status BookingStatus `gorm:"type:varchar(32);not null;index"`

	// Идентификатор платежа у шлюза; заполняется при подтверждении.
	PaymentRef *string `gorm:"type:varchar(128)"`

	// Причина перехода в failed/expired.
	FailureReason string `gorm:"type:text"`

	// Сырой callback шлюза, сохранённый при подтверждении.
	PaymentPayload datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Slot   *Slot   `gorm:"foreignKey:SlotID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Center *Center `gorm:"foreignKey:CenterID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}
