package model

import (
	"time"

	"github.com/google/uuid"
)

// Center — физическая точка приёма (медцентр, лаборатория).
// Для движка — неизменяемые справочные данные, вход для ранжирования.
type Center struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`

	Name string `gorm:"type:varchar(255);not null"`

	// Ориентир для пользователя ("рядом с метро X" и т.п.).
	AreaHint string `gorm:"type:varchar(255)"`

	City string `gorm:"type:varchar(128);not null;index"`

	// Рейтинг 0–5.
	Rating float64 `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Slots []Slot `gorm:"foreignKey:CenterID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}
