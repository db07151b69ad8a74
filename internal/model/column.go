package model

import (
	"github.com/google/uuid"
)

type Column struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BoardID  uuid.UUID `gorm:"type:uuid;not null;index" json:"board_id"`
	Title    string    `gorm:"not null" json:"title"`
	Position int       `gorm:"not null" json:"position"`
	WIPLimit *int      `json:"wip_limit,omitempty"`
	Color    string    `json:"color,omitempty"`
	// MapsToStatus задает статус, который получают карточки при попадании в колонку
	MapsToStatus CardStatus `json:"maps_to_status,omitempty"`

	Board Board `gorm:"foreignKey:BoardID" json:"-"`
}
