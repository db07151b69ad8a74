package model

import (
	"time"

	"github.com/google/uuid"
)

type CardStatus string

const (
	StatusTodo       CardStatus = "todo"
	StatusInProgress CardStatus = "in_progress"
	StatusReview     CardStatus = "review"
	StatusDone       CardStatus = "done"
	StatusBlocked    CardStatus = "blocked"
)

// Terminal reports whether the status is final for notification purposes.
func (s CardStatus) Terminal() bool {
	return s == StatusDone
}

type CardPriority string

const (
	PriorityLow    CardPriority = "low"
	PriorityMedium CardPriority = "medium"
	PriorityHigh   CardPriority = "high"
)

// CardMeta хранит свободные метаданные карточки (прогресс, оценки времени)
type CardMeta struct {
	Progress      int `json:"progress,omitempty"`
	EstimateHours int `json:"estimate_hours,omitempty"`
	SpentHours    int `json:"spent_hours,omitempty"`
}

type Card struct {
	ID          uuid.UUID    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ColumnID    uuid.UUID    `gorm:"type:uuid;not null;index" json:"column_id"`
	Title       string       `gorm:"not null" json:"title"`
	Description string       `json:"description,omitempty"`
	AssignedTo  *uuid.UUID   `gorm:"type:uuid" json:"assigned_to,omitempty"`
	CreatedBy   uuid.UUID    `gorm:"type:uuid;not null" json:"created_by"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	Priority    CardPriority `gorm:"not null;default:'medium'" json:"priority"`
	Status      CardStatus   `gorm:"not null;default:'todo'" json:"status"`
	Position    int          `gorm:"not null" json:"position"`
	Labels      []string     `gorm:"serializer:json" json:"labels,omitempty"`
	// AttachedFiles содержит только ссылки; загрузкой занимается внешнее хранилище
	AttachedFiles []string  `gorm:"serializer:json" json:"attached_files,omitempty"`
	Meta          *CardMeta `gorm:"serializer:json" json:"meta,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`

	Column   Column `gorm:"foreignKey:ColumnID" json:"-"`
	Assignee User   `gorm:"foreignKey:AssignedTo" json:"-"`
	Creator  User   `gorm:"foreignKey:CreatedBy" json:"-"`
}
