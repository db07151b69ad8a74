package notify

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"boardsync/internal/model"
)

// Notification is the payload handed to the external dispatcher.
type Notification struct {
	TargetUserID uuid.UUID         `json:"target_user_id"`
	Title        string            `json:"title"`
	Message      string            `json:"message"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Dispatcher delivers notifications. Delivery guarantees are the
// dispatcher's own business; callers treat it as fire-and-forget.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

// Observer получает переходы состояния карточки (до/после патча)
type Observer interface {
	CardChanged(b model.Board, before, after model.Card)
}

// Notifier watches card transitions and requests a domain notification when
// a card's status enters a terminal value. It fires on the transition edge
// only: further patches to an already-terminal card do not re-notify.
type Notifier struct {
	dispatcher Dispatcher
	timeout    time.Duration
}

func NewNotifier(dispatcher Dispatcher) *Notifier {
	return &Notifier{dispatcher: dispatcher, timeout: 5 * time.Second}
}

func (n *Notifier) CardChanged(b model.Board, before, after model.Card) {
	if before.Status.Terminal() || !after.Status.Terminal() {
		return
	}

	target := after.CreatedBy
	if after.AssignedTo != nil {
		target = *after.AssignedTo
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()
	err := n.dispatcher.Dispatch(ctx, Notification{
		TargetUserID: target,
		Title:        "Карточка завершена",
		Message:      after.Title,
		Metadata: map[string]string{
			"board_id": b.ID.String(),
			"card_id":  after.ID.String(),
			"status":   string(after.Status),
		},
	})
	if err != nil {
		// fire-and-forget: доставка не влияет на операцию
		log.Printf("⚠️ notification dispatch failed for card %s: %v", after.ID, err)
	}
}
