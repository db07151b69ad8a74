package notify_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boardsync/internal/model"
	"boardsync/internal/notify"
)

type fakeDispatcher struct {
	sent []notify.Notification
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, n notify.Notification) error {
	f.sent = append(f.sent, n)
	return nil
}

func cardPair(before, after model.CardStatus) (model.Card, model.Card) {
	card := model.Card{
		ID:        uuid.New(),
		Title:     "ship the release",
		CreatedBy: uuid.New(),
		Status:    before,
	}
	changed := card
	changed.Status = after
	return card, changed
}

func TestNotifier_FiresOnTerminalEdge(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	notifier := notify.NewNotifier(dispatcher)
	b := model.Board{ID: uuid.New(), Title: "release board"}
	before, after := cardPair(model.StatusReview, model.StatusDone)

	notifier.CardChanged(b, before, after)

	require.Len(t, dispatcher.sent, 1)
	n := dispatcher.sent[0]
	assert.Equal(t, before.CreatedBy, n.TargetUserID)
	assert.Equal(t, "ship the release", n.Message)
	assert.Equal(t, b.ID.String(), n.Metadata["board_id"])
	assert.Equal(t, after.ID.String(), n.Metadata["card_id"])
}

func TestNotifier_PrefersAssignee(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	notifier := notify.NewNotifier(dispatcher)
	before, after := cardPair(model.StatusInProgress, model.StatusDone)
	assignee := uuid.New()
	after.AssignedTo = &assignee

	notifier.CardChanged(model.Board{ID: uuid.New()}, before, after)

	require.Len(t, dispatcher.sent, 1)
	assert.Equal(t, assignee, dispatcher.sent[0].TargetUserID)
}

func TestNotifier_DoesNotRefireOnAlreadyTerminalCard(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	notifier := notify.NewNotifier(dispatcher)
	b := model.Board{ID: uuid.New()}

	before, after := cardPair(model.StatusTodo, model.StatusDone)
	notifier.CardChanged(b, before, after)

	// несвязанный патч той же, уже завершенной карточки
	renamed := after
	renamed.Title = "renamed"
	notifier.CardChanged(b, after, renamed)

	assert.Len(t, dispatcher.sent, 1)
}

func TestNotifier_IgnoresNonTerminalTransitions(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	notifier := notify.NewNotifier(dispatcher)
	b := model.Board{ID: uuid.New()}

	before, after := cardPair(model.StatusTodo, model.StatusInProgress)
	notifier.CardChanged(b, before, after)

	backward, reopened := cardPair(model.StatusDone, model.StatusTodo)
	notifier.CardChanged(b, backward, reopened)

	assert.Empty(t, dispatcher.sent)
}
