package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"boardsync/internal/model"
)

// ChannelFor returns the pub/sub channel carrying one board's change feed.
func ChannelFor(boardID uuid.UUID) string {
	return "board-events:" + boardID.String()
}

// Publisher emits change-feed events after successful store writes, so that
// every mirror of the board (including the writer itself) sees them.
type Publisher struct {
	rdb *redis.Client
	now func() time.Time
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb, now: time.Now}
}

func (p *Publisher) PublishCard(ctx context.Context, boardID uuid.UUID, kind EventKind, card, prev *model.Card) error {
	var prevRecord interface{}
	if prev != nil {
		prevRecord = prev
	}
	return p.publish(ctx, boardID, kind, TableCard, card, prevRecord)
}

func (p *Publisher) PublishColumn(ctx context.Context, boardID uuid.UUID, kind EventKind, col, prev *model.Column) error {
	var prevRecord interface{}
	if prev != nil {
		prevRecord = prev
	}
	return p.publish(ctx, boardID, kind, TableColumn, col, prevRecord)
}

func (p *Publisher) publish(ctx context.Context, boardID uuid.UUID, kind EventKind, table EventTable, record, prev interface{}) error {
	env := Envelope{Kind: kind, Table: table, Timestamp: p.now()}

	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	env.Record = raw

	if prev != nil {
		praw, err := json.Marshal(prev)
		if err != nil {
			return err
		}
		env.PreviousRecord = praw
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, ChannelFor(boardID), payload).Err()
}
