package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"boardsync/internal/model"
)

type EventKind string

const (
	KindCreated EventKind = "created"
	KindUpdated EventKind = "updated"
	KindDeleted EventKind = "deleted"
)

type EventTable string

const (
	TableCard   EventTable = "card"
	TableColumn EventTable = "column"
)

// Envelope is the wire shape of a change-feed message.
type Envelope struct {
	Kind           EventKind       `json:"kind"`
	Table          EventTable      `json:"table"`
	Record         json.RawMessage `json:"record"`
	PreviousRecord json.RawMessage `json:"previous_record,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
}

// Event is the validated, typed form of an envelope. Exactly one of the
// Card/Column pairs is populated, depending on Table.
type Event struct {
	Kind      EventKind
	Table     EventTable
	Timestamp time.Time

	Card     *model.Card
	PrevCard *model.Card

	Column     *model.Column
	PrevColumn *model.Column
}

// DecodeEvent validates a raw change-feed payload at the boundary and
// produces a typed event. Unknown kinds or tables are rejected here so the
// rest of the pipeline only ever sees well-formed events.
func DecodeEvent(payload []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Event{}, fmt.Errorf("malformed change event: %w", err)
	}

	switch env.Kind {
	case KindCreated, KindUpdated, KindDeleted:
	default:
		return Event{}, fmt.Errorf("unknown event kind %q", env.Kind)
	}

	ev := Event{Kind: env.Kind, Table: env.Table, Timestamp: env.Timestamp}
	switch env.Table {
	case TableCard:
		ev.Card = new(model.Card)
		if err := json.Unmarshal(env.Record, ev.Card); err != nil {
			return Event{}, fmt.Errorf("malformed card record: %w", err)
		}
		if len(env.PreviousRecord) > 0 {
			ev.PrevCard = new(model.Card)
			if err := json.Unmarshal(env.PreviousRecord, ev.PrevCard); err != nil {
				return Event{}, fmt.Errorf("malformed previous card record: %w", err)
			}
		}
	case TableColumn:
		ev.Column = new(model.Column)
		if err := json.Unmarshal(env.Record, ev.Column); err != nil {
			return Event{}, fmt.Errorf("malformed column record: %w", err)
		}
		if len(env.PreviousRecord) > 0 {
			ev.PrevColumn = new(model.Column)
			if err := json.Unmarshal(env.PreviousRecord, ev.PrevColumn); err != nil {
				return Event{}, fmt.Errorf("malformed previous column record: %w", err)
			}
		}
	default:
		return Event{}, fmt.Errorf("unknown event table %q", env.Table)
	}
	return ev, nil
}

// RecordID returns the id of the affected record.
func (e Event) RecordID() uuid.UUID {
	if e.Card != nil {
		return e.Card.ID
	}
	if e.Column != nil {
		return e.Column.ID
	}
	return uuid.Nil
}

// DedupKey identifies one delivery of one change. The transport is
// at-least-once, so consecutive identical keys mean a duplicate.
func (e Event) DedupKey() string {
	return fmt.Sprintf("%s|%s|%s|%d", e.Kind, e.Table, e.RecordID(), e.Timestamp.UnixNano())
}
