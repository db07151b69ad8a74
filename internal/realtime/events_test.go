package realtime_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boardsync/internal/model"
	"boardsync/internal/realtime"
)

func cardEnvelope(t *testing.T, kind realtime.EventKind, card model.Card, ts time.Time) []byte {
	t.Helper()
	record, err := json.Marshal(card)
	require.NoError(t, err)
	payload, err := json.Marshal(realtime.Envelope{
		Kind:      kind,
		Table:     realtime.TableCard,
		Record:    record,
		Timestamp: ts,
	})
	require.NoError(t, err)
	return payload
}

func TestDecodeEvent_CardUpdate(t *testing.T) {
	card := model.Card{ID: uuid.New(), ColumnID: uuid.New(), Title: "hello", Status: model.StatusReview}
	ts := time.Now().UTC()

	ev, err := realtime.DecodeEvent(cardEnvelope(t, realtime.KindUpdated, card, ts))

	require.NoError(t, err)
	assert.Equal(t, realtime.KindUpdated, ev.Kind)
	assert.Equal(t, realtime.TableCard, ev.Table)
	require.NotNil(t, ev.Card)
	assert.Equal(t, card.ID, ev.Card.ID)
	assert.Equal(t, model.StatusReview, ev.Card.Status)
	assert.Nil(t, ev.Column)
	assert.Equal(t, card.ID, ev.RecordID())
}

func TestDecodeEvent_ColumnWithPrevious(t *testing.T) {
	col := model.Column{ID: uuid.New(), Title: "Doing", Position: 1}
	prev := col
	prev.Title = "WIP"

	record, _ := json.Marshal(col)
	prevRecord, _ := json.Marshal(prev)
	payload, _ := json.Marshal(realtime.Envelope{
		Kind:           realtime.KindUpdated,
		Table:          realtime.TableColumn,
		Record:         record,
		PreviousRecord: prevRecord,
		Timestamp:      time.Now(),
	})

	ev, err := realtime.DecodeEvent(payload)

	require.NoError(t, err)
	require.NotNil(t, ev.Column)
	require.NotNil(t, ev.PrevColumn)
	assert.Equal(t, "Doing", ev.Column.Title)
	assert.Equal(t, "WIP", ev.PrevColumn.Title)
}

func TestDecodeEvent_RejectsUnknownKind(t *testing.T) {
	payload := []byte(`{"kind":"upserted","table":"card","record":{}}`)

	_, err := realtime.DecodeEvent(payload)

	assert.Error(t, err)
}

func TestDecodeEvent_RejectsUnknownTable(t *testing.T) {
	payload := []byte(`{"kind":"updated","table":"swimlane","record":{}}`)

	_, err := realtime.DecodeEvent(payload)

	assert.Error(t, err)
}

func TestDecodeEvent_RejectsMalformedPayload(t *testing.T) {
	_, err := realtime.DecodeEvent([]byte(`{"kind":`))

	assert.Error(t, err)
}

func TestDedupKey_IdenticalDeliveriesMatch(t *testing.T) {
	card := model.Card{ID: uuid.New()}
	ts := time.Now()
	payload := cardEnvelope(t, realtime.KindUpdated, card, ts)

	first, err := realtime.DecodeEvent(payload)
	require.NoError(t, err)
	second, err := realtime.DecodeEvent(payload)
	require.NoError(t, err)

	assert.Equal(t, first.DedupKey(), second.DedupKey())

	later, err := realtime.DecodeEvent(cardEnvelope(t, realtime.KindUpdated, card, ts.Add(time.Millisecond)))
	require.NoError(t, err)
	assert.NotEqual(t, first.DedupKey(), later.DedupKey())
}
