package realtime_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boardsync/internal/board"
	"boardsync/internal/model"
	"boardsync/internal/realtime"
)

const testReloadDelay = 30 * time.Millisecond

type fakeLoader struct {
	mu    sync.Mutex
	snap  board.Snapshot
	calls int
}

func (f *fakeLoader) LoadBoard(ctx context.Context, boardID uuid.UUID) (board.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.snap, nil
}

func (f *fakeLoader) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSuppressor struct {
	mu  sync.Mutex
	ids map[uuid.UUID]bool
}

func (f *fakeSuppressor) Suppress(recordID uuid.UUID, _ time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ids[recordID] {
		delete(f.ids, recordID)
		return true
	}
	return false
}

type fakeObserver struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeObserver) CardChanged(b model.Board, before, after model.Card) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
}

func (f *fakeObserver) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type listenerFixture struct {
	rdb      *redis.Client
	boardID  uuid.UUID
	store    *board.Store
	loader   *fakeLoader
	echoes   *fakeSuppressor
	observer *fakeObserver
	sub      *realtime.Subscription

	todo model.Column
	done model.Column
	c1   model.Card
}

func newListenerFixture(t *testing.T) *listenerFixture {
	t.Helper()

	m, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)

	rdb := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { rdb.Close() })

	f := &listenerFixture{
		rdb:      rdb,
		boardID:  uuid.New(),
		echoes:   &fakeSuppressor{ids: make(map[uuid.UUID]bool)},
		observer: &fakeObserver{},
	}
	f.todo = model.Column{ID: uuid.New(), BoardID: f.boardID, Title: "Todo", Position: 0}
	f.done = model.Column{ID: uuid.New(), BoardID: f.boardID, Title: "Done", Position: 1, MapsToStatus: model.StatusDone}
	f.c1 = model.Card{ID: uuid.New(), ColumnID: f.todo.ID, Title: "first", Position: 0, Status: model.StatusTodo}

	snap := board.Snapshot{
		Board:   model.Board{ID: f.boardID, Title: "live board"},
		Columns: []model.Column{f.todo, f.done},
		Cards:   []model.Card{f.c1},
	}
	f.store = board.NewStore()
	require.NoError(t, f.store.Replace(snap))
	f.loader = &fakeLoader{snap: snap}

	reloader := realtime.NewReloader(f.boardID, f.loader, f.store, testReloadDelay, nil)
	listener := realtime.NewListener(rdb, f.boardID, f.store, f.echoes, reloader, f.observer)

	sub, err := listener.Subscribe(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { sub.Close() })
	f.sub = sub
	return f
}

func (f *listenerFixture) publishCard(t *testing.T, kind realtime.EventKind, card model.Card, ts time.Time) {
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
	require.NoError(t, f.rdb.Publish(context.Background(), realtime.ChannelFor(f.boardID), payload).Err())
}

func TestListener_AppliesCardUpdateInPlace(t *testing.T) {
	f := newListenerFixture(t)

	remote := f.c1
	remote.Title = "renamed remotely"
	remote.Status = model.StatusInProgress
	f.publishCard(t, realtime.KindUpdated, remote, time.Now())

	require.Eventually(t, func() bool {
		card, ok := f.store.Card(f.c1.ID)
		return ok && card.Title == "renamed remotely"
	}, time.Second, 5*time.Millisecond)

	card, _ := f.store.Card(f.c1.ID)
	assert.Equal(t, model.StatusInProgress, card.Status)
	assert.Equal(t, 1, f.observer.count())
	// точечный патч не требует перезагрузки
	assert.Zero(t, f.loader.count())
}

func TestListener_AppliesRemoteMove(t *testing.T) {
	f := newListenerFixture(t)

	remote := f.c1
	remote.ColumnID = f.done.ID
	remote.Position = 0
	remote.Status = model.StatusDone
	f.publishCard(t, realtime.KindUpdated, remote, time.Now())

	require.Eventually(t, func() bool {
		card, ok := f.store.Card(f.c1.ID)
		return ok && card.ColumnID == f.done.ID
	}, time.Second, 5*time.Millisecond)

	doneIDs, _ := f.store.Sequence(f.done.ID)
	todoIDs, _ := f.store.Sequence(f.todo.ID)
	assert.Equal(t, []uuid.UUID{f.c1.ID}, doneIDs)
	assert.Empty(t, todoIDs)
	assert.Zero(t, f.loader.count())
}

func TestListener_SuppressesOwnEcho(t *testing.T) {
	f := newListenerFixture(t)
	f.echoes.mu.Lock()
	f.echoes.ids[f.c1.ID] = true
	f.echoes.mu.Unlock()

	remote := f.c1
	remote.Title = "echo of our own write"
	f.publishCard(t, realtime.KindUpdated, remote, time.Now())

	// событие должно быть проглочено: ни патча, ни перезагрузки
	time.Sleep(3 * testReloadDelay)
	card, _ := f.store.Card(f.c1.ID)
	assert.Equal(t, "first", card.Title)
	assert.Zero(t, f.loader.count())
	assert.Zero(t, f.observer.count())
}

func TestListener_DropsDuplicateDelivery(t *testing.T) {
	f := newListenerFixture(t)
	ts := time.Now()

	remote := f.c1
	remote.Status = model.StatusDone
	f.publishCard(t, realtime.KindUpdated, remote, ts)
	f.publishCard(t, realtime.KindUpdated, remote, ts)

	require.Eventually(t, func() bool {
		card, _ := f.store.Card(f.c1.ID)
		return card.Status == model.StatusDone
	}, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 1, f.observer.count())
}

func TestListener_DebouncesStructuralBurstIntoOneReload(t *testing.T) {
	f := newListenerFixture(t)

	for i := 0; i < 5; i++ {
		created := model.Card{ID: uuid.New(), ColumnID: f.todo.ID, Title: "burst", Position: i + 1}
		f.publishCard(t, realtime.KindCreated, created, time.Now().Add(time.Duration(i)*time.Millisecond))
	}

	require.Eventually(t, func() bool {
		return f.loader.count() == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(3 * testReloadDelay)

	assert.Equal(t, 1, f.loader.count())
}

// Сценарий: событие ссылается на колонку, которой нет локально
func TestListener_MoveToUnknownColumnSchedulesReload(t *testing.T) {
	f := newListenerFixture(t)

	remote := f.c1
	remote.ColumnID = uuid.New()
	remote.Position = 0
	f.publishCard(t, realtime.KindUpdated, remote, time.Now())

	require.Eventually(t, func() bool {
		return f.loader.count() == 1
	}, time.Second, 5*time.Millisecond)

	// карточка осталась на месте до перезагрузки
	card, _ := f.store.Card(f.c1.ID)
	assert.Equal(t, f.todo.ID, card.ColumnID)
}

func TestListener_UpdateForUnknownCardSchedulesReload(t *testing.T) {
	f := newListenerFixture(t)

	ghost := model.Card{ID: uuid.New(), ColumnID: f.todo.ID, Title: "ghost"}
	f.publishCard(t, realtime.KindUpdated, ghost, time.Now())

	require.Eventually(t, func() bool {
		return f.loader.count() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestListener_CloseCancelsPendingReload(t *testing.T) {
	f := newListenerFixture(t)

	created := model.Card{ID: uuid.New(), ColumnID: f.todo.ID, Title: "new"}
	f.publishCard(t, realtime.KindCreated, created, time.Now())

	// закрываемся до истечения дебаунса: перезагрузка не должна случиться
	time.Sleep(testReloadDelay / 3)
	require.NoError(t, f.sub.Close())
	time.Sleep(3 * testReloadDelay)

	assert.Zero(t, f.loader.count())
	// повторное закрытие безопасно
	assert.NoError(t, f.sub.Close())
}

func TestListener_SubscribeFailureIsTransportError(t *testing.T) {
	m, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { rdb.Close() })
	m.Close()

	store := board.NewStore()
	loader := &fakeLoader{}
	boardID := uuid.New()
	reloader := realtime.NewReloader(boardID, loader, store, testReloadDelay, nil)
	listener := realtime.NewListener(rdb, boardID, store, nil, reloader, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err = listener.Subscribe(ctx)

	var transport *realtime.TransportError
	assert.ErrorAs(t, err, &transport)
}
