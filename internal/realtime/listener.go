package realtime

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/atomic"

	"boardsync/internal/board"
	"boardsync/internal/notify"
)

// EchoSuppressor answers whether an incoming event is the echo of a write
// this client just issued. Consuming a marker clears it.
type EchoSuppressor interface {
	Suppress(recordID uuid.UUID, eventTime time.Time) bool
}

// Listener reconciles one board's in-memory state with its change feed.
// Events that can be mapped to a pure card patch are applied in place; a
// structural change or anything ambiguous schedules a debounced full reload.
type Listener struct {
	rdb      *redis.Client
	boardID  uuid.UUID
	store    *board.Store
	echoes   EchoSuppressor
	reloader *Reloader
	observer notify.Observer

	// lastKey отсеивает повторную доставку одного и того же события
	lastKey string
}

func NewListener(rdb *redis.Client, boardID uuid.UUID, store *board.Store, echoes EchoSuppressor, reloader *Reloader, observer notify.Observer) *Listener {
	return &Listener{
		rdb:      rdb,
		boardID:  boardID,
		store:    store,
		echoes:   echoes,
		reloader: reloader,
		observer: observer,
	}
}

// Subscription is the scoped handle for one active board subscription.
// Close releases the pubsub channel and cancels pending reload timers;
// it is safe to call more than once.
type Subscription struct {
	pubsub   *redis.PubSub
	cancel   context.CancelFunc
	reloader *Reloader
	closed   *atomic.Bool
	done     chan struct{}
}

// Subscribe opens the board's change feed and starts processing events.
// A subscription failure is returned to the caller; retrying is the
// caller's resubscription policy, not ours.
func (l *Listener) Subscribe(ctx context.Context) (*Subscription, error) {
	pubsub := l.rdb.Subscribe(ctx, ChannelFor(l.boardID))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, &TransportError{Op: "subscribe", Err: err}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	sub := &Subscription{
		pubsub:   pubsub,
		cancel:   cancel,
		reloader: l.reloader,
		closed:   atomic.NewBool(false),
		done:     make(chan struct{}),
	}
	go l.run(runCtx, pubsub.Channel(), sub.done)
	return sub, nil
}

func (s *Subscription) Close() error {
	if !s.closed.CAS(false, true) {
		return nil
	}
	s.cancel()
	err := s.pubsub.Close()
	s.reloader.Close()
	<-s.done
	return err
}

func (l *Listener) run(ctx context.Context, ch <-chan *redis.Message, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			l.handle([]byte(msg.Payload))
		}
	}
}

func (l *Listener) handle(payload []byte) {
	ev, err := DecodeEvent(payload)
	if err != nil {
		// событие невозможно отобразить в патч — перечитываем доску
		log.Printf("⚠️ board %s: %v, scheduling reload", l.boardID, err)
		l.reloader.Request()
		return
	}

	key := ev.DedupKey()
	if key == l.lastKey {
		return
	}
	l.lastKey = key

	if l.echoes != nil && l.echoes.Suppress(ev.RecordID(), ev.Timestamp) {
		// собственная запись уже применена оптимистично
		return
	}

	if ev.Table == TableCard && ev.Kind == KindUpdated {
		l.applyCardUpdate(ev)
		return
	}

	// создание/удаление и любые изменения колонок структурны:
	// меняем latency на корректность и перечитываем доску целиком
	l.reloader.Request()
}

func (l *Listener) applyCardUpdate(ev Event) {
	remote := ev.Card
	local, ok := l.store.Card(remote.ID)
	if !ok {
		log.Printf("⚠️ board %s: update for unknown card %s, scheduling reload", l.boardID, remote.ID)
		l.reloader.Request()
		return
	}

	if remote.ColumnID != local.ColumnID || remote.Position != local.Position {
		if _, ok := l.store.Column(remote.ColumnID); !ok {
			log.Printf("⚠️ board %s: card %s moved to unknown column %s, scheduling reload", l.boardID, remote.ID, remote.ColumnID)
			l.reloader.Request()
			return
		}
		if err := l.store.MoveCardLocally(remote.ID, local.ColumnID, remote.ColumnID, remote.Position); err != nil {
			log.Printf("⚠️ board %s: %v, scheduling reload", l.boardID, err)
			l.reloader.Request()
			return
		}
		l.store.ApplyPositions([]board.PositionUpdate{{CardID: remote.ID, Position: remote.Position}})
	}

	// запись из хранилища авторитетна: переносим все поля
	before, after, ok := l.store.PatchCard(remote.ID, board.CardPatch{
		Title:         &remote.Title,
		Description:   &remote.Description,
		AssignedTo:    &remote.AssignedTo,
		DueDate:       &remote.DueDate,
		Priority:      &remote.Priority,
		Status:        &remote.Status,
		Labels:        &remote.Labels,
		AttachedFiles: &remote.AttachedFiles,
		Meta:          &remote.Meta,
	})
	if !ok {
		return
	}
	l.store.Touch(ev.Timestamp)
	if l.observer != nil {
		l.observer.CardChanged(l.store.Board(), before, after)
	}
}
