package realtime

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"boardsync/internal/board"
)

// DefaultReloadDelay coalesces bursts of structural events into one reload.
const DefaultReloadDelay = 400 * time.Millisecond

// Loader fetches an authoritative board snapshot from the external store.
type Loader interface {
	LoadBoard(ctx context.Context, boardID uuid.UUID) (board.Snapshot, error)
}

// Reloader schedules debounced full reloads of one board. Each Request
// replaces (never stacks) the pending timer; Close cancels it. A reload is
// allowed to fail: the error is reported through onError and not retried.
type Reloader struct {
	boardID uuid.UUID
	loader  Loader
	store   *board.Store
	delay   time.Duration
	onError func(error)

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

func NewReloader(boardID uuid.UUID, loader Loader, store *board.Store, delay time.Duration, onError func(error)) *Reloader {
	if delay <= 0 {
		delay = DefaultReloadDelay
	}
	if onError == nil {
		onError = func(error) {}
	}
	return &Reloader{boardID: boardID, loader: loader, store: store, delay: delay, onError: onError}
}

// Request schedules a reload after the debounce delay, replacing any
// pending one.
func (r *Reloader) Request() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.delay, r.reload)
}

// Close cancels any pending reload. A stale reload must never overwrite the
// state of a board loaded after a switch.
func (r *Reloader) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Reloader) reload() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.timer = nil
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snap, err := r.loader.LoadBoard(ctx, r.boardID)
	if err != nil {
		log.Printf("⚠️ board %s reload failed: %v", r.boardID, err)
		r.onError(err)
		return
	}
	if err := r.store.Replace(snap); err != nil {
		log.Printf("⚠️ board %s reload produced invalid snapshot: %v", r.boardID, err)
		r.onError(err)
	}
}
