package sync

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EchoWindow is how long a pending-echo marker stays valid. Expiry is
// explicit: if the confirming event is lost, the marker must not suppress
// future legitimate remote events on the same id forever.
const EchoWindow = 500 * time.Millisecond

// EchoRegistry is the suppression handshake between MutationGateway
// (writer) and RemoteChangeListener (reader): record ids marked here are
// writes of our own that the change feed will echo back shortly.
type EchoRegistry struct {
	mu      sync.Mutex
	pending map[uuid.UUID]time.Time
	window  time.Duration
	now     func() time.Time
}

func NewEchoRegistry() *EchoRegistry {
	return &EchoRegistry{
		pending: make(map[uuid.UUID]time.Time),
		window:  EchoWindow,
		now:     time.Now,
	}
}

// Mark registers pending-echo markers for the given record ids.
func (r *EchoRegistry) Mark(ids ...uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.sweep(now)
	for _, id := range ids {
		r.pending[id] = now
	}
}

// Suppress reports whether an event for recordID is a self-echo. The window
// is judged against the event's own timestamp, so a delayed delivery of a
// prompt echo still suppresses. A valid marker is consumed; an expired one
// is dropped and does not suppress.
func (r *EchoRegistry) Suppress(recordID uuid.UUID, eventTime time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	marked, ok := r.pending[recordID]
	if !ok {
		return false
	}
	delete(r.pending, recordID)

	ref := eventTime
	if ref.IsZero() {
		ref = r.now()
	}
	return ref.Sub(marked) <= r.window
}

func (r *EchoRegistry) sweep(now time.Time) {
	for id, marked := range r.pending {
		if now.Sub(marked) > r.window {
			delete(r.pending, id)
		}
	}
}
