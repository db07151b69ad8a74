package sync

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"boardsync/internal/board"
	"boardsync/internal/notify"
	"boardsync/internal/realtime"
)

// Session owns one open board: its in-memory state, the mutation gateway
// and the live change-feed subscription. Exactly one session exists per
// board id; Close releases the subscription and cancels pending reload
// timers deterministically.
type Session struct {
	BoardID uuid.UUID
	Store   *board.Store
	Gateway *Gateway

	reloader *realtime.Reloader
	sub      *realtime.Subscription
}

func (s *Session) Close() error {
	if s.sub != nil {
		return s.sub.Close()
	}
	s.reloader.Close()
	return nil
}

// Manager opens and tracks board sessions.
type Manager struct {
	rdb      *redis.Client
	records  RecordStore
	observer notify.Observer

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

func NewManager(rdb *redis.Client, records RecordStore, observer notify.Observer) *Manager {
	return &Manager{
		rdb:      rdb,
		records:  records,
		observer: observer,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Open loads the board snapshot, installs it and subscribes to the change
// feed. Уже открытая доска возвращается как есть.
func (m *Manager) Open(ctx context.Context, boardID uuid.UUID) (*Session, error) {
	m.mu.Lock()
	if s, ok := m.sessions[boardID]; ok {
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	snap, err := m.records.LoadBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}

	store := board.NewStore()
	if err := store.Replace(snap); err != nil {
		return nil, err
	}

	echoes := NewEchoRegistry()
	reloader := realtime.NewReloader(boardID, m.records, store, realtime.DefaultReloadDelay, nil)
	gateway := NewGateway(store, m.records, echoes, reloader, m.observer)

	listener := realtime.NewListener(m.rdb, boardID, store, echoes, reloader, m.observer)
	sub, err := listener.Subscribe(ctx)
	if err != nil {
		reloader.Close()
		return nil, err
	}

	session := &Session{
		BoardID:  boardID,
		Store:    store,
		Gateway:  gateway,
		reloader: reloader,
		sub:      sub,
	}

	m.mu.Lock()
	if existing, ok := m.sessions[boardID]; ok {
		// проиграли гонку открытия; новая сессия не нужна
		m.mu.Unlock()
		session.Close()
		return existing, nil
	}
	m.sessions[boardID] = session
	m.mu.Unlock()
	return session, nil
}

// Get returns the open session for a board, if any.
func (m *Manager) Get(boardID uuid.UUID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[boardID]
	return s, ok
}

// Close tears down the board's session.
func (m *Manager) Close(boardID uuid.UUID) error {
	m.mu.Lock()
	s, ok := m.sessions[boardID]
	delete(m.sessions, boardID)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return s.Close()
}

// CloseAll tears down every open session, e.g. on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[uuid.UUID]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
