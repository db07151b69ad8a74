package board

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"boardsync/internal/model"
)

// Snapshot is the denormalized board state as fetched from (or served to)
// the outside world. Columns are ordered by position, cards carry their
// stored column/position fields.
type Snapshot struct {
	Board   model.Board    `json:"board"`
	Columns []model.Column `json:"columns"`
	Cards   []model.Card   `json:"cards"`
}

// CardPatch перечисляет изменяемые поля карточки; nil-поле не трогается
type CardPatch struct {
	Title         *string
	Description   *string
	AssignedTo    **uuid.UUID
	DueDate       **time.Time
	Priority      *model.CardPriority
	Status        *model.CardStatus
	Labels        *[]string
	AttachedFiles *[]string
	Meta          **model.CardMeta
}

// ColumnPatch перечисляет изменяемые поля колонки
type ColumnPatch struct {
	Title        *string
	Position     *int
	WIPLimit     **int
	Color        *string
	MapsToStatus *model.CardStatus
}

type columnState struct {
	col     model.Column
	cardIDs []uuid.UUID
}

// Store holds one board's normalized in-memory state. It is the single
// owner of the board graph; MutationGateway and RemoteChangeListener are
// its only writers. All operations are synchronous and never touch the
// external store.
type Store struct {
	mu      sync.RWMutex
	loaded  bool
	board   model.Board
	columns []*columnState
	cards   map[uuid.UUID]*model.Card
}

func NewStore() *Store {
	return &Store{cards: make(map[uuid.UUID]*model.Card)}
}

// Replace installs a full snapshot, e.g. after a reload. The snapshot is
// validated first and rejected wholesale on any invariant breach. Cards are
// ordered inside their column by stored position and then renumbered so
// that position equals index.
func (s *Store) Replace(snap Snapshot) error {
	columns := make([]*columnState, 0, len(snap.Columns))
	colIndex := make(map[uuid.UUID]*columnState, len(snap.Columns))
	for _, c := range snap.Columns {
		if _, dup := colIndex[c.ID]; dup {
			return validationErr("columns", "duplicate column id %s", c.ID)
		}
		st := &columnState{col: c}
		columns = append(columns, st)
		colIndex[c.ID] = st
	}
	sort.SliceStable(columns, func(i, j int) bool {
		return columns[i].col.Position < columns[j].col.Position
	})

	cards := make(map[uuid.UUID]*model.Card, len(snap.Cards))
	ordered := append([]model.Card(nil), snap.Cards...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Position < ordered[j].Position
	})
	for i := range ordered {
		card := ordered[i]
		if _, dup := cards[card.ID]; dup {
			return validationErr("cards", "duplicate card id %s", card.ID)
		}
		owner, ok := colIndex[card.ColumnID]
		if !ok {
			return validationErr("cards", "card %s references unknown column %s", card.ID, card.ColumnID)
		}
		card.Position = len(owner.cardIDs)
		owner.cardIDs = append(owner.cardIDs, card.ID)
		cards[card.ID] = &card
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.board = snap.Board
	s.columns = columns
	s.cards = cards
	s.loaded = true
	return nil
}

// PatchCard merges non-nil fields into an existing card and returns the
// before/after values for transition observers. A missing card is a warning
// no-op: the event that produced the patch may simply be stale.
func (s *Store) PatchCard(cardID uuid.UUID, patch CardPatch) (before, after model.Card, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	card, exists := s.cards[cardID]
	if !exists {
		log.Printf("⚠️ patch for unknown card %s ignored", cardID)
		return model.Card{}, model.Card{}, false
	}
	before = *card

	if patch.Title != nil {
		card.Title = *patch.Title
	}
	if patch.Description != nil {
		card.Description = *patch.Description
	}
	if patch.AssignedTo != nil {
		card.AssignedTo = *patch.AssignedTo
	}
	if patch.DueDate != nil {
		card.DueDate = *patch.DueDate
	}
	if patch.Priority != nil {
		card.Priority = *patch.Priority
	}
	if patch.Status != nil {
		card.Status = *patch.Status
	}
	if patch.Labels != nil {
		card.Labels = *patch.Labels
	}
	if patch.AttachedFiles != nil {
		card.AttachedFiles = *patch.AttachedFiles
	}
	if patch.Meta != nil {
		card.Meta = *patch.Meta
	}
	return before, *card, true
}

// MoveCardLocally removes the card id from the source column sequence and
// inserts it at toIndex in the destination, updating the card's ColumnID.
// Position fields are NOT renumbered here; callers apply a reorder plan
// via ApplyPositions.
func (s *Store) MoveCardLocally(cardID, fromColumnID, toColumnID uuid.UUID, toIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	card, exists := s.cards[cardID]
	if !exists {
		return validationErr("card", "unknown card %s", cardID)
	}
	from := s.columnLocked(fromColumnID)
	to := s.columnLocked(toColumnID)
	if from == nil || to == nil {
		return validationErr("column", "move %s references unknown column", cardID)
	}

	from.cardIDs = remove(from.cardIDs, cardID)
	if fromColumnID == toColumnID {
		to = from
	}
	to.cardIDs = insert(to.cardIDs, cardID, toIndex)
	card.ColumnID = toColumnID
	return nil
}

// ApplyPositions writes a reorder plan's position values onto the cards.
func (s *Store) ApplyPositions(updates []PositionUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range updates {
		if card, ok := s.cards[u.CardID]; ok {
			card.Position = u.Position
		}
	}
}

// AddCard inserts a card into columnID at index (clamped).
func (s *Store) AddCard(card model.Card, columnID uuid.UUID, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.cards[card.ID]; dup {
		return validationErr("card", "duplicate card id %s", card.ID)
	}
	col := s.columnLocked(columnID)
	if col == nil {
		return validationErr("column", "unknown column %s", columnID)
	}
	col.cardIDs = insert(col.cardIDs, card.ID, index)
	card.ColumnID = columnID
	s.cards[card.ID] = &card
	return nil
}

// RemoveCard deletes the card and its sequence entry. Returns the removed
// card; a missing id is a warning no-op.
func (s *Store) RemoveCard(cardID uuid.UUID) (model.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	card, exists := s.cards[cardID]
	if !exists {
		log.Printf("⚠️ remove for unknown card %s ignored", cardID)
		return model.Card{}, false
	}
	if col := s.columnLocked(card.ColumnID); col != nil {
		col.cardIDs = remove(col.cardIDs, cardID)
	}
	delete(s.cards, cardID)
	return *card, true
}

func (s *Store) AddColumn(col model.Column) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.columnLocked(col.ID) != nil {
		return validationErr("column", "duplicate column id %s", col.ID)
	}
	s.columns = append(s.columns, &columnState{col: col})
	sort.SliceStable(s.columns, func(i, j int) bool {
		return s.columns[i].col.Position < s.columns[j].col.Position
	})
	return nil
}

func (s *Store) PatchColumn(columnID uuid.UUID, patch ColumnPatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.columnLocked(columnID)
	if col == nil {
		log.Printf("⚠️ patch for unknown column %s ignored", columnID)
		return false
	}
	if patch.Title != nil {
		col.col.Title = *patch.Title
	}
	if patch.Position != nil {
		col.col.Position = *patch.Position
		sort.SliceStable(s.columns, func(i, j int) bool {
			return s.columns[i].col.Position < s.columns[j].col.Position
		})
	}
	if patch.WIPLimit != nil {
		col.col.WIPLimit = *patch.WIPLimit
	}
	if patch.Color != nil {
		col.col.Color = *patch.Color
	}
	if patch.MapsToStatus != nil {
		col.col.MapsToStatus = *patch.MapsToStatus
	}
	return true
}

// RemoveColumn drops the column together with the cards it lists.
func (s *Store) RemoveColumn(columnID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, st := range s.columns {
		if st.col.ID == columnID {
			for _, id := range st.cardIDs {
				delete(s.cards, id)
			}
			s.columns = append(s.columns[:i], s.columns[i+1:]...)
			return true
		}
	}
	log.Printf("⚠️ remove for unknown column %s ignored", columnID)
	return false
}

// RenameBoard updates the board title.
func (s *Store) RenameBoard(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.board.Title = title
}

// Touch updates the board's last-modified timestamp.
func (s *Store) Touch(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.board.UpdatedAt = t
}

// Loaded reports whether a snapshot has been installed.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

func (s *Store) Board() model.Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.board
}

// Card returns a copy of the card, if present.
func (s *Store) Card(cardID uuid.UUID) (model.Card, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if card, ok := s.cards[cardID]; ok {
		return *card, true
	}
	return model.Card{}, false
}

// Column returns a copy of the column, if present.
func (s *Store) Column(columnID uuid.UUID) (model.Column, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if col := s.columnLocked(columnID); col != nil {
		return col.col, true
	}
	return model.Column{}, false
}

// Sequence returns a copy of a column's ordered card id sequence.
func (s *Store) Sequence(columnID uuid.UUID) ([]uuid.UUID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col := s.columnLocked(columnID)
	if col == nil {
		return nil, false
	}
	return append([]uuid.UUID(nil), col.cardIDs...), true
}

// Positions returns the stored positions of all cards on the board.
func (s *Store) Positions() map[uuid.UUID]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uuid.UUID]int, len(s.cards))
	for id, card := range s.cards {
		out[id] = card.Position
	}
	return out
}

// View produces a denormalized copy of the whole board for serving.
func (s *Store) View() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{Board: s.board}
	for _, st := range s.columns {
		snap.Columns = append(snap.Columns, st.col)
		for _, id := range st.cardIDs {
			if card, ok := s.cards[id]; ok {
				snap.Cards = append(snap.Cards, *card)
			}
		}
	}
	return snap
}

func (s *Store) columnLocked(columnID uuid.UUID) *columnState {
	for _, st := range s.columns {
		if st.col.ID == columnID {
			return st
		}
	}
	return nil
}
