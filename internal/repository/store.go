package repository

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"

	"boardsync/internal/board"
	"boardsync/internal/model"
	"boardsync/internal/realtime"
)

// Store aggregates the board/column/card repositories into the persistent
// record store contract and re-emits every successful write on the board's
// change feed, so that all connected mirrors (this instance included) see
// it. Publish failures are logged and do not fail the write.
type Store struct {
	boards  *BoardRepository
	columns *ColumnRepository
	cards   *CardRepository
	events  *realtime.Publisher

	mu          sync.Mutex
	columnBoard map[uuid.UUID]uuid.UUID
}

func NewStore(boards *BoardRepository, columns *ColumnRepository, cards *CardRepository, events *realtime.Publisher) *Store {
	return &Store{
		boards:      boards,
		columns:     columns,
		cards:       cards,
		events:      events,
		columnBoard: make(map[uuid.UUID]uuid.UUID),
	}
}

// LoadBoard fetches the full board snapshot: metadata, columns and cards.
func (s *Store) LoadBoard(ctx context.Context, boardID uuid.UUID) (board.Snapshot, error) {
	b, err := s.boards.GetByID(ctx, boardID)
	if err != nil {
		return board.Snapshot{}, err
	}
	columns, err := s.columns.GetByBoardID(ctx, boardID)
	if err != nil {
		return board.Snapshot{}, err
	}
	cards, err := s.cards.GetByBoardID(ctx, boardID)
	if err != nil {
		return board.Snapshot{}, err
	}

	s.mu.Lock()
	for _, c := range columns {
		s.columnBoard[c.ID] = boardID
	}
	s.mu.Unlock()

	return board.Snapshot{Board: *b, Columns: columns, Cards: cards}, nil
}

func (s *Store) CreateCard(ctx context.Context, card *model.Card) error {
	if err := s.cards.Create(ctx, card); err != nil {
		return err
	}
	s.publishCard(ctx, realtime.KindCreated, card, nil)
	return nil
}

func (s *Store) UpdateCard(ctx context.Context, card *model.Card) error {
	if err := s.cards.Update(ctx, card); err != nil {
		return err
	}
	s.publishCard(ctx, realtime.KindUpdated, card, nil)
	return nil
}

func (s *Store) UpdateCardPosition(ctx context.Context, cardID uuid.UUID, position int) error {
	if err := s.cards.UpdatePosition(ctx, cardID, position); err != nil {
		return err
	}
	// в ленту уходит полная запись, а не дельта
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		log.Printf("⚠️ change feed: re-read of card %s failed: %v", cardID, err)
		return nil
	}
	s.publishCard(ctx, realtime.KindUpdated, card, nil)
	return nil
}

func (s *Store) DeleteCard(ctx context.Context, cardID uuid.UUID) error {
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return err
	}
	if err := s.cards.Delete(ctx, cardID); err != nil {
		return err
	}
	s.publishCard(ctx, realtime.KindDeleted, card, nil)
	return nil
}

func (s *Store) CreateColumn(ctx context.Context, col *model.Column) error {
	if err := s.columns.Create(ctx, col); err != nil {
		return err
	}
	s.mu.Lock()
	s.columnBoard[col.ID] = col.BoardID
	s.mu.Unlock()
	s.publishColumn(ctx, realtime.KindCreated, col, nil)
	return nil
}

func (s *Store) UpdateColumn(ctx context.Context, col *model.Column) error {
	if err := s.columns.Update(ctx, col); err != nil {
		return err
	}
	s.publishColumn(ctx, realtime.KindUpdated, col, nil)
	return nil
}

func (s *Store) DeleteColumn(ctx context.Context, columnID uuid.UUID) error {
	col, err := s.columns.GetByID(ctx, columnID)
	if err != nil {
		return err
	}
	if err := s.columns.Delete(ctx, columnID); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.columnBoard, columnID)
	s.mu.Unlock()
	s.publishColumn(ctx, realtime.KindDeleted, col, nil)
	return nil
}

func (s *Store) UpdateBoard(ctx context.Context, b *model.Board) error {
	return s.boards.Update(ctx, b)
}

func (s *Store) publishCard(ctx context.Context, kind realtime.EventKind, card *model.Card, prev *model.Card) {
	if s.events == nil {
		return
	}
	boardID, ok := s.boardIDForColumn(ctx, card.ColumnID)
	if !ok {
		log.Printf("⚠️ change feed: no board for column %s, card event dropped", card.ColumnID)
		return
	}
	if err := s.events.PublishCard(ctx, boardID, kind, card, prev); err != nil {
		log.Printf("⚠️ change feed: publish card %s failed: %v", card.ID, err)
	}
}

func (s *Store) publishColumn(ctx context.Context, kind realtime.EventKind, col *model.Column, prev *model.Column) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishColumn(ctx, col.BoardID, kind, col, prev); err != nil {
		log.Printf("⚠️ change feed: publish column %s failed: %v", col.ID, err)
	}
}

func (s *Store) boardIDForColumn(ctx context.Context, columnID uuid.UUID) (uuid.UUID, bool) {
	s.mu.Lock()
	if id, ok := s.columnBoard[columnID]; ok {
		s.mu.Unlock()
		return id, true
	}
	s.mu.Unlock()

	col, err := s.columns.GetByID(ctx, columnID)
	if err != nil {
		return uuid.Nil, false
	}
	s.mu.Lock()
	s.columnBoard[columnID] = col.BoardID
	s.mu.Unlock()
	return col.BoardID, true
}
