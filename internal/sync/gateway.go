package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"boardsync/internal/board"
	"boardsync/internal/model"
	"boardsync/internal/notify"
)

// RecordStore is the persistent record store collaborator. Writes are
// independent row operations keyed by stable ids, not transactions.
type RecordStore interface {
	LoadBoard(ctx context.Context, boardID uuid.UUID) (board.Snapshot, error)
	CreateCard(ctx context.Context, card *model.Card) error
	UpdateCard(ctx context.Context, card *model.Card) error
	UpdateCardPosition(ctx context.Context, cardID uuid.UUID, position int) error
	DeleteCard(ctx context.Context, cardID uuid.UUID) error
	CreateColumn(ctx context.Context, col *model.Column) error
	UpdateColumn(ctx context.Context, col *model.Column) error
	DeleteColumn(ctx context.Context, columnID uuid.UUID) error
	UpdateBoard(ctx context.Context, b *model.Board) error
}

// Reloader schedules a full board resync after a failed persist.
type Reloader interface {
	Request()
}

// Gateway is the single entry point for user-initiated board changes. Each
// operation applies an optimistic local patch, marks the pending echo and
// then persists; a failed persist schedules a full reload instead of
// attempting a local rollback, since part of a multi-row reorder may have
// already landed.
type Gateway struct {
	store    *board.Store
	records  RecordStore
	echoes   *EchoRegistry
	reloader Reloader
	observer notify.Observer
	now      func() time.Time
}

func NewGateway(store *board.Store, records RecordStore, echoes *EchoRegistry, reloader Reloader, observer notify.Observer) *Gateway {
	return &Gateway{
		store:    store,
		records:  records,
		echoes:   echoes,
		reloader: reloader,
		observer: observer,
		now:      time.Now,
	}
}

// MoveCard moves a card to destIndex of destColumnID. A move that changes
// nothing returns nil without touching the external store.
func (g *Gateway) MoveCard(ctx context.Context, cardID, sourceColumnID, destColumnID uuid.UUID, destIndex int) error {
	card, ok := g.store.Card(cardID)
	if !ok {
		return &board.ValidationError{Field: "card", Reason: "unknown card " + cardID.String()}
	}
	source, ok := g.store.Sequence(sourceColumnID)
	if !ok {
		return &board.ValidationError{Field: "column", Reason: "unknown column " + sourceColumnID.String()}
	}
	// заявленная исходная колонка обязана совпадать с фактической, иначе
	// удаление из нее ничего не удалит и карточка окажется в двух колонках
	if card.ColumnID != sourceColumnID {
		return &board.ValidationError{Field: "column", Reason: "card " + cardID.String() + " is not in column " + sourceColumnID.String()}
	}
	destColumn, ok := g.store.Column(destColumnID)
	if !ok {
		return &board.ValidationError{Field: "column", Reason: "unknown column " + destColumnID.String()}
	}

	sameColumn := sourceColumnID == destColumnID
	var dest []uuid.UUID
	if !sameColumn {
		dest, _ = g.store.Sequence(destColumnID)
		if destColumn.WIPLimit != nil && len(dest) >= *destColumn.WIPLimit {
			return &board.ValidationError{Field: "wip_limit", Reason: "column " + destColumn.Title + " is full"}
		}
	}

	plan := board.PlanMove(cardID, source, dest, sameColumn, destIndex, g.store.Positions())
	if plan.NoOp {
		return nil
	}

	touched := []uuid.UUID{cardID, sourceColumnID, destColumnID}
	for _, u := range plan.Source {
		touched = append(touched, u.CardID)
	}
	for _, u := range plan.Dest {
		touched = append(touched, u.CardID)
	}
	g.echoes.Mark(touched...)

	if err := g.store.MoveCardLocally(cardID, sourceColumnID, destColumnID, destIndex); err != nil {
		return err
	}
	g.store.ApplyPositions(plan.Source)
	g.store.ApplyPositions(plan.Dest)

	// колонка может навязывать карточкам свой статус
	var before, after model.Card
	statusChanged := false
	if st := destColumn.MapsToStatus; st != "" && st != card.Status {
		before, after, _ = g.store.PatchCard(cardID, board.CardPatch{Status: &st})
		statusChanged = true
	}
	g.store.Touch(g.now())

	moved, _ := g.store.Card(cardID)
	var errs *multierror.Error
	if err := g.records.UpdateCard(ctx, &moved); err != nil {
		errs = multierror.Append(errs, err)
	}
	for _, u := range append(append([]board.PositionUpdate(nil), plan.Source...), plan.Dest...) {
		if u.CardID == cardID {
			continue
		}
		if err := g.records.UpdateCardPosition(ctx, u.CardID, u.Position); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		g.reloader.Request()
		return &PersistenceError{Op: "move card", Err: err}
	}

	if statusChanged && g.observer != nil {
		g.observer.CardChanged(g.store.Board(), before, after)
	}
	return nil
}

// CreateCard creates a card at the tail of its target column.
func (g *Gateway) CreateCard(ctx context.Context, card model.Card) (model.Card, error) {
	col, ok := g.store.Column(card.ColumnID)
	if !ok {
		return model.Card{}, &board.ValidationError{Field: "column", Reason: "unknown column " + card.ColumnID.String()}
	}
	seq, _ := g.store.Sequence(card.ColumnID)
	if col.WIPLimit != nil && len(seq) >= *col.WIPLimit {
		return model.Card{}, &board.ValidationError{Field: "wip_limit", Reason: "column " + col.Title + " is full"}
	}

	if card.ID == uuid.Nil {
		card.ID = uuid.New()
	}
	card.Position = len(seq)
	if col.MapsToStatus != "" {
		card.Status = col.MapsToStatus
	} else if card.Status == "" {
		card.Status = model.StatusTodo
	}
	if card.Priority == "" {
		card.Priority = model.PriorityMedium
	}
	card.UpdatedAt = g.now()

	g.echoes.Mark(card.ID, card.ColumnID)
	if err := g.store.AddCard(card, card.ColumnID, card.Position); err != nil {
		return model.Card{}, err
	}
	g.store.Touch(g.now())

	if err := g.records.CreateCard(ctx, &card); err != nil {
		g.reloader.Request()
		return model.Card{}, &PersistenceError{Op: "create card", Err: err}
	}
	return card, nil
}

// UpdateCard merges the patch into the card and persists the result.
func (g *Gateway) UpdateCard(ctx context.Context, cardID uuid.UUID, patch board.CardPatch) error {
	before, after, ok := g.store.PatchCard(cardID, patch)
	if !ok {
		return &board.ValidationError{Field: "card", Reason: "unknown card " + cardID.String()}
	}

	g.echoes.Mark(cardID)
	after.UpdatedAt = g.now()
	g.store.Touch(g.now())

	if err := g.records.UpdateCard(ctx, &after); err != nil {
		g.reloader.Request()
		return &PersistenceError{Op: "update card", Err: err}
	}
	if g.observer != nil {
		g.observer.CardChanged(g.store.Board(), before, after)
	}
	return nil
}

// DeleteCard removes a card and closes the gap in its column.
func (g *Gateway) DeleteCard(ctx context.Context, cardID uuid.UUID) error {
	card, ok := g.store.Card(cardID)
	if !ok {
		return &board.ValidationError{Field: "card", Reason: "unknown card " + cardID.String()}
	}
	seq, _ := g.store.Sequence(card.ColumnID)
	remaining := make([]uuid.UUID, 0, len(seq))
	for _, id := range seq {
		if id != cardID {
			remaining = append(remaining, id)
		}
	}
	plan := board.Renumber(remaining, g.store.Positions())

	touched := []uuid.UUID{cardID, card.ColumnID}
	for _, u := range plan {
		touched = append(touched, u.CardID)
	}
	g.echoes.Mark(touched...)

	g.store.RemoveCard(cardID)
	g.store.ApplyPositions(plan)
	g.store.Touch(g.now())

	var errs *multierror.Error
	if err := g.records.DeleteCard(ctx, cardID); err != nil {
		errs = multierror.Append(errs, err)
	}
	for _, u := range plan {
		if err := g.records.UpdateCardPosition(ctx, u.CardID, u.Position); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		g.reloader.Request()
		return &PersistenceError{Op: "delete card", Err: err}
	}
	return nil
}

// CreateColumn appends a column at the right edge of the board.
func (g *Gateway) CreateColumn(ctx context.Context, col model.Column) (model.Column, error) {
	if col.ID == uuid.Nil {
		col.ID = uuid.New()
	}
	col.BoardID = g.store.Board().ID
	col.Position = len(g.store.View().Columns)

	g.echoes.Mark(col.ID)
	if err := g.store.AddColumn(col); err != nil {
		return model.Column{}, err
	}
	g.store.Touch(g.now())

	if err := g.records.CreateColumn(ctx, &col); err != nil {
		g.reloader.Request()
		return model.Column{}, &PersistenceError{Op: "create column", Err: err}
	}
	return col, nil
}

// UpdateColumn merges the patch into the column and persists the result.
func (g *Gateway) UpdateColumn(ctx context.Context, columnID uuid.UUID, patch board.ColumnPatch) error {
	if !g.store.PatchColumn(columnID, patch) {
		return &board.ValidationError{Field: "column", Reason: "unknown column " + columnID.String()}
	}

	g.echoes.Mark(columnID)
	g.store.Touch(g.now())

	updated, _ := g.store.Column(columnID)
	if err := g.records.UpdateColumn(ctx, &updated); err != nil {
		g.reloader.Request()
		return &PersistenceError{Op: "update column", Err: err}
	}
	return nil
}

// DeleteColumn removes an empty column. Deleting a column that still lists
// cards is rejected.
func (g *Gateway) DeleteColumn(ctx context.Context, columnID uuid.UUID) error {
	seq, ok := g.store.Sequence(columnID)
	if !ok {
		return &board.ValidationError{Field: "column", Reason: "unknown column " + columnID.String()}
	}
	if len(seq) > 0 {
		return &board.ValidationError{Field: "column", Reason: "column is not empty"}
	}

	g.echoes.Mark(columnID)
	g.store.RemoveColumn(columnID)
	g.store.Touch(g.now())

	if err := g.records.DeleteColumn(ctx, columnID); err != nil {
		g.reloader.Request()
		return &PersistenceError{Op: "delete column", Err: err}
	}
	return nil
}

// ReorderColumns applies a new left-to-right column order.
func (g *Gateway) ReorderColumns(ctx context.Context, orderedIDs []uuid.UUID) error {
	g.echoes.Mark(orderedIDs...)
	var updated []model.Column
	for i, id := range orderedIDs {
		pos := i
		if !g.store.PatchColumn(id, board.ColumnPatch{Position: &pos}) {
			return &board.ValidationError{Field: "column", Reason: "unknown column " + id.String()}
		}
		col, _ := g.store.Column(id)
		updated = append(updated, col)
	}
	g.store.Touch(g.now())

	var errs *multierror.Error
	for i := range updated {
		if err := g.records.UpdateColumn(ctx, &updated[i]); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		g.reloader.Request()
		return &PersistenceError{Op: "reorder columns", Err: err}
	}
	return nil
}

// RenameBoard updates the board title.
func (g *Gateway) RenameBoard(ctx context.Context, title string) error {
	g.store.RenameBoard(title)
	g.store.Touch(g.now())

	b := g.store.Board()
	if err := g.records.UpdateBoard(ctx, &b); err != nil {
		g.reloader.Request()
		return &PersistenceError{Op: "rename board", Err: err}
	}
	return nil
}
