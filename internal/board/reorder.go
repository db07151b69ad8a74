package board

import "github.com/google/uuid"

// PositionUpdate is a single (card, newPosition) pair produced by a reorder plan.
type PositionUpdate struct {
	CardID   uuid.UUID
	Position int
}

// MoveResult holds the per-column update batches for one card move.
// Source and Dest are separate because they are persisted as independent
// write batches, not a single transaction.
type MoveResult struct {
	// Source closes the gap left in the source column. Empty for
	// same-column moves.
	Source []PositionUpdate
	// Dest makes room in the destination column and places the moved card.
	Dest []PositionUpdate
	// NoOp is true when the move changes nothing and no writes are needed.
	NoOp bool
}

// Renumber returns the minimal set of updates so that each card's stored
// position equals its index in the ordered sequence. Relative order is
// preserved; cards already in place produce no update.
func Renumber(ordered []uuid.UUID, positions map[uuid.UUID]int) []PositionUpdate {
	var updates []PositionUpdate
	for i, id := range ordered {
		if p, ok := positions[id]; !ok || p != i {
			updates = append(updates, PositionUpdate{CardID: id, Position: i})
		}
	}
	return updates
}

// PlanMove simulates moving cardID to toIndex of the destination sequence and
// computes the reorder batches. source and dest are the current ordered card
// id sequences of the affected columns (dest is ignored when sameColumn is
// true); positions maps card ids to their currently stored positions.
// toIndex is clamped to the destination bounds.
func PlanMove(cardID uuid.UUID, source, dest []uuid.UUID, sameColumn bool, toIndex int, positions map[uuid.UUID]int) MoveResult {
	trimmed := remove(source, cardID)

	if sameColumn {
		reordered := insert(trimmed, cardID, toIndex)
		if equal(reordered, source) {
			return MoveResult{NoOp: true}
		}
		return MoveResult{Dest: Renumber(reordered, positions)}
	}

	grown := insert(dest, cardID, toIndex)
	destUpdates := Renumber(grown, positions)
	// перемещенная карточка входит в целевую партию всегда, даже если ее
	// числовая позиция случайно не изменилась: колонка-то сменилась
	if !containsCard(destUpdates, cardID) {
		destUpdates = append(destUpdates, PositionUpdate{CardID: cardID, Position: indexOf(grown, cardID)})
	}
	return MoveResult{
		Source: Renumber(trimmed, positions),
		Dest:   destUpdates,
	}
}

func containsCard(updates []PositionUpdate, id uuid.UUID) bool {
	for _, u := range updates {
		if u.CardID == id {
			return true
		}
	}
	return false
}

func indexOf(seq []uuid.UUID, id uuid.UUID) int {
	for i, v := range seq {
		if v == id {
			return i
		}
	}
	return -1
}

func remove(seq []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(seq))
	for _, v := range seq {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func insert(seq []uuid.UUID, id uuid.UUID, index int) []uuid.UUID {
	if index < 0 {
		index = 0
	}
	if index > len(seq) {
		index = len(seq)
	}
	out := make([]uuid.UUID, 0, len(seq)+1)
	out = append(out, seq[:index]...)
	out = append(out, id)
	out = append(out, seq[index:]...)
	return out
}

func equal(a, b []uuid.UUID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
