package board_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"boardsync/internal/board"
)

func seq(ids ...uuid.UUID) []uuid.UUID { return ids }

func positionsOf(ids []uuid.UUID) map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(ids))
	for i, id := range ids {
		out[id] = i
	}
	return out
}

func TestRenumber_AlreadyContiguous(t *testing.T) {
	c1, c2 := uuid.New(), uuid.New()
	ordered := seq(c1, c2)

	updates := board.Renumber(ordered, positionsOf(ordered))

	assert.Empty(t, updates)
}

func TestRenumber_ClosesGap(t *testing.T) {
	c1, c2, c3 := uuid.New(), uuid.New(), uuid.New()
	// c2 удалена: у c3 осталась позиция 2
	positions := map[uuid.UUID]int{c1: 0, c2: 1, c3: 2}

	updates := board.Renumber(seq(c1, c3), positions)

	assert.Equal(t, []board.PositionUpdate{{CardID: c3, Position: 1}}, updates)
}

func TestPlanMove_SameColumnToFront(t *testing.T) {
	// Arrange: две карточки в Doing
	c1, c2 := uuid.New(), uuid.New()
	column := seq(c1, c2)

	// Act: перемещаем c2 в начало
	result := board.PlanMove(c2, column, nil, true, 0, positionsOf(column))

	// Assert: две записи позиций, порядок [c2, c1]
	assert.False(t, result.NoOp)
	assert.Empty(t, result.Source)
	assert.ElementsMatch(t, []board.PositionUpdate{
		{CardID: c2, Position: 0},
		{CardID: c1, Position: 1},
	}, result.Dest)
}

func TestPlanMove_SameIndexIsNoOp(t *testing.T) {
	c1, c2 := uuid.New(), uuid.New()
	column := seq(c1, c2)

	result := board.PlanMove(c2, column, nil, true, 1, positionsOf(column))

	assert.True(t, result.NoOp)
	assert.Empty(t, result.Source)
	assert.Empty(t, result.Dest)
}

func TestPlanMove_CrossColumn(t *testing.T) {
	c1, c2, c3 := uuid.New(), uuid.New(), uuid.New()
	todo := seq(c1, c2)
	done := seq(c3)
	positions := map[uuid.UUID]int{c1: 0, c2: 1, c3: 0}

	result := board.PlanMove(c1, todo, done, false, 0, positions)

	assert.False(t, result.NoOp)
	// в исходной колонке c2 поднимается на место c1
	assert.Equal(t, []board.PositionUpdate{{CardID: c2, Position: 0}}, result.Source)
	// в целевой колонке c1 встает на 0, c3 сдвигается
	assert.ElementsMatch(t, []board.PositionUpdate{
		{CardID: c1, Position: 0},
		{CardID: c3, Position: 1},
	}, result.Dest)
}

func TestPlanMove_IndexClamped(t *testing.T) {
	c1 := uuid.New()
	c2 := uuid.New()
	todo := seq(c1)
	done := seq(c2)
	positions := map[uuid.UUID]int{c1: 0, c2: 0}

	// индекс за пределами колонки прижимается к хвосту
	result := board.PlanMove(c1, todo, done, false, 99, positions)

	assert.Equal(t, []board.PositionUpdate{{CardID: c1, Position: 1}}, result.Dest)
	assert.Empty(t, result.Source)
}

func TestPlanMove_PreservesRelativeOrder(t *testing.T) {
	c1, c2, c3, c4 := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	column := seq(c1, c2, c3, c4)

	result := board.PlanMove(c1, column, nil, true, 2, positionsOf(column))

	// итоговый порядок [c2, c3, c1, c4]: c4 не трогаем
	assert.ElementsMatch(t, []board.PositionUpdate{
		{CardID: c2, Position: 0},
		{CardID: c3, Position: 1},
		{CardID: c1, Position: 2},
	}, result.Dest)
}
