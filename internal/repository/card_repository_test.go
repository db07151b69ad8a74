package repository_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"boardsync/internal/repository"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		DriverName:           "postgres",
		Conn:                 db,
		PreferSimpleProtocol: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	assert.NoError(t, err)

	return gormDB, mock
}

func TestCardRepository_GetByColumnID(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	cardRepo := repository.NewCardRepository(gormDB)

	columnID := uuid.New()
	cardID := uuid.New()

	// Ожидаем выборку карточек колонки в порядке позиций
	mock.ExpectQuery(`SELECT .* FROM "cards" WHERE column_id = .* ORDER BY position`).
		WithArgs(columnID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "column_id", "title", "position", "status", "priority"}).
			AddRow(cardID.String(), columnID.String(), "first", 0, "todo", "medium"))

	// Act
	cards, err := cardRepo.GetByColumnID(context.Background(), columnID)

	// Assert
	assert.NoError(t, err)
	assert.Len(t, cards, 1)
	assert.Equal(t, cardID, cards[0].ID)
	assert.Equal(t, 0, cards[0].Position)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCardRepository_UpdatePosition(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	cardRepo := repository.NewCardRepository(gormDB)

	cardID := uuid.New()

	// Ожидаем точечное обновление позиции
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "cards" SET .*"position".*WHERE id = `).
		WithArgs(2, sqlmock.AnyArg(), cardID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// Act
	err := cardRepo.UpdatePosition(context.Background(), cardID, 2)

	// Assert
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCardRepository_UpdatePosition_NotFound(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	cardRepo := repository.NewCardRepository(gormDB)

	cardID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "cards" SET .*"position".*WHERE id = `).
		WithArgs(5, sqlmock.AnyArg(), cardID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	// Act
	err := cardRepo.UpdatePosition(context.Background(), cardID, 5)

	// Assert
	assert.ErrorIs(t, err, repository.ErrCardNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCardRepository_Delete_NotFound(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	cardRepo := repository.NewCardRepository(gormDB)

	cardID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "cards" WHERE id = `).
		WithArgs(cardID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	// Act
	err := cardRepo.Delete(context.Background(), cardID)

	// Assert
	assert.ErrorIs(t, err, repository.ErrCardNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
