package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"boardsync/internal/middleware"
	"boardsync/internal/model"
	"boardsync/internal/realtime"
	"boardsync/internal/repository"
	boardsync "boardsync/internal/sync"
)

type BoardHandler struct {
	boardRepo  *repository.BoardRepository
	columnRepo *repository.ColumnRepository
	sessions   *boardsync.Manager
}

func NewBoardHandler(boardRepo *repository.BoardRepository, columnRepo *repository.ColumnRepository, sessions *boardsync.Manager) *BoardHandler {
	return &BoardHandler{boardRepo: boardRepo, columnRepo: columnRepo, sessions: sessions}
}

// BoardRequest представляет запрос на создание или переименование доски
type BoardRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

// Create создает доску с тремя стартовыми колонками
func (h *BoardHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req BoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	board := model.Board{
		Title:       req.Title,
		Description: req.Description,
		OwnerID:     userID,
	}
	if err := h.boardRepo.Create(c.Request.Context(), &board); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create board"})
		return
	}

	defaults := []model.Column{
		{BoardID: board.ID, Title: "Todo", Position: 0, MapsToStatus: model.StatusTodo},
		{BoardID: board.ID, Title: "Doing", Position: 1, MapsToStatus: model.StatusInProgress},
		{BoardID: board.ID, Title: "Done", Position: 2, MapsToStatus: model.StatusDone},
	}
	for i := range defaults {
		if err := h.columnRepo.Create(c.Request.Context(), &defaults[i]); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create default columns"})
			return
		}
	}

	c.JSON(http.StatusCreated, gin.H{"id": board.ID, "title": board.Title})
}

// GetAll возвращает доски текущего пользователя
func (h *BoardHandler) GetAll(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	boards, err := h.boardRepo.GetByOwner(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve boards"})
		return
	}
	c.JSON(http.StatusOK, boards)
}

// GetByID открывает (или переиспользует) сессию доски и возвращает живое состояние
func (h *BoardHandler) GetByID(c *gin.Context) {
	boardID, ok := boardParam(c)
	if !ok {
		return
	}
	if !authorizeBoard(c, h.boardRepo, boardID) {
		return
	}

	session, err := h.sessions.Open(c.Request.Context(), boardID)
	if err != nil {
		if errors.Is(err, repository.ErrBoardNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Board not found"})
			return
		}
		var transport *realtime.TransportError
		if errors.As(err, &transport) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Change feed unavailable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open board"})
		return
	}

	c.JSON(http.StatusOK, session.Store.View())
}

// Update переименовывает доску
func (h *BoardHandler) Update(c *gin.Context) {
	boardID, ok := boardParam(c)
	if !ok {
		return
	}
	if !authorizeBoard(c, h.boardRepo, boardID) {
		return
	}

	var req BoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	session, err := h.sessions.Open(c.Request.Context(), boardID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Board not found"})
		return
	}
	if err := session.Gateway.RenameBoard(c.Request.Context(), req.Title); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not save, resynchronizing"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": boardID, "title": req.Title})
}

// CloseSession закрывает сессию доски и отписывается от ленты изменений
func (h *BoardHandler) CloseSession(c *gin.Context) {
	boardID, ok := boardParam(c)
	if !ok {
		return
	}
	if !authorizeBoard(c, h.boardRepo, boardID) {
		return
	}
	if err := h.sessions.Close(boardID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to close board session"})
		return
	}
	c.Status(http.StatusNoContent)
}

func currentUser(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return uuid.Nil, false
	}
	userID, ok := v.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID format"})
		return uuid.Nil, false
	}
	return userID, true
}

func boardParam(c *gin.Context) (uuid.UUID, bool) {
	boardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid board ID format"})
		return uuid.Nil, false
	}
	return boardID, true
}

// authorizeBoard проверяет, что доска существует и принадлежит пользователю
func authorizeBoard(c *gin.Context, repo *repository.BoardRepository, boardID uuid.UUID) bool {
	userID, ok := currentUser(c)
	if !ok {
		return false
	}

	b, err := repo.GetByID(c.Request.Context(), boardID)
	if err != nil {
		if errors.Is(err, repository.ErrBoardNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Board not found"})
			return false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve board"})
		return false
	}

	// Check if user is the owner of the board
	if b.OwnerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have permission to access this board"})
		return false
	}
	return true
}
