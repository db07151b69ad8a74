package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"boardsync/internal/board"
	"boardsync/internal/model"
	"boardsync/internal/repository"
	boardsync "boardsync/internal/sync"
)

type CardHandler struct {
	boardRepo *repository.BoardRepository
	sessions  *boardsync.Manager
}

func NewCardHandler(boardRepo *repository.BoardRepository, sessions *boardsync.Manager) *CardHandler {
	return &CardHandler{boardRepo: boardRepo, sessions: sessions}
}

// CardRequest представляет запрос на создание карточки
type CardRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	ColumnID    string     `json:"column_id" binding:"required,uuid"`
	DueDate     *time.Time `json:"due_date"`
	Priority    string     `json:"priority" binding:"omitempty,oneof=low medium high"`
	Labels      []string   `json:"labels"`
}

// CardUpdateRequest перечисляет изменяемые поля карточки
type CardUpdateRequest struct {
	Title         *string     `json:"title"`
	Description   *string     `json:"description"`
	AssignedTo    *string     `json:"assigned_to"`
	DueDate       *time.Time  `json:"due_date"`
	Priority      *string     `json:"priority" binding:"omitempty,oneof=low medium high"`
	Status        *string     `json:"status" binding:"omitempty,oneof=todo in_progress review done blocked"`
	Labels        *[]string   `json:"labels"`
	AttachedFiles *[]string   `json:"attached_files"`
	Meta          *model.CardMeta `json:"meta"`
}

// CardMoveRequest представляет запрос на перемещение карточки
type CardMoveRequest struct {
	SourceColumnID string `json:"source_column_id" binding:"required,uuid"`
	DestColumnID   string `json:"dest_column_id" binding:"required,uuid"`
	DestIndex      *int   `json:"dest_index" binding:"required,min=0"`
}

// Create создает карточку в конце указанной колонки
func (h *CardHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	session, ok := h.openSession(c)
	if !ok {
		return
	}

	var req CardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	columnID, err := uuid.Parse(req.ColumnID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid column ID format"})
		return
	}

	card := model.Card{
		ColumnID:    columnID,
		Title:       req.Title,
		Description: req.Description,
		CreatedBy:   userID,
		DueDate:     req.DueDate,
		Priority:    model.CardPriority(req.Priority),
		Labels:      req.Labels,
	}
	created, err := session.Gateway.CreateCard(c.Request.Context(), card)
	if err != nil {
		respondGatewayError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// Update изменяет поля карточки
func (h *CardHandler) Update(c *gin.Context) {
	session, ok := h.openSession(c)
	if !ok {
		return
	}
	cardID, err := uuid.Parse(c.Param("card_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid card ID format"})
		return
	}

	var req CardUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	patch := board.CardPatch{
		Title:         req.Title,
		Description:   req.Description,
		DueDate:       wrap(req.DueDate),
		Labels:        req.Labels,
		AttachedFiles: req.AttachedFiles,
	}
	if req.Priority != nil {
		p := model.CardPriority(*req.Priority)
		patch.Priority = &p
	}
	if req.Status != nil {
		s := model.CardStatus(*req.Status)
		patch.Status = &s
	}
	if req.AssignedTo != nil {
		assignee, err := uuid.Parse(*req.AssignedTo)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignee ID format"})
			return
		}
		ptr := &assignee
		patch.AssignedTo = &ptr
	}
	if req.Meta != nil {
		meta := req.Meta
		patch.Meta = &meta
	}

	if err := session.Gateway.UpdateCard(c.Request.Context(), cardID, patch); err != nil {
		respondGatewayError(c, err)
		return
	}
	card, _ := session.Store.Card(cardID)
	c.JSON(http.StatusOK, card)
}

// Move перемещает карточку между колонками или внутри колонки
func (h *CardHandler) Move(c *gin.Context) {
	session, ok := h.openSession(c)
	if !ok {
		return
	}
	cardID, err := uuid.Parse(c.Param("card_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid card ID format"})
		return
	}

	var req CardMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	sourceID, err := uuid.Parse(req.SourceColumnID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid column ID format"})
		return
	}
	destID, err := uuid.Parse(req.DestColumnID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid column ID format"})
		return
	}

	if err := session.Gateway.MoveCard(c.Request.Context(), cardID, sourceID, destID, *req.DestIndex); err != nil {
		respondGatewayError(c, err)
		return
	}
	card, _ := session.Store.Card(cardID)
	c.JSON(http.StatusOK, card)
}

// Delete удаляет карточку
func (h *CardHandler) Delete(c *gin.Context) {
	session, ok := h.openSession(c)
	if !ok {
		return
	}
	cardID, err := uuid.Parse(c.Param("card_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid card ID format"})
		return
	}

	if err := session.Gateway.DeleteCard(c.Request.Context(), cardID); err != nil {
		respondGatewayError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CardHandler) openSession(c *gin.Context) (*boardsync.Session, bool) {
	boardID, ok := boardParam(c)
	if !ok {
		return nil, false
	}
	if !authorizeBoard(c, h.boardRepo, boardID) {
		return nil, false
	}
	session, err := h.sessions.Open(c.Request.Context(), boardID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Board not found"})
		return nil, false
	}
	return session, true
}

func respondGatewayError(c *gin.Context, err error) {
	var validation *board.ValidationError
	if errors.As(err, &validation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": validation.Reason})
		return
	}
	var persistence *boardsync.PersistenceError
	if errors.As(err, &persistence) {
		// оптимистичное состояние будет заменено авторитетным снимком
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not save, resynchronizing"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Operation failed"})
}

func wrap[T any](v *T) **T {
	if v == nil {
		return nil
	}
	return &v
}
