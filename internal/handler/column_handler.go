package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"boardsync/internal/board"
	"boardsync/internal/model"
	"boardsync/internal/repository"
	boardsync "boardsync/internal/sync"
)

type ColumnHandler struct {
	boardRepo *repository.BoardRepository
	sessions  *boardsync.Manager
}

func NewColumnHandler(boardRepo *repository.BoardRepository, sessions *boardsync.Manager) *ColumnHandler {
	return &ColumnHandler{boardRepo: boardRepo, sessions: sessions}
}

// ColumnRequest представляет запрос на создание колонки
type ColumnRequest struct {
	Title        string `json:"title" binding:"required"`
	WIPLimit     *int   `json:"wip_limit" binding:"omitempty,min=1"`
	Color        string `json:"color"`
	MapsToStatus string `json:"maps_to_status" binding:"omitempty,oneof=todo in_progress review done blocked"`
}

// ColumnUpdateRequest перечисляет изменяемые поля колонки
type ColumnUpdateRequest struct {
	Title        *string `json:"title"`
	WIPLimit     *int    `json:"wip_limit" binding:"omitempty,min=1"`
	Color        *string `json:"color"`
	MapsToStatus *string `json:"maps_to_status" binding:"omitempty,oneof=todo in_progress review done blocked"`
}

// ColumnReorderRequest задает новый порядок колонок слева направо
type ColumnReorderRequest struct {
	ColumnIDs []string `json:"column_ids" binding:"required,min=1,dive,uuid"`
}

// Create добавляет колонку справа
func (h *ColumnHandler) Create(c *gin.Context) {
	session, ok := h.openSession(c)
	if !ok {
		return
	}

	var req ColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	col := model.Column{
		Title:        req.Title,
		WIPLimit:     req.WIPLimit,
		Color:        req.Color,
		MapsToStatus: model.CardStatus(req.MapsToStatus),
	}
	created, err := session.Gateway.CreateColumn(c.Request.Context(), col)
	if err != nil {
		respondGatewayError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// Update изменяет поля колонки
func (h *ColumnHandler) Update(c *gin.Context) {
	session, ok := h.openSession(c)
	if !ok {
		return
	}
	columnID, err := uuid.Parse(c.Param("column_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid column ID format"})
		return
	}

	var req ColumnUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	patch := board.ColumnPatch{
		Title: req.Title,
		Color: req.Color,
	}
	if req.WIPLimit != nil {
		limit := req.WIPLimit
		patch.WIPLimit = &limit
	}
	if req.MapsToStatus != nil {
		st := model.CardStatus(*req.MapsToStatus)
		patch.MapsToStatus = &st
	}

	if err := session.Gateway.UpdateColumn(c.Request.Context(), columnID, patch); err != nil {
		respondGatewayError(c, err)
		return
	}
	col, _ := session.Store.Column(columnID)
	c.JSON(http.StatusOK, col)
}

// Delete удаляет пустую колонку
func (h *ColumnHandler) Delete(c *gin.Context) {
	session, ok := h.openSession(c)
	if !ok {
		return
	}
	columnID, err := uuid.Parse(c.Param("column_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid column ID format"})
		return
	}

	if err := session.Gateway.DeleteColumn(c.Request.Context(), columnID); err != nil {
		respondGatewayError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Reorder применяет новый порядок колонок
func (h *ColumnHandler) Reorder(c *gin.Context) {
	session, ok := h.openSession(c)
	if !ok {
		return
	}

	var req ColumnReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	ids := make([]uuid.UUID, 0, len(req.ColumnIDs))
	for _, raw := range req.ColumnIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid column ID format"})
			return
		}
		ids = append(ids, id)
	}

	if err := session.Gateway.ReorderColumns(c.Request.Context(), ids); err != nil {
		respondGatewayError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.Store.View().Columns)
}

func (h *ColumnHandler) openSession(c *gin.Context) (*boardsync.Session, bool) {
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
