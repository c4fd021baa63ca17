package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/foodlens/internal/domain"
	"github.com/timmy/foodlens/internal/logger"
	"github.com/timmy/foodlens/internal/repository"
)

// HistoryStore is the meal log surface the handler depends on.
type HistoryStore interface {
	Ready(ctx context.Context) bool
	ListRecent(ctx context.Context, limit int) ([]domain.Meal, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// HistoryHandler serves the meal history endpoints.
type HistoryHandler struct {
	meals HistoryStore
	limit int
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(meals HistoryStore, limit int) *HistoryHandler {
	if limit <= 0 {
		limit = 50
	}
	return &HistoryHandler{meals: meals, limit: limit}
}

// List handles GET /history. Database unavailability degrades to an empty
// list with a message rather than an error status.
func (h *HistoryHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	if !h.meals.Ready(ctx) {
		c.JSON(http.StatusOK, gin.H{
			"meals":   []domain.Meal{},
			"message": "Database not connected",
		})
		return
	}

	meals, err := h.meals.ListRecent(ctx, h.limit)
	if err != nil {
		logger.CtxError(ctx, "Failed to fetch meal history: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch meal history",
			"meals": []domain.Meal{},
		})
		return
	}
	if meals == nil {
		meals = []domain.Meal{}
	}

	c.JSON(http.StatusOK, gin.H{"meals": meals})
}

// Clear handles DELETE /history.
func (h *HistoryHandler) Clear(c *gin.Context) {
	ctx := c.Request.Context()

	count, err := h.meals.DeleteAll(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrUnavailable) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database not connected"})
			return
		}
		logger.CtxError(ctx, "Failed to clear meal history: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear meal history"})
		return
	}

	logger.CtxInfo(ctx, "Cleared %d meals from history", count)
	c.JSON(http.StatusOK, gin.H{
		"message":      "History cleared successfully",
		"deletedCount": count,
	})
}
