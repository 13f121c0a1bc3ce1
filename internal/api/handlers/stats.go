package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetStats godoc
// @Summary Task statistics for the caller
// @Description Aggregates recomputed on every task-list change
// @Tags stats
// @Produce json
// @Success 200 {object} object{total_tasks=int,completed_tasks=int,completion_rate=int}
// @Security BearerAuth
// @Router /api/stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	// Ensure the engine (and with it the aggregator) exists for this
	// identity before reading.
	h.engineFor(c)

	agg, ok := h.stats.Get(c.GetString("user_id"))
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stats unavailable"})
		return
	}
	c.JSON(http.StatusOK, agg.Current())
}
