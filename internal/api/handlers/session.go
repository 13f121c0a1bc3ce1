package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SignOut godoc
// @Summary Tear down the caller's session state
// @Description Drops the sync engine, its change-feed subscription and the stats aggregator
// @Tags session
// @Produce json
// @Success 200 {object} object{message=string}
// @Security BearerAuth
// @Router /api/session/signout [post]
func (h *Handler) SignOut(c *gin.Context) {
	userID := c.GetString("user_id")
	h.engines.Drop(userID)
	h.stats.Drop(userID)
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}
