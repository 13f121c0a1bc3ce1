package handlers

import (
	"todohub/internal/cache"
	"todohub/internal/platform"
	"todohub/internal/stats"
	"todohub/internal/sync"
	"todohub/internal/team"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	engines  *sync.Manager
	teams    *team.Service
	stats    *stats.Registry
	platform *platform.Client
	cache    *cache.Cache
}

func NewHandler(engines *sync.Manager, teams *team.Service, statsReg *stats.Registry, pc *platform.Client, c *cache.Cache) *Handler {
	return &Handler{
		engines:  engines,
		teams:    teams,
		stats:    statsReg,
		platform: pc,
		cache:    c,
	}
}

// engineFor resolves the caller's sync engine, creating it (and its
// change-feed subscription) on first use.
func (h *Handler) engineFor(c *gin.Context) *sync.Engine {
	return h.engines.Engine(c.Request.Context(), c.GetString("user_id"), c.GetString("access_token"))
}
