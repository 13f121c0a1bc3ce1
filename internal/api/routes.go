// internal/api/routes.go
package api

import (
	"todohub/internal/api/handlers"
	"todohub/internal/api/middleware"
	"todohub/internal/cache"
	"todohub/internal/platform"
	"todohub/internal/ratelimit"
	"todohub/internal/stats"
	"todohub/internal/sync"
	"todohub/internal/team"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func SetupRouter(engines *sync.Manager, teams *team.Service, statsReg *stats.Registry, pc *platform.Client, c *cache.Cache, rl *ratelimit.RateLimiter) *gin.Engine {
	router := gin.Default()
	h := handlers.NewHandler(engines, teams, statsReg, pc, c)

	router.GET("/health", h.Health)

	//Swagger Route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Everything below runs as the authenticated identity; its access token
	// is forwarded to the platform on every store call.
	api := router.Group("/api")
	api.Use(AuthMiddleware())
	{
		tasks := api.Group("/tasks")
		{
			tasks.GET("", h.ListTasks)
			tasks.POST("/reload", h.ReloadTasks)
			tasks.DELETE("/edit", h.CancelEdit)

			mutate := tasks.Group("")
			mutate.Use(middleware.TaskMutationRateLimit(rl))
			{
				mutate.POST("", h.CreateTask)
				mutate.POST("/:id/toggle", h.ToggleTask)
				mutate.POST("/:id/edit", h.StartEdit)
				mutate.PUT("/:id", h.UpdateTask)
				mutate.DELETE("/:id", h.DeleteTask)
			}
		}

		teamsGroup := api.Group("/teams")
		{
			teamsGroup.GET("", h.ListTeams)
			teamsGroup.GET("/:id", h.GetTeam)
			teamsGroup.GET("/:id/invitations", h.ListInvitations)

			mutate := teamsGroup.Group("")
			mutate.Use(middleware.TeamMutationRateLimit(rl))
			{
				mutate.POST("", h.CreateTeam)
				mutate.PUT("/:id", h.UpdateTeam)
				mutate.DELETE("/:id", h.DeleteTeam)
				mutate.DELETE("/:id/members/:user_id", h.RemoveMember)
				mutate.PUT("/:id/members/:user_id/role", h.UpdateMemberRole)
				mutate.POST("/:id/invitations", h.InviteMember)
				mutate.DELETE("/:id/invitations/:invitation_id", h.DeleteInvitation)
			}

			avatar := teamsGroup.Group("")
			avatar.Use(middleware.UploadRateLimit(rl))
			{
				avatar.POST("/:id/avatar", h.UploadTeamAvatar)
			}
		}

		invitations := api.Group("/invitations")
		invitations.Use(middleware.AcceptInviteRateLimit(rl))
		{
			invitations.POST("/accept", h.AcceptInvitation)
		}

		api.GET("/stats", h.GetStats)

		profile := api.Group("/profile")
		{
			profile.GET("", h.GetProfile)
			profile.PUT("", h.UpdateProfile)

			upload := profile.Group("")
			upload.Use(middleware.UploadRateLimit(rl))
			{
				upload.POST("/avatar", h.UploadAvatar)
			}
		}

		api.GET("/preferences/darkmode", h.GetDarkMode)
		api.PUT("/preferences/darkmode", h.SetDarkMode)

		api.POST("/session/signout", h.SignOut)
	}

	return router
}
