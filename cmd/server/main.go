// cmd/server/main.go
package main

import (
	"context"
	"fmt"

	_ "todohub/docs"
	"todohub/internal/api"
	"todohub/internal/auth"
	"todohub/internal/cache"
	"todohub/internal/config"
	"todohub/internal/mailer"
	"todohub/internal/platform"
	"todohub/internal/ratelimit"
	"todohub/internal/stats"
	"todohub/internal/sync"
	"todohub/internal/team"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// @title           todohub API
// @version         1.0
// @description     Task list and team collaboration API over a hosted backend platform

// @BasePath  /

// @securityDefinitions.apikey  BearerAuth
// @in                         header
// @name                       Authorization
func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Env == "development" {
		log.SetLevel(logrus.DebugLevel)
		log.SetFormatter(&logrus.TextFormatter{})
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize JWT with config
	auth.InitJWT(cfg)

	client := platform.NewClient(cfg.Platform, log)

	fallback, err := cache.New(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("Failed to initialize fallback cache: %v", err)
	}
	defer fallback.Close()

	rateLimiter, err := ratelimit.NewRateLimiter(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("Failed to initialize rate limiter: %v", err)
	}
	defer rateLimiter.Close()

	// The stats aggregator attaches to every engine as it is created, so
	// derived values track the task list without any presentation-layer
	// involvement.
	statsReg := stats.NewRegistry()
	engines := sync.NewManager(client, fallback, feedAdapter{client}, func(ownerID string, e *sync.Engine) {
		statsReg.Add(ownerID, stats.NewAggregator(e))
	}, log)
	defer engines.Shutdown()

	var invitationMailer team.Mailer
	if m := mailer.New(cfg.Mail.SendGridKey, cfg.Mail.From, log); m != nil {
		invitationMailer = m
	}
	teams := team.NewService(client, client, invitationMailer, cfg.Server.PublicOrigin, log)

	router := api.SetupRouter(engines, teams, statsReg, client, fallback, rateLimiter)

	serverAddr := fmt.Sprintf(":%s", cfg.Server.Port)
	if cfg.Env == "development" {
		log.Infof("Server starting on http://localhost%s", serverAddr)
		log.Infof("Swagger UI available at http://localhost%s/swagger/index.html", serverAddr)
	}

	if err := router.Run(serverAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// feedAdapter narrows the platform client to the manager's Feed interface.
type feedAdapter struct {
	client *platform.Client
}

func (f feedAdapter) Subscribe(ctx context.Context, table, ownerID string, handler func(platform.ChangeEvent)) (sync.FeedSubscription, error) {
	return f.client.Subscribe(ctx, table, ownerID, handler)
}
