// internal/config/config.go
package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Platform PlatformConfig
	Redis    RedisConfig
	Mail     MailConfig
	Env      string
}

type ServerConfig struct {
	Port string
	// PublicOrigin is used to build shareable invitation links.
	PublicOrigin string
}

type PlatformConfig struct {
	// BaseURL of the hosted backend platform (REST, RPC, storage, realtime).
	BaseURL string
	// AnonKey is sent as the apikey header on every request.
	AnonKey string
	// JWTSecret verifies access tokens issued by the platform's auth provider.
	JWTSecret string
}

type RedisConfig struct {
	URL string
}

type MailConfig struct {
	SendGridKey string
	From        string
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	config := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			PublicOrigin: getEnv("PUBLIC_ORIGIN", "http://localhost:3000"),
		},
		Platform: PlatformConfig{
			BaseURL:   getEnv("PLATFORM_URL", "http://localhost:54321"),
			AnonKey:   getEnv("PLATFORM_ANON_KEY", ""),
			JWTSecret: getEnv("PLATFORM_JWT_SECRET", ""),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},
		Mail: MailConfig{
			SendGridKey: getEnv("SENDGRID_API_KEY", ""),
			From:        getEnv("MAIL_FROM", "noreply@todohub.local"),
		},
		Env: getEnv("ENVIRONMENT", "development"),
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
