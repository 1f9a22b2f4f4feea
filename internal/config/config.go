package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every runtime setting, loaded from the environment with an
// optional .env file on top.
type Config struct {
	Addr          string
	ValkeyAddr    string
	ValkeyPass    string
	RedisURL      string // asynq backing store; defaults to the valkey address
	JWTSecret     string
	TokenTTL      time.Duration
	AllowedOrigin string
}

// Load reads .env if present, then the process environment.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Addr:          getEnv("ADDR", ":8080"),
		ValkeyAddr:    getEnv("VALKEY_ADDR", "127.0.0.1:6379"),
		ValkeyPass:    os.Getenv("VALKEY_PASSWORD"),
		JWTSecret:     getEnv("JWT_SECRET", "dev-secret-change-me"),
		TokenTTL:      24 * time.Hour,
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "*"),
	}

	if v := os.Getenv("TOKEN_TTL_HOURS"); v != "" {
		if h, err := strconv.Atoi(v); err == nil && h > 0 {
			cfg.TokenTTL = time.Duration(h) * time.Hour
		}
	}

	cfg.RedisURL = getEnv("REDIS_URL", "redis://"+cfg.ValkeyAddr)
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
