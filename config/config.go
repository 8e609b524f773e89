package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Config holds everything the service reads from the environment.
type Config struct {
	DatabaseURL    string
	Port           string
	ServiceToken   string
	AllowedOrigins []string
	LogMode        string
	Location       *time.Location

	// 0 disables the background recurring sweep.
	SweepInterval time.Duration

	RedisAddr    string
	RedisChannel string

	R2AccountID       string
	R2AccessKeyID     string
	R2AccessKeySecret string
	R2Bucket          string
}

// LoadDotEnv loads .env when present. Returns false when no file was found.
func LoadDotEnv() bool {
	return godotenv.Load() == nil
}

// Load reads the process environment and applies defaults.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL:       env("DATABASE_URL", ""),
		Port:              env("PORT", "5200"),
		ServiceToken:      env("SERVICE_TOKEN", ""),
		LogMode:           env("LOG_MODE", "development"),
		RedisAddr:         env("REDIS_ADDR", ""),
		RedisChannel:      env("REDIS_CHANNEL", "rewards"),
		R2AccountID:       env("CLOUDFLARE_ACCOUNT_ID", ""),
		R2AccessKeyID:     env("R2_ACCESS_KEY_ID", ""),
		R2AccessKeySecret: env("R2_ACCESS_KEY_SECRET", ""),
		R2Bucket:          env("R2_BUCKET_NAME", ""),
	}

	for _, origin := range strings.Split(env("ALLOWED_ORIGINS", "http://localhost:3000"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	loc, err := time.LoadLocation(env("APP_TIMEZONE", "UTC"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}
	cfg.Location = loc

	if raw := env("RECURRING_SWEEP_INTERVAL", "0"); raw != "0" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RECURRING_SWEEP_INTERVAL: %w", err)
		}
		if d < 0 {
			return Config{}, errors.New("RECURRING_SWEEP_INTERVAL must not be negative")
		}
		cfg.SweepInterval = d
	}

	return cfg, nil
}

// RequireServe checks the settings the HTTP server cannot start without.
func (c Config) RequireServe() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL environment variable not set")
	}
	if c.ServiceToken == "" {
		return errors.New("SERVICE_TOKEN is not set, service cannot authenticate Gateway")
	}
	return nil
}

// BackupEnabled reports whether snapshots should be uploaded to R2.
func (c Config) BackupEnabled() bool {
	return c.R2Bucket != "" && c.R2AccountID != ""
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
