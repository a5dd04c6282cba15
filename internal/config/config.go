package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string

	CheckInterval time.Duration // client-style runner period
	LookBack      time.Duration // instant window backward tolerance
	LookAhead     time.Duration // instant window forward reach

	RolloverGraceMinutes   int
	ReapGraceMinutes       int // actively observed driver
	SafetyReapGraceMinutes int // skew safety net (digest/server pass)

	DigestZone string // IANA zone the digest day is framed in
	DigestCron string // cron spec for the daily digest pass

	PreviewCount int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	dbURL := getEnv("DATABASE_URL", "")
	redisURL := getEnv("REDIS_URL", "")

	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: dbURL,
		RedisURL:    redisURL,

		CheckInterval: time.Duration(getEnvInt("CHECK_INTERVAL_SECONDS", 5)) * time.Second,
		LookBack:      time.Duration(getEnvInt("LOOK_BACK_MINUTES", 2)) * time.Minute,
		LookAhead:     time.Duration(getEnvInt("LOOK_AHEAD_MINUTES", 15)) * time.Minute,

		RolloverGraceMinutes:   getEnvInt("ROLLOVER_GRACE_MINUTES", 1),
		ReapGraceMinutes:       getEnvInt("REAP_GRACE_MINUTES", 1),
		SafetyReapGraceMinutes: getEnvInt("SAFETY_REAP_GRACE_MINUTES", 120),

		DigestZone: getEnv("DIGEST_ZONE", "UTC"),
		DigestCron: getEnv("DIGEST_CRON", "0 21 * * *"),

		PreviewCount: getEnvInt("DIGEST_PREVIEW_COUNT", 3),
	}, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}
