package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/NotYourBr0/GTD-backend/words"
	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	Environment    string
	AllowedOrigins []string
	LogLevel       string
	PostgresURL    string
	RedisAddr      string
	RedisChannel   string
	RoomIdleTTL    time.Duration
	RoundTime      time.Duration
	WordDifficulty words.Difficulty
	WordCategory   string
}

func (c Config) Production() bool {
	return c.Environment == "production"
}

// Load reads the process environment, after filling it from the given
// .env files when they exist. Variables already set win over the files.
func Load(files ...string) (Config, error) {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Config{
		Port:           getEnv("PORT", "3001"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		AllowedOrigins: splitList(getEnv("CORS_ORIGIN", "http://localhost:3000,http://localhost:5173")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		PostgresURL:    getEnv("POSTGRES_URL", ""),
		RedisAddr:      strings.TrimPrefix(getEnv("REDIS_ADDR", ""), "redis://"),
		RedisChannel:   getEnv("REDIS_CHANNEL", "gtd:rooms"),
	}

	var err error
	if cfg.RoomIdleTTL, err = getDuration("ROOM_IDLE_TTL", time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.RoundTime, err = getDuration("ROUND_TIME", 60*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.RoundTime <= 0 {
		return Config{}, fmt.Errorf("ROUND_TIME must be positive, got %s", cfg.RoundTime)
	}
	if cfg.WordDifficulty, err = words.ParseDifficulty(getEnv("WORD_DIFFICULTY", string(words.Mixed))); err != nil {
		return Config{}, err
	}
	if cfg.WordCategory, err = words.ParseCategory(getEnv("WORD_CATEGORY", words.AllCategories)); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
