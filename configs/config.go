package configs

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort           string
	DatabaseURL          string
	RedisURL             string
	JWTSecret            string
	SessionTTL           time.Duration
	AccessCacheTTL       time.Duration
	ClickWorkers         int
	ClickQueueSize       int
	JobMaxAttempts       int
	MetadataFetchTimeout time.Duration
	EnableLiveFeed       bool
}

var AppConfig *Config

func LoadConfig() error {

	godotenv.Load()

	AppConfig = &Config{
		ServerPort:           getEnv("SERVER_PORT", "8080"),
		DatabaseURL:          getEnv("DATABASE_URL", "root:password@tcp(localhost:3306)/shortlink?charset=utf8mb4&parseTime=True&loc=Local"),
		RedisURL:             getEnv("REDIS_URL", "localhost:6379"),
		JWTSecret:            getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		SessionTTL:           parseDuration(getEnv("SESSION_TTL", "24h")),
		AccessCacheTTL:       parseDuration(getEnv("ACCESS_CACHE_TTL", "5m")),
		ClickWorkers:         parseInt(getEnv("CLICK_WORKERS", "4")),
		ClickQueueSize:       parseInt(getEnv("CLICK_QUEUE_SIZE", "1024")),
		JobMaxAttempts:       parseInt(getEnv("JOB_MAX_ATTEMPTS", "3")),
		MetadataFetchTimeout: parseDuration(getEnv("METADATA_FETCH_TIMEOUT", "5s")),
		EnableLiveFeed:       parseBool(getEnv("ENABLE_LIVE_FEED", "true")),
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false
	}
	return b
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Hour
	}
	return d
}

func init() {
	if err := LoadConfig(); err != nil {
		log.Fatal("Failed to load config:", err)
	}
}
