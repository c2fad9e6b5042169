package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr       string
	MongoURI       string
	MongoDatabase  string
	JWTSecret      string
	JWTIssuer      string
	AccessTokenTTL time.Duration
	GroqAPIKey     string
	GroqModel      string
	GroqBaseURL    string
	RedisAddr      string
	RedisPassword  string
	ChatMemoryTTL  time.Duration
	ChatHistory    int
	SeedUsers      bool
}

func Load() Config {
	return Config{
		HTTPAddr:       getenv("HTTP_ADDR", ":8080"),
		MongoURI:       getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:  getenv("MONGO_DATABASE", "canteen_ai"),
		JWTSecret:      getenv("JWT_SECRET", "dev-secret"),
		JWTIssuer:      getenv("JWT_ISSUER", "smart-canteen"),
		AccessTokenTTL: getenvDuration("ACCESS_TOKEN_TTL", 12*time.Hour),
		GroqAPIKey:     getenv("GROQ_API_KEY", ""),
		GroqModel:      getenv("GROQ_MODEL", "llama-3.1-8b-instant"),
		GroqBaseURL:    getenv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		RedisAddr:      getenv("REDIS_ADDR", ""),
		RedisPassword:  getenv("REDIS_PASSWORD", ""),
		ChatMemoryTTL:  getenvDuration("CHAT_MEMORY_TTL", 30*time.Minute),
		ChatHistory:    getenvInt("CHAT_HISTORY_TURNS", 10),
		SeedUsers:      getenvBool("SEED_USERS", true),
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}
