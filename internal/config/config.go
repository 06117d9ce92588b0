package config

import (
	"os"
	"strconv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	JWTSecret  string
	ServerPort string
	CORSOrigin string

	// Engine knobs.
	SendQueueDepth      int
	IdleTimeoutSeconds  int
	VotingWindowSeconds int
	ClosingGraceSeconds int
	MaxMessageLength    int
	VoteEligibility     string
	AllowRemovedViewer  bool
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "debates"),
		JWTSecret:  getEnv("JWT_SECRET", "super-secret-key-change-me"),
		ServerPort: getEnv("SERVER_PORT", "8080"),
		CORSOrigin: getEnv("CORS_ORIGIN", "*"),

		SendQueueDepth:      getEnvInt("SEND_QUEUE_DEPTH", 64),
		IdleTimeoutSeconds:  getEnvInt("IDLE_TIMEOUT_SECONDS", 300),
		VotingWindowSeconds: getEnvInt("VOTING_WINDOW_SECONDS", 30),
		ClosingGraceSeconds: getEnvInt("CLOSING_GRACE_SECONDS", 30),
		MaxMessageLength:    getEnvInt("MAX_MESSAGE_LENGTH", 2000),
		VoteEligibility:     getEnv("VOTE_ELIGIBILITY", "viewers"),
		AllowRemovedViewer:  getEnvBool("ALLOW_REMOVED_VIEWER", false),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}
