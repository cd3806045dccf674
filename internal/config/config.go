package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Semantic layer (Gemini)
	GoogleAPIKey  string
	GeminiModelID string

	// Toxicity layer (Perspective API)
	PerspectiveAPIKey  string
	PerspectiveBaseURL string
	UseKeywordToxicity bool

	// Evaluator tuning
	EarlyTermination float64

	// Review queue
	ReviewMaxSize      int
	ReviewTTL          time.Duration
	ReviewExpireAction string

	// Ticket archive
	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool
	ArchiveEnabled bool

	// Guardian + moderator notifications
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
	SESFromName       string
	AWSRegion         string
	OpsAlertEmail     string
	GuardianMapJSON   string

	// Moderator API auth
	AdminJWTSecret string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		GoogleAPIKey:  getEnv("GOOGLE_API_KEY", ""),
		GeminiModelID: getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),

		PerspectiveAPIKey:  getEnv("PERSPECTIVE_API_KEY", ""),
		PerspectiveBaseURL: getEnv("PERSPECTIVE_BASE_URL", ""),
		UseKeywordToxicity: getEnvAsBool("USE_KEYWORD_TOXICITY", false),

		EarlyTermination: getEnvAsFloat("EARLY_TERMINATION_CONFIDENCE", 0.9),

		ReviewMaxSize:      getEnvAsInt("REVIEW_MAX_SIZE", 1000),
		ReviewTTL:          getEnvAsDuration("REVIEW_TTL", 24*time.Hour),
		ReviewExpireAction: strings.ToLower(strings.TrimSpace(getEnv("REVIEW_EXPIRE_ACTION", "block"))),

		RedisAddr:      getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),
		ArchiveEnabled: getEnvAsBool("ARCHIVE_ENABLED", false),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "auto"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Companion Safety"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESFromName:       getEnv("SES_FROM_NAME", "Companion Safety"),
		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),
		OpsAlertEmail:     getEnv("OPS_ALERT_EMAIL", ""),
		GuardianMapJSON:   getEnv("GUARDIAN_MAP_JSON", ""),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
