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

	// Scheduling
	SchedulePath       string
	BufferMinutes      int
	MaxSlotResults     int
	AllowBufferAtClose bool
	Timezone           string

	// Clinic knowledge / RAG
	KnowledgePath  string
	RAGTopK        int
	EmbeddingModel string

	// LLM providers
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string
	LLMTimeout   time.Duration

	// Conversation history
	RedisAddr     string
	RedisPassword string
	HistoryTTL    time.Duration
	DefaultDoctor string
	ClinicPhone   string

	CORSAllowedOrigins []string

	// Chat endpoint rate limiting; ChatRateLimit <= 0 disables it.
	ChatRateLimit float64
	ChatRateBurst int

	WidgetJSPath string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		SchedulePath:       getEnv("SCHEDULE_DATA_PATH", "./data/doctor_schedule.json"),
		BufferMinutes:      getEnvAsInt("BUFFER_MINUTES", 15),
		MaxSlotResults:     getEnvAsInt("MAX_SLOT_RESULTS", 5),
		AllowBufferAtClose: getEnvAsBool("ALLOW_BUFFER_AT_CLOSE", true),
		Timezone:           getEnv("TIMEZONE", "Asia/Kolkata"),

		KnowledgePath:  getEnv("FAQ_DATA_PATH", "./data/clinic_info.json"),
		RAGTopK:        getEnvAsInt("RAG_TOP_K", 3),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("LLM_MODEL", "gemini-2.5-flash"),
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		LLMTimeout:   getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		HistoryTTL:    getEnvAsDuration("HISTORY_TTL", 24*time.Hour),
		DefaultDoctor: getEnv("DEFAULT_DOCTOR", "Dr. Sarah Johnson"),
		ClinicPhone:   getEnv("CLINIC_PHONE", "+91 9897761393"),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
			"http://127.0.0.1:5173",
			"http://127.0.0.1:3000",
		}),

		ChatRateLimit: getEnvAsFloat("CHAT_RATE_LIMIT", 5),
		ChatRateBurst: getEnvAsInt("CHAT_RATE_BURST", 10),

		WidgetJSPath: getEnv("WIDGET_JS_PATH", "./web/widget.js"),
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
