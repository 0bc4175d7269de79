package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Guide variants. The companion variant drives the script through an animal
// persona; the official variant narrates in a single neutral guide voice.
const (
	VariantCompanion = "companion"
	VariantOfficial  = "official"
)

// Provider names accepted by TEXT_PROVIDER and TTS_PROVIDER.
const (
	TextProviderGemini = "gemini"
	TextProviderOpenAI = "openai"

	TTSProviderEdge       = "edge"
	TTSProviderElevenLabs = "elevenlabs"
)

type Config struct {
	// Server
	APIPort            string
	BackendAPIKey      string // API key for /v1 routes (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *)
	RequestTimeout     time.Duration

	// Guide pipeline
	Variant           string // "companion" or "official"
	ProfilesFile      string // Optional YAML profile table replacing the built-in one
	SimpleSourceLimit int    // Characters of source text embedded in simple mode
	DetailSourceLimit int    // Characters of source text embedded in detail mode

	// Text generation
	TextProvider string
	GeminiKey    string // Read once, not validated: a missing key fails on first generation
	GeminiModel  string
	OpenAIKey    string
	OpenAIModel  string

	// Speech synthesis
	TTSProvider       string
	ElevenLabsKey     string
	ElevenLabsVoiceID string

	// Redis (async jobs, optional)
	RedisURL          string
	WorkerEnabled     bool
	MaxConcurrentJobs int
	JobTTL            time.Duration

	// Database (run log, optional)
	DatabaseURL string

	// Logging
	LogLevel string
	LogFile  string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:            getEnv("PORT", getEnv("API_PORT", "5000")),
		BackendAPIKey:      getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT", 120*time.Second),
		Variant:            strings.ToLower(getEnv("GUIDE_VARIANT", VariantCompanion)),
		ProfilesFile:       getEnv("PROFILES_FILE", ""),
		SimpleSourceLimit:  getEnvInt("SIMPLE_SOURCE_LIMIT", 1000),
		TextProvider:       strings.ToLower(getEnv("TEXT_PROVIDER", TextProviderGemini)),
		GeminiKey:          getEnv("GOOGLE_API_KEY", getEnv("GEMINI_API_KEY", "")),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-flash-latest"),
		OpenAIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:        getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		TTSProvider:        strings.ToLower(getEnv("TTS_PROVIDER", TTSProviderEdge)),
		ElevenLabsKey:      getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoiceID:  getEnv("ELEVENLABS_VOICE_ID", ""),
		RedisURL:           getEnv("REDIS_URL", ""),
		WorkerEnabled:      getEnvBool("WORKER_ENABLED", true),
		MaxConcurrentJobs:  getEnvInt("MAX_CONCURRENT_JOBS", 4),
		JobTTL:             getEnvDuration("JOB_TTL", time.Hour),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFile:            getEnv("LOG_FILE", ""),
	}

	switch cfg.Variant {
	case VariantCompanion, VariantOfficial:
	default:
		return nil, fmt.Errorf("GUIDE_VARIANT must be %q or %q, got %q", VariantCompanion, VariantOfficial, cfg.Variant)
	}

	// The official variant reads a longer slice of the source in detail mode
	detailDefault := 2000
	if cfg.Variant == VariantOfficial {
		detailDefault = 5000
	}
	cfg.DetailSourceLimit = getEnvInt("DETAIL_SOURCE_LIMIT", detailDefault)

	switch cfg.TextProvider {
	case TextProviderGemini, TextProviderOpenAI:
	default:
		return nil, fmt.Errorf("TEXT_PROVIDER must be %q or %q, got %q", TextProviderGemini, TextProviderOpenAI, cfg.TextProvider)
	}

	switch cfg.TTSProvider {
	case TTSProviderEdge, TTSProviderElevenLabs:
	default:
		return nil, fmt.Errorf("TTS_PROVIDER must be %q or %q, got %q", TTSProviderEdge, TTSProviderElevenLabs, cfg.TTSProvider)
	}

	if cfg.SimpleSourceLimit <= 0 || cfg.DetailSourceLimit <= 0 {
		return nil, fmt.Errorf("source limits must be positive (simple=%d, detail=%d)", cfg.SimpleSourceLimit, cfg.DetailSourceLimit)
	}

	if cfg.MaxConcurrentJobs <= 0 {
		cfg.MaxConcurrentJobs = 1
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
