package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ExportBackendNone     = "none"
	ExportBackendSupabase = "supabase"
	ExportBackendMinio    = "minio"
)

type Config struct {
	// Gemini
	GeminiAPIKey  string
	GeminiBaseURL string
	GeminiModel   string
	GeminiTimeout time.Duration

	// Staging
	StylesFile    string
	MaxImageBytes int64

	// Auth
	JWTSecret string

	// Export
	ExportBackend string

	// Supabase
	SupabaseURL            string
	SupabasePublishableKey string
	SupabaseStorageBucket  string

	// MinIO
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// Database
	DatabaseURL string

	// Redis
	RedisAddr       string
	RedisPassword   string
	StageRateLimit  int
	StageRateWindow time.Duration

	// Server
	Port        string
	Environment string
	LogLevel    string
}

// Load reads the configuration from the environment. Values in .env.local and
// .env are applied first without overriding variables that are already set.
func Load() (*Config, error) {
	loadDotEnv(".env.local", ".env")

	cfg := &Config{
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash-image"),
		GeminiTimeout: getEnvDuration("GEMINI_TIMEOUT", 120*time.Second),

		StylesFile:    getEnv("STYLES_FILE", ""),
		MaxImageBytes: getEnvInt64("MAX_IMAGE_BYTES", 20<<20),

		JWTSecret: getEnv("JWT_SECRET", ""),

		ExportBackend: strings.ToLower(getEnv("EXPORT_BACKEND", ExportBackendNone)),

		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabasePublishableKey: getEnv("SUPABASE_PUBLISHABLE_KEY", ""),
		SupabaseStorageBucket:  getEnv("SUPABASE_STORAGE_BUCKET", "staged-images"),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "staged-images"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		StageRateLimit:  int(getEnvInt64("STAGE_RATE_LIMIT", 10)),
		StageRateWindow: getEnvDuration("STAGE_RATE_WINDOW", time.Minute),

		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the settings the server cannot start without. A missing
// Gemini key is not fatal: staging requests report it to the user instead.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.MaxImageBytes <= 0 {
		return fmt.Errorf("MAX_IMAGE_BYTES must be positive")
	}
	switch c.ExportBackend {
	case ExportBackendNone:
	case ExportBackendSupabase:
		if c.SupabaseURL == "" || c.SupabasePublishableKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_PUBLISHABLE_KEY are required for the supabase export backend")
		}
	case ExportBackendMinio:
		if c.MinioEndpoint == "" || c.MinioAccessKey == "" || c.MinioSecretKey == "" {
			return fmt.Errorf("MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required for the minio export backend")
		}
	default:
		return fmt.Errorf("unknown EXPORT_BACKEND %q", c.ExportBackend)
	}
	if c.RedisAddr != "" && (c.StageRateLimit <= 0 || c.StageRateWindow <= 0) {
		return fmt.Errorf("STAGE_RATE_LIMIT and STAGE_RATE_WINDOW must be positive when REDIS_ADDR is set")
	}
	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func loadDotEnv(files ...string) {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		_ = godotenv.Load(f)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
