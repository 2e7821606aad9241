package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	Port          string
	IsProduction  bool
	EnableDBCheck bool
	JWTSecret     string
	JWTIssuer     string

	// Rate limiting, ulule/limiter formatted rate such as "100-M"
	RateLimit string
	// Browser origins allowed by CORS; empty disables cross-origin access
	CORSAllowedOrigins []string

	// Import pipeline
	RemoteTimeout         time.Duration
	TemplateMinConfidence float64
	OrphanGrace           time.Duration
	CategoryRulesPath     string

	// Google collaborators
	GeminiAPIKey       string `mapstructure:"GEMINI_API_KEY"`
	GeminiModel        string `mapstructure:"GEMINI_MODEL"`
	ArchiveBucket      string `mapstructure:"ARCHIVE_BUCKET"`
	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GmailRefreshToken  string `mapstructure:"GMAIL_REFRESH_TOKEN"`
	GmailProcessedTag  string `mapstructure:"GMAIL_PROCESSED_LABEL"`

	// Bank aggregator
	BankFeedBaseURL string `mapstructure:"BANK_FEED_BASE_URL"`
	BankFeedAPIKey  string `mapstructure:"BANK_FEED_API_KEY"`

	PosthogAPIKey   string `mapstructure:"POSTHOG_API_KEY"`
	PosthogEndpoint string `mapstructure:"POSTHOG_ENDPOINT"`
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("JWT_ISSUER", "txn-ingest")
	viper.SetDefault("RATE_LIMIT", "300-M")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "")
	viper.SetDefault("REMOTE_TIMEOUT", "30s")
	viper.SetDefault("TEMPLATE_MIN_CONFIDENCE", 0.8)
	viper.SetDefault("ORPHAN_GRACE", "1h")
	viper.SetDefault("CATEGORY_RULES_PATH", "")
	viper.SetDefault("GEMINI_API_KEY", "")
	viper.SetDefault("GEMINI_MODEL", "gemini-2.5-flash")
	viper.SetDefault("ARCHIVE_BUCKET", "")
	viper.SetDefault("GOOGLE_CLIENT_ID", "")
	viper.SetDefault("GOOGLE_CLIENT_SECRET", "")
	viper.SetDefault("GMAIL_REFRESH_TOKEN", "")
	viper.SetDefault("GMAIL_PROCESSED_LABEL", "txn-ingest-processed")
	viper.SetDefault("BANK_FEED_BASE_URL", "")
	viper.SetDefault("BANK_FEED_API_KEY", "")
	viper.SetDefault("POSTHOG_API_KEY", "")
	viper.SetDefault("POSTHOG_ENDPOINT", "")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "a-very-secret-key-should-be-longer-and-random" // !! CHANGE IN PRODUCTION !!
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")

	cfg.RemoteTimeout = durationOr("REMOTE_TIMEOUT", 30*time.Second)
	cfg.OrphanGrace = durationOr("ORPHAN_GRACE", time.Hour)

	cfg.TemplateMinConfidence = viper.GetFloat64("TEMPLATE_MIN_CONFIDENCE")
	if cfg.TemplateMinConfidence <= 0 || cfg.TemplateMinConfidence > 1 {
		log.Printf("Warning: Invalid value for TEMPLATE_MIN_CONFIDENCE (%v). Defaulting to 0.8.\n", cfg.TemplateMinConfidence)
		cfg.TemplateMinConfidence = 0.8
	}

	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")
	cfg.RateLimit = viper.GetString("RATE_LIMIT")
	for _, origin := range strings.Split(viper.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}
	cfg.CategoryRulesPath = viper.GetString("CATEGORY_RULES_PATH")
	cfg.GeminiAPIKey = viper.GetString("GEMINI_API_KEY")
	cfg.GeminiModel = viper.GetString("GEMINI_MODEL")
	cfg.ArchiveBucket = viper.GetString("ARCHIVE_BUCKET")
	cfg.GoogleClientID = viper.GetString("GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = viper.GetString("GOOGLE_CLIENT_SECRET")
	cfg.GmailRefreshToken = viper.GetString("GMAIL_REFRESH_TOKEN")
	cfg.GmailProcessedTag = viper.GetString("GMAIL_PROCESSED_LABEL")
	cfg.BankFeedBaseURL = viper.GetString("BANK_FEED_BASE_URL")
	cfg.BankFeedAPIKey = viper.GetString("BANK_FEED_API_KEY")
	cfg.PosthogAPIKey = viper.GetString("POSTHOG_API_KEY")
	cfg.PosthogEndpoint = viper.GetString("POSTHOG_ENDPOINT")

	if cfg.GeminiAPIKey == "" {
		log.Println("Warning: GEMINI_API_KEY not set. PDF, image and AI category extraction are disabled.")
	}
	if cfg.GmailRefreshToken == "" {
		log.Println("Warning: GMAIL_REFRESH_TOKEN not set. Email import setups cannot be polled.")
	}
	if cfg.BankFeedBaseURL == "" {
		log.Println("Warning: BANK_FEED_BASE_URL not set. Bank import setups cannot be synced.")
	}

	return cfg, nil
}

func durationOr(key string, fallback time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, fallback)
		}
		return fallback
	}
	return d
}
