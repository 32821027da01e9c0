package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EngineConfig holds settings for the background alert engine.
type EngineConfig struct {
	Enabled bool

	// Cron expressions for the periodic jobs
	RuleCheckSchedule    string // default every 30 minutes
	PriceDropSchedule    string // default hourly
	DailyDigestSchedule  string // default daily at 09:00
	WeeklyDigestSchedule string // default Monday at 09:00

	// Timeout for a complete job tick
	TickTimeout time.Duration
	// Timeout for a single rule/user within a tick
	ItemTimeout time.Duration
	// Bounded parallelism for rule evaluation and channel sends
	Workers int

	// Policy for rules with no positive filters: "skip" or "match_all"
	DegenerateRulePolicy string

	// Cap on listings pulled per rule per tick
	ListingBatchSize int
}

type Config struct {
	// Server
	Port string
	Env  string // "development", "production"

	// Database
	DatabaseURL string

	// CORS
	AllowedOrigins []string
	FrontendURL    string

	// Engine
	Engine EngineConfig

	// Web Push Notifications
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string // mailto:email or URL

	// Chat webhook delivery
	ChatWebhookTimeout time.Duration
}

func Load() *Config {
	env := getEnv("ENV", "development")

	return &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  env,

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/dealradar?sslmode=disable"),

		// CORS
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:3000"), ","),
		FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:3000"),

		// Engine
		Engine: EngineConfig{
			Enabled:              getBoolEnv("ENGINE_ENABLED", true),
			RuleCheckSchedule:    getEnv("ENGINE_RULE_CHECK_SCHEDULE", "*/30 * * * *"),
			PriceDropSchedule:    getEnv("ENGINE_PRICE_DROP_SCHEDULE", "0 * * * *"),
			DailyDigestSchedule:  getEnv("ENGINE_DAILY_DIGEST_SCHEDULE", "0 9 * * *"),
			WeeklyDigestSchedule: getEnv("ENGINE_WEEKLY_DIGEST_SCHEDULE", "0 9 * * 1"),
			TickTimeout:          getDurationEnv("ENGINE_TICK_TIMEOUT", 10*time.Minute),
			ItemTimeout:          getDurationEnv("ENGINE_ITEM_TIMEOUT", 30*time.Second),
			Workers:              getIntEnv("ENGINE_WORKERS", 8),
			DegenerateRulePolicy: getEnv("ENGINE_DEGENERATE_RULE_POLICY", "skip"),
			ListingBatchSize:     getIntEnv("ENGINE_LISTING_BATCH_SIZE", 500),
		},

		// Web Push Notifications
		VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
		VAPIDSubject:    getEnv("VAPID_SUBJECT", "mailto:alerts@dealradar.app"),

		// Chat webhook delivery
		ChatWebhookTimeout: getDurationEnv("CHAT_WEBHOOK_TIMEOUT", 10*time.Second),
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
