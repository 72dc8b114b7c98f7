package internal

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/dona-app/entitlement/internal/domain"
)

type Config struct {
	Env         string
	Port        int
	LogLevel    string
	DatabaseUrl string

	// ServiceToken is the shared bearer token the application backend must
	// present on every API call.
	ServiceToken string

	// Rate limiting (per account, per instance)
	RateLimitMax    int
	RateLimitWindow time.Duration

	// Maintenance worker configuration
	WorkerEnabled         bool
	WorkerInterval        time.Duration
	WorkerTaskTimeout     time.Duration
	WorkerMarkerRetention time.Duration

	// Policy overrides. Zero means "use the compiled default"; the tier
	// limit overrides accept -1 for unlimited.
	MilestoneStep   int
	MilestoneReward int

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		// Rate limit defaults are generous: this guards against runaway
		// callers, not against users
		RateLimitMax:    getEnvInt("RATE_LIMIT_MAX", 300),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", 1*time.Minute),

		// Worker defaults
		WorkerEnabled:         getEnvBool("WORKER_ENABLED", true),
		WorkerInterval:        getEnvDuration("WORKER_INTERVAL", 1*time.Hour),
		WorkerTaskTimeout:     getEnvDuration("WORKER_TASK_TIMEOUT", 1*time.Minute),
		WorkerMarkerRetention: getEnvDuration("WORKER_MARKER_RETENTION", 30*24*time.Hour),

		// Milestone defaults live in the domain policy
		MilestoneStep:   getEnvInt("MILESTONE_STEP", 0),
		MilestoneReward: getEnvInt("MILESTONE_REWARD", 0),

		// Metrics authentication
		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	// Required
	cfg.DatabaseUrl = os.Getenv("DATABASE_URL")
	if cfg.DatabaseUrl == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	cfg.ServiceToken = os.Getenv("SERVICE_TOKEN")
	if cfg.ServiceToken == "" {
		return nil, fmt.Errorf("SERVICE_TOKEN is required")
	}

	if cfg.RateLimitMax < 1 {
		return nil, fmt.Errorf("RATE_LIMIT_MAX must be at least 1, got %d", cfg.RateLimitMax)
	}
	if cfg.MilestoneStep < 0 {
		return nil, fmt.Errorf("MILESTONE_STEP must be positive, got %d", cfg.MilestoneStep)
	}
	if cfg.MilestoneReward < 0 {
		return nil, fmt.Errorf("MILESTONE_REWARD must be positive, got %d", cfg.MilestoneReward)
	}

	return cfg, nil
}

// Policy builds the entitlement policy, applying any environment overrides
// on top of the compiled defaults. Per-tier limit overrides use variables
// like FREE_STORED_COLLAGES or PREMIUM_DAILY_AI_RECOMMENDATIONS; -1 means
// unlimited.
func (c *Config) Policy() domain.Policy {
	policy := domain.DefaultPolicy()

	if c.MilestoneStep > 0 {
		policy.MilestoneStep = int64(c.MilestoneStep)
	}
	if c.MilestoneReward > 0 {
		policy.MilestoneReward = int64(c.MilestoneReward)
	}

	for tier, limits := range policy.Tiers {
		prefix := string(tier) + "_"
		limits.StoredCollages = getEnvLimit(prefix+"STORED_COLLAGES", limits.StoredCollages)
		limits.StoredPersonalMemories = getEnvLimit(prefix+"STORED_PERSONAL_MEMORIES", limits.StoredPersonalMemories)
		limits.DailyAIRecommendations = getEnvLimit(prefix+"DAILY_AI_RECOMMENDATIONS", limits.DailyAIRecommendations)
		policy.Tiers[tier] = limits
	}

	return policy
}

// getEnvLimit parses a tier limit override. Values below -1 are rejected
// and fall back to the default.
func getEnvLimit(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil && i >= domain.Unlimited {
			return i
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
