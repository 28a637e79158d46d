package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config contains all runtime settings for the frustrating chatbot service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	// FrontendURL is the CORS origin allowed to call the API, in addition
	// to *.vercel.app preview deployments.
	FrontendURL string

	AIProvider     string
	OpenAIKey      string
	AnthropicKey   string
	OpenAIModel    string
	AnthropicModel string

	SessionTimeout time.Duration
	SweepInterval  time.Duration

	TypingDelayMin  time.Duration
	TypingDelayMax  time.Duration
	TransferPause   time.Duration
	HoldDelayMin    time.Duration
	HoldDelayMax    time.Duration
	PatternPause    time.Duration
	ProviderTimeout time.Duration

	// DatabaseURL enables the postgres transcript archive when set.
	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8000"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "centralino"),
		FrontendURL:      envOrDefault("FRONTEND_URL", "http://localhost:5173"),
		AIProvider:       envOrDefault("AI_PROVIDER", "auto"),
		OpenAIKey:        trimmedEnv("OPENAI_API_KEY"),
		AnthropicKey:     trimmedEnv("ANTHROPIC_API_KEY"),
		OpenAIModel:      trimmedEnv("OPENAI_MODEL"),
		AnthropicModel:   trimmedEnv("ANTHROPIC_MODEL"),
		DatabaseURL:      trimmedEnv("DATABASE_URL"),
		ShutdownTimeout:  15 * time.Second,
		SessionTimeout:   time.Hour,
		SweepInterval:    time.Minute,
		TypingDelayMin:   1 * time.Second,
		TypingDelayMax:   3 * time.Second,
		TransferPause:    1 * time.Second,
		HoldDelayMin:     15 * time.Second,
		HoldDelayMax:     45 * time.Second,
		PatternPause:     2 * time.Second,
		ProviderTimeout:  30 * time.Second,
	}

	var err error
	for _, f := range []struct {
		key string
		dst *time.Duration
	}{
		{"APP_SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout},
		{"APP_SESSION_TIMEOUT", &cfg.SessionTimeout},
		{"APP_SWEEP_INTERVAL", &cfg.SweepInterval},
		{"APP_TYPING_DELAY_MIN", &cfg.TypingDelayMin},
		{"APP_TYPING_DELAY_MAX", &cfg.TypingDelayMax},
		{"APP_TRANSFER_PAUSE", &cfg.TransferPause},
		{"APP_HOLD_DELAY_MIN", &cfg.HoldDelayMin},
		{"APP_HOLD_DELAY_MAX", &cfg.HoldDelayMax},
		{"APP_PATTERN_PAUSE", &cfg.PatternPause},
		{"APP_PROVIDER_TIMEOUT", &cfg.ProviderTimeout},
	} {
		*f.dst, err = durationFromEnv(f.key, *f.dst)
		if err != nil {
			return Config{}, err
		}
	}

	if cfg.SessionTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_TIMEOUT must be at least 5s")
	}
	if cfg.SweepInterval <= 0 {
		return Config{}, fmt.Errorf("APP_SWEEP_INTERVAL must be positive")
	}
	if cfg.TypingDelayMax < cfg.TypingDelayMin {
		return Config{}, fmt.Errorf("APP_TYPING_DELAY_MAX must not be below APP_TYPING_DELAY_MIN")
	}
	if cfg.HoldDelayMax < cfg.HoldDelayMin {
		return Config{}, fmt.Errorf("APP_HOLD_DELAY_MAX must not be below APP_HOLD_DELAY_MIN")
	}
	if cfg.ProviderTimeout <= 0 {
		return Config{}, fmt.Errorf("APP_PROVIDER_TIMEOUT must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}
