package config

import (
	"os"

	"github.com/joho/godotenv"
)

// loadDotEnv loads a .env file from the working directory and then from the
// config directory. Existing environment variables are never overwritten.
func loadDotEnv() {
	_ = godotenv.Load()
	if dir, err := ConfigDir(); err == nil {
		_ = godotenv.Load(dir + string(os.PathSeparator) + ".env")
	}
}

// applyEnvOverrides lets secrets and endpoints live outside the config file
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("X_BEARER_TOKEN"); v != "" {
		c.Platform.BearerToken = v
	}

	// Provider-specific keys only apply to their provider; GEMINI_API_KEY wins
	// over GOOGLE_API_KEY.
	switch c.Analysis.Provider {
	case ProviderGemini:
		if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
			c.Analysis.APIKey = v
		}
		if v := os.Getenv("GEMINI_API_KEY"); v != "" {
			c.Analysis.APIKey = v
		}
	case ProviderAnthropic:
		if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
			c.Analysis.APIKey = v
		}
	}

	if v := os.Getenv("POSTLENS_DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("POSTLENS_REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
}
