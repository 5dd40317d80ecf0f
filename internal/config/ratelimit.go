package config

import "time"

// RateLimitConfig throttles booking writes per account. A fixed window
// of Window length admits at most Limit create/cancel calls; beyond
// that the handler replies 429. Reads are never limited.
type RateLimitConfig struct {
	Enabled bool
	Limit   int
	Window  time.Duration
	Prefix  string
}

// LoadRateLimitConfig reads environment variables to build a
// RateLimitConfig, clamping nonsensical values to safe minimums.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled: getenv("RATE_LIMIT_ENABLED", "true") == "true",
		Limit:   atoi(getenv("RATE_LIMIT_MAX", "10")),
		Window:  parseDur(getenv("RATE_LIMIT_WINDOW", "1m")),
		Prefix:  getenv("RATE_LIMIT_PREFIX", "rl:booking"),
	}
	if cfg.Limit < 1 {
		cfg.Limit = 1
	}
	// The limiter indexes fixed windows in whole seconds; anything
	// shorter is meaningless and would zero the divisor.
	if cfg.Window < time.Second {
		cfg.Window = time.Minute
	}
	return cfg
}
