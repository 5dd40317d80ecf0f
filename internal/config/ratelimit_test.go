package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadRateLimitConfigClampsWindow(t *testing.T) {
	t.Setenv("RATE_LIMIT_WINDOW", "500ms")
	cfg := LoadRateLimitConfig()
	assert.Equal(t, time.Minute, cfg.Window)

	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	cfg = LoadRateLimitConfig()
	assert.Equal(t, 30*time.Second, cfg.Window)
}

func TestLoadRateLimitConfigClampsLimit(t *testing.T) {
	t.Setenv("RATE_LIMIT_MAX", "0")
	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Limit)
}
