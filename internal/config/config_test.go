package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModelID)
	assert.InDelta(t, 0.9, cfg.EarlyTermination, 1e-9)
	assert.Equal(t, 1000, cfg.ReviewMaxSize)
	assert.Equal(t, 24*time.Hour, cfg.ReviewTTL)
	assert.Equal(t, "block", cfg.ReviewExpireAction)
	assert.False(t, cfg.ArchiveEnabled)
	assert.Equal(t, "auto", cfg.EmailProvider)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("EARLY_TERMINATION_CONFIDENCE", "0.75")
	t.Setenv("REVIEW_TTL", "2h")
	t.Setenv("REVIEW_MAX_SIZE", "50")
	t.Setenv("REVIEW_EXPIRE_ACTION", " Redirect ")
	t.Setenv("ARCHIVE_ENABLED", "true")
	t.Setenv("USE_KEYWORD_TOXICITY", "true")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.InDelta(t, 0.75, cfg.EarlyTermination, 1e-9)
	assert.Equal(t, 2*time.Hour, cfg.ReviewTTL)
	assert.Equal(t, 50, cfg.ReviewMaxSize)
	assert.Equal(t, "redirect", cfg.ReviewExpireAction)
	assert.True(t, cfg.ArchiveEnabled)
	assert.True(t, cfg.UseKeywordToxicity)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("REVIEW_MAX_SIZE", "lots")
	t.Setenv("EARLY_TERMINATION_CONFIDENCE", "very confident")
	t.Setenv("REVIEW_TTL", "tomorrow")

	cfg := Load()
	assert.Equal(t, 1000, cfg.ReviewMaxSize)
	assert.InDelta(t, 0.9, cfg.EarlyTermination, 1e-9)
	assert.Equal(t, 24*time.Hour, cfg.ReviewTTL)
}
