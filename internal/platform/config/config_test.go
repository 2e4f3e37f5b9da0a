package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMay_Present(t *testing.T) {
	t.Setenv("CORE_PIPELINE_WORKERS", "4")
	t.Setenv("CORE_PIPELINE_LEASE_TTL", "45m")
	t.Setenv("CORE_PIPELINE_STRICT", "true")
	t.Setenv("CORE_PIPELINE_RPS", "1.5")
	t.Setenv("CORE_PIPELINE_OWNER", " worker-a ")

	c := New().Prefix("CORE_").Prefix("PIPELINE_")
	assert.Equal(t, 4, c.MayInt("WORKERS", 1))
	assert.Equal(t, 45*time.Minute, c.MayDuration("LEASE_TTL", time.Minute))
	assert.True(t, c.MayBool("STRICT", false))
	assert.InDelta(t, 1.5, c.MayFloat64("RPS", 0), 1e-9)
	assert.Equal(t, "worker-a", c.MayString("OWNER", ""))
}

func TestMay_FallsBack(t *testing.T) {
	t.Setenv("X_INT", "four")
	t.Setenv("X_DUR", "45")
	t.Setenv("X_BOOL", "maybe")
	t.Setenv("X_BLANK", "  ")

	c := New().Prefix("X_")
	assert.Equal(t, 1, c.MayInt("INT", 1))
	assert.Equal(t, time.Second, c.MayDuration("DUR", time.Second))
	assert.False(t, c.MayBool("BOOL", false))
	assert.Equal(t, "def", c.MayString("BLANK", "def"))
	assert.Equal(t, 7, c.MayInt("MISSING", 7))
}

func TestMayRatio(t *testing.T) {
	t.Setenv("Q_MAX_EXCLUDED", "0.05")
	c := New().Prefix("Q_")
	assert.InDelta(t, 0.05, c.MayRatio("MAX_EXCLUDED", 0.1), 1e-9)
	assert.InDelta(t, 0.1, c.MayRatio("UNSET", 0.1), 1e-9)

	t.Setenv("Q_MAX_EXCLUDED", "5")
	assert.Panics(t, func() { c.MayRatio("MAX_EXCLUDED", 0.1) })
}

func TestMayCSV(t *testing.T) {
	t.Setenv("API_CORS_ORIGINS", " https://a.example , ,https://b.example ")
	t.Setenv("API_EMPTY", " , ")
	c := New().Prefix("API_")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.MayCSV("CORS_ORIGINS", nil))
	assert.Equal(t, []string{"*"}, c.MayCSV("EMPTY", []string{"*"}))
}

func TestMayEnum(t *testing.T) {
	t.Setenv("LOG_FORMAT", "JSON")
	c := New().Prefix("LOG_")
	assert.Equal(t, "JSON", c.MayEnum("FORMAT", "console", "json", "console"))
	assert.Equal(t, "console", c.MayEnum("UNSET", "console", "json", "console"))
	assert.Equal(t, "", c.MayEnum("UNSET", "", "json"))

	t.Setenv("LOG_FORMAT", "xml")
	assert.Panics(t, func() { c.MayEnum("FORMAT", "console", "json", "console") })
}
