package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.True(t, cfg.Projection.CacheEnabled)
	assert.True(t, cfg.Projection.LegacyRRFallback)
	assert.False(t, cfg.Projection.FloorAllocation)
	assert.Equal(t, 3, cfg.Projection.DefaultWindowMonths)
	assert.True(t, cfg.Billing.LegacyItemJoin)
	assert.Equal(t, 2, cfg.Billing.WarmupWorkers)
	assert.False(t, cfg.JWT.Enabled)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("PROJECTION_FLOOR_ALLOCATION", true)
	v.Set("BILLING_WARMUP_WORKERS", 0)
	v.Set("PROJECTION_DEFAULT_WINDOW_MONTHS", -2)
	v.Set("SUMMARY_CACHE_TTL", "bogus")
	v.Set("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg := fromViper(v)

	assert.True(t, cfg.Projection.FloorAllocation)
	assert.Equal(t, 1, cfg.Billing.WarmupWorkers)
	assert.Equal(t, 3, cfg.Projection.DefaultWindowMonths)
	assert.Equal(t, 15*time.Minute, cfg.Summary.CacheTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}
