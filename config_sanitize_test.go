package cloudx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Sanitize(t *testing.T) {
	t.Run("fills zero values", func(t *testing.T) {
		cfg := &Config{MaxRetries: 4}

		sanitized := cfg.Sanitize()

		def := DefaultConfig()
		assert.Equal(t, 4, sanitized.MaxRetries)
		assert.Equal(t, def.RetryTimeout, sanitized.RetryTimeout)
		assert.Equal(t, def.BackoffInitial, sanitized.BackoffInitial)
		assert.Equal(t, def.BackoffMax, sanitized.BackoffMax)
		assert.Equal(t, def.BackoffBase, sanitized.BackoffBase)
		assert.Equal(t, 32, sanitized.RegionCacheSize)
		assert.Equal(t, def.ConcurrencyBudget, sanitized.ConcurrencyBudget)
		assert.Equal(t, "us-east-1", sanitized.FallbackRegion)
		assert.Equal(t, "https://%s.s3.amazonaws.com", sanitized.RegionProbeEndpoint)
		assert.NoError(t, ValidateConfig(sanitized))
	})

	t.Run("keeps explicit values and trims", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.RetryTimeout = 3 * time.Second
		cfg.FallbackRegion = "  eu-west-1 "
		cfg.RegionProbeEndpoint = " http://localhost:9000/%s/ "

		sanitized := cfg.Sanitize()

		assert.Equal(t, 3*time.Second, sanitized.RetryTimeout)
		assert.Equal(t, "eu-west-1", sanitized.FallbackRegion)
		assert.Equal(t, "http://localhost:9000/%s", sanitized.RegionProbeEndpoint)
	})

	t.Run("does not mutate the receiver", func(t *testing.T) {
		cfg := &Config{FallbackRegion: " ap-south-1 "}
		_ = cfg.Sanitize()
		assert.Equal(t, " ap-south-1 ", cfg.FallbackRegion)
		assert.Zero(t, cfg.RegionCacheSize)
	})

	t.Run("nil config returns defaults", func(t *testing.T) {
		var cfg *Config
		sanitized := cfg.Sanitize()
		require.NotNil(t, sanitized)
		assert.Equal(t, DefaultConfig(), sanitized)
	})
}

func TestConfig_Summary(t *testing.T) {
	summary := DefaultConfig().ConfigSummary()
	assert.Equal(t, 2, summary["max_retries"])
	assert.Equal(t, "10s", summary["retry_timeout"])
	assert.Equal(t, "0s", summary["connect_timeout"])
	assert.Equal(t, true, summary["allow_http"])

	var nilCfg *Config
	assert.Contains(t, nilCfg.ConfigSummary(), "error")
}
