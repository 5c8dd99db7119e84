package cloudx

import (
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/gostratum/core/configx"
	"github.com/spf13/viper"
)

// Config holds the process-wide resolution and client policy
type Config struct {
	// MaxRetries is the default retry count for runtime requests
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries" default:"2"`

	// RetryTimeout bounds the total time spent retrying one request
	RetryTimeout time.Duration `mapstructure:"retry_timeout" yaml:"retry_timeout" default:"10s"`

	// BackoffInitial is the delay before the first retry
	BackoffInitial time.Duration `mapstructure:"backoff_initial" yaml:"backoff_initial" default:"100ms"`

	// BackoffMax caps a single retry delay
	BackoffMax time.Duration `mapstructure:"backoff_max" yaml:"backoff_max" default:"15s"`

	// BackoffBase is the growth factor between retry delays
	BackoffBase float64 `mapstructure:"backoff_base" yaml:"backoff_base" default:"2"`

	// ConnectTimeout bounds connection setup (0 disables it)
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout" default:"0s"`

	// AllowHTTP permits plaintext http endpoints
	AllowHTTP bool `mapstructure:"allow_http" yaml:"allow_http" default:"true"`

	// RegionCacheSize is the number of bucket regions kept in memory
	RegionCacheSize int `mapstructure:"region_cache_size" yaml:"region_cache_size" default:"32"`

	// ConcurrencyBudget caps simultaneous budgeted network operations
	ConcurrencyBudget int64 `mapstructure:"concurrency_budget" yaml:"concurrency_budget" default:"64"`

	// FallbackRegion is used for S3 when a custom endpoint is set and no region is known
	FallbackRegion string `mapstructure:"fallback_region" yaml:"fallback_region" default:"us-east-1"`

	// RegionProbeEndpoint is the probe URL template; %s is replaced by the bucket
	RegionProbeEndpoint string `mapstructure:"region_probe_endpoint" yaml:"region_probe_endpoint" default:"https://%s.s3.amazonaws.com"`

	// CredentialFiles enables the ~/.aws credential file fallback
	CredentialFiles bool `mapstructure:"credential_files" yaml:"credential_files" default:"true"`

	// FileCacheTTL is the downstream file cache TTL in seconds
	FileCacheTTL uint64 `mapstructure:"file_cache_ttl" yaml:"file_cache_ttl" default:"3600"`
}

// Prefix returns the configuration prefix
func (Config) Prefix() string { return "cloud" }

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		// Tags are static; failure here is a programming error
		panic(fmt.Sprintf("cloudx: invalid default tags: %v", err))
	}
	return cfg
}

// NewConfigFromViper creates a Config from the "cloud" section of v, with
// CLOUDX_* environment variables taking precedence
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	v.SetEnvPrefix("cloudx")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := DefaultConfig()
	sub := v.Sub(cfg.Prefix())
	if sub == nil {
		sub = viper.New()
	}
	bindEnv(sub, v)

	if err := sub.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg = cfg.Sanitize()
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// NewConfigFromLoader creates a Config from the "cloud" section bound by a
// configx.Loader, for applications built on gostratum core
func NewConfigFromLoader(loader configx.Loader) (*Config, error) {
	cfg := DefaultConfig()
	if err := loader.Bind(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg = cfg.Sanitize()
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// bindEnv makes CLOUDX_<FIELD> visible to sub.Unmarshal
func bindEnv(sub, parent *viper.Viper) {
	for _, key := range configKeys {
		if parent.IsSet(key) {
			sub.Set(key, parent.Get(key))
		}
	}
}

var configKeys = []string{
	"max_retries", "retry_timeout", "backoff_initial", "backoff_max", "backoff_base",
	"connect_timeout", "allow_http", "region_cache_size", "concurrency_budget",
	"fallback_region", "region_probe_endpoint", "credential_files", "file_cache_ttl",
}

// CloudOptions returns default options carrying this configuration's retry
// count and file cache TTL
func (c *Config) CloudOptions() CloudOptions {
	return CloudOptions{
		MaxRetries:   c.MaxRetries,
		FileCacheTTL: c.FileCacheTTL,
	}
}

// BackoffConfig projects the backoff settings
func (c *Config) BackoffConfig() BackoffConfig {
	return BackoffConfig{
		InitBackoff: c.BackoffInitial,
		MaxBackoff:  c.BackoffMax,
		Base:        c.BackoffBase,
	}
}

// RetryConfig projects the retry settings
func (c *Config) RetryConfig() RetryConfig {
	return RetryConfig{
		Backoff:      c.BackoffConfig(),
		MaxRetries:   c.MaxRetries,
		RetryTimeout: c.RetryTimeout,
	}
}

// ClientOptions projects the transport settings
func (c *Config) ClientOptions() ClientOptions {
	co := DefaultClientOptions()
	co.ConnectTimeout = c.ConnectTimeout
	co.AllowHTTP = c.AllowHTTP
	return co
}

// String returns a short representation for logging
func (c *Config) String() string {
	return fmt.Sprintf("Config{MaxRetries:%d, RegionCacheSize:%d, ConcurrencyBudget:%d, FallbackRegion:%s}",
		c.MaxRetries, c.RegionCacheSize, c.ConcurrencyBudget, c.FallbackRegion)
}
