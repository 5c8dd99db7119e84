package cloudx

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config field %q: %s", e.Field, e.Message)
}

// ValidateConfig performs validation of the process-wide configuration
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return &ValidationError{Field: "config", Message: "configuration cannot be nil"}
	}

	var errors []string

	// Validate retry configuration
	if cfg.MaxRetries < 0 {
		errors = append(errors, "max_retries cannot be negative")
	}
	if cfg.MaxRetries > 20 {
		errors = append(errors, "max_retries should not exceed 20")
	}
	if cfg.RetryTimeout <= 0 {
		errors = append(errors, "retry_timeout must be positive")
	}
	if cfg.BackoffInitial <= 0 {
		errors = append(errors, "backoff_initial must be positive")
	}
	if cfg.BackoffMax < cfg.BackoffInitial {
		errors = append(errors, "backoff_max must not be less than backoff_initial")
	}
	if cfg.BackoffBase < 1 {
		errors = append(errors, "backoff_base must be at least 1")
	}

	if cfg.ConnectTimeout < 0 {
		errors = append(errors, "connect_timeout cannot be negative")
	}
	if cfg.ConnectTimeout > 5*time.Minute {
		errors = append(errors, "connect_timeout should not exceed 5 minutes")
	}

	// Validate shared resources
	if cfg.RegionCacheSize <= 0 {
		errors = append(errors, "region_cache_size must be positive")
	}
	if cfg.ConcurrencyBudget <= 0 {
		errors = append(errors, "concurrency_budget must be positive")
	}

	// Validate region discovery
	if cfg.FallbackRegion == "" {
		errors = append(errors, "fallback_region cannot be empty")
	} else if strings.ContainsAny(cfg.FallbackRegion, " /") {
		errors = append(errors, fmt.Sprintf("fallback_region %q looks invalid", cfg.FallbackRegion))
	}
	if err := validateProbeEndpoint(cfg.RegionProbeEndpoint); err != nil {
		errors = append(errors, fmt.Sprintf("invalid region_probe_endpoint: %v", err))
	}

	if len(errors) > 0 {
		return &ValidationError{
			Field:   "config",
			Message: strings.Join(errors, "; "),
		}
	}

	return nil
}

// validateProbeEndpoint checks the probe URL template
func validateProbeEndpoint(tmpl string) error {
	if strings.Count(tmpl, "%s") != 1 {
		return fmt.Errorf("template must contain exactly one %%s for the bucket")
	}
	u, err := url.Parse(strings.Replace(tmpl, "%s", "bucket", 1))
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint protocol must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint has no host")
	}
	return nil
}

// Sanitize applies automatic fixes to configuration where possible and returns
// a sanitized copy without mutating the receiver.
func (cfg *Config) Sanitize() *Config {
	if cfg == nil {
		return DefaultConfig()
	}

	// Create a copy to avoid mutating the original
	sanitized := *cfg
	def := DefaultConfig()

	if sanitized.RetryTimeout == 0 {
		sanitized.RetryTimeout = def.RetryTimeout
	}
	if sanitized.BackoffInitial == 0 {
		sanitized.BackoffInitial = def.BackoffInitial
	}
	if sanitized.BackoffMax == 0 {
		sanitized.BackoffMax = def.BackoffMax
	}
	if sanitized.BackoffBase == 0 {
		sanitized.BackoffBase = def.BackoffBase
	}
	if sanitized.RegionCacheSize == 0 {
		sanitized.RegionCacheSize = def.RegionCacheSize
	}
	if sanitized.ConcurrencyBudget == 0 {
		sanitized.ConcurrencyBudget = def.ConcurrencyBudget
	}

	sanitized.FallbackRegion = strings.TrimSpace(sanitized.FallbackRegion)
	if sanitized.FallbackRegion == "" {
		sanitized.FallbackRegion = def.FallbackRegion
	}

	// Clean up endpoint
	sanitized.RegionProbeEndpoint = strings.TrimSuffix(strings.TrimSpace(sanitized.RegionProbeEndpoint), "/")
	if sanitized.RegionProbeEndpoint == "" {
		sanitized.RegionProbeEndpoint = def.RegionProbeEndpoint
	}

	return &sanitized
}

// ConfigSummary returns a summary of the configuration for logging
func (cfg *Config) ConfigSummary() map[string]any {
	if cfg == nil {
		return map[string]any{"error": "nil config"}
	}

	return map[string]any{
		"max_retries":           cfg.MaxRetries,
		"retry_timeout":         cfg.RetryTimeout.String(),
		"backoff_initial":       cfg.BackoffInitial.String(),
		"backoff_max":           cfg.BackoffMax.String(),
		"connect_timeout":       cfg.ConnectTimeout.String(),
		"allow_http":            cfg.AllowHTTP,
		"region_cache_size":     cfg.RegionCacheSize,
		"concurrency_budget":    cfg.ConcurrencyBudget,
		"fallback_region":       cfg.FallbackRegion,
		"region_probe_endpoint": cfg.RegionProbeEndpoint,
		"credential_files":      cfg.CredentialFiles,
		"file_cache_ttl":        cfg.FileCacheTTL,
	}
}
