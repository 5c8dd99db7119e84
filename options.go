package cloudx

import (
	"os"
	"slices"

	"github.com/spf13/cast"
)

const (
	// FileCacheTTLEnv names the variable holding the file cache TTL in seconds
	FileCacheTTLEnv = "CLOUDX_FILE_CACHE_TTL"

	// DefaultFileCacheTTL is used when FileCacheTTLEnv is unset or unparseable
	DefaultFileCacheTTL uint64 = 3600
)

// FileCacheTTLFromEnv reads the downstream file cache TTL
func FileCacheTTLFromEnv() uint64 {
	raw, ok := os.LookupEnv(FileCacheTTLEnv)
	if !ok {
		return DefaultFileCacheTTL
	}
	ttl, err := cast.ToUint64E(raw)
	if err != nil {
		return DefaultFileCacheTTL
	}
	return ttl
}

// CloudOptions holds the connection options for one build call.
//
// Values are immutable by convention: every With* method returns a modified
// copy and accessors return copies of the stored slices.
type CloudOptions struct {
	// MaxRetries is the retry count for runtime requests
	MaxRetries int

	// FileCacheTTL is the time-to-live in seconds for downstream file caching
	FileCacheTTL uint64

	s3    Configs[S3ConfigKey]
	azure Configs[AzureConfigKey]
	gcs   Configs[GCSConfigKey]
}

// DefaultCloudOptions returns options with the default retry count and the
// file cache TTL from the environment
func DefaultCloudOptions() CloudOptions {
	return CloudOptions{
		MaxRetries:   DefaultMaxRetries,
		FileCacheTTL: FileCacheTTLFromEnv(),
	}
}

// WithMaxRetries sets the maximum number of retries
func (o CloudOptions) WithMaxRetries(maxRetries int) CloudOptions {
	o.MaxRetries = maxRetries
	return o
}

// WithFileCacheTTL overrides the file cache TTL
func (o CloudOptions) WithFileCacheTTL(seconds uint64) CloudOptions {
	o.FileCacheTTL = seconds
	return o
}

// WithS3 sets the S3 overrides
func (o CloudOptions) WithS3(configs ...ConfigPair[S3ConfigKey]) CloudOptions {
	o.s3 = slices.Clone(Configs[S3ConfigKey](configs))
	return o
}

// WithAzure sets the Azure overrides
func (o CloudOptions) WithAzure(configs ...ConfigPair[AzureConfigKey]) CloudOptions {
	o.azure = slices.Clone(Configs[AzureConfigKey](configs))
	return o
}

// WithGCS sets the GCS overrides
func (o CloudOptions) WithGCS(configs ...ConfigPair[GCSConfigKey]) CloudOptions {
	o.gcs = slices.Clone(Configs[GCSConfigKey](configs))
	return o
}

// S3 returns a copy of the S3 overrides
func (o CloudOptions) S3() Configs[S3ConfigKey] { return slices.Clone(o.s3) }

// Azure returns a copy of the Azure overrides
func (o CloudOptions) Azure() Configs[AzureConfigKey] { return slices.Clone(o.azure) }

// GCS returns a copy of the GCS overrides
func (o CloudOptions) GCS() Configs[GCSConfigKey] { return slices.Clone(o.gcs) }

// RetryConfig projects the options onto the shared retry policy
func (o CloudOptions) RetryConfig() RetryConfig {
	return NewRetryConfig(o.MaxRetries)
}

// Equal reports whether two option values carry the same settings
func (o CloudOptions) Equal(other CloudOptions) bool {
	return o.MaxRetries == other.MaxRetries &&
		o.FileCacheTTL == other.FileCacheTTL &&
		slices.Equal(o.s3, other.s3) &&
		slices.Equal(o.azure, other.azure) &&
		slices.Equal(o.gcs, other.gcs)
}

// FromUntypedConfig builds options for url from untyped overrides.
// Overrides are typed against the provider the url classifies to. File and
// HTTP urls take no overrides.
func FromUntypedConfig(rawURL string, config []KeyValue) (CloudOptions, error) {
	return DefaultCloudOptions().WithUntypedConfig(rawURL, config)
}

// WithUntypedConfig types config for the provider of rawURL and stores it on a
// copy of o, keeping o's retry count and TTL
func (o CloudOptions) WithUntypedConfig(rawURL string, config []KeyValue) (CloudOptions, error) {
	provider, _, err := ProviderFor(rawURL)
	if err != nil {
		return CloudOptions{}, err
	}

	switch provider {
	case ProviderS3:
		typed, err := ParseS3Config(config)
		if err != nil {
			return CloudOptions{}, err
		}
		return o.WithS3(typed...), nil
	case ProviderAzure:
		typed, err := ParseAzureConfig(config)
		if err != nil {
			return CloudOptions{}, err
		}
		return o.WithAzure(typed...), nil
	case ProviderGCS:
		typed, err := ParseGCSConfig(config)
		if err != nil {
			return CloudOptions{}, err
		}
		return o.WithGCS(typed...), nil
	default:
		return o, nil
	}
}
