package s3

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cast"

	"github.com/gostratum/cloudx"
	"github.com/gostratum/cloudx/internal/credfile"
)

// Config is the merged S3 configuration for one build. Values are layered
// in precedence order: environment, explicit overrides, credential files,
// discovered region. A layer only fills what the layers before it left unset,
// except explicit overrides which replace environment values.
type Config struct {
	values map[cloudx.S3ConfigKey]string
}

var _ credfile.Target[cloudx.S3ConfigKey] = (*Config)(nil)

// NewConfig returns an empty configuration
func NewConfig() *Config {
	return &Config{values: make(map[cloudx.S3ConfigKey]string)}
}

// ConfigFromEnv seeds a configuration from AWS_* variables. Variables that do
// not map to a known key are ignored.
func ConfigFromEnv(environ []string) *Config {
	c := NewConfig()
	for _, kv := range cloudx.EnvWithPrefix(environ, "aws_") {
		if kv.Value == "" {
			continue
		}
		key, err := cloudx.ParseS3ConfigKey(kv.Key)
		if err != nil {
			continue
		}
		c.values[key] = kv.Value
	}
	return c
}

// Apply layers explicit overrides on top. Later duplicates win.
func (c *Config) Apply(configs cloudx.Configs[cloudx.S3ConfigKey]) {
	for _, p := range configs {
		c.values[p.Key] = p.Value
	}
}

// Get returns the value for key
func (c *Config) Get(key cloudx.S3ConfigKey) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// IsSet reports whether key has a value
func (c *Config) IsSet(key cloudx.S3ConfigKey) bool {
	_, ok := c.values[key]
	return ok
}

// Set stores value for key
func (c *Config) Set(key cloudx.S3ConfigKey, value string) {
	c.values[key] = value
}

// Region returns the effective region: region, then default_region
func (c *Config) Region() string {
	if r, ok := c.values[cloudx.S3Region]; ok && r != "" {
		return r
	}
	return c.values[cloudx.S3DefaultRegion]
}

// NeedsRegion reports whether neither region key is set
func (c *Config) NeedsRegion() bool {
	return !c.IsSet(cloudx.S3Region) && !c.IsSet(cloudx.S3DefaultRegion)
}

// Endpoint returns the custom endpoint, if any
func (c *Config) Endpoint() string {
	return c.values[cloudx.S3Endpoint]
}

// Bucket returns the bucket name
func (c *Config) Bucket() string {
	return c.values[cloudx.S3Bucket]
}

// Len returns the number of set keys
func (c *Config) Len() int {
	return len(c.values)
}

func (c *Config) bool(key cloudx.S3ConfigKey, def bool) (bool, error) {
	raw, ok := c.values[key]
	if !ok || strings.TrimSpace(raw) == "" {
		return def, nil
	}
	b, err := cast.ToBoolE(strings.TrimSpace(raw))
	if err != nil {
		return def, fmt.Errorf("%s: invalid boolean %q", key, raw)
	}
	return b, nil
}

// settings is the validated form of Config used to construct the SDK client
type settings struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Profile         string
	RoleARN         string
	ExternalID      string
	UsePathStyle    bool
	SkipSignature   bool
}

// validate checks the merged configuration the way the SDK client builder
// would and returns the settings to construct it with
func (c *Config) validate(allowHTTP bool) (settings, error) {
	s := settings{
		Bucket:          c.Bucket(),
		Region:          c.Region(),
		Endpoint:        strings.TrimSuffix(c.Endpoint(), "/"),
		AccessKeyID:     c.values[cloudx.S3AccessKeyID],
		SecretAccessKey: c.values[cloudx.S3SecretAccessKey],
		SessionToken:    c.values[cloudx.S3Token],
		Profile:         c.values[cloudx.S3Profile],
		RoleARN:         c.values[cloudx.S3RoleARN],
		ExternalID:      c.values[cloudx.S3ExternalID],
	}

	if s.Bucket == "" {
		return s, fmt.Errorf("bucket name is required")
	}

	if (s.AccessKeyID == "") != (s.SecretAccessKey == "") {
		return s, fmt.Errorf("access key id and secret access key must be set together")
	}

	if s.RoleARN != "" && !strings.HasPrefix(s.RoleARN, "arn:") {
		return s, fmt.Errorf("role arn %q is not an ARN", s.RoleARN)
	}

	var err error
	if allowHTTP, err = c.bool(cloudx.S3AllowHTTP, allowHTTP); err != nil {
		return s, err
	}
	if s.SkipSignature, err = c.bool(cloudx.S3SkipSignature, false); err != nil {
		return s, err
	}

	virtualHosted, err := c.bool(cloudx.S3VirtualHostedStyleRequest, false)
	if err != nil {
		return s, err
	}
	if c.IsSet(cloudx.S3VirtualHostedStyleRequest) {
		s.UsePathStyle = !virtualHosted
	} else {
		s.UsePathStyle = s.Endpoint != ""
	}

	if s.Endpoint != "" {
		u, err := url.Parse(s.Endpoint)
		if err != nil {
			return s, fmt.Errorf("invalid endpoint %q: %w", s.Endpoint, err)
		}
		switch u.Scheme {
		case "https":
		case "http":
			if !allowHTTP {
				return s, fmt.Errorf("endpoint %q uses http but allow_http is false", s.Endpoint)
			}
		default:
			return s, fmt.Errorf("endpoint %q must use http or https", s.Endpoint)
		}
		if u.Host == "" {
			return s, fmt.Errorf("endpoint %q has no host", s.Endpoint)
		}
	}

	return s, nil
}
