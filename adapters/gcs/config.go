package gcs

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cast"

	"github.com/gostratum/cloudx"
)

// Config is the merged GCS configuration for one build
type Config struct {
	values map[cloudx.GCSConfigKey]string
}

// NewConfig returns an empty configuration
func NewConfig() *Config {
	return &Config{values: make(map[cloudx.GCSConfigKey]string)}
}

// ConfigFromEnv seeds a configuration from GOOGLE_* variables, e.g.
// GOOGLE_APPLICATION_CREDENTIALS. Unknown variables are ignored.
func ConfigFromEnv(environ []string) *Config {
	c := NewConfig()
	for _, kv := range cloudx.EnvWithPrefix(environ, "google_") {
		if kv.Value == "" {
			continue
		}
		if key, err := cloudx.ParseGCSConfigKey(kv.Key); err == nil {
			c.values[key] = kv.Value
		}
	}
	return c
}

// Apply layers explicit overrides on top. Later duplicates win.
func (c *Config) Apply(configs cloudx.Configs[cloudx.GCSConfigKey]) {
	for _, p := range configs {
		c.values[p.Key] = p.Value
	}
}

// Get returns the value for key
func (c *Config) Get(key cloudx.GCSConfigKey) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Set stores value for key
func (c *Config) Set(key cloudx.GCSConfigKey, value string) {
	c.values[key] = value
}

// Len returns the number of set keys
func (c *Config) Len() int {
	return len(c.values)
}

type credentialKind string

const (
	credAnonymous         credentialKind = "anonymous"
	credServiceAccountKey credentialKind = "service-account-key"
	credServiceAccount    credentialKind = "service-account-file"
	credApplication       credentialKind = "application-credentials"
	credDefault           credentialKind = "sdk-default"
)

type settings struct {
	Bucket          string
	Endpoint        string
	CredentialsFile string
	CredentialsJSON []byte
	Credential      credentialKind
}

func (c *Config) validate(allowHTTP bool) (settings, error) {
	s := settings{
		Bucket:   c.values[cloudx.GCSBucket],
		Endpoint: strings.TrimSpace(c.values[cloudx.GCSEndpoint]),
	}
	if s.Bucket == "" {
		return s, fmt.Errorf("bucket name is required")
	}

	skipSignature := false
	if raw := strings.TrimSpace(c.values[cloudx.GCSSkipSignature]); raw != "" {
		b, err := cast.ToBoolE(raw)
		if err != nil {
			return s, fmt.Errorf("%s: invalid boolean %q", cloudx.GCSSkipSignature, raw)
		}
		skipSignature = b
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

	key := c.values[cloudx.GCSServiceAccountKey]
	switch {
	case skipSignature:
		s.Credential = credAnonymous
	case key != "":
		if !json.Valid([]byte(key)) {
			return s, fmt.Errorf("service account key is not valid JSON")
		}
		s.CredentialsJSON = []byte(key)
		s.Credential = credServiceAccountKey
	case c.values[cloudx.GCSServiceAccount] != "":
		s.CredentialsFile = c.values[cloudx.GCSServiceAccount]
		s.Credential = credServiceAccount
	case c.values[cloudx.GCSApplicationCredentials] != "":
		s.CredentialsFile = c.values[cloudx.GCSApplicationCredentials]
		s.Credential = credApplication
	default:
		s.Credential = credDefault
	}

	return s, nil
}
