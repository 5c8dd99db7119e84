package azure

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cast"

	"github.com/gostratum/cloudx"
)

const (
	// EmulatorAccount is the account name Azurite serves
	EmulatorAccount = "devstoreaccount1"

	// EmulatorKey is Azurite's published development key
	EmulatorKey = "Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw=="

	// EmulatorEndpoint is the default Azurite blob endpoint
	EmulatorEndpoint = "http://127.0.0.1:10000"
)

// Config is the merged Azure configuration for one build. Environment
// values come first and explicit overrides replace them.
type Config struct {
	values map[cloudx.AzureConfigKey]string
}

// NewConfig returns an empty configuration
func NewConfig() *Config {
	return &Config{values: make(map[cloudx.AzureConfigKey]string)}
}

// ConfigFromEnv seeds a configuration from AZURE_* variables. Variables that
// do not map to a known key are ignored.
func ConfigFromEnv(environ []string) *Config {
	c := NewConfig()
	for _, kv := range cloudx.EnvWithPrefix(environ, "azure_") {
		if kv.Value == "" {
			continue
		}
		key, err := cloudx.ParseAzureConfigKey(kv.Key)
		if err != nil {
			continue
		}
		c.values[key] = kv.Value
	}
	return c
}

// Apply layers explicit overrides on top. Later duplicates win.
func (c *Config) Apply(configs cloudx.Configs[cloudx.AzureConfigKey]) {
	for _, p := range configs {
		c.values[p.Key] = p.Value
	}
}

// Get returns the value for key
func (c *Config) Get(key cloudx.AzureConfigKey) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Set stores value for key
func (c *Config) Set(key cloudx.AzureConfigKey, value string) {
	c.values[key] = value
}

// Len returns the number of set keys
func (c *Config) Len() int {
	return len(c.values)
}

func (c *Config) bool(key cloudx.AzureConfigKey) (bool, error) {
	raw := strings.TrimSpace(c.values[key])
	if raw == "" {
		return false, nil
	}
	b, err := cast.ToBoolE(raw)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, c.values[key])
	}
	return b, nil
}

// credentialKind names how requests are authorized
type credentialKind string

const (
	credAnonymous    credentialKind = "anonymous"
	credSharedKey    credentialKind = "shared-key"
	credSAS          credentialKind = "sas"
	credClientSecret credentialKind = "client-secret"
	credCLI          credentialKind = "azure-cli"
	credDefault      credentialKind = "sdk-default"
)

// settings is the validated form of Config
type settings struct {
	Account      string
	Container    string
	AccessKey    string
	SASToken     string
	ClientID     string
	ClientSecret string
	TenantID     string
	Endpoint     string
	Credential   credentialKind
}

// ContainerURL returns the URL of the container the client addresses,
// without any SAS query
func (s settings) ContainerURL() string {
	return s.Endpoint + "/" + url.PathEscape(s.Container)
}

func (c *Config) validate(allowHTTP bool) (settings, error) {
	s := settings{
		Account:      c.values[cloudx.AzureAccountName],
		Container:    c.values[cloudx.AzureContainerName],
		AccessKey:    c.values[cloudx.AzureAccessKey],
		SASToken:     strings.TrimPrefix(c.values[cloudx.AzureSASToken], "?"),
		ClientID:     c.values[cloudx.AzureClientID],
		ClientSecret: c.values[cloudx.AzureClientSecret],
		TenantID:     c.values[cloudx.AzureTenantID],
		Endpoint:     strings.TrimSuffix(c.values[cloudx.AzureEndpoint], "/"),
	}

	useEmulator, err := c.bool(cloudx.AzureUseEmulator)
	if err != nil {
		return s, err
	}
	useCLI, err := c.bool(cloudx.AzureUseCLI)
	if err != nil {
		return s, err
	}
	skipSignature, err := c.bool(cloudx.AzureSkipSignature)
	if err != nil {
		return s, err
	}

	if useEmulator {
		if s.Account == "" {
			s.Account = EmulatorAccount
		}
		if s.AccessKey == "" && s.SASToken == "" {
			s.AccessKey = EmulatorKey
		}
		if s.Endpoint == "" {
			s.Endpoint = EmulatorEndpoint + "/" + s.Account
		}
	}

	if s.Container == "" {
		return s, fmt.Errorf("container name is required")
	}
	if s.Account == "" && s.Endpoint == "" {
		return s, fmt.Errorf("storage account name is required")
	}

	clientCreds := 0
	for _, v := range []string{s.ClientID, s.ClientSecret, s.TenantID} {
		if v != "" {
			clientCreds++
		}
	}
	if clientCreds != 0 && clientCreds != 3 {
		return s, fmt.Errorf("client id, client secret and tenant id must be set together")
	}

	if s.Endpoint == "" {
		s.Endpoint = "https://" + s.Account + ".blob.core.windows.net"
	}
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

	switch {
	case skipSignature:
		s.Credential = credAnonymous
	case s.AccessKey != "":
		if s.Account == "" {
			return s, fmt.Errorf("account key requires the storage account name")
		}
		s.Credential = credSharedKey
	case s.SASToken != "":
		if _, err := url.ParseQuery(s.SASToken); err != nil {
			return s, fmt.Errorf("invalid sas token: %w", err)
		}
		s.Credential = credSAS
	case clientCreds == 3:
		s.Credential = credClientSecret
	case useCLI:
		s.Credential = credCLI
	default:
		s.Credential = credDefault
	}

	return s, nil
}
