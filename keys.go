package cloudx

import (
	"fmt"
	"sort"
	"strings"
)

// KeyValue is one untyped configuration override
type KeyValue struct {
	Key   string
	Value string
}

// ConfigKey is implemented by the per-provider typed key enumerations
type ConfigKey interface {
	~string
	Provider() Provider
}

// ConfigPair is one typed configuration override
type ConfigPair[K ConfigKey] struct {
	Key   K
	Value string
}

// Configs is an ordered list of typed overrides. Later duplicates win when applied.
type Configs[K ConfigKey] []ConfigPair[K]

// Pair is shorthand for building a ConfigPair
func Pair[K ConfigKey](key K, value string) ConfigPair[K] {
	return ConfigPair[K]{Key: key, Value: value}
}

// S3ConfigKey is a typed S3 configuration option
type S3ConfigKey string

// S3 configuration keys
const (
	S3AccessKeyID               S3ConfigKey = "aws_access_key_id"
	S3SecretAccessKey           S3ConfigKey = "aws_secret_access_key"
	S3Token                     S3ConfigKey = "aws_session_token"
	S3Region                    S3ConfigKey = "aws_region"
	S3DefaultRegion             S3ConfigKey = "aws_default_region"
	S3Bucket                    S3ConfigKey = "aws_bucket"
	S3Endpoint                  S3ConfigKey = "aws_endpoint"
	S3VirtualHostedStyleRequest S3ConfigKey = "aws_virtual_hosted_style_request"
	S3SkipSignature             S3ConfigKey = "aws_skip_signature"
	S3AllowHTTP                 S3ConfigKey = "aws_allow_http"
	S3Profile                   S3ConfigKey = "aws_profile"
	S3RoleARN                   S3ConfigKey = "aws_role_arn"
	S3ExternalID                S3ConfigKey = "aws_external_id"
)

// Provider implements ConfigKey
func (S3ConfigKey) Provider() Provider { return ProviderS3 }

var s3Keys = keyTable(map[S3ConfigKey][]string{
	S3AccessKeyID:               {"access_key_id", "access_key"},
	S3SecretAccessKey:           {"secret_access_key", "secret_key"},
	S3Token:                     {"token", "session_token", "aws_token"},
	S3Region:                    {"region"},
	S3DefaultRegion:             {"default_region"},
	S3Bucket:                    {"bucket", "bucket_name", "aws_bucket_name"},
	S3Endpoint:                  {"endpoint", "endpoint_url", "aws_endpoint_url"},
	S3VirtualHostedStyleRequest: {"virtual_hosted_style_request"},
	S3SkipSignature:             {"skip_signature"},
	S3AllowHTTP:                 {"allow_http"},
	S3Profile:                   {"profile"},
	S3RoleARN:                   {"role_arn"},
	S3ExternalID:                {"external_id"},
})

// ParseS3ConfigKey maps text to an S3ConfigKey
func ParseS3ConfigKey(s string) (S3ConfigKey, error) { return parseKey(s, s3Keys) }

// AzureConfigKey is a typed Azure Blob configuration option
type AzureConfigKey string

// Azure configuration keys
const (
	AzureAccountName   AzureConfigKey = "azure_storage_account_name"
	AzureAccessKey     AzureConfigKey = "azure_storage_account_key"
	AzureSASToken      AzureConfigKey = "azure_storage_sas_token"
	AzureClientID      AzureConfigKey = "azure_storage_client_id"
	AzureClientSecret  AzureConfigKey = "azure_storage_client_secret"
	AzureTenantID      AzureConfigKey = "azure_storage_tenant_id"
	AzureEndpoint      AzureConfigKey = "azure_storage_endpoint"
	AzureContainerName AzureConfigKey = "azure_container_name"
	AzureUseEmulator   AzureConfigKey = "azure_storage_use_emulator"
	AzureUseCLI        AzureConfigKey = "azure_use_azure_cli"
	AzureSkipSignature AzureConfigKey = "azure_skip_signature"
)

// Provider implements ConfigKey
func (AzureConfigKey) Provider() Provider { return ProviderAzure }

var azureKeys = keyTable(map[AzureConfigKey][]string{
	AzureAccountName:   {"account_name", "azure_storage_account"},
	AzureAccessKey:     {"access_key", "account_key", "master_key", "azure_storage_access_key"},
	AzureSASToken:      {"sas_token", "sas_key", "azure_storage_sas_key"},
	AzureClientID:      {"client_id", "azure_client_id"},
	AzureClientSecret:  {"client_secret", "azure_client_secret"},
	AzureTenantID:      {"tenant_id", "authority_id", "azure_tenant_id"},
	AzureEndpoint:      {"endpoint", "azure_endpoint"},
	AzureContainerName: {"container_name"},
	AzureUseEmulator:   {"use_emulator"},
	AzureUseCLI:        {"use_azure_cli"},
	AzureSkipSignature: {"skip_signature"},
})

// ParseAzureConfigKey maps text to an AzureConfigKey
func ParseAzureConfigKey(s string) (AzureConfigKey, error) { return parseKey(s, azureKeys) }

// GCSConfigKey is a typed Google Cloud Storage configuration option
type GCSConfigKey string

// GCS configuration keys
const (
	GCSServiceAccount         GCSConfigKey = "google_service_account"
	GCSServiceAccountKey      GCSConfigKey = "google_service_account_key"
	GCSApplicationCredentials GCSConfigKey = "google_application_credentials"
	GCSBucket                 GCSConfigKey = "google_bucket"
	GCSEndpoint               GCSConfigKey = "google_storage_endpoint"
	GCSSkipSignature          GCSConfigKey = "google_skip_signature"
)

// Provider implements ConfigKey
func (GCSConfigKey) Provider() Provider { return ProviderGCS }

var gcsKeys = keyTable(map[GCSConfigKey][]string{
	GCSServiceAccount:         {"service_account", "service_account_path", "google_service_account_path"},
	GCSServiceAccountKey:      {"service_account_key"},
	GCSApplicationCredentials: {"application_credentials"},
	GCSBucket:                 {"bucket", "bucket_name", "google_bucket_name"},
	GCSEndpoint:               {"endpoint", "storage_endpoint"},
	GCSSkipSignature:          {"skip_signature"},
})

// ParseGCSConfigKey maps text to a GCSConfigKey
func ParseGCSConfigKey(s string) (GCSConfigKey, error) { return parseKey(s, gcsKeys) }

// ParseS3Config types untyped overrides as S3 keys
func ParseS3Config(config []KeyValue) (Configs[S3ConfigKey], error) {
	return parseUntypedConfig(config, ParseS3ConfigKey)
}

// ParseAzureConfig types untyped overrides as Azure keys
func ParseAzureConfig(config []KeyValue) (Configs[AzureConfigKey], error) {
	return parseUntypedConfig(config, ParseAzureConfigKey)
}

// ParseGCSConfig types untyped overrides as GCS keys
func ParseGCSConfig(config []KeyValue) (Configs[GCSConfigKey], error) {
	return parseUntypedConfig(config, ParseGCSConfigKey)
}

// KeyValuesFromMap converts a map into overrides sorted by key.
// Use a []KeyValue directly when the order of duplicates matters.
func KeyValuesFromMap(m map[string]string) []KeyValue {
	kvs := make([]KeyValue, 0, len(m))
	for k, v := range m {
		kvs = append(kvs, KeyValue{Key: k, Value: v})
	}
	sort.Slice(kvs, func(i, j int) bool { return kvs[i].Key < kvs[j].Key })
	return kvs
}

// parseUntypedConfig converts every pair or fails on the first unknown key
func parseUntypedConfig[K ConfigKey](config []KeyValue, parse func(string) (K, error)) (Configs[K], error) {
	out := make(Configs[K], 0, len(config))
	for _, kv := range config {
		key, err := parse(kv.Key)
		if err != nil {
			return nil, err
		}
		out = append(out, ConfigPair[K]{Key: key, Value: kv.Value})
	}
	return out, nil
}

func keyTable[K ConfigKey](aliases map[K][]string) map[string]K {
	table := make(map[string]K, len(aliases)*3)
	for key, names := range aliases {
		table[string(key)] = key
		for _, name := range names {
			table[name] = key
		}
	}
	return table
}

func parseKey[K ConfigKey](s string, table map[string]K) (K, error) {
	if key, ok := table[strings.ToLower(strings.TrimSpace(s))]; ok {
		return key, nil
	}
	var zero K
	return zero, &ConfigError{
		Op:       "parse_config",
		Provider: zero.Provider(),
		Key:      s,
		Err:      fmt.Errorf("%w: %s", ErrUnknownConfigKey, s),
	}
}
