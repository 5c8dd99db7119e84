package cloudx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseS3ConfigKey(t *testing.T) {
	tests := map[string]S3ConfigKey{
		"aws_access_key_id":  S3AccessKeyID,
		"access_key_id":      S3AccessKeyID,
		"ACCESS_KEY":         S3AccessKeyID,
		"secret_key":         S3SecretAccessKey,
		"session_token":      S3Token,
		" region ":           S3Region,
		"aws_default_region": S3DefaultRegion,
		"endpoint_url":       S3Endpoint,
		"bucket_name":        S3Bucket,
		"skip_signature":     S3SkipSignature,
		"profile":            S3Profile,
	}
	for input, want := range tests {
		got, err := ParseS3ConfigKey(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
}

func TestParseAzureConfigKey(t *testing.T) {
	tests := map[string]AzureConfigKey{
		"account_name":          AzureAccountName,
		"azure_storage_account": AzureAccountName,
		"master_key":            AzureAccessKey,
		"sas_key":               AzureSASToken,
		"authority_id":          AzureTenantID,
		"use_emulator":          AzureUseEmulator,
		"use_azure_cli":         AzureUseCLI,
	}
	for input, want := range tests {
		got, err := ParseAzureConfigKey(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
}

func TestParseGCSConfigKey(t *testing.T) {
	tests := map[string]GCSConfigKey{
		"service_account":             GCSServiceAccount,
		"google_service_account_path": GCSServiceAccount,
		"service_account_key":         GCSServiceAccountKey,
		"application_credentials":     GCSApplicationCredentials,
		"google_bucket_name":          GCSBucket,
	}
	for input, want := range tests {
		got, err := ParseGCSConfigKey(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
}

func TestParseConfigKey_Unknown(t *testing.T) {
	_, err := ParseS3ConfigKey("sas_token")
	assert.ErrorIs(t, err, ErrUnknownConfigKey)

	_, err = ParseAzureConfigKey("aws_region")
	assert.ErrorIs(t, err, ErrUnknownConfigKey)

	_, err = ParseGCSConfigKey("")
	assert.ErrorIs(t, err, ErrUnknownConfigKey)
}

func TestParseUntypedConfig_StopsAtFirstUnknownKey(t *testing.T) {
	got, err := ParseS3Config([]KeyValue{
		{Key: "region", Value: "us-east-2"},
		{Key: "nope", Value: "x"},
		{Key: "profile", Value: "dev"},
	})
	assert.ErrorIs(t, err, ErrUnknownConfigKey)
	assert.Nil(t, got)
}

func TestParseUntypedConfig_KeepsDuplicatesInOrder(t *testing.T) {
	got, err := ParseS3Config([]KeyValue{
		{Key: "region", Value: "us-east-2"},
		{Key: "aws_region", Value: "eu-west-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, Configs[S3ConfigKey]{
		Pair(S3Region, "us-east-2"),
		Pair(S3Region, "eu-west-1"),
	}, got)
}

func TestKeyValuesFromMap(t *testing.T) {
	got := KeyValuesFromMap(map[string]string{"region": "r", "endpoint": "e", "bucket": "b"})
	assert.Equal(t, []KeyValue{
		{Key: "bucket", Value: "b"},
		{Key: "endpoint", Value: "e"},
		{Key: "region", Value: "r"},
	}, got)
}

func TestConfigKeyProvider(t *testing.T) {
	assert.Equal(t, ProviderS3, S3Region.Provider())
	assert.Equal(t, ProviderAzure, AzureTenantID.Provider())
	assert.Equal(t, ProviderGCS, GCSBucket.Provider())
}
