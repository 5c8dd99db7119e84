package cloudx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCacheTTLFromEnv(t *testing.T) {
	tests := []struct {
		name  string
		value *string
		want  uint64
	}{
		{name: "unset", want: DefaultFileCacheTTL},
		{name: "valid", value: ptr("60"), want: 60},
		{name: "zero", value: ptr("0"), want: 0},
		{name: "garbage", value: ptr("soon"), want: DefaultFileCacheTTL},
		{name: "negative", value: ptr("-5"), want: DefaultFileCacheTTL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != nil {
				t.Setenv(FileCacheTTLEnv, *tt.value)
			}
			assert.Equal(t, tt.want, FileCacheTTLFromEnv())
		})
	}
}

func TestDefaultCloudOptions(t *testing.T) {
	t.Setenv(FileCacheTTLEnv, "120")

	opts := DefaultCloudOptions()
	assert.Equal(t, 2, opts.MaxRetries)
	assert.Equal(t, uint64(120), opts.FileCacheTTL)
	assert.Empty(t, opts.S3())
	assert.Empty(t, opts.Azure())
	assert.Empty(t, opts.GCS())
}

func TestCloudOptions_WithMaxRetries(t *testing.T) {
	base := DefaultCloudOptions()
	opts := base.WithMaxRetries(5)

	assert.Equal(t, 5, opts.MaxRetries)
	assert.Equal(t, 2, base.MaxRetries, "receiver is not modified")

	rc := opts.RetryConfig()
	assert.Equal(t, 5, rc.MaxRetries)
	assert.Equal(t, DefaultBackoffConfig(), rc.Backoff)
	assert.Equal(t, DefaultRetryTimeout, rc.RetryTimeout)
}

func TestCloudOptions_AccessorsReturnCopies(t *testing.T) {
	opts := DefaultCloudOptions().WithS3(Pair(S3Region, "us-west-2"))

	got := opts.S3()
	got[0].Value = "mutated"

	assert.Equal(t, "us-west-2", opts.S3()[0].Value)
}

func TestCloudOptions_Equal(t *testing.T) {
	a := DefaultCloudOptions().WithAzure(Pair(AzureAccountName, "acct"))
	b := DefaultCloudOptions().WithAzure(Pair(AzureAccountName, "acct"))
	assert.True(t, a.Equal(b))

	assert.False(t, a.Equal(b.WithMaxRetries(9)))
	assert.False(t, a.Equal(b.WithAzure(Pair(AzureAccountName, "other"))))
}

func TestFromUntypedConfig(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		config  []KeyValue
		check   func(t *testing.T, opts CloudOptions)
		wantErr error
	}{
		{
			name:   "s3 aliases",
			url:    "s3://bucket/key",
			config: []KeyValue{{Key: "region", Value: "eu-west-1"}, {Key: "AWS_ACCESS_KEY_ID", Value: "AKIA"}},
			check: func(t *testing.T, opts CloudOptions) {
				assert.Equal(t, Configs[S3ConfigKey]{
					Pair(S3Region, "eu-west-1"),
					Pair(S3AccessKeyID, "AKIA"),
				}, opts.S3())
				assert.Empty(t, opts.Azure())
			},
		},
		{
			name:   "azure",
			url:    "abfss://container@acct.dfs.core.windows.net/path",
			config: []KeyValue{{Key: "account_key", Value: "a2V5"}},
			check: func(t *testing.T, opts CloudOptions) {
				assert.Equal(t, Configs[AzureConfigKey]{Pair(AzureAccessKey, "a2V5")}, opts.Azure())
			},
		},
		{
			name:   "gcs",
			url:    "gs://bucket",
			config: []KeyValue{{Key: "service_account_key", Value: "{}"}},
			check: func(t *testing.T, opts CloudOptions) {
				assert.Equal(t, Configs[GCSConfigKey]{Pair(GCSServiceAccountKey, "{}")}, opts.GCS())
			},
		},
		{
			name:   "local paths ignore overrides",
			url:    "/tmp/data",
			config: []KeyValue{{Key: "anything", Value: "x"}},
			check: func(t *testing.T, opts CloudOptions) {
				assert.Empty(t, opts.S3())
				assert.Equal(t, DefaultMaxRetries, opts.MaxRetries)
			},
		},
		{
			name:    "key of another provider",
			url:     "s3://bucket",
			config:  []KeyValue{{Key: "azure_storage_account_name", Value: "acct"}},
			wantErr: ErrUnknownConfigKey,
		},
		{
			name:    "unknown scheme",
			url:     "ftp://host/file",
			wantErr: ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := FromUntypedConfig(tt.url, tt.config)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, opts)
		})
	}
}

func TestWithUntypedConfig_KeepsRetries(t *testing.T) {
	opts, err := DefaultCloudOptions().WithMaxRetries(7).WithUntypedConfig("gcs://b", nil)
	require.NoError(t, err)
	assert.Equal(t, 7, opts.MaxRetries)
}

func TestWithUntypedConfig_ErrorCarriesKey(t *testing.T) {
	_, err := FromUntypedConfig("gs://b", []KeyValue{{Key: "bogus", Value: "1"}})

	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "bogus", cerr.Key)
	assert.Equal(t, ProviderGCS, cerr.Provider)
}

func ptr[T any](v T) *T { return &v }
