package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gostratum/cloudx"
)

func TestConfigFromEnv(t *testing.T) {
	cfg := ConfigFromEnv([]string{
		"AWS_ACCESS_KEY_ID=AKID",
		"AWS_SECRET_ACCESS_KEY=SECRET",
		"AWS_DEFAULT_REGION=eu-central-1",
		"AWS_ENDPOINT_URL=http://localhost:9000",
		"AWS_SDK_LOAD_CONFIG=1", // not a config key
		"AWS_SESSION_TOKEN=",    // empty values are ignored
		"HOME=/root",
	})

	v, ok := cfg.Get(cloudx.S3AccessKeyID)
	assert.True(t, ok)
	assert.Equal(t, "AKID", v)
	assert.Equal(t, "eu-central-1", cfg.Region())
	assert.Equal(t, "http://localhost:9000", cfg.Endpoint())
	assert.False(t, cfg.IsSet(cloudx.S3Token))
	assert.Equal(t, 4, cfg.Len())
}

func TestConfig_OverridesBeatEnvironment(t *testing.T) {
	cfg := ConfigFromEnv([]string{"AWS_REGION=us-west-2", "AWS_ACCESS_KEY_ID=env"})
	cfg.Apply(cloudx.Configs[cloudx.S3ConfigKey]{
		cloudx.Pair(cloudx.S3Region, "eu-west-1"),
		cloudx.Pair(cloudx.S3Region, "eu-west-3"), // later duplicate wins
	})

	assert.Equal(t, "eu-west-3", cfg.Region())
	v, _ := cfg.Get(cloudx.S3AccessKeyID)
	assert.Equal(t, "env", v)
}

func TestConfig_RegionPrecedence(t *testing.T) {
	cfg := NewConfig()
	assert.True(t, cfg.NeedsRegion())

	cfg.Set(cloudx.S3DefaultRegion, "ap-south-1")
	assert.False(t, cfg.NeedsRegion())
	assert.Equal(t, "ap-south-1", cfg.Region())

	cfg.Set(cloudx.S3Region, "eu-north-1")
	assert.Equal(t, "eu-north-1", cfg.Region())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		values    map[cloudx.S3ConfigKey]string
		allowHTTP bool
		wantErr   string
		check     func(t *testing.T, s settings)
	}{
		{
			name:   "minimal",
			values: map[cloudx.S3ConfigKey]string{cloudx.S3Bucket: "b"},
			check: func(t *testing.T, s settings) {
				assert.False(t, s.UsePathStyle)
				assert.False(t, s.SkipSignature)
			},
		},
		{
			name:    "missing bucket",
			values:  map[cloudx.S3ConfigKey]string{},
			wantErr: "bucket name is required",
		},
		{
			name:    "access key without secret",
			values:  map[cloudx.S3ConfigKey]string{cloudx.S3Bucket: "b", cloudx.S3AccessKeyID: "AKID"},
			wantErr: "must be set together",
		},
		{
			name:    "bad role arn",
			values:  map[cloudx.S3ConfigKey]string{cloudx.S3Bucket: "b", cloudx.S3RoleARN: "my-role"},
			wantErr: "not an ARN",
		},
		{
			name:    "bad boolean",
			values:  map[cloudx.S3ConfigKey]string{cloudx.S3Bucket: "b", cloudx.S3SkipSignature: "maybe"},
			wantErr: "invalid boolean",
		},
		{
			name:      "custom endpoint uses path style",
			values:    map[cloudx.S3ConfigKey]string{cloudx.S3Bucket: "b", cloudx.S3Endpoint: "http://minio:9000/"},
			allowHTTP: true,
			check: func(t *testing.T, s settings) {
				assert.True(t, s.UsePathStyle)
				assert.Equal(t, "http://minio:9000", s.Endpoint)
			},
		},
		{
			name: "virtual hosted style requested",
			values: map[cloudx.S3ConfigKey]string{
				cloudx.S3Bucket:                    "b",
				cloudx.S3Endpoint:                  "https://storage.example.com",
				cloudx.S3VirtualHostedStyleRequest: "true",
			},
			check: func(t *testing.T, s settings) {
				assert.False(t, s.UsePathStyle)
			},
		},
		{
			name:    "http endpoint refused",
			values:  map[cloudx.S3ConfigKey]string{cloudx.S3Bucket: "b", cloudx.S3Endpoint: "http://minio:9000"},
			wantErr: "allow_http is false",
		},
		{
			name: "allow_http key overrides client policy",
			values: map[cloudx.S3ConfigKey]string{
				cloudx.S3Bucket:    "b",
				cloudx.S3Endpoint:  "http://minio:9000",
				cloudx.S3AllowHTTP: "true",
			},
		},
		{
			name:      "unsupported endpoint scheme",
			values:    map[cloudx.S3ConfigKey]string{cloudx.S3Bucket: "b", cloudx.S3Endpoint: "ftp://minio"},
			allowHTTP: true,
			wantErr:   "must use http or https",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			for k, v := range tt.values {
				cfg.Set(k, v)
			}
			s, err := cfg.validate(tt.allowHTTP)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, s)
			}
		})
	}
}
