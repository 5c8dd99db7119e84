package cloudx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderFor(t *testing.T) {
	tests := []struct {
		input string
		want  Provider
	}{
		{"s3://bucket/key", ProviderS3},
		{"s3a://bucket/key", ProviderS3},
		{"S3://Bucket/key", ProviderS3},
		{"az://container/blob", ProviderAzure},
		{"azure://container/blob", ProviderAzure},
		{"adl://container/blob", ProviderAzure},
		{"abfs://container@acct.dfs.core.windows.net/p", ProviderAzure},
		{"abfss://container@acct.dfs.core.windows.net/p", ProviderAzure},
		{"gs://bucket/object", ProviderGCS},
		{"gcs://bucket/object", ProviderGCS},
		{"gcp://bucket/object", ProviderGCS},
		{"file:///tmp/data.csv", ProviderFile},
		{"/tmp/data.csv", ProviderFile},
		{"relative/data.csv", ProviderFile},
		{"http://example.com/data.csv", ProviderHTTP},
		{"https://example.com/data.csv", ProviderHTTP},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, u, err := ProviderFor(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NotNil(t, u)
		})
	}
}

func TestProviderFor_Invalid(t *testing.T) {
	for _, input := range []string{"ftp://host/file", "hdfs://nn/path", "", "s3://bad host/x"} {
		t.Run(input, func(t *testing.T) {
			_, _, err := ProviderFor(input)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestParseURL_Normalizes(t *testing.T) {
	u, err := ParseURL("S3://My-Bucket/Some/Key")
	require.NoError(t, err)
	assert.Equal(t, "s3", u.Scheme)
	assert.Equal(t, "my-bucket", u.Host)
	assert.Equal(t, "/Some/Key", u.Path, "object keys keep their case")
}

func TestFileURL(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	u, err := FileURL("data/part-0.parquet")
	require.NoError(t, err)
	assert.Equal(t, "file", u.Scheme)
	assert.Equal(t, filepath.ToSlash(filepath.Join(cwd, "data/part-0.parquet")), u.Path)

	p, err := FilePath(u)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "data", "part-0.parquet"), p)
}

func TestFilePath_RejectsOtherSchemes(t *testing.T) {
	u, err := ParseURL("s3://bucket/key")
	require.NoError(t, err)

	_, err = FilePath(u)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestProvider_String(t *testing.T) {
	assert.Equal(t, "s3", ProviderS3.String())
	assert.Equal(t, "azure", ProviderAzure.String())
	assert.Equal(t, "gcs", ProviderGCS.String())
	assert.Equal(t, "file", ProviderFile.String())
	assert.Equal(t, "http", ProviderHTTP.String())
	assert.Equal(t, "provider(42)", Provider(42).String())
}

func TestFileURL_PercentEncodesPath(t *testing.T) {
	u, err := FileURL("/data/my dir/file.csv")
	require.NoError(t, err)
	assert.Equal(t, "file:///data/my%20dir/file.csv", u.String())

	p, err := FilePath(u)
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/data/my dir/file.csv"), p)
}

func TestParseURL_LowercasesHost(t *testing.T) {
	u, err := ParseURL("http://Users/x")
	require.NoError(t, err)
	assert.Equal(t, "http://users/x", u.String())
}
