//go:build integration
// +build integration

package test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/gostratum/cloudx"
	"github.com/gostratum/cloudx/adapters/azure"
	"github.com/gostratum/cloudx/adapters/gcs"
	"github.com/gostratum/cloudx/adapters/local"
	"github.com/gostratum/cloudx/adapters/s3"
)

// target is one store the contract suite runs against
type target struct {
	name   string
	url    string
	config []cloudx.KeyValue
}

// targets returns the local filesystem plus every backend whose URL is set:
//
//	CLOUDX_IT_S3_URL     s3://bucket/prefix, with CLOUDX_IT_S3_ENDPOINT for MinIO/LocalStack
//	CLOUDX_IT_AZURE_URL  az://container/prefix, against Azurite
//	CLOUDX_IT_GCS_URL    gs://bucket/prefix, with CLOUDX_IT_GCS_ENDPOINT for fake-gcs-server
func targets(t *testing.T) []target {
	out := []target{{name: "local", url: t.TempDir()}}

	if u := os.Getenv("CLOUDX_IT_S3_URL"); u != "" {
		cfg := []cloudx.KeyValue{
			{Key: "access_key_id", Value: getEnvOrDefault("CLOUDX_IT_S3_ACCESS_KEY", "test")},
			{Key: "secret_access_key", Value: getEnvOrDefault("CLOUDX_IT_S3_SECRET_KEY", "test")},
		}
		if ep := os.Getenv("CLOUDX_IT_S3_ENDPOINT"); ep != "" {
			cfg = append(cfg, cloudx.KeyValue{Key: "endpoint", Value: ep})
		}
		out = append(out, target{name: "s3", url: u, config: cfg})
	}
	if u := os.Getenv("CLOUDX_IT_AZURE_URL"); u != "" {
		out = append(out, target{name: "azure", url: u, config: []cloudx.KeyValue{
			{Key: "use_emulator", Value: "true"},
		}})
	}
	if u := os.Getenv("CLOUDX_IT_GCS_URL"); u != "" {
		cfg := []cloudx.KeyValue{{Key: "skip_signature", Value: "true"}}
		if ep := os.Getenv("CLOUDX_IT_GCS_ENDPOINT"); ep != "" {
			cfg = append(cfg, cloudx.KeyValue{Key: "endpoint", Value: ep})
		}
		out = append(out, target{name: "gcs", url: u, config: cfg})
	}
	return out
}

func TestObjectStoreContract(t *testing.T) {
	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("Skipping integration tests - set RUN_INTEGRATION_TESTS=true to run")
	}

	cfg := cloudx.DefaultConfig()
	cfg.CredentialFiles = false
	opts := cloudx.BuildOptionsFromConfig(cfg, cloudx.WithLogger(zaptest.NewLogger(t)))

	registry := cloudx.NewRegistryFromConfig(cfg,
		s3.NewBuilder(s3.BuilderConfig{}, opts...),
		azure.NewBuilder(opts...),
		gcs.NewBuilder(opts...),
		local.NewBuilder(opts...),
	)

	for _, tc := range targets(t) {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			store, err := registry.Open(ctx, tc.url, tc.config, nil)
			require.NoError(t, err, "Should create store successfully")

			t.Run("BasicOperations", func(t *testing.T) {
				testBasicOperations(t, store)
			})
			t.Run("ListOperations", func(t *testing.T) {
				testListOperations(t, store)
			})
			t.Run("ErrorHandling", func(t *testing.T) {
				testErrorHandling(t, store)
			})
		})
	}
}

func testBasicOperations(t *testing.T, store cloudx.ObjectStore) {
	ctx := context.Background()
	testKey := "integration-test/basic-file.txt"
	testContent := []byte("Hello from cloudx integration test!")

	stat, err := store.Put(ctx, testKey, bytes.NewReader(testContent), &cloudx.PutOptions{ContentType: "text/plain"})
	require.NoError(t, err, "Should upload file successfully")
	assert.Equal(t, int64(len(testContent)), stat.Size)

	rc, getStat, err := store.Get(ctx, testKey)
	require.NoError(t, err, "Should download file successfully")
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, testContent, data)
	assert.Equal(t, stat.Size, getStat.Size)

	headStat, err := store.Head(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, int64(len(testContent)), headStat.Size)

	require.NoError(t, store.Delete(ctx, testKey))
	_, err = store.Head(ctx, testKey)
	assert.True(t, cloudx.IsNotFound(err), "Object should be gone after delete")
}

func testListOperations(t *testing.T, store cloudx.ObjectStore) {
	ctx := context.Background()
	prefix := "integration-test/list/"

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("%sfile-%d.txt", prefix, i)
		_, err := store.Put(ctx, key, bytes.NewReader([]byte(key)), nil)
		require.NoError(t, err)
	}
	t.Cleanup(func() {
		for i := 0; i < 5; i++ {
			_ = store.Delete(context.Background(), fmt.Sprintf("%sfile-%d.txt", prefix, i))
		}
	})

	var keys []string
	opts := cloudx.ListOptions{Prefix: prefix, PageSize: 2}
	for {
		page, err := store.List(ctx, opts)
		require.NoError(t, err)
		for _, st := range page.Keys {
			keys = append(keys, st.Key)
		}
		if page.NextToken == "" {
			break
		}
		opts.ContinuationToken = page.NextToken
	}
	assert.Len(t, keys, 5)
}

func testErrorHandling(t *testing.T, store cloudx.ObjectStore) {
	ctx := context.Background()

	_, _, err := store.Get(ctx, "integration-test/does-not-exist")
	assert.True(t, cloudx.IsNotFound(err), "Missing object should map to ErrNotFound, got %v", err)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
