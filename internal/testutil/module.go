package testutil

import (
	"time"

	"go.uber.org/fx"

	"github.com/gostratum/cloudx"
)

// TestModule provides the cloudx module with a fixed test configuration and
// in-memory builders for S3 and the local filesystem. No network or
// environment access happens during resolution.
//
// Example usage:
//
//	func TestMyApp(t *testing.T) {
//	    app := fxtest.New(t,
//	        testutil.TestModule(),
//	        fx.Invoke(func(r *cloudx.Registry) {
//	            // r.Open(ctx, "s3://bucket/key", nil, nil)
//	        }),
//	    )
//	    // ...
//	}
func TestModule() fx.Option {
	return fx.Options(
		cloudx.NewModuleWithOptions(cloudx.ModuleOptions{Config: NewTestConfig()}),
		cloudx.WithCustomBuilder(NewMockBuilder(cloudx.ProviderS3)),
		cloudx.WithCustomBuilder(NewMockBuilder(cloudx.ProviderFile)),
	)
}

// NewTestConfig creates a configuration suitable for unit tests: short
// backoff, no credential files and a probe endpoint nothing listens on.
func NewTestConfig() *cloudx.Config {
	cfg := cloudx.DefaultConfig()
	cfg.BackoffInitial = time.Millisecond
	cfg.BackoffMax = 10 * time.Millisecond
	cfg.RetryTimeout = time.Second
	cfg.CredentialFiles = false
	cfg.RegionProbeEndpoint = "http://127.0.0.1:1/%s"
	return cfg
}
