package gcs

import (
	"context"
	"fmt"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	htransport "google.golang.org/api/transport/http"

	"github.com/gostratum/cloudx"
)

// Builder builds GCS object stores
type Builder struct {
	options *cloudx.Options
	logger  *zap.Logger
}

var _ cloudx.Builder = (*Builder)(nil)

// NewBuilder creates a GCS builder
func NewBuilder(opts ...cloudx.Option) *Builder {
	options := cloudx.NewOptions(opts...)
	return &Builder{options: options, logger: options.GetLogger()}
}

// Provider implements cloudx.Builder
func (b *Builder) Provider() cloudx.Provider { return cloudx.ProviderGCS }

// Resolve merges environment and overrides for rawURL. The bucket named by
// the URL wins over a configured one.
func (b *Builder) Resolve(rawURL string, opts cloudx.CloudOptions) (*Config, cloudx.Location, error) {
	loc, err := cloudx.ParseLocation(rawURL)
	if err != nil {
		return nil, cloudx.Location{}, err
	}
	if loc.Provider != cloudx.ProviderGCS {
		return nil, loc, &cloudx.ConfigError{
			Op:       "build",
			Provider: cloudx.ProviderGCS,
			Key:      rawURL,
			Err:      fmt.Errorf("%w: not a gcs url", cloudx.ErrInvalidInput),
		}
	}

	cfg := ConfigFromEnv(b.options.Environ())
	envKeys := cfg.Len()
	cfg.Apply(opts.GCS())
	cfg.Set(cloudx.GCSBucket, loc.Bucket)

	b.logger.Debug("Resolved GCS configuration sources",
		zap.String("bucket", loc.Bucket),
		zap.Int("env_keys", envKeys),
		zap.Int("override_keys", len(opts.GCS())))

	return cfg, loc, nil
}

// Build implements cloudx.Builder
func (b *Builder) Build(ctx context.Context, rawURL string, opts cloudx.CloudOptions) (cloudx.ObjectStore, error) {
	cfg, loc, err := b.Resolve(rawURL, opts)
	if err != nil {
		return nil, err
	}

	co := b.options.GetClientOptions()
	s, err := cfg.validate(co.AllowHTTP)
	if err != nil {
		return nil, cloudx.NewClientError(cloudx.ProviderGCS, err)
	}

	httpClient, err := newHTTPClient(ctx, s, co)
	if err != nil {
		return nil, cloudx.NewClientError(cloudx.ProviderGCS, err)
	}

	clientOpts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if s.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(s.Endpoint))
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, cloudx.NewClientError(cloudx.ProviderGCS, err)
	}

	rc := b.options.RetryConfig(opts.MaxRetries)
	client.SetRetry(retryOptions(rc)...)

	b.logger.Debug("GCS client created",
		zap.String("bucket", s.Bucket),
		zap.String("endpoint", s.Endpoint),
		zap.String("cred_source", string(s.Credential)),
		zap.Int("max_attempts", rc.MaxAttempts()))

	return newStore(client, loc, b.logger, b.options.GetBudget()), nil
}

// retryOptions applies the shared retry policy to the storage client
func retryOptions(rc cloudx.RetryConfig) []storage.RetryOption {
	return []storage.RetryOption{
		storage.WithBackoff(gax.Backoff{
			Initial:    rc.Backoff.InitBackoff,
			Max:        rc.Backoff.MaxBackoff,
			Multiplier: rc.Backoff.Base,
		}),
		storage.WithMaxAttempts(rc.MaxAttempts()),
	}
}

// newHTTPClient layers authentication over the shared transport. The storage
// client ignores credential options once an http.Client is supplied, so the
// auth transport is built here.
func newHTTPClient(ctx context.Context, s settings, co cloudx.ClientOptions) (*http.Client, error) {
	if s.Credential == credAnonymous {
		return co.HTTPClient(), nil
	}

	authOpts := []option.ClientOption{option.WithScopes(storage.ScopeFullControl)}
	switch s.Credential {
	case credServiceAccountKey:
		authOpts = append(authOpts, option.WithCredentialsJSON(s.CredentialsJSON))
	case credServiceAccount, credApplication:
		authOpts = append(authOpts, option.WithCredentialsFile(s.CredentialsFile))
	}

	rt, err := htransport.NewTransport(ctx, co.Transport(), authOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load google credentials: %w", err)
	}
	return &http.Client{Transport: rt, Timeout: co.Timeout}, nil
}
