package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"go.uber.org/zap"

	"github.com/gostratum/cloudx"
)

// Builder builds Azure Blob object stores. Building performs no I/O.
type Builder struct {
	options *cloudx.Options
	logger  *zap.Logger
}

var _ cloudx.Builder = (*Builder)(nil)

// NewBuilder creates an Azure builder
func NewBuilder(opts ...cloudx.Option) *Builder {
	options := cloudx.NewOptions(opts...)
	return &Builder{options: options, logger: options.GetLogger()}
}

// Provider implements cloudx.Builder
func (b *Builder) Provider() cloudx.Provider { return cloudx.ProviderAzure }

// Resolve merges environment and overrides for rawURL. Container and account
// named by the URL win over configured values.
func (b *Builder) Resolve(rawURL string, opts cloudx.CloudOptions) (*Config, cloudx.Location, error) {
	loc, err := cloudx.ParseLocation(rawURL)
	if err != nil {
		return nil, cloudx.Location{}, err
	}
	if loc.Provider != cloudx.ProviderAzure {
		return nil, loc, &cloudx.ConfigError{
			Op:       "build",
			Provider: cloudx.ProviderAzure,
			Key:      rawURL,
			Err:      fmt.Errorf("%w: not an azure url", cloudx.ErrInvalidInput),
		}
	}

	cfg := ConfigFromEnv(b.options.Environ())
	envKeys := cfg.Len()
	cfg.Apply(opts.Azure())
	cfg.Set(cloudx.AzureContainerName, loc.Bucket)
	if loc.Account != "" {
		cfg.Set(cloudx.AzureAccountName, loc.Account)
	}

	b.logger.Debug("Resolved Azure configuration sources",
		zap.String("container", loc.Bucket),
		zap.String("account", loc.Account),
		zap.Int("env_keys", envKeys),
		zap.Int("override_keys", len(opts.Azure())))

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
		return nil, cloudx.NewClientError(cloudx.ProviderAzure, err)
	}

	rc := b.options.RetryConfig(opts.MaxRetries)
	client, err := newContainerClient(s, clientOptions(rc, co))
	if err != nil {
		return nil, cloudx.NewClientError(cloudx.ProviderAzure, err)
	}

	b.logger.Debug("Azure client created",
		zap.String("container_url", s.ContainerURL()),
		zap.String("cred_source", string(s.Credential)),
		zap.Int("max_attempts", rc.MaxAttempts()))

	return newStore(client, loc, b.logger, b.options.GetBudget()), nil
}

// clientOptions applies the shared retry and transport policy to the pipeline.
// The pipeline has no overall retry deadline, so the retry count is capped to
// what fits in the retry timeout.
func clientOptions(rc cloudx.RetryConfig, co cloudx.ClientOptions) azcore.ClientOptions {
	maxRetries := int32(rc.RetriesWithinTimeout())
	if maxRetries <= 0 {
		// zero means the SDK default of three
		maxRetries = -1
	}
	return azcore.ClientOptions{
		Retry: policy.RetryOptions{
			MaxRetries:    maxRetries,
			TryTimeout:    co.Timeout,
			RetryDelay:    rc.Backoff.InitBackoff,
			MaxRetryDelay: rc.Backoff.MaxBackoff,
		},
		Transport: co.HTTPClient(),
	}
}

func newContainerClient(s settings, opts azcore.ClientOptions) (*container.Client, error) {
	clientOpts := &container.ClientOptions{ClientOptions: opts}
	containerURL := s.ContainerURL()

	switch s.Credential {
	case credAnonymous:
		return container.NewClientWithNoCredential(containerURL, clientOpts)
	case credSharedKey:
		cred, err := container.NewSharedKeyCredential(s.Account, s.AccessKey)
		if err != nil {
			return nil, fmt.Errorf("invalid account key: %w", err)
		}
		return container.NewClientWithSharedKeyCredential(containerURL, cred, clientOpts)
	case credSAS:
		return container.NewClientWithNoCredential(containerURL+"?"+s.SASToken, clientOpts)
	case credClientSecret:
		cred, err := azidentity.NewClientSecretCredential(s.TenantID, s.ClientID, s.ClientSecret,
			&azidentity.ClientSecretCredentialOptions{ClientOptions: opts})
		if err != nil {
			return nil, err
		}
		return container.NewClient(containerURL, cred, clientOpts)
	case credCLI:
		cred, err := azidentity.NewAzureCLICredential(nil)
		if err != nil {
			return nil, err
		}
		return container.NewClient(containerURL, cred, clientOpts)
	default:
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, err
		}
		return container.NewClient(containerURL, cred, clientOpts)
	}
}
