package s3

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"go.uber.org/zap"

	"github.com/gostratum/cloudx"
	"github.com/gostratum/cloudx/internal/credfile"
)

// CredentialGroups are the ~/.aws files consulted for values that are
// still missing after environment and overrides were applied
var CredentialGroups = []credfile.Group[cloudx.S3ConfigKey]{
	{
		Path: "~/.aws/config",
		Rules: []credfile.Rule[cloudx.S3ConfigKey]{
			{Pattern: credfile.Pattern("region"), Key: cloudx.S3Region},
		},
	},
	{
		Path: "~/.aws/credentials",
		Rules: []credfile.Rule[cloudx.S3ConfigKey]{
			{Pattern: credfile.Pattern("aws_access_key_id"), Key: cloudx.S3AccessKeyID},
			{Pattern: credfile.Pattern("aws_secret_access_key"), Key: cloudx.S3SecretAccessKey},
		},
	},
}

// BuilderConfig holds the collaborators of a Builder
type BuilderConfig struct {
	// Resolver discovers missing regions; nil leaves them unresolved
	Resolver *RegionResolver

	// CredentialFiles enables the ~/.aws fallback
	CredentialFiles bool

	// CredentialReader reads the fallback files; nil uses the local filesystem
	CredentialReader *credfile.Reader
}

// Builder builds S3 object stores
type Builder struct {
	resolver    *RegionResolver
	credFiles   bool
	credReader  *credfile.Reader
	options     *cloudx.Options
	logger      *zap.Logger
	loadAWSConf awsConfigLoader
}

var _ cloudx.Builder = (*Builder)(nil)

// NewBuilder creates an S3 builder
func NewBuilder(cfg BuilderConfig, opts ...cloudx.Option) *Builder {
	options := cloudx.NewOptions(opts...)
	reader := cfg.CredentialReader
	if reader == nil {
		reader = credfile.NewReader(options.GetLogger())
	}
	return &Builder{
		resolver:   cfg.Resolver,
		credFiles:  cfg.CredentialFiles,
		credReader: reader,
		options:    options,
		logger:     options.GetLogger(),
		loadAWSConf: func(ctx context.Context, opts ...func(*config.LoadOptions) error) (aws.Config, error) {
			return config.LoadDefaultConfig(ctx, opts...)
		},
	}
}

// Provider implements cloudx.Builder
func (b *Builder) Provider() cloudx.Provider { return cloudx.ProviderS3 }

// Resolve merges environment, overrides, credential files and the
// discovered region for rawURL without constructing a client
func (b *Builder) Resolve(ctx context.Context, rawURL string, opts cloudx.CloudOptions) (*Config, cloudx.Location, error) {
	loc, err := cloudx.ParseLocation(rawURL)
	if err != nil {
		return nil, cloudx.Location{}, err
	}
	if loc.Provider != cloudx.ProviderS3 {
		return nil, loc, &cloudx.ConfigError{
			Op:       "build",
			Provider: cloudx.ProviderS3,
			Key:      rawURL,
			Err:      fmt.Errorf("%w: not an s3 url", cloudx.ErrInvalidInput),
		}
	}

	cfg := ConfigFromEnv(b.options.Environ())
	envKeys := cfg.Len()
	cfg.Apply(opts.S3())
	cfg.Set(cloudx.S3Bucket, loc.Bucket)

	filled := 0
	if b.credFiles {
		// Each file fails on its own; a missing config must not hide credentials
		for _, g := range CredentialGroups {
			filled += credfile.Fill(b.credReader, cfg, g)
		}
	}

	b.logger.Debug("Resolved S3 configuration sources",
		zap.String("bucket", loc.Bucket),
		zap.Int("env_keys", envKeys),
		zap.Int("override_keys", len(opts.S3())),
		zap.Int("credential_file_keys", filled))

	source := cloudx.RegionSourceUnresolved
	if b.resolver != nil {
		if source, err = b.resolver.Resolve(ctx, cfg); err != nil {
			return nil, loc, err
		}
	} else if !cfg.NeedsRegion() {
		source = cloudx.RegionSourceConfigured
	}

	b.logger.Debug("S3 region selected",
		zap.String("bucket", loc.Bucket),
		zap.String("region", cfg.Region()),
		zap.String("region_source", source))

	return cfg, loc, nil
}

// Build implements cloudx.Builder
func (b *Builder) Build(ctx context.Context, rawURL string, opts cloudx.CloudOptions) (cloudx.ObjectStore, error) {
	cfg, loc, err := b.Resolve(ctx, rawURL, opts)
	if err != nil {
		return nil, err
	}

	co := b.options.GetClientOptions()
	s, err := cfg.validate(co.AllowHTTP)
	if err != nil {
		return nil, cloudx.NewClientError(cloudx.ProviderS3, err)
	}

	rc := b.options.RetryConfig(opts.MaxRetries)
	awsConfig, credSource, err := buildAWSConfigWithLoader(ctx, s, rc, co, b.logger, b.loadAWSConf)
	if err != nil {
		return nil, cloudx.NewClientError(cloudx.ProviderS3, err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		o.UsePathStyle = s.UsePathStyle
		if s.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.Endpoint)
			// S3-compatible services often reject trailing checksums
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		}
	})

	b.logger.Debug("S3 client created",
		zap.String("bucket", s.Bucket),
		zap.String("region", awsConfig.Region),
		zap.String("endpoint", s.Endpoint),
		zap.Bool("use_path_style", s.UsePathStyle),
		zap.String("cred_source", credSource),
		zap.Int("max_attempts", rc.MaxAttempts()))

	return newStore(client, loc, b.logger, b.options.GetBudget()), nil
}

// awsConfigLoader is a function that loads an aws.Config given LoadOptions.
type awsConfigLoader func(ctx context.Context, opts ...func(*config.LoadOptions) error) (aws.Config, error)

// buildAWSConfigWithLoader builds an AWS config using the supplied loader (testable).
// It returns the loaded aws.Config and the detected credential source (one of:
// "anonymous", "static", "profile", "sdk-default", "assumed-role").
func buildAWSConfigWithLoader(ctx context.Context, s settings, rc cloudx.RetryConfig, co cloudx.ClientOptions, logger *zap.Logger, loader awsConfigLoader) (aws.Config, string, error) {
	var options []func(*config.LoadOptions) error
	credSource := "unknown"

	if s.Region != "" {
		options = append(options, config.WithRegion(s.Region))
	}

	switch {
	case s.SkipSignature:
		options = append(options, config.WithCredentialsProvider(aws.AnonymousCredentials{}))
		credSource = "anonymous"
	case s.AccessKeyID != "" && s.SecretAccessKey != "":
		credProvider := credentials.NewStaticCredentialsProvider(s.AccessKeyID, s.SecretAccessKey, s.SessionToken)
		options = append(options, config.WithCredentialsProvider(credProvider))
		credSource = "static"
	case s.Profile != "":
		options = append(options, config.WithSharedConfigProfile(s.Profile))
		credSource = "profile"
	}
	// Otherwise the loader falls back to the SDK default chain

	options = append(options,
		config.WithRetryer(func() aws.Retryer {
			return retry.NewStandard(func(o *retry.StandardOptions) {
				o.MaxAttempts = rc.MaxAttempts()
				o.MaxBackoff = rc.Backoff.MaxBackoff
				o.Backoff = createBackoffStrategy(rc)
			})
		}),
		config.WithHTTPClient(newHTTPClient(co)),
	)

	awsConfig, err := loader(ctx, options...)
	if err != nil {
		return aws.Config{}, credSource, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	if credSource == "unknown" {
		credSource = "sdk-default"
	}

	if s.RoleARN != "" && !s.SkipSignature {
		// AssumeRole authenticates to STS with the credentials loaded above
		logger.Debug("Config requests STS AssumeRole", zap.String("role_arn", s.RoleARN))

		stsClient := sts.NewFromConfig(awsConfig)
		assumeProv := stscreds.NewAssumeRoleProvider(stsClient, s.RoleARN, func(o *stscreds.AssumeRoleOptions) {
			if s.ExternalID != "" {
				o.ExternalID = aws.String(s.ExternalID)
			}
			o.RoleSessionName = "cloudx-assume-role"
		})

		awsConfig.Credentials = aws.NewCredentialsCache(assumeProv)
		credSource = "assumed-role"
	}

	return awsConfig, credSource, nil
}

// createBackoffStrategy adapts the shared retry policy to the SDK retryer.
// Returning an error ends the retry loop once the retry timeout is spent.
func createBackoffStrategy(rc cloudx.RetryConfig) retry.BackoffDelayerFunc {
	return func(attempt int, err error) (time.Duration, error) {
		delay, ok := rc.Delay(attempt)
		if !ok {
			return 0, fmt.Errorf("retry budget of %d retries within %s exhausted: %w", rc.MaxRetries, rc.RetryTimeout, err)
		}
		return delay, nil
	}
}

// newHTTPClient applies the shared transport policy to the SDK client
func newHTTPClient(co cloudx.ClientOptions) *awshttp.BuildableClient {
	return awshttp.NewBuildableClient().
		WithTimeout(co.Timeout).
		WithDialerOptions(func(d *net.Dialer) {
			d.Timeout = co.ConnectTimeout
		})
}
