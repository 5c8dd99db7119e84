package httpx

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/gostratum/cloudx"
)

// Builder builds read/write stores over plain HTTP(S) servers. HTTP takes no
// configuration keys; the URL is the only input.
type Builder struct {
	options *cloudx.Options
	logger  *zap.Logger
}

var _ cloudx.Builder = (*Builder)(nil)

// NewBuilder creates an HTTP builder
func NewBuilder(opts ...cloudx.Option) *Builder {
	options := cloudx.NewOptions(opts...)
	return &Builder{options: options, logger: options.GetLogger()}
}

// Provider implements cloudx.Builder
func (b *Builder) Provider() cloudx.Provider { return cloudx.ProviderHTTP }

// Build implements cloudx.Builder. It performs no I/O.
func (b *Builder) Build(_ context.Context, rawURL string, opts cloudx.CloudOptions) (cloudx.ObjectStore, error) {
	loc, err := cloudx.ParseLocation(rawURL)
	if err != nil {
		return nil, err
	}
	if loc.Provider != cloudx.ProviderHTTP {
		return nil, &cloudx.ConfigError{
			Op:       "build",
			Provider: cloudx.ProviderHTTP,
			Key:      rawURL,
			Err:      fmt.Errorf("%w: not an http url", cloudx.ErrInvalidInput),
		}
	}

	co := b.options.GetClientOptions()
	if loc.URL.Scheme == "http" && !co.AllowHTTP {
		return nil, cloudx.NewClientError(cloudx.ProviderHTTP, fmt.Errorf("url %q uses http but allow_http is false", rawURL))
	}
	if loc.URL.Host == "" {
		return nil, cloudx.NewClientError(cloudx.ProviderHTTP, fmt.Errorf("url %q has no host", rawURL))
	}

	rc := b.options.RetryConfig(opts.MaxRetries)
	client := newClient(rc, co, b.logger)

	b.logger.Debug("HTTP client created",
		zap.String("host", loc.URL.Host),
		zap.String("prefix", loc.Prefix),
		zap.Int("max_retries", client.RetryMax))

	return newStore(client, loc, b.logger, b.options.GetBudget()), nil
}

// newClient applies the shared retry policy to a retryablehttp client
func newClient(rc cloudx.RetryConfig, co cloudx.ClientOptions, logger *zap.Logger) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.HTTPClient = co.HTTPClient()
	client.Logger = cloudx.NewLeveledLogger(logger)
	client.RetryMax = rc.RetriesWithinTimeout()
	client.RetryWaitMin = rc.Backoff.InitBackoff
	client.RetryWaitMax = rc.Backoff.MaxBackoff
	client.Backoff = func(_, max time.Duration, attemptNum int, _ *http.Response) time.Duration {
		// attemptNum counts from zero
		if d, ok := rc.Delay(attemptNum + 1); ok {
			return d
		}
		return max
	}
	// hand the final response back so its status can be mapped
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return client
}
