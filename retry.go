package cloudx

import (
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-cleanhttp"
)

const (
	// DefaultMaxRetries is the retry count applied when none is configured
	DefaultMaxRetries = 2

	// DefaultRetryTimeout bounds the total time spent retrying one request
	DefaultRetryTimeout = 10 * time.Second
)

// BackoffConfig describes exponential backoff between retries
type BackoffConfig struct {
	// InitBackoff is the delay before the first retry
	InitBackoff time.Duration

	// MaxBackoff caps a single delay
	MaxBackoff time.Duration

	// Base is the growth factor between consecutive delays
	Base float64
}

// DefaultBackoffConfig returns the fixed default backoff policy
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		InitBackoff: 100 * time.Millisecond,
		MaxBackoff:  15 * time.Second,
		Base:        2,
	}
}

// RetryConfig is the retry policy shared by every provider client
type RetryConfig struct {
	Backoff      BackoffConfig
	MaxRetries   int
	RetryTimeout time.Duration
}

// NewRetryConfig returns the default policy with the given retry count
func NewRetryConfig(maxRetries int) RetryConfig {
	return RetryConfig{
		Backoff:      DefaultBackoffConfig(),
		MaxRetries:   maxRetries,
		RetryTimeout: DefaultRetryTimeout,
	}
}

// MaxAttempts is the number of tries including the first one
func (rc RetryConfig) MaxAttempts() int {
	if rc.MaxRetries < 0 {
		return 1
	}
	return rc.MaxRetries + 1
}

// NewBackOff returns a fresh cenkalti backoff sequence for this policy.
// The sequence stops after MaxRetries delays or once RetryTimeout elapsed.
func (rc RetryConfig) NewBackOff() backoff.BackOff {
	b := rc.exponential(backoff.DefaultRandomizationFactor)
	b.MaxElapsedTime = rc.RetryTimeout
	b.Reset()
	return backoff.WithMaxRetries(b, uint64(max(rc.MaxRetries, 0)))
}

// Delay returns the delay before retry number attempt (1-based) and whether a
// retry is still allowed. Delays carry no jitter so the retry timeout check is
// deterministic.
func (rc RetryConfig) Delay(attempt int) (time.Duration, bool) {
	if attempt < 1 || attempt > rc.MaxRetries {
		return 0, false
	}

	b := rc.exponential(0)
	b.MaxElapsedTime = 0
	b.Reset()

	var delay, total time.Duration
	for i := 0; i < attempt; i++ {
		delay = b.NextBackOff()
		total += delay
	}
	if rc.RetryTimeout > 0 && total > rc.RetryTimeout {
		return 0, false
	}
	return delay, true
}

// RetriesWithinTimeout is the number of retries whose cumulative delay fits
// the retry timeout. Clients that only take a retry count use it in place of
// MaxRetries.
func (rc RetryConfig) RetriesWithinTimeout() int {
	n := 0
	for n < rc.MaxRetries {
		if _, ok := rc.Delay(n + 1); !ok {
			break
		}
		n++
	}
	return n
}

func (rc RetryConfig) exponential(randomization float64) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = rc.Backoff.InitBackoff
	b.MaxInterval = rc.Backoff.MaxBackoff
	b.Multiplier = rc.Backoff.Base
	b.RandomizationFactor = randomization
	return b
}

// ClientOptions is the transport policy shared by every provider client
type ClientOptions struct {
	// Timeout is the per-request timeout; zero disables it. Provider clocks
	// start before the body streams, so a finite value aborts large downloads.
	Timeout time.Duration

	// ConnectTimeout bounds connection setup; zero disables it
	ConnectTimeout time.Duration

	// AllowHTTP permits plaintext http:// endpoints
	AllowHTTP bool
}

// DefaultClientOptions returns the shared transport policy
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		Timeout:        0,
		ConnectTimeout: 0,
		AllowHTTP:      true,
	}
}

// Transport returns a pooled transport honouring ConnectTimeout
func (co ClientOptions) Transport() *http.Transport {
	t := cleanhttp.DefaultPooledTransport()
	dialer := &net.Dialer{
		Timeout:   co.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}
	t.DialContext = dialer.DialContext
	return t
}

// HTTPClient returns an http.Client honouring the transport policy
func (co ClientOptions) HTTPClient() *http.Client {
	return &http.Client{
		Transport: co.Transport(),
		Timeout:   co.Timeout,
	}
}
