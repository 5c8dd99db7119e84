package cloudx

import (
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gostratum/cloudx/pkg/budget"
)

// Options holds the collaborators a Builder uses
type Options struct {
	logger        *zap.Logger
	instrumenter  *Instrumenter
	environ       func() []string
	clientOptions *ClientOptions
	backoff       *BackoffConfig
	retryTimeout  time.Duration
	budget        *budget.Budget
}

// Option is a functional option for configuring a Builder
type Option func(*Options)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(opts *Options) {
		opts.logger = logger
	}
}

// WithInstrumenter sets the metrics instrumenter
func WithInstrumenter(i *Instrumenter) Option {
	return func(opts *Options) {
		opts.instrumenter = i
	}
}

// WithEnviron replaces os.Environ as the source of environment defaults (useful for testing)
func WithEnviron(environ func() []string) Option {
	return func(opts *Options) {
		opts.environ = environ
	}
}

// WithClientOptions overrides the shared transport policy
func WithClientOptions(co ClientOptions) Option {
	return func(opts *Options) {
		opts.clientOptions = &co
	}
}

// WithBudget shares a concurrency budget with the stores a Builder creates.
// Transfers hold one unit each; without a budget they are unbounded.
func WithBudget(b *budget.Budget) Option {
	return func(opts *Options) {
		opts.budget = b
	}
}

// WithBackoff overrides the backoff policy and retry timeout applied on top of
// each build's retry count
func WithBackoff(b BackoffConfig, retryTimeout time.Duration) Option {
	return func(opts *Options) {
		opts.backoff = &b
		opts.retryTimeout = retryTimeout
	}
}

// NewOptions applies opts over the defaults
func NewOptions(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	o.applyDefaults()
	return o
}

// applyDefaults applies default values to unset options
func (opts *Options) applyDefaults() {
	if opts.logger == nil {
		opts.logger = zap.NewNop()
	}
	if opts.environ == nil {
		opts.environ = os.Environ
	}
	if opts.clientOptions == nil {
		co := DefaultClientOptions()
		opts.clientOptions = &co
	}
}

// GetLogger returns the configured logger
func (opts *Options) GetLogger() *zap.Logger {
	if opts.logger == nil {
		return zap.NewNop()
	}
	return opts.logger
}

// GetInstrumenter returns the configured instrumenter (nil-safe to use)
func (opts *Options) GetInstrumenter() *Instrumenter {
	return opts.instrumenter
}

// GetBudget returns the shared concurrency budget, nil when unbounded
func (opts *Options) GetBudget() *budget.Budget {
	return opts.budget
}

// Environ returns the environment as KEY=value strings
func (opts *Options) Environ() []string {
	if opts.environ == nil {
		return os.Environ()
	}
	return opts.environ()
}

// GetClientOptions returns the shared transport policy
func (opts *Options) GetClientOptions() ClientOptions {
	if opts.clientOptions == nil {
		return DefaultClientOptions()
	}
	return *opts.clientOptions
}

// RetryConfig returns the retry policy for a build with the given retry count
func (opts *Options) RetryConfig(maxRetries int) RetryConfig {
	rc := NewRetryConfig(maxRetries)
	if opts.backoff != nil {
		rc.Backoff = *opts.backoff
	}
	if opts.retryTimeout > 0 {
		rc.RetryTimeout = opts.retryTimeout
	}
	return rc
}

// EnvWithPrefix returns lowercased names and values of the variables starting
// with prefix, in environment order
func EnvWithPrefix(environ []string, prefix string) []KeyValue {
	prefix = strings.ToLower(prefix)
	var out []KeyValue
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		name = strings.ToLower(name)
		if strings.HasPrefix(name, prefix) {
			out = append(out, KeyValue{Key: name, Value: value})
		}
	}
	return out
}
