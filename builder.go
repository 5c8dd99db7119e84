package cloudx

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Builder constructs an ObjectStore for one provider from the merged
// configuration. Adapters under adapters/ implement it.
type Builder interface {
	// Provider reports which provider this builder serves
	Provider() Provider

	// Build resolves the configuration for rawURL and constructs the client
	Build(ctx context.Context, rawURL string, opts CloudOptions) (ObjectStore, error)
}

// Registry is the set of providers available to this process. A provider
// without a registered builder yields ErrFeatureUnavailable.
type Registry struct {
	builders     map[Provider]Builder
	instrumenter *Instrumenter
	defaults     *CloudOptions
}

// NewRegistry creates a registry from builders; later builders for the same
// provider replace earlier ones
func NewRegistry(builders ...Builder) *Registry {
	r := &Registry{builders: make(map[Provider]Builder, len(builders))}
	for _, b := range builders {
		if b != nil {
			r.builders[b.Provider()] = b
		}
	}
	return r
}

// WithInstrumenter records build outcomes on i
func (r *Registry) WithInstrumenter(i *Instrumenter) *Registry {
	r.instrumenter = i
	return r
}

// WithDefaults sets the options Open starts from instead of DefaultCloudOptions
func (r *Registry) WithDefaults(opts CloudOptions) *Registry {
	r.defaults = &opts
	return r
}

// Providers lists the registered providers in declaration order
func (r *Registry) Providers() []Provider {
	out := make([]Provider, 0, len(r.builders))
	for p := range r.builders {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Supports reports whether a builder is registered for p
func (r *Registry) Supports(p Provider) bool {
	_, ok := r.builders[p]
	return ok
}

// Build classifies rawURL and dispatches to the provider's builder
func (r *Registry) Build(ctx context.Context, rawURL string, opts CloudOptions) (ObjectStore, error) {
	provider, _, err := ProviderFor(rawURL)
	if err != nil {
		return nil, err
	}

	b, ok := r.builders[provider]
	if !ok {
		return nil, &ConfigError{
			Op:       "build",
			Provider: provider,
			Err:      fmt.Errorf("%w: %s support is not included", ErrFeatureUnavailable, provider),
		}
	}

	start := time.Now()
	store, err := b.Build(ctx, rawURL, opts)
	r.instrumenter.RecordBuild(provider, err, time.Since(start))
	return store, err
}

// Open types the untyped overrides for rawURL's provider and builds the
// store. maxRetries overrides the default retry count when non-nil.
func (r *Registry) Open(ctx context.Context, rawURL string, config []KeyValue, maxRetries *int) (ObjectStore, error) {
	base := DefaultCloudOptions()
	if r.defaults != nil {
		base = *r.defaults
	}
	opts, err := base.WithUntypedConfig(rawURL, config)
	if err != nil {
		return nil, err
	}
	if maxRetries != nil {
		opts = opts.WithMaxRetries(*maxRetries)
	}
	return r.Build(ctx, rawURL, opts)
}
