package cloudx

import (
	"fmt"

	"go.uber.org/fx"
)

// ModuleOptions allows customization of the cloudx module
type ModuleOptions struct {
	// Config replaces the viper/environment configuration when set
	Config *Config

	// DisableLifecycle disables the start/stop hooks
	DisableLifecycle bool

	// CustomProviders allows adding custom providers to the module
	CustomProviders []fx.Option
}

// NewModuleWithOptions creates a customized cloudx module
func NewModuleWithOptions(opts ModuleOptions) fx.Option {
	configProvider := fx.Provide(NewConfig)
	if opts.Config != nil {
		configProvider = fx.Supply(opts.Config)
	}

	providers := []fx.Option{
		configProvider,
		fx.Provide(
			NewRegionCache,
			NewBudget,
			NewObservabilityInstrumenter,
			NewBuildOptions,
			NewRegistryFromGroup,
		),
	}

	providers = append(providers, opts.CustomProviders...)

	if !opts.DisableLifecycle {
		providers = append(providers, fx.Invoke(registerLifecycle))
	}

	return fx.Module("cloudx", providers...)
}

// WithCustomBuilder provides a Builder into the registry group. Useful for
// tests or for providers implemented outside this module.
func WithCustomBuilder(b Builder) fx.Option {
	return fx.Provide(
		fx.Annotate(
			func() Builder { return b },
			fx.ResultTags(fmt.Sprintf("group:%q", BuildersGroup)),
		),
	)
}

// NewRegistryFromConfig creates a registry outside of fx. Builders should be
// created with the same cfg projected through BuildOptionsFromConfig.
func NewRegistryFromConfig(cfg *Config, builders ...Builder) *Registry {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return NewRegistry(builders...).WithDefaults(cfg.CloudOptions())
}

// BuildOptionsFromConfig projects cfg onto builder options without fx
func BuildOptionsFromConfig(cfg *Config, opts ...Option) []Option {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	out := []Option{
		WithClientOptions(cfg.ClientOptions()),
		WithBackoff(cfg.BackoffConfig(), cfg.RetryTimeout),
	}
	return append(out, opts...)
}

/*
Basic usage with fx:

	app := fx.New(
		cloudx.Module(),
		s3.Module(),
		local.Module(),
		fx.Invoke(func(r *cloudx.Registry) {
			// r.Open(ctx, "s3://bucket/prefix", nil, nil)
		}),
	)

With an explicit configuration:

	cfg := cloudx.DefaultConfig()
	cfg.MaxRetries = 5

	app := fx.New(
		cloudx.NewModuleWithOptions(cloudx.ModuleOptions{Config: cfg}),
		gcs.Module(),
	)

Without fx:

	cfg := cloudx.DefaultConfig()
	reg := cloudx.NewRegistryFromConfig(cfg,
		local.NewBuilder(cloudx.BuildOptionsFromConfig(cfg)...),
	)
	store, err := reg.Open(ctx, "/var/data", nil, nil)
*/
