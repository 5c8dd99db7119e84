package cloudx

import (
	"context"

	"github.com/gostratum/core/configx"
	"github.com/gostratum/core/logx"
	"github.com/gostratum/metricsx"
	"github.com/gostratum/tracingx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/gostratum/cloudx/pkg/budget"
	"github.com/gostratum/cloudx/pkg/regioncache"
)

// BuildersGroup is the fx value group adapters provide their Builder into
const BuildersGroup = "cloudx_builders"

// Module provides the resolution core for fx: Config, the shared region
// cache and concurrency budget, the Instrumenter, BuildOptions and a
// Registry of every Builder provided into BuildersGroup.
//
// It does not include any provider. Add adapter modules (e.g. s3.Module())
// for the providers the application needs; the rest return
// ErrFeatureUnavailable.
//
// Example usage:
//
//	app := fx.New(
//	    cloudx.Module(),
//	    s3.Module(),
//	    fx.Invoke(func(r *cloudx.Registry) {
//	        // r.Open(ctx, "s3://bucket/prefix", nil, nil)
//	    }),
//	)
func Module() fx.Option {
	return NewModuleWithOptions(ModuleOptions{})
}

// ConfigParams defines the optional sources of Config
type ConfigParams struct {
	fx.In

	Loader configx.Loader `optional:"true"`
	Viper  *viper.Viper   `optional:"true"`
}

// NewConfig creates the configuration from the "cloud" section of the
// configx loader when one is in the graph, else of the supplied viper
// instance, else from CLOUDX_* variables alone
func NewConfig(params ConfigParams) (*Config, error) {
	if params.Loader != nil {
		return NewConfigFromLoader(params.Loader)
	}
	return NewConfigFromViper(params.Viper)
}

// NewRegionCache creates the process-wide bucket region cache
func NewRegionCache(cfg *Config) (*regioncache.Cache, error) {
	return regioncache.New(cfg.RegionCacheSize)
}

// NewBudget creates the process-wide concurrency budget
func NewBudget(cfg *Config) (*budget.Budget, error) {
	return budget.New(cfg.ConcurrencyBudget)
}

// ObservabilityDeps defines optional observability dependencies
type ObservabilityDeps struct {
	fx.In

	Registerer prometheus.Registerer `optional:"true"`
	Metrics    metricsx.Metrics      `optional:"true"`
	Tracer     tracingx.Tracer       `optional:"true"`
}

// NewObservabilityInstrumenter creates the instrumenter. When a
// metricsx.Metrics is in the graph it owns metric export and the prometheus
// collectors stay unregistered; otherwise they are registered on Registerer.
func NewObservabilityInstrumenter(deps ObservabilityDeps) (*Instrumenter, error) {
	reg := deps.Registerer
	if deps.Metrics != nil {
		reg = nil
	}
	i, err := NewInstrumenter(reg)
	if err != nil {
		return nil, err
	}
	return i.WithMetrics(deps.Metrics).WithTracer(deps.Tracer), nil
}

// BuildOptions are the options every adapter builder is created with
type BuildOptions []Option

// BuildOptionsParams defines the inputs of BuildOptions
type BuildOptionsParams struct {
	fx.In

	Config       *Config
	Instrumenter *Instrumenter
	Budget       *budget.Budget
	Logger       *zap.Logger `optional:"true"`
	Logx         logx.Logger `optional:"true"`
}

// NewBuildOptions projects Config onto builder options
func NewBuildOptions(params BuildOptionsParams) BuildOptions {
	opts := BuildOptions{
		WithInstrumenter(params.Instrumenter),
		WithClientOptions(params.Config.ClientOptions()),
		WithBackoff(params.Config.BackoffConfig(), params.Config.RetryTimeout),
		WithBudget(params.Budget),
	}
	if logger := pickLogger(params.Logger, params.Logx); logger != nil {
		opts = append(opts, WithLogger(logger))
	}
	return opts
}

// pickLogger prefers a *zap.Logger in the graph and falls back to the
// application's logx.Logger
func pickLogger(z *zap.Logger, l logx.Logger) *zap.Logger {
	if z != nil {
		return z
	}
	if l != nil {
		return NewZapFromLogx(l)
	}
	return nil
}

// RegistryParams collects the builders contributed by adapter modules
type RegistryParams struct {
	fx.In

	Builders     []Builder `group:"cloudx_builders"`
	Instrumenter *Instrumenter
	Config       *Config
}

// NewRegistryFromGroup creates the registry from the builders group
func NewRegistryFromGroup(params RegistryParams) *Registry {
	return NewRegistry(params.Builders...).
		WithInstrumenter(params.Instrumenter).
		WithDefaults(params.Config.CloudOptions())
}

// LifecycleParams defines parameters for lifecycle management
type LifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Registry  *Registry
	Cache     *regioncache.Cache
	Config    *Config
	Logger    *zap.Logger `optional:"true"`
	Logx      logx.Logger `optional:"true"`
}

// registerLifecycle logs the available providers on start and drops cached
// regions on stop
func registerLifecycle(params LifecycleParams) {
	logger := pickLogger(params.Logger, params.Logx)
	if logger == nil {
		logger = zap.NewNop()
	}

	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			providers := params.Registry.Providers()
			names := make([]string, len(providers))
			for i, p := range providers {
				names[i] = p.String()
			}
			logger.Info("cloudx module started",
				zap.Strings("providers", names),
				zap.Any("config", params.Config.ConfigSummary()))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			params.Cache.Purge()
			logger.Info("cloudx module stopped")
			return nil
		},
	})
}
