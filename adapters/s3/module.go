package s3

import (
	"go.uber.org/fx"

	"github.com/gostratum/cloudx"
	"github.com/gostratum/cloudx/pkg/budget"
	"github.com/gostratum/cloudx/pkg/regioncache"
)

// Module returns an fx.Module which registers the S3 builder with the
// cloudx registry. Consumers opt in explicitly next to cloudx.Module().
func Module() fx.Option {
	return fx.Module("cloudx-s3",
		fx.Provide(
			NewRegionResolverFromConfig,
			fx.Annotate(
				provideBuilder,
				fx.As(new(cloudx.Builder)),
				fx.ResultTags(`group:"cloudx_builders"`),
			),
		),
	)
}

// ResolverParams are the shared resources the region resolver uses
type ResolverParams struct {
	fx.In

	Config  *cloudx.Config
	Cache   *regioncache.Cache
	Budget  *budget.Budget
	Options cloudx.BuildOptions
}

// NewRegionResolverFromConfig creates the resolver that probes
// Config.RegionProbeEndpoint under the shared budget
func NewRegionResolverFromConfig(p ResolverParams) *RegionResolver {
	co := p.Config.ClientOptions()
	prober := NewHTTPRegionProber(p.Config.RegionProbeEndpoint, p.Budget, co.HTTPClient())
	return NewRegionResolver(p.Cache, prober, p.Config.FallbackRegion, p.Options...)
}

func provideBuilder(cfg *cloudx.Config, resolver *RegionResolver, opts cloudx.BuildOptions) *Builder {
	return NewBuilder(BuilderConfig{
		Resolver:        resolver,
		CredentialFiles: cfg.CredentialFiles,
	}, opts...)
}
