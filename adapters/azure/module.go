package azure

import (
	"go.uber.org/fx"

	"github.com/gostratum/cloudx"
)

// Module returns an fx.Module which registers the Azure builder with the
// cloudx registry
func Module() fx.Option {
	return fx.Module("cloudx-azure",
		fx.Provide(
			fx.Annotate(
				provideBuilder,
				fx.As(new(cloudx.Builder)),
				fx.ResultTags(`group:"cloudx_builders"`),
			),
		),
	)
}

func provideBuilder(opts cloudx.BuildOptions) *Builder {
	return NewBuilder(opts...)
}
