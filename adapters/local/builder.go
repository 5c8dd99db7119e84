package local

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/gostratum/cloudx"
)

// Builder builds stores over a directory of the local filesystem
type Builder struct {
	fs      afero.Fs
	options *cloudx.Options
	logger  *zap.Logger
}

var _ cloudx.Builder = (*Builder)(nil)

// NewBuilder creates a builder over the OS filesystem
func NewBuilder(opts ...cloudx.Option) *Builder {
	return NewBuilderWithFs(afero.NewOsFs(), opts...)
}

// NewBuilderWithFs creates a builder over fs (e.g. afero.NewMemMapFs in tests)
func NewBuilderWithFs(fs afero.Fs, opts ...cloudx.Option) *Builder {
	options := cloudx.NewOptions(opts...)
	return &Builder{fs: fs, options: options, logger: options.GetLogger()}
}

// Provider implements cloudx.Builder
func (b *Builder) Provider() cloudx.Provider { return cloudx.ProviderFile }

// Build implements cloudx.Builder. The root directory is not touched until
// the first operation.
func (b *Builder) Build(_ context.Context, rawURL string, _ cloudx.CloudOptions) (cloudx.ObjectStore, error) {
	loc, err := cloudx.ParseLocation(rawURL)
	if err != nil {
		return nil, err
	}
	if loc.Provider != cloudx.ProviderFile {
		return nil, &cloudx.ConfigError{
			Op:       "build",
			Provider: cloudx.ProviderFile,
			Key:      rawURL,
			Err:      fmt.Errorf("%w: not a file url", cloudx.ErrInvalidInput),
		}
	}

	root, err := cloudx.FilePath(loc.URL)
	if err != nil {
		return nil, err
	}

	b.logger.Debug("Local store created", zap.String("root", root))
	return newStore(b.fs, root, b.logger), nil
}
