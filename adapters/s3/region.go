package s3

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"go.uber.org/zap"

	"github.com/gostratum/cloudx"
	"github.com/gostratum/cloudx/pkg/budget"
	"github.com/gostratum/cloudx/pkg/regioncache"
)

const (
	// DefaultProbeEndpoint is the probe URL template; %s is the bucket
	DefaultProbeEndpoint = "https://%s.s3.amazonaws.com"

	// DefaultFallbackRegion is used when a custom endpoint is set and no region is known
	DefaultFallbackRegion = "us-east-1"

	// BucketRegionHeader carries the bucket region on any S3 response
	BucketRegionHeader = "x-amz-bucket-region"
)

// ErrRegionHeaderMissing is returned by a probe whose response has no region header
var ErrRegionHeaderMissing = errors.New("response has no " + BucketRegionHeader + " header")

// RegionProber discovers the region a bucket lives in
type RegionProber interface {
	ProbeRegion(ctx context.Context, bucket string) (string, error)
}

// HTTPRegionProber issues one HEAD request per probe under the shared
// concurrency budget
type HTTPRegionProber struct {
	client   *http.Client
	endpoint string
	budget   *budget.Budget
}

// NewHTTPRegionProber creates a prober for the endpoint template. A nil
// client uses a pooled cleanhttp client.
func NewHTTPRegionProber(endpoint string, b *budget.Budget, client *http.Client) *HTTPRegionProber {
	if endpoint == "" {
		endpoint = DefaultProbeEndpoint
	}
	if client == nil {
		client = cleanhttp.DefaultPooledClient()
	}
	return &HTTPRegionProber{client: client, endpoint: endpoint, budget: b}
}

// ProbeRegion implements RegionProber
func (p *HTTPRegionProber) ProbeRegion(ctx context.Context, bucket string) (string, error) {
	var region string
	probe := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, fmt.Sprintf(p.endpoint, bucket), nil)
		if err != nil {
			return err
		}
		resp, err := p.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		region = resp.Header.Get(BucketRegionHeader)
		if region == "" {
			return fmt.Errorf("%w (status %d)", ErrRegionHeaderMissing, resp.StatusCode)
		}
		return nil
	}

	if err := p.budget.Do(ctx, 1, probe); err != nil {
		return "", err
	}
	return region, nil
}

// RegionResolver fills in the region of a bucket when none is configured:
// cache first, then the fallback region for custom endpoints, then a probe.
type RegionResolver struct {
	cache          *regioncache.Cache
	prober         RegionProber
	fallbackRegion string
	logger         *zap.Logger
	instrumenter   *cloudx.Instrumenter
}

// NewRegionResolver creates a resolver. Only logger and instrumenter are
// read from opts.
func NewRegionResolver(cache *regioncache.Cache, prober RegionProber, fallbackRegion string, opts ...cloudx.Option) *RegionResolver {
	options := cloudx.NewOptions(opts...)
	if fallbackRegion == "" {
		fallbackRegion = DefaultFallbackRegion
	}
	return &RegionResolver{
		cache:          cache,
		prober:         prober,
		fallbackRegion: fallbackRegion,
		logger:         options.GetLogger(),
		instrumenter:   options.GetInstrumenter(),
	}
}

// Resolve sets the region on cfg if it needs one and returns the source that
// supplied it. A failed probe is not an error: cfg is left without a region
// and a warning is logged. Only cancellation of ctx is returned, in which
// case nothing is cached.
func (r *RegionResolver) Resolve(ctx context.Context, cfg *Config) (string, error) {
	if !cfg.NeedsRegion() {
		r.instrumenter.RecordRegionResolution(cloudx.RegionSourceConfigured)
		return cloudx.RegionSourceConfigured, nil
	}

	bucket := cfg.Bucket()
	if r.cache != nil {
		if region, ok := r.cache.Get(bucket); ok {
			r.logger.Debug("bucket region from cache", zap.String("bucket", bucket), zap.String("region", region))
			cfg.Set(cloudx.S3Region, region)
			r.instrumenter.RecordRegionResolution(cloudx.RegionSourceCache)
			return cloudx.RegionSourceCache, nil
		}
	}

	if cfg.Endpoint() != "" {
		// Non-AWS endpoints need some region to sign with
		cfg.Set(cloudx.S3Region, r.fallbackRegion)
		r.instrumenter.RecordRegionResolution(cloudx.RegionSourceEndpointDefault)
		return cloudx.RegionSourceEndpointDefault, nil
	}

	if r.prober == nil {
		r.instrumenter.RecordRegionResolution(cloudx.RegionSourceUnresolved)
		return cloudx.RegionSourceUnresolved, nil
	}

	r.logger.Warn("region not set; trying to get it from the bucket, set the region manually to silence this warning",
		zap.String("bucket", bucket))

	var region string
	start := time.Now()
	err := r.instrumenter.TraceOperation(ctx, "region_lookup", map[string]any{"cloudx.bucket": bucket},
		func(ctx context.Context) error {
			var err error
			region, err = r.prober.ProbeRegion(ctx, bucket)
			return err
		})
	r.instrumenter.RecordProbe(err, time.Since(start))

	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if err != nil {
		r.logger.Warn("could not determine bucket region; configure the region manually",
			zap.String("bucket", bucket),
			zap.Error(err))
		r.instrumenter.RecordRegionResolution(cloudx.RegionSourceUnresolved)
		return cloudx.RegionSourceUnresolved, nil
	}

	if r.cache != nil {
		r.cache.Add(bucket, region)
	}
	cfg.Set(cloudx.S3Region, region)
	r.logger.Debug("bucket region discovered", zap.String("bucket", bucket), zap.String("region", region))
	r.instrumenter.RecordRegionResolution(cloudx.RegionSourceProbe)
	return cloudx.RegionSourceProbe, nil
}
