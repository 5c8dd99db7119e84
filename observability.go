package cloudx

import (
	"context"
	"errors"
	"time"

	"github.com/gostratum/metricsx"
	"github.com/gostratum/tracingx"
	"github.com/prometheus/client_golang/prometheus"
)

// Region resolution sources recorded by RecordRegionResolution
const (
	RegionSourceConfigured      = "configured"
	RegionSourceCache           = "cache"
	RegionSourceEndpointDefault = "endpoint_default"
	RegionSourceProbe           = "probe"
	RegionSourceUnresolved      = "unresolved"
)

// Instrumenter records client builds and region discovery. A nil
// *Instrumenter is valid and records nothing.
//
// Metrics always land on the prometheus collectors and, when set, on the
// application's metricsx.Metrics. Network region lookups are traced when a
// tracingx.Tracer is set.
type Instrumenter struct {
	builds        *prometheus.CounterVec
	buildDuration *prometheus.HistogramVec
	regions       *prometheus.CounterVec
	probes        *prometheus.HistogramVec

	metrics metricsx.Metrics
	tracer  tracingx.Tracer
}

// NewInstrumenter creates the collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewInstrumenter(reg prometheus.Registerer) (*Instrumenter, error) {
	i := &Instrumenter{
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudx_client_builds_total",
			Help: "Total number of storage client builds",
		}, []string{"provider", "status"}),
		buildDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cloudx_client_build_duration_seconds",
			Help:    "Storage client build duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		regions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudx_region_resolutions_total",
			Help: "Region resolutions by the source that supplied the region",
		}, []string{"source"}),
		probes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cloudx_region_probe_duration_seconds",
			Help:    "Bucket region probe duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"status"}),
	}

	if reg == nil {
		return i, nil
	}

	var err error
	if i.builds, err = register(reg, i.builds); err != nil {
		return nil, err
	}
	if i.buildDuration, err = register(reg, i.buildDuration); err != nil {
		return nil, err
	}
	if i.regions, err = register(reg, i.regions); err != nil {
		return nil, err
	}
	if i.probes, err = register(reg, i.probes); err != nil {
		return nil, err
	}
	return i, nil
}

// WithMetrics mirrors every recorded metric onto m
func (i *Instrumenter) WithMetrics(m metricsx.Metrics) *Instrumenter {
	i.metrics = m
	return i
}

// WithTracer traces operations run through TraceOperation with t
func (i *Instrumenter) WithTracer(t tracingx.Tracer) *Instrumenter {
	i.tracer = t
	return i
}

// TraceOperation runs fn inside a client span named "cloudx.<operation>"
// carrying attrs. Without a tracer fn runs directly.
func (i *Instrumenter) TraceOperation(ctx context.Context, operation string, attrs map[string]any, fn func(ctx context.Context) error) error {
	if i == nil || i.tracer == nil {
		return fn(ctx)
	}

	spanAttrs := map[string]any{"cloudx.operation": operation}
	for k, v := range attrs {
		spanAttrs[k] = v
	}
	ctx, span := i.tracer.Start(ctx, "cloudx."+operation,
		tracingx.WithSpanKind(tracingx.SpanKindClient),
		tracingx.WithAttributes(spanAttrs),
	)
	defer span.End()

	err := fn(ctx)
	if err != nil {
		span.SetError(err)
	}
	return err
}

// register reuses an identical collector that is already registered
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordBuild records the outcome of one Registry.Build call
func (i *Instrumenter) RecordBuild(p Provider, err error, d time.Duration) {
	if i == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	i.builds.WithLabelValues(p.String(), status).Inc()
	i.buildDuration.WithLabelValues(p.String()).Observe(d.Seconds())

	if i.metrics != nil {
		i.metrics.Counter("cloudx_client_builds_total",
			metricsx.WithHelp("Total number of storage client builds"),
			metricsx.WithLabels("provider", "status"),
		).Inc(p.String(), status)

		i.metrics.Histogram("cloudx_client_build_duration_seconds",
			metricsx.WithHelp("Storage client build duration in seconds"),
			metricsx.WithLabels("provider"),
			metricsx.WithBuckets(.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10),
		).Observe(d.Seconds(), p.String())
	}
}

// RecordRegionResolution records which source supplied a bucket region
func (i *Instrumenter) RecordRegionResolution(source string) {
	if i == nil {
		return
	}
	i.regions.WithLabelValues(source).Inc()

	if i.metrics != nil {
		i.metrics.Counter("cloudx_region_resolutions_total",
			metricsx.WithHelp("Region resolutions by the source that supplied the region"),
			metricsx.WithLabels("source"),
		).Inc(source)
	}
}

// RegionResolutions returns the resolution counter for source
func (i *Instrumenter) RegionResolutions(source string) prometheus.Counter {
	return i.regions.WithLabelValues(source)
}

// RecordProbe records one network region probe
func (i *Instrumenter) RecordProbe(err error, d time.Duration) {
	if i == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	i.probes.WithLabelValues(status).Observe(d.Seconds())

	if i.metrics != nil {
		i.metrics.Histogram("cloudx_region_probe_duration_seconds",
			metricsx.WithHelp("Bucket region probe duration in seconds"),
			metricsx.WithLabels("status"),
			metricsx.WithBuckets(.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10),
		).Observe(d.Seconds(), status)
	}
}
