package cloudx_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gostratum/core/logx"
	"github.com/gostratum/metricsx"
	"github.com/gostratum/tracingx"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gostratum/cloudx"
	"github.com/gostratum/cloudx/internal/testutil"
)

// The module wires an Instrumenter even when no Registerer is provided.
func TestModuleProvidesInstrumenterWithoutRegisterer(t *testing.T) {
	app := fxtest.New(t,
		testutil.TestModule(),
		fx.Invoke(func(i *cloudx.Instrumenter) {
			require.NotNil(t, i)
		}),
	)
	defer app.RequireStart().RequireStop()
}

func TestModuleRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	app := fxtest.New(t,
		testutil.TestModule(),
		fx.Provide(func() prometheus.Registerer { return reg }),
		fx.Invoke(func(r *cloudx.Registry) {
			_, err := r.Open(context.Background(), "s3://bucket", nil, nil)
			require.NoError(t, err)
		}),
	)
	defer app.RequireStart().RequireStop()

	n, err := promtest.GatherAndCount(reg, "cloudx_client_builds_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestModuleRecordsThroughMetricsx(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := testutil.NewMockMetrics()

	app := fxtest.New(t,
		testutil.TestModule(),
		fx.Provide(func() prometheus.Registerer { return reg }),
		fx.Provide(func() metricsx.Metrics { return metrics }),
		fx.Invoke(func(r *cloudx.Registry) {
			_, err := r.Open(context.Background(), "s3://bucket", nil, nil)
			require.NoError(t, err)
		}),
	)
	defer app.RequireStart().RequireStop()

	assert.Equal(t, 1.0, metrics.CounterValue("cloudx_client_builds_total", "s3", "success"))
	assert.Len(t, metrics.Observations("cloudx_client_build_duration_seconds", "s3"), 1)

	// metricsx owns export, so nothing lands on the registerer
	n, err := promtest.GatherAndCount(reg, "cloudx_client_builds_total")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestModuleLogsThroughLogx(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	app := fxtest.New(t,
		testutil.TestModule(),
		fx.Provide(func() logx.Logger { return logx.ProvideAdapter(zap.New(core)) }),
	)
	app.RequireStart().RequireStop()

	assert.Equal(t, 1, logs.FilterMessage("cloudx module started").Len())
	assert.Equal(t, 1, logs.FilterMessage("cloudx module stopped").Len())
}

func TestInstrumenter_TraceOperation(t *testing.T) {
	t.Run("records a client span", func(t *testing.T) {
		tracer := testutil.NewMockTracer()
		i, err := cloudx.NewInstrumenter(nil)
		require.NoError(t, err)
		i.WithTracer(tracer)

		called := false
		err = i.TraceOperation(context.Background(), "region_lookup", map[string]any{"cloudx.bucket": "data"},
			func(context.Context) error {
				called = true
				return nil
			})
		require.NoError(t, err)
		assert.True(t, called)

		spans := tracer.Spans()
		require.Len(t, spans, 1)
		assert.Equal(t, "cloudx.region_lookup", spans[0].Name)
		assert.Equal(t, "region_lookup", spans[0].Tags["cloudx.operation"])
		assert.Equal(t, "data", spans[0].Tags["cloudx.bucket"])
		assert.True(t, spans[0].Ended)
		assert.NoError(t, spans[0].Err)
	})

	t.Run("marks the span failed", func(t *testing.T) {
		tracer := testutil.NewMockTracer()
		i, err := cloudx.NewInstrumenter(nil)
		require.NoError(t, err)
		i.WithTracer(tracer)

		boom := errors.New("boom")
		err = i.TraceOperation(context.Background(), "region_lookup", nil, func(context.Context) error { return boom })
		assert.ErrorIs(t, err, boom)

		spans := tracer.Spans()
		require.Len(t, spans, 1)
		assert.ErrorIs(t, spans[0].Err, boom)
		assert.True(t, spans[0].Ended)
	})

	t.Run("without a tracer the operation still runs", func(t *testing.T) {
		var i *cloudx.Instrumenter
		called := false
		err := i.TraceOperation(context.Background(), "region_lookup", nil, func(context.Context) error {
			called = true
			return nil
		})
		require.NoError(t, err)
		assert.True(t, called)
	})
}

func TestModuleWiresTracer(t *testing.T) {
	tracer := testutil.NewMockTracer()

	app := fxtest.New(t,
		testutil.TestModule(),
		fx.Provide(func() tracingx.Tracer { return tracer }),
		fx.Invoke(func(i *cloudx.Instrumenter) {
			require.NoError(t, i.TraceOperation(context.Background(), "region_lookup", nil,
				func(context.Context) error { return nil }))
		}),
	)
	defer app.RequireStart().RequireStop()

	assert.Len(t, tracer.Spans(), 1)
}
