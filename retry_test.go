package cloudx

import (
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryConfig_Delay(t *testing.T) {
	rc := NewRetryConfig(5)
	require.Equal(t, 6, rc.MaxAttempts())

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		1600 * time.Millisecond,
	}
	for i, w := range want {
		d, ok := rc.Delay(i + 1)
		require.True(t, ok, "retry %d", i+1)
		assert.Equal(t, w, d, "retry %d", i+1)
	}

	_, ok := rc.Delay(6)
	assert.False(t, ok, "retry count is exhausted")
	_, ok = rc.Delay(0)
	assert.False(t, ok)
}

func TestRetryConfig_TimeoutBoundsRetries(t *testing.T) {
	// 100+200+...+6400ms = 12.7s crosses the 10s budget on the seventh retry
	rc := NewRetryConfig(10)

	_, ok := rc.Delay(6)
	assert.True(t, ok)
	_, ok = rc.Delay(7)
	assert.False(t, ok)
}

func TestRetryConfig_RetriesWithinTimeout(t *testing.T) {
	rc := NewRetryConfig(10)
	rc.RetryTimeout = time.Second
	// 100ms, 200ms, 400ms fit in one second; 800ms more does not
	assert.Equal(t, 3, rc.RetriesWithinTimeout())

	assert.Equal(t, 0, NewRetryConfig(0).RetriesWithinTimeout())
	assert.Equal(t, 0, NewRetryConfig(-1).RetriesWithinTimeout())
	assert.Equal(t, 2, NewRetryConfig(2).RetriesWithinTimeout())
}

func TestRetryConfig_MaxBackoffCapsDelay(t *testing.T) {
	rc := RetryConfig{
		Backoff:      BackoffConfig{InitBackoff: time.Second, MaxBackoff: 2 * time.Second, Base: 10},
		MaxRetries:   3,
		RetryTimeout: time.Minute,
	}

	d, ok := rc.Delay(3)
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, d)
}

func TestRetryConfig_NoRetries(t *testing.T) {
	for _, n := range []int{0, -1} {
		rc := NewRetryConfig(n)
		assert.Equal(t, 1, rc.MaxAttempts())
		_, ok := rc.Delay(1)
		assert.False(t, ok)
		assert.Equal(t, backoff.Stop, rc.NewBackOff().NextBackOff())
	}
}

func TestRetryConfig_NewBackOffStopsAfterMaxRetries(t *testing.T) {
	b := NewRetryConfig(3).NewBackOff()

	for i := 0; i < 3; i++ {
		d := b.NextBackOff()
		assert.NotEqual(t, backoff.Stop, d)
		assert.Greater(t, d, time.Duration(0))
	}
	assert.Equal(t, backoff.Stop, b.NextBackOff())
}

func TestDefaultClientOptions(t *testing.T) {
	co := DefaultClientOptions()
	assert.Zero(t, co.Timeout, "no request timeout so large downloads are not cut off")
	assert.Zero(t, co.ConnectTimeout)
	assert.True(t, co.AllowHTTP)

	client := co.HTTPClient()
	assert.Zero(t, client.Timeout)
	assert.NotNil(t, client.Transport)
}

func TestBuilderOptions_RetryConfig(t *testing.T) {
	custom := BackoffConfig{InitBackoff: time.Millisecond, MaxBackoff: time.Second, Base: 3}

	opts := NewOptions(WithBackoff(custom, 2*time.Second))
	rc := opts.RetryConfig(4)
	assert.Equal(t, 4, rc.MaxRetries)
	assert.Equal(t, custom, rc.Backoff)
	assert.Equal(t, 2*time.Second, rc.RetryTimeout)

	rc = NewOptions().RetryConfig(1)
	assert.Equal(t, DefaultBackoffConfig(), rc.Backoff)
	assert.Equal(t, DefaultRetryTimeout, rc.RetryTimeout)
}

func TestEnvWithPrefix(t *testing.T) {
	env := []string{
		"AWS_REGION=eu-west-1",
		"HOME=/root",
		"aws_profile=dev",
		"AWS_EMPTY=",
		"malformed",
	}

	got := EnvWithPrefix(env, "AWS_")
	assert.Equal(t, []KeyValue{
		{Key: "aws_region", Value: "eu-west-1"},
		{Key: "aws_profile", Value: "dev"},
		{Key: "aws_empty", Value: ""},
	}, got)
}
