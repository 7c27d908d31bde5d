package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream unavailable")

func newTestBreaker(t *testing.T, cfg *Config) (*circuitBreaker, *time.Time) {
	t.Helper()

	cb := NewCircuitBreaker(cfg).(*circuitBreaker)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return clock }
	return cb, &clock
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(t, &Config{FailureThreshold: 2, RecoveryTimeout: time.Minute})

	assert.ErrorIs(t, cb.Call(func() error { return errUpstream }), errUpstream)
	assert.Equal(t, Closed, cb.State())

	assert.ErrorIs(t, cb.Call(func() error { return errUpstream }), errUpstream)
	assert.Equal(t, Open, cb.State())

	called := false
	err := cb.Call(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	var transitions []string
	cb, clock := newTestBreaker(t, &Config{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Minute,
		OnStateChange: func(from, to CircuitState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	require.Error(t, cb.Call(func() error { return errUpstream }))
	require.Equal(t, Open, cb.State())

	*clock = clock.Add(2 * time.Minute)

	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, Closed, cb.State())
	assert.Equal(t, []string{"closed->open", "open->half_open", "half_open->closed"}, transitions)
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(t, &Config{FailureThreshold: 1, RecoveryTimeout: time.Minute})

	require.Error(t, cb.Call(func() error { return errUpstream }))
	*clock = clock.Add(2 * time.Minute)

	require.Error(t, cb.Call(func() error { return errUpstream }))
	assert.Equal(t, Open, cb.State())
	assert.Equal(t, clock.Add(time.Minute), cb.Metrics().NextAttempt)
}

func TestCircuitBreaker_IsFailureFilter(t *testing.T) {
	clientErr := errors.New("bad request")
	cb, _ := newTestBreaker(t, &Config{
		FailureThreshold: 1,
		IsFailure:        func(err error) bool { return err != nil && !errors.Is(err, clientErr) },
	})

	require.ErrorIs(t, cb.Call(func() error { return clientErr }), clientErr)
	assert.Equal(t, Closed, cb.State())
	assert.Zero(t, cb.Metrics().FailureCount)
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker(t, &Config{FailureThreshold: 1})

	require.Error(t, cb.Call(func() error { return errUpstream }))
	require.Equal(t, Open, cb.State())

	cb.Reset()
	assert.Equal(t, Closed, cb.State())
	assert.NoError(t, cb.Call(func() error { return nil }))
}
