package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvDurationOrDefault(t *testing.T) {
	t.Setenv("STORE_TIMEOUT", "")
	assert.Equal(t, 5*time.Second, GetEnvDurationOrDefault("STORE_TIMEOUT", 5*time.Second))

	t.Setenv("STORE_TIMEOUT", " 250ms ")
	assert.Equal(t, 250*time.Millisecond, GetEnvDurationOrDefault("STORE_TIMEOUT", 5*time.Second))

	t.Setenv("STORE_TIMEOUT", "-1s")
	assert.Equal(t, 5*time.Second, GetEnvDurationOrDefault("STORE_TIMEOUT", 5*time.Second))

	t.Setenv("STORE_TIMEOUT", "soon")
	assert.Equal(t, 5*time.Second, GetEnvDurationOrDefault("STORE_TIMEOUT", 5*time.Second))
}

func TestGetEnvPositiveIntOrDefault(t *testing.T) {
	t.Setenv("CIRCUIT_BREAKER_FAILURES", "7")
	assert.Equal(t, 7, GetEnvPositiveIntOrDefault("CIRCUIT_BREAKER_FAILURES", 5))

	t.Setenv("CIRCUIT_BREAKER_FAILURES", "0")
	assert.Equal(t, 5, GetEnvPositiveIntOrDefault("CIRCUIT_BREAKER_FAILURES", 5))
}

func TestIsTracingEnabled(t *testing.T) {
	t.Setenv("OTEL_TRACES_ENABLED", "")
	assert.False(t, IsTracingEnabled())

	t.Setenv("OTEL_TRACES_ENABLED", "true")
	assert.True(t, IsTracingEnabled())

	t.Setenv("OTEL_TRACES_ENABLED", "maybe")
	assert.False(t, IsTracingEnabled())
}
