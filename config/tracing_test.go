package config

import (
	"testing"

	"github.com/akeren/cv99x-waitlist/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOTLPEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    otlpEndpoint
		wantErr bool
	}{
		{name: "http default path", raw: "http://collector:4318", want: otlpEndpoint{HostPort: "collector:4318", Path: "/v1/traces", Insecure: true}},
		{name: "https custom path", raw: "https://otel.example.com/custom/traces", want: otlpEndpoint{HostPort: "otel.example.com", Path: "/custom/traces"}},
		{name: "bare host port", raw: " localhost:4318 ", want: otlpEndpoint{HostPort: "localhost:4318", Path: "/v1/traces", Insecure: true}},
		{name: "bare host with path", raw: "localhost:4318/v1/traces", wantErr: true},
		{name: "grpc scheme", raw: "grpc://collector:4317", wantErr: true},
		{name: "missing host", raw: "http://", wantErr: true},
		{name: "empty", raw: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseOTLPEndpoint(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTracesSampleRatio(t *testing.T) {
	t.Setenv("OTEL_TRACES_SAMPLER_RATIO", "")
	ratio, err := tracesSampleRatio()
	require.NoError(t, err)
	assert.Equal(t, 1.0, ratio)

	t.Setenv("OTEL_TRACES_SAMPLER_RATIO", "0.25")
	ratio, err = tracesSampleRatio()
	require.NoError(t, err)
	assert.Equal(t, 0.25, ratio)

	t.Setenv("OTEL_TRACES_SAMPLER_RATIO", "1.5")
	_, err = tracesSampleRatio()
	assert.Error(t, err)
}

func TestSetupTracing_DisabledReturnsNilShutdown(t *testing.T) {
	t.Setenv("OTEL_TRACES_ENABLED", "false")

	shutdown, err := SetupTracing(log.NewDiscardLogger())

	require.NoError(t, err)
	assert.Nil(t, shutdown)
}
