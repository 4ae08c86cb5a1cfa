package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/cory-johannsen/delve/internal/config"
)

func TestSetupTracing_DisabledLeavesGlobalProvider(t *testing.T) {
	before := otel.GetTracerProvider()
	shutdown, err := SetupTracing(context.Background(), config.TelemetryConfig{})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
	assert.Equal(t, before, otel.GetTracerProvider())
}

func TestSetupTracing_EnabledInstallsProvider(t *testing.T) {
	before := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(before) })

	shutdown, err := SetupTracing(context.Background(), config.TelemetryConfig{
		Enabled:     true,
		ServiceName: "delved-test",
		Endpoint:    "127.0.0.1:4318",
		Insecure:    true,
	})
	require.NoError(t, err)
	assert.NotEqual(t, before, otel.GetTracerProvider())
	assert.NoError(t, shutdown(context.Background()))
}

func TestTracer_StartsSpans(t *testing.T) {
	_, span := Tracer("dungeon").Start(context.Background(), "op")
	defer span.End()
	assert.NotNil(t, span)

	_, noop := NoopTracer().Start(context.Background(), "op")
	defer noop.End()
	assert.False(t, noop.SpanContext().IsValid())
}
