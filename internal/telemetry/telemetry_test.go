package telemetry_test

import (
	"context"
	"testing"

	"github.com/plus3/ooftn/internal/config"
	"github.com/plus3/ooftn/internal/telemetry"
	"github.com/stretchr/testify/require"
)

func TestSetupNoopWhenDisabled(t *testing.T) {
	shutdown, err := telemetry.Setup(context.Background(), config.TelemetryConfig{
		Endpoint: "http://localhost:4318",
	})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSetupNoopWithoutEndpoint(t *testing.T) {
	shutdown, err := telemetry.Setup(context.Background(), config.TelemetryConfig{Enabled: true})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, shutdown(ctx), "noop shutdown ignores a cancelled context")
}

func TestSetupCreatesProvider(t *testing.T) {
	// A non-routable address so nothing is exported.
	shutdown, err := telemetry.Setup(context.Background(), config.TelemetryConfig{
		Enabled:     true,
		Endpoint:    "http://192.0.2.1:4318",
		ServiceName: "telemetry-test",
	})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
