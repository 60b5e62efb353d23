package app

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/EpicMandM/room-booking/internal/config"
	"github.com/EpicMandM/room-booking/internal/logger"
	"github.com/stretchr/testify/require"
)

// TestApp_LiveService runs a session against a real booking service.
// Set INTEGRATION_TEST=true and BOOKING_API_URL to run it.
func TestApp_LiveService(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	application, err := New(cfg, nil, logger.NewWithWriter(os.Stdout), nil)
	require.NoError(t, err)
	defer func() { _ = application.Close() }()

	require.NoError(t, application.LoadOnce(context.Background()))
	t.Logf("Loaded %d bookings", len(application.Reconciler().Bookings()))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, application.Run(ctx))
	require.True(t, application.Reconciler().Status().Loaded)
}
