package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/gofiber/fiber/v3"
	"github.com/residentdesk/facilityflow/pkg/channels/gochannel"
	"github.com/residentdesk/facilityflow/pkg/eventbus"
	"github.com/residentdesk/facilityflow/pkg/executions"
	"github.com/residentdesk/facilityflow/pkg/executions/memory"
	"github.com/residentdesk/facilityflow/pkg/models"
	"github.com/residentdesk/facilityflow/pkg/persistence/file"
	"github.com/residentdesk/facilityflow/pkg/services"
	"github.com/residentdesk/facilityflow/pkg/testutil"
	"github.com/residentdesk/facilityflow/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestAPI(t *testing.T, asyncTriggers bool) *API {
	t.Helper()

	logger := discardLogger()

	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub, logger)
	t.Cleanup(func() { _ = bus.Close() })

	return NewAPI(
		logger,
		file.NewPersistence(t.TempDir()),
		memory.NewStore(),
		bus,
		workflow.NewEngine(logger),
		asyncTriggers,
	)
}

func get(t *testing.T, app *fiber.App, path string) (int, string) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

func TestAPI_RootEndpoint(t *testing.T) {
	t.Parallel()

	app := setupTestAPI(t, false).App()

	status, body := get(t, app, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Facilityflow API", body)
}

func TestAPI_Probes(t *testing.T) {
	t.Parallel()

	app := setupTestAPI(t, false).App()

	for _, path := range []string{"/livez", "/readyz", "/health"} {
		status, _ := get(t, app, path)
		assert.Equal(t, http.StatusOK, status, path)
	}
}

func TestAPI_InlineTriggers(t *testing.T) {
	t.Parallel()

	api := setupTestAPI(t, false)
	app := api.App()

	_, err := api.workflowService.Create(context.Background(), testutil.CreateStatusWorkflow(models.BookingStatusConfirmed))
	require.NoError(t, err)

	body, err := json.Marshal(map[string]any{
		"facility": "Clubhouse",
		"user":     map[string]any{"name": "Ana Silva"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/bookings", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result services.BookingResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, models.BookingStatusConfirmed, result.Booking.Status)
	assert.Len(t, result.Executions, 1)
}

func TestAPI_AsyncTriggers(t *testing.T) {
	t.Parallel()

	api := setupTestAPI(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	require.NoError(t, api.Listen(ctx))

	_, err := api.workflowService.Create(ctx, testutil.CreateStatusWorkflow(models.BookingStatusConfirmed))
	require.NoError(t, err)

	result, err := api.bookingService.Create(ctx, testutil.CreateTestBooking())
	require.NoError(t, err)
	assert.Empty(t, result.Executions)

	require.Eventually(t, func() bool {
		booking, err := api.bookingService.FetchByID(ctx, result.Booking.ID)

		return err == nil && booking.Status == models.BookingStatusConfirmed
	}, 5*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		list, err := api.executionService.List(ctx, executions.Filter{BookingID: result.Booking.ID})

		return err == nil && len(list) == 1
	}, 5*time.Second, 20*time.Millisecond)
}

func TestNewRetentionSweeper(t *testing.T) {
	t.Parallel()

	api := setupTestAPI(t, false)

	_, err := newRetentionSweeper(context.Background(), api.executionService, "@hourly", 0, discardLogger())
	require.Error(t, err)

	_, err = newRetentionSweeper(context.Background(), api.executionService, "not a schedule", time.Hour, discardLogger())
	require.Error(t, err)

	sweeper, err := newRetentionSweeper(context.Background(), api.executionService, "@every 1h", time.Hour, discardLogger())
	require.NoError(t, err)
	assert.Len(t, sweeper.Entries(), 1)
}
