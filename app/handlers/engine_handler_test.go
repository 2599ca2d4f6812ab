package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stroomalert/stroomalert/app/dto"
	"github.com/stroomalert/stroomalert/app/services"
	businessflow "github.com/stroomalert/stroomalert/business_flow"
	"github.com/stroomalert/stroomalert/config"
	"github.com/stroomalert/stroomalert/models"
	testingutil "github.com/stroomalert/stroomalert/testing"
)

type stubPollTrigger struct {
	triggered bool
	reasons   []string
}

func (s *stubPollTrigger) TriggerNow(ctx context.Context, reason string) bool {
	s.reasons = append(s.reasons, reason)
	return s.triggered
}

func newHandlerApp(t *testing.T) (*fiber.App, *businessflow.EngineState, *stubPollTrigger) {
	t.Helper()
	cfg := config.EngineConfig{
		CampaignDuration:     48 * time.Hour,
		ResolvedRetention:    24 * time.Hour,
		BudgetWindow:         24 * time.Hour,
		MajorThreshold:       1000,
		MaxDailyBudgetGoogle: 100,
		MaxDailyBudgetMeta:   100,
		CeilingGoogle:        500,
		CeilingMeta:          500,
	}

	state := businessflow.NewEngineState()
	budget := businessflow.NewBudgetController(state.Ledger, cfg)
	flow := businessflow.NewCampaignFlow(state, budget, services.NewMockPlatformClient(), services.NewMockPlatformClient(), cfg, nil)

	poll := &stubPollTrigger{triggered: true}
	handler := NewEngineHandler(flow, poll, nil, config.CacheConfig{})

	app := fiber.New()
	app.Get("/api/v1/health", handler.Health)
	app.Get("/api/v1/status", handler.GetStatus)
	app.Get("/api/v1/incidents", handler.ListIncidents)
	app.Get("/api/v1/campaigns", handler.ListCampaigns)
	app.Get("/api/v1/events", handler.ListEvents)
	app.Post("/api/v1/poll", handler.TriggerPoll)
	app.Get("/api/v1/report.xlsx", handler.ExportReport)

	return app, state, poll
}

func decodeAPIResponse(t *testing.T, body io.Reader) dto.APIResponse {
	t.Helper()
	var resp dto.APIResponse
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	app, _, _ := newHandlerApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeAPIResponse(t, resp.Body)
	assert.True(t, body.Success)
}

func TestStatusEndpoint(t *testing.T) {
	app, state, _ := newHandlerApp(t)
	fx := testingutil.NewTestFixtures()
	state.Incidents.AddActive(fx.Incident("out-1", 1500, businessflow.ClassifySeverity(1500, 1000)))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/status", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeAPIResponse(t, resp.Body)
	require.True(t, body.Success)
	data, ok := body.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), data["active_incidents"])
}

func TestListIncidentsEndpoint(t *testing.T) {
	app, state, _ := newHandlerApp(t)
	fx := testingutil.NewTestFixtures()
	state.Incidents.AddActive(fx.Incident("out-1", 1500, businessflow.ClassifySeverity(1500, 1000)))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/incidents", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeAPIResponse(t, resp.Body)
	data, ok := body.Data.(map[string]any)
	require.True(t, ok)
	active, ok := data["active"].([]any)
	require.True(t, ok)
	assert.Len(t, active, 1)
}

func TestTriggerPollEndpoint(t *testing.T) {
	app, _, poll := newHandlerApp(t)

	req := httptest.NewRequest("POST", "/api/v1/poll", strings.NewReader(`{"reason":"operator check"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeAPIResponse(t, resp.Body)
	assert.True(t, body.Success)
	require.Len(t, poll.reasons, 1)
	assert.Equal(t, "operator check", poll.reasons[0])
}

func TestTriggerPollEndpointDefaultsReason(t *testing.T) {
	app, _, poll := newHandlerApp(t)

	resp, err := app.Test(httptest.NewRequest("POST", "/api/v1/poll", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Len(t, poll.reasons, 1)
	assert.Equal(t, "manual", poll.reasons[0])
}

func TestTriggerPollEndpointReportsSkip(t *testing.T) {
	app, _, poll := newHandlerApp(t)
	poll.triggered = false

	resp, err := app.Test(httptest.NewRequest("POST", "/api/v1/poll", nil))
	require.NoError(t, err)

	body := decodeAPIResponse(t, resp.Body)
	data, ok := body.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, data["skipped"])
	assert.Equal(t, false, data["triggered"])
}

func TestTriggerPollEndpointValidation(t *testing.T) {
	app, _, _ := newHandlerApp(t)

	req := httptest.NewRequest("POST", "/api/v1/poll", strings.NewReader(`{"reason":"`+strings.Repeat("x", 201)+`"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestEventsEndpoint(t *testing.T) {
	app, state, _ := newHandlerApp(t)
	fx := testingutil.NewTestFixtures()
	state.Events.Append(models.EventOutageDetected, "detected", nil, fx.Now)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/events", nil))
	require.NoError(t, err)

	body := decodeAPIResponse(t, resp.Body)
	data, ok := body.Data.(map[string]any)
	require.True(t, ok)
	events, ok := data["events"].([]any)
	require.True(t, ok)
	assert.Len(t, events, 1)
}

func TestReportEndpointSetsContentType(t *testing.T) {
	app, _, _ := newHandlerApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/report.xlsx", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "stroomalert-report.xlsx")
}
