package businessflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stroomalert/stroomalert/app/services"
	"github.com/stroomalert/stroomalert/config"
	"github.com/stroomalert/stroomalert/models"
	testingutil "github.com/stroomalert/stroomalert/testing"
)

type campaignFlowHarness struct {
	fx     *testingutil.TestFixtures
	state  *EngineState
	google *services.MockPlatformClient
	meta   *services.MockPlatformClient
	flow   CampaignFlow
}

func newCampaignFlowHarness(t *testing.T, cfg config.EngineConfig) *campaignFlowHarness {
	t.Helper()
	state := NewEngineState()
	google := services.NewMockPlatformClient()
	meta := services.NewMockPlatformClient()
	budget := NewBudgetController(state.Ledger, cfg)
	return &campaignFlowHarness{
		fx:     testingutil.NewTestFixtures(),
		state:  state,
		google: google,
		meta:   meta,
		flow:   NewCampaignFlow(state, budget, google, meta, cfg, nil),
	}
}

func (h *campaignFlowHarness) incident(id string, impact int) *models.Incident {
	return h.fx.Incident(id, impact, ClassifySeverity(impact, 1000))
}

func TestLaunchCampaignsCreatesOnBothPlatforms(t *testing.T) {
	h := newCampaignFlowHarness(t, testEngineConfig())
	incident := h.incident("out-1", 1500)

	created := h.flow.LaunchCampaigns(context.Background(), []*models.Incident{incident}, h.fx.Now)

	assert.Equal(t, 2, created)
	require.Len(t, h.google.Created, 1)
	require.Len(t, h.meta.Created, 1)
	assert.Equal(t, "out-1", h.google.Created[0].OutageID)
	assert.Equal(t, "Major outage", h.google.Created[0].Label)
	assert.Equal(t, 40.0, h.google.Created[0].DailyBudget)
	assert.Equal(t, 10.0, h.google.Created[0].RadiusKm)

	assert.True(t, h.state.Ledger.HasCampaign("out-1", models.PlatformGoogle))
	assert.True(t, h.state.Ledger.HasCampaign("out-1", models.PlatformMeta))
}

func TestLaunchCampaignsSkipsExistingSlots(t *testing.T) {
	h := newCampaignFlowHarness(t, testEngineConfig())
	incident := h.incident("out-1", 1500)
	h.state.Ledger.RegisterCampaign("out-1", models.PlatformGoogle, 40, nil, 48*time.Hour, h.fx.Now)

	created := h.flow.LaunchCampaigns(context.Background(), []*models.Incident{incident}, h.fx.Now)

	assert.Equal(t, 1, created)
	assert.Empty(t, h.google.Created)
	require.Len(t, h.meta.Created, 1)
}

func TestLaunchCampaignsBudgetRejection(t *testing.T) {
	cfg := testEngineConfig()
	cfg.CeilingGoogle = 50
	h := newCampaignFlowHarness(t, cfg)

	// Two major outages at 40/day each; only the first fits under 50
	first := h.incident("out-1", 1500)
	second := h.incident("out-2", 1500)

	created := h.flow.LaunchCampaigns(context.Background(), []*models.Incident{first, second}, h.fx.Now)

	assert.Equal(t, 3, created)
	require.Len(t, h.google.Created, 1)
	assert.Len(t, h.meta.Created, 2)

	// The rejection is visible in the event log
	var rejected bool
	for _, event := range h.state.Events.Entries() {
		if event.Type == models.EventBudgetRejected {
			rejected = true
			assert.Equal(t, "out-2", event.Data["id"])
		}
	}
	assert.True(t, rejected)
}

func TestLaunchCampaignsPlatformFailureIsSoft(t *testing.T) {
	h := newCampaignFlowHarness(t, testEngineConfig())
	h.google.FailNext = true
	incident := h.incident("out-1", 1500)

	created := h.flow.LaunchCampaigns(context.Background(), []*models.Incident{incident}, h.fx.Now)

	// The google slot stays empty; meta proceeds
	assert.Equal(t, 1, created)
	assert.False(t, h.state.Ledger.HasCampaign("out-1", models.PlatformGoogle))
	assert.True(t, h.state.Ledger.HasCampaign("out-1", models.PlatformMeta))

	// The failed reservation was released, so a retry can admit again
	retried := h.flow.LaunchCampaigns(context.Background(), []*models.Incident{incident}, h.fx.Now)
	assert.Equal(t, 1, retried)
	assert.True(t, h.state.Ledger.HasCampaign("out-1", models.PlatformGoogle))
}

func TestLaunchCampaignsSkipsClosedWindow(t *testing.T) {
	h := newCampaignFlowHarness(t, testEngineConfig())
	incident := h.incident("out-1", 1500)
	incident.CampaignEndTime = h.fx.Now.Add(-time.Hour)

	created := h.flow.LaunchCampaigns(context.Background(), []*models.Incident{incident}, h.fx.Now)

	assert.Equal(t, 0, created)
	assert.Empty(t, h.google.Created)
}

func TestPauseExpired(t *testing.T) {
	h := newCampaignFlowHarness(t, testEngineConfig())
	h.state.Ledger.RegisterCampaign("out-1", models.PlatformGoogle, 40, map[string]string{"resource_name": "customers/1/campaigns/2"}, time.Hour, h.fx.Now)
	h.state.Ledger.RegisterCampaign("out-2", models.PlatformMeta, 40, nil, 48*time.Hour, h.fx.Now)

	paused := h.flow.PauseExpired(context.Background(), h.fx.Now.Add(2*time.Hour))

	assert.Equal(t, 1, paused)
	require.Len(t, h.google.Paused, 1)
	assert.Equal(t, "customers/1/campaigns/2", h.google.Paused[0]["resource_name"])
	assert.Empty(t, h.meta.Paused)

	_, active := h.state.Ledger.Counts()
	assert.Equal(t, 1, active)
}

func TestPauseExpiredRetriesUnconfirmed(t *testing.T) {
	h := newCampaignFlowHarness(t, testEngineConfig())
	h.state.Ledger.RegisterCampaign("out-1", models.PlatformGoogle, 40, nil, time.Hour, h.fx.Now)
	h.google.FailNext = true

	later := h.fx.Now.Add(2 * time.Hour)
	assert.Equal(t, 0, h.flow.PauseExpired(context.Background(), later))

	// The slot stayed active, so the next sweep picks it up again
	assert.Equal(t, 1, h.flow.PauseExpired(context.Background(), later))
	_, active := h.state.Ledger.Counts()
	assert.Equal(t, 0, active)
}

func TestGetStatusAggregates(t *testing.T) {
	h := newCampaignFlowHarness(t, testEngineConfig())
	incident := h.incident("out-1", 1500)
	h.state.Incidents.AddActive(incident)
	h.flow.LaunchCampaigns(context.Background(), []*models.Incident{incident}, h.fx.Now)

	status, err := h.flow.GetStatus(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, status.ActiveIncidents)
	assert.Equal(t, 0, status.ResolvedIncidents)
	assert.Equal(t, 2, status.TotalCampaigns)
	assert.Equal(t, 2, status.ActiveCampaigns)
	require.Len(t, status.Budget, 2)
	assert.Equal(t, 500.0, status.Budget[0].Ceiling)
}

func TestListIncidentsSortsNewestFirst(t *testing.T) {
	h := newCampaignFlowHarness(t, testEngineConfig())
	older := h.incident("out-old", 500)
	older.FirstSeen = h.fx.Now.Add(-time.Hour)
	newer := h.incident("out-new", 500)
	h.state.Incidents.AddActive(older)
	h.state.Incidents.AddActive(newer)

	result, err := h.flow.ListIncidents(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Active, 2)
	assert.Equal(t, "out-new", result.Active[0].ID)
	assert.Equal(t, "out-old", result.Active[1].ID)
	assert.Empty(t, result.Resolved)
}

func TestListCampaignsIncludesPausedSlots(t *testing.T) {
	h := newCampaignFlowHarness(t, testEngineConfig())
	h.state.Ledger.RegisterCampaign("out-1", models.PlatformGoogle, 40, nil, time.Hour, h.fx.Now.Add(-time.Minute))
	h.state.Ledger.RegisterCampaign("out-2", models.PlatformMeta, 15, nil, 48*time.Hour, h.fx.Now)
	h.state.Ledger.MarkCampaignPaused("out-1", models.PlatformGoogle)

	result, err := h.flow.ListCampaigns(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Campaigns, 2)
	assert.Equal(t, "out-2", result.Campaigns[0].IncidentID)
	assert.Equal(t, "paused", result.Campaigns[1].Status)
}

// Exercised under the race detector: the list views must never share
// memory with the records the reconciler merges in place.
func TestConcurrentReconcileAndListReads(t *testing.T) {
	cfg := testEngineConfig()
	h := newCampaignFlowHarness(t, cfg)
	reconcile := NewReconcileFlow(h.state, cfg, nil)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			raw := h.fx.RawOutage("out-1", 500+i)
			if i%2 == 1 {
				raw.Status = "maintenance"
			}
			_, err := reconcile.Reconcile(context.Background(), []models.RawIncident{raw}, h.fx.Now.Add(time.Duration(i)*time.Second))
			assert.NoError(t, err)
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_, err := h.flow.ListIncidents(context.Background())
			assert.NoError(t, err)
			_, err = h.flow.ListCampaigns(context.Background())
			assert.NoError(t, err)
		}
	}()

	wg.Wait()
}

func TestExportReportProducesWorkbook(t *testing.T) {
	h := newCampaignFlowHarness(t, testEngineConfig())
	incident := h.incident("out-1", 1500)
	h.state.Incidents.AddActive(incident)
	h.flow.LaunchCampaigns(context.Background(), []*models.Incident{incident}, h.fx.Now)

	data, err := h.flow.ExportReport(context.Background())
	require.NoError(t, err)
	// xlsx files are zip archives
	require.Greater(t, len(data), 4)
	assert.Equal(t, []byte{'P', 'K'}, data[:2])
}
