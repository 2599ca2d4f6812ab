package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stroomalert/stroomalert/app/services"
	businessflow "github.com/stroomalert/stroomalert/business_flow"
	"github.com/stroomalert/stroomalert/config"
	"github.com/stroomalert/stroomalert/models"
	"github.com/stroomalert/stroomalert/repository"
	testingutil "github.com/stroomalert/stroomalert/testing"
)

func testConfig() *config.ProductionConfig {
	return &config.ProductionConfig{
		Engine: config.EngineConfig{
			PollInterval:         5 * time.Minute,
			CampaignDuration:     48 * time.Hour,
			ResolvedRetention:    24 * time.Hour,
			BudgetWindow:         24 * time.Hour,
			MajorThreshold:       1000,
			MaxDailyBudgetGoogle: 100,
			MaxDailyBudgetMeta:   100,
			CeilingGoogle:        500,
			CeilingMeta:          500,
		},
	}
}

type schedulerHarness struct {
	fx     *testingutil.TestFixtures
	source *services.StaticOutageSource
	state  *businessflow.EngineState
	google *services.MockPlatformClient
	repo   repository.StateRepository
	sched  *PollScheduler
}

func newSchedulerHarness(t *testing.T) *schedulerHarness {
	t.Helper()
	cfg := testConfig()
	fx := testingutil.NewTestFixtures()
	state := businessflow.NewEngineState()
	source := &services.StaticOutageSource{}
	google := services.NewMockPlatformClient()
	meta := services.NewMockPlatformClient()
	budget := businessflow.NewBudgetController(state.Ledger, cfg.Engine)

	repo, err := repository.NewFileStateRepository(t.TempDir(), nil)
	require.NoError(t, err)

	reconcile := businessflow.NewReconcileFlow(state, cfg.Engine, nil)
	campaigns := businessflow.NewCampaignFlow(state, budget, google, meta, cfg.Engine, nil)

	return &schedulerHarness{
		fx:     fx,
		source: source,
		state:  state,
		google: google,
		repo:   repo,
		sched:  NewPollScheduler(source, reconcile, campaigns, state, repo, nil, cfg, nil),
	}
}

func TestTriggerNowRunsFullCycle(t *testing.T) {
	h := newSchedulerHarness(t)
	h.source.Snapshot = h.fx.Snapshot(2, 1500)

	assert.True(t, h.sched.TriggerNow(context.Background(), "test"))

	active, _ := h.state.Incidents.Counts()
	assert.Equal(t, 2, active)
	// One campaign per platform per new outage
	assert.Len(t, h.google.Created, 2)

	// The cycle persisted state
	loaded, err := h.repo.LoadState(context.Background())
	require.NoError(t, err)
	assert.Len(t, loaded.ActiveIncidents, 2)
	assert.Len(t, loaded.Campaigns, 2)
}

func TestFetchFailureSkipsCycle(t *testing.T) {
	h := newSchedulerHarness(t)
	h.source.Snapshot = h.fx.Snapshot(2, 1500)
	require.True(t, h.sched.TriggerNow(context.Background(), "seed"))

	// The feed goes down; tracked outages must not be mass-resolved
	h.source.Err = errors.New("feed unreachable")
	assert.True(t, h.sched.TriggerNow(context.Background(), "broken"))

	active, resolved := h.state.Incidents.Counts()
	assert.Equal(t, 2, active)
	assert.Equal(t, 0, resolved)

	events := h.state.Events.Entries()
	require.NotEmpty(t, events)
	assert.Equal(t, models.EventPollSkipped, events[0].Type)
}

func TestEmptySnapshotResolvesThroughScheduler(t *testing.T) {
	h := newSchedulerHarness(t)
	h.source.Snapshot = h.fx.Snapshot(1, 1500)
	require.True(t, h.sched.TriggerNow(context.Background(), "seed"))

	h.source.Snapshot = []models.RawIncident{}
	require.True(t, h.sched.TriggerNow(context.Background(), "drain"))

	active, resolved := h.state.Incidents.Counts()
	assert.Equal(t, 0, active)
	assert.Equal(t, 1, resolved)
}

func TestSchedulerStartAndCancel(t *testing.T) {
	h := newSchedulerHarness(t)
	h.source.Snapshot = h.fx.Snapshot(1, 500)

	cancel := h.sched.Start(context.Background())

	// The first cycle runs immediately, not after a full interval
	require.Eventually(t, func() bool {
		active, _ := h.state.Incidents.Counts()
		return active == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
}
