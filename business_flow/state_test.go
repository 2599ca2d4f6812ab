package businessflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stroomalert/stroomalert/models"
	testingutil "github.com/stroomalert/stroomalert/testing"
)

func populatedState(fx *testingutil.TestFixtures) *EngineState {
	state := NewEngineState()
	state.Incidents.AddActive(fx.Incident("out-1", 1500, ClassifySeverity(1500, 1000)))
	state.Incidents.AddActive(fx.Incident("out-2", 200, ClassifySeverity(200, 1000)))
	state.Incidents.Resolve("out-2", fx.Now)
	state.Ledger.RegisterCampaign("out-1", models.PlatformGoogle, 40, map[string]string{"resource_name": "customers/1/campaigns/2"}, 48*time.Hour, fx.Now)
	state.Events.Append(models.EventOutageDetected, "detected", map[string]any{"id": "out-1"}, fx.Now)
	return state
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	fx := testingutil.NewTestFixtures()
	state := populatedState(fx)

	restored := NewEngineState()
	restored.Restore(state.Snapshot())

	assert.Equal(t, state.Stats(testEngineConfig(), fx.Now), restored.Stats(testEngineConfig(), fx.Now))
	require.NotNil(t, restored.Incidents.Tracked("out-1"))
	assert.True(t, restored.Ledger.HasCampaign("out-1", models.PlatformGoogle))
	require.Equal(t, 1, restored.Events.Len())
	assert.Equal(t, state.Events.Entries()[0].ID, restored.Events.Entries()[0].ID)
}

func TestIncidentReadViewsReturnDeepCopies(t *testing.T) {
	fx := testingutil.NewTestFixtures()
	state := populatedState(fx)

	active := state.Incidents.ActiveIncidents()
	active["out-1"].Status = "tampered"
	active["out-1"].Location.PostalCodes[0] = "9999ZZ"

	tracked := state.Incidents.Tracked("out-1")
	require.NotNil(t, tracked)
	assert.Equal(t, "in_progress", tracked.Status)
	assert.Equal(t, "1012AB", tracked.Location.PostalCodes[0])

	resolved := state.Incidents.ResolvedIncidents()
	require.NotNil(t, resolved["out-2"].ResolvedAt)
	*resolved["out-2"].ResolvedAt = fx.Now.Add(time.Hour)
	assert.Equal(t, fx.Now, *state.Incidents.ResolvedIncidents()["out-2"].ResolvedAt)
}

func TestRestoreNilSnapshotYieldsEmptyState(t *testing.T) {
	fx := testingutil.NewTestFixtures()
	state := populatedState(fx)

	state.Restore(nil)

	stats := state.Stats(testEngineConfig(), fx.Now)
	assert.Zero(t, stats.ActiveIncidents)
	assert.Zero(t, stats.ResolvedIncidents)
	assert.Zero(t, stats.TotalCampaigns)
	assert.Zero(t, state.Events.Len())
}

func TestRestoreEnforcesPartitionInvariant(t *testing.T) {
	fx := testingutil.NewTestFixtures()
	incident := fx.Incident("out-1", 500, ClassifySeverity(500, 1000))

	snapshot := models.NewStateSnapshot()
	snapshot.ActiveIncidents["out-1"] = incident
	snapshot.ResolvedIncidents["out-1"] = fx.ResolvedIncident("out-1", 500, fx.Now)

	state := NewEngineState()
	state.Restore(snapshot)

	active, resolved := state.Incidents.Counts()
	assert.Equal(t, 1, active)
	assert.Equal(t, 0, resolved)
}

func TestStatsBudgetWindow(t *testing.T) {
	fx := testingutil.NewTestFixtures()
	cfg := testEngineConfig()
	state := NewEngineState()
	state.Ledger.RegisterCampaign("out-1", models.PlatformGoogle, 40, nil, 48*time.Hour, fx.Now.Add(-time.Hour))
	state.Ledger.RegisterCampaign("out-2", models.PlatformGoogle, 40, nil, 48*time.Hour, fx.Now.Add(-30*time.Hour))

	stats := state.Stats(cfg, fx.Now)
	assert.Equal(t, 40.0, stats.GoogleWindowSpend)
	assert.Equal(t, 0.0, stats.MetaWindowSpend)
	assert.Equal(t, cfg.CeilingGoogle, stats.GoogleCeiling)
	assert.Equal(t, 2, stats.TotalCampaigns)
}
