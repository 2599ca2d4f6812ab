package businessflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stroomalert/stroomalert/models"
	testingutil "github.com/stroomalert/stroomalert/testing"
)

func TestEnrichIncident(t *testing.T) {
	fx := testingutil.NewTestFixtures()
	cfg := testEngineConfig()

	incident := EnrichIncident(fx.RawOutage("out-1", 3200), cfg, fx.Now)

	assert.Equal(t, "out-1", incident.ID)
	assert.Equal(t, models.SeverityCritical, incident.Severity.Level)
	assert.Equal(t, "Noord-Holland", incident.Location.Province)
	assert.Equal(t, fx.Now, incident.FirstSeen)
	assert.Equal(t, fx.Now, incident.LastUpdated)
	assert.Equal(t, fx.Now.Add(cfg.CampaignDuration), incident.CampaignEndTime)
	assert.Nil(t, incident.ResolvedAt)
}

func TestEnrichIncidentRepairsAnomalies(t *testing.T) {
	fx := testingutil.NewTestFixtures()
	raw := fx.RawOutage("out-1", -5)
	raw.NetworkType = "district_heating"

	incident := EnrichIncident(raw, testEngineConfig(), fx.Now)

	assert.Equal(t, 0, incident.ImpactHouseholds)
	assert.Equal(t, models.NetworkTypeOther, incident.NetworkType)
	assert.Equal(t, models.SeverityMinor, incident.Severity.Level)
}

func TestMergeIncidentIncomingWins(t *testing.T) {
	fx := testingutil.NewTestFixtures()
	cfg := testEngineConfig()
	incident := EnrichIncident(fx.RawOutage("out-1", 500), cfg, fx.Now)

	later := fx.Now.Add(10 * time.Minute)
	update := fx.RawOutageIn("out-1", "Rotterdam", "3011AD", 3200)
	update.Status = "under_investigation"

	statusChanged := MergeIncident(incident, update, cfg, later)

	assert.True(t, statusChanged)
	assert.Equal(t, "Rotterdam", incident.Location.City)
	assert.Equal(t, "Zuid-Holland", incident.Location.Province)
	assert.Equal(t, models.SeverityCritical, incident.Severity.Level)
	assert.Equal(t, later, incident.LastUpdated)

	// First observation anchors identity and the campaign window
	assert.Equal(t, fx.Now, incident.FirstSeen)
	assert.Equal(t, fx.Now.Add(cfg.CampaignDuration), incident.CampaignEndTime)
}

func TestMergeIncidentKeepsProvinceWhenUpdateLacksPostalCodes(t *testing.T) {
	fx := testingutil.NewTestFixtures()
	cfg := testEngineConfig()
	incident := EnrichIncident(fx.RawOutage("out-1", 500), cfg, fx.Now)
	require.Equal(t, "Noord-Holland", incident.Location.Province)

	update := fx.RawOutage("out-1", 500)
	update.Location.PostalCodes = nil

	MergeIncident(incident, update, cfg, fx.Now.Add(time.Minute))
	assert.Equal(t, "Noord-Holland", incident.Location.Province)
}

func TestMergeIncidentStatusUnchanged(t *testing.T) {
	fx := testingutil.NewTestFixtures()
	cfg := testEngineConfig()
	incident := EnrichIncident(fx.RawOutage("out-1", 500), cfg, fx.Now)

	statusChanged := MergeIncident(incident, fx.RawOutage("out-1", 900), cfg, fx.Now.Add(time.Minute))
	assert.False(t, statusChanged)
	assert.Equal(t, 900, incident.ImpactHouseholds)
}
