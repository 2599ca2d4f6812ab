// Package testing provides test utilities and fixture builders for the outage engine
package testing

import (
	"fmt"
	"time"

	"github.com/stroomalert/stroomalert/models"
	"github.com/stroomalert/stroomalert/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	Now time.Time
}

// NewTestFixtures creates a fixture builder anchored at a fixed instant so
// tests stay deterministic.
func NewTestFixtures() *TestFixtures {
	return &TestFixtures{
		Now: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

// RawOutage builds a feed record with sensible defaults
func (f *TestFixtures) RawOutage(id string, impact int) models.RawIncident {
	return models.RawIncident{
		ID:               id,
		NetworkType:      models.NetworkTypeElectricity,
		ImpactHouseholds: impact,
		Location: models.Location{
			City:        "Amsterdam",
			PostalCodes: []string{"1012AB", "1013CD"},
			Streets:     []string{"Damrak"},
		},
		Period: models.Period{
			Start: f.Now.Add(-30 * time.Minute),
		},
		Status: "in_progress",
	}
}

// RawOutageIn builds a feed record for a specific city and postal code
func (f *TestFixtures) RawOutageIn(id, city, postalCode string, impact int) models.RawIncident {
	raw := f.RawOutage(id, impact)
	raw.Location.City = city
	raw.Location.PostalCodes = []string{postalCode}
	return raw
}

// Snapshot builds a feed snapshot of n outages with ids out-1..out-n
func (f *TestFixtures) Snapshot(n, impact int) []models.RawIncident {
	snapshot := make([]models.RawIncident, 0, n)
	for i := 1; i <= n; i++ {
		snapshot = append(snapshot, f.RawOutage(fmt.Sprintf("out-%d", i), impact))
	}
	return snapshot
}

// Incident builds a tracked incident the way the enrichment path would
func (f *TestFixtures) Incident(id string, impact int, severity models.Severity) *models.Incident {
	return &models.Incident{
		ID:               id,
		NetworkType:      models.NetworkTypeElectricity,
		ImpactHouseholds: impact,
		Location: models.Location{
			City:        "Amsterdam",
			Province:    "Noord-Holland",
			PostalCodes: []string{"1012AB"},
		},
		Period: models.Period{
			Start: f.Now.Add(-30 * time.Minute),
		},
		Status:          "in_progress",
		Severity:        severity,
		FirstSeen:       f.Now,
		LastUpdated:     f.Now,
		CampaignEndTime: f.Now.Add(48 * time.Hour),
	}
}

// ResolvedIncident builds an incident already moved to the resolved set
func (f *TestFixtures) ResolvedIncident(id string, impact int, resolvedAt time.Time) *models.Incident {
	incident := f.Incident(id, impact, models.Severity{Level: models.SeverityMinor, Label: "Minor outage"})
	incident.ResolvedAt = utils.ToPtr(resolvedAt)
	return incident
}
