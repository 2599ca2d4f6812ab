package businessflow

import (
	"time"

	"github.com/stroomalert/stroomalert/config"
	"github.com/stroomalert/stroomalert/models"
	"github.com/stroomalert/stroomalert/utils"
)

// EnrichIncident turns a raw feed record into a tracked incident. Invoked
// exactly once per outage id, at first observation; later observations of
// the same id go through MergeIncident instead.
func EnrichIncident(raw models.RawIncident, cfg config.EngineConfig, now time.Time) *models.Incident {
	raw.Sanitize()

	location := raw.Location
	location.Province = utils.LookupProvinceAny(location.PostalCodes)

	return &models.Incident{
		ID:               raw.ID,
		NetworkType:      raw.NetworkType,
		ImpactHouseholds: raw.ImpactHouseholds,
		Location:         location,
		Period:           raw.Period,
		Status:           raw.Status,

		Severity:        DeriveSeverity(raw.ImpactHouseholds, cfg),
		FirstSeen:       now,
		LastUpdated:     now,
		CampaignEndTime: now.Add(cfg.CampaignDuration),
	}
}

// MergeIncident applies a fresh observation of an already-tracked outage
// onto the existing record, field by field. Incoming wins for the upstream
// fields (network type, impact, location, period, status); FirstSeen and
// CampaignEndTime are preserved; Severity and LastUpdated are recomputed.
// The return value reports whether the upstream status string changed,
// which is what promotes the merge into the updated set.
func MergeIncident(existing *models.Incident, raw models.RawIncident, cfg config.EngineConfig, now time.Time) (statusChanged bool) {
	raw.Sanitize()
	statusChanged = existing.Status != raw.Status

	existing.NetworkType = raw.NetworkType
	existing.ImpactHouseholds = raw.ImpactHouseholds

	location := raw.Location
	location.Province = utils.LookupProvinceAny(location.PostalCodes)
	if location.Province == "" {
		// A feed update may omit postal codes; keep the derived province.
		location.Province = existing.Location.Province
	}
	existing.Location = location
	existing.Period = raw.Period
	existing.Status = raw.Status

	existing.Severity = DeriveSeverity(raw.ImpactHouseholds, cfg)
	existing.LastUpdated = now

	return statusChanged
}
