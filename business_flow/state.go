package businessflow

import (
	"time"

	"github.com/stroomalert/stroomalert/config"
	"github.com/stroomalert/stroomalert/models"
	"github.com/stroomalert/stroomalert/utils"
)

// EngineState groups the three in-memory collections the engine owns: the
// incident partition, the campaign ledger and the rolling event log. It is
// what the persistence gateway snapshots and restores as one bundle set.
type EngineState struct {
	Incidents *IncidentStore
	Ledger    *CampaignLedger
	Events    *EventLog
}

// NewEngineState creates empty engine state
func NewEngineState() *EngineState {
	return &EngineState{
		Incidents: NewIncidentStore(),
		Ledger:    NewCampaignLedger(),
		Events:    NewEventLog(utils.EventLogCap),
	}
}

// Snapshot assembles the serializable bundle of all state
func (s *EngineState) Snapshot() *models.StateSnapshot {
	return &models.StateSnapshot{
		ActiveIncidents:   s.Incidents.ActiveIncidents(),
		ResolvedIncidents: s.Incidents.ResolvedIncidents(),
		Campaigns:         s.Ledger.AllCampaigns(),
		Events:            s.Events.Entries(),
	}
}

// Restore replaces all state from a persisted snapshot. Each bundle falls
// back to empty independently when absent.
func (s *EngineState) Restore(snapshot *models.StateSnapshot) {
	if snapshot == nil {
		snapshot = models.NewStateSnapshot()
	}
	s.Incidents.Load(snapshot.ActiveIncidents, snapshot.ResolvedIncidents)
	s.Ledger.Load(snapshot.Campaigns)
	s.Events.Load(snapshot.Events)
}

// EngineStats is the observability aggregate exposed by the ops API
type EngineStats struct {
	ActiveIncidents   int     `json:"active_incidents"`
	ResolvedIncidents int     `json:"resolved_incidents"`
	TotalCampaigns    int     `json:"total_campaigns"`
	ActiveCampaigns   int     `json:"active_campaigns"`
	GoogleWindowSpend float64 `json:"google_window_spend"`
	MetaWindowSpend   float64 `json:"meta_window_spend"`
	GoogleCeiling     float64 `json:"google_ceiling"`
	MetaCeiling       float64 `json:"meta_ceiling"`
}

// Stats computes the current observability counters
func (s *EngineState) Stats(cfg config.EngineConfig, now time.Time) EngineStats {
	active, resolved := s.Incidents.Counts()
	total, activeCampaigns := s.Ledger.Counts()

	return EngineStats{
		ActiveIncidents:   active,
		ResolvedIncidents: resolved,
		TotalCampaigns:    total,
		ActiveCampaigns:   activeCampaigns,
		GoogleWindowSpend: s.Ledger.ActiveSpendWithin(models.PlatformGoogle, cfg.BudgetWindow, now),
		MetaWindowSpend:   s.Ledger.ActiveSpendWithin(models.PlatformMeta, cfg.BudgetWindow, now),
		GoogleCeiling:     cfg.CeilingGoogle,
		MetaCeiling:       cfg.CeilingMeta,
	}
}
