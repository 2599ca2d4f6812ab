package businessflow

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/stroomalert/stroomalert/config"
	"github.com/stroomalert/stroomalert/models"
)

// ReconcileResult reports what one reconciliation pass changed
type ReconcileResult struct {
	Created  []*models.Incident
	Updated  []*models.Incident
	Resolved []*models.Incident
	Purged   int
}

// ReconcileFlow diffs a fresh outage snapshot against tracked state
type ReconcileFlow interface {
	Reconcile(ctx context.Context, snapshot []models.RawIncident, now time.Time) (*ReconcileResult, error)
}

// ReconcileFlowImpl implements the reconcile business flow
type ReconcileFlowImpl struct {
	state  *EngineState
	cfg    config.EngineConfig
	logger *log.Logger
}

// NewReconcileFlow creates a new reconcile flow instance
func NewReconcileFlow(state *EngineState, cfg config.EngineConfig, logger *log.Logger) ReconcileFlow {
	if logger == nil {
		logger = log.Default()
	}
	return &ReconcileFlowImpl{
		state:  state,
		cfg:    cfg,
		logger: logger,
	}
}

// Reconcile executes one full diff-and-update cycle over a fresh snapshot.
// The snapshot is the sole source of truth for "still ongoing": every
// tracked outage absent from it is resolved, so an upstream fetch failure
// must skip the call entirely rather than pass an empty sequence.
func (f *ReconcileFlowImpl) Reconcile(ctx context.Context, snapshot []models.RawIncident, now time.Time) (*ReconcileResult, error) {
	if snapshot == nil {
		return nil, NewBusinessError("RECONCILE_NIL_SNAPSHOT", "Reconcile called without a snapshot", ErrSnapshotNil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &ReconcileResult{}
	seen := make(map[string]bool, len(snapshot))

	for _, raw := range snapshot {
		if raw.ID == "" {
			f.logger.Printf("reconcile: dropping feed record without id (city=%q)", raw.Location.City)
			continue
		}
		if seen[raw.ID] {
			// Duplicate ids within one snapshot: first occurrence wins.
			continue
		}
		seen[raw.ID] = true

		var statusChanged bool
		var merged *models.Incident
		if f.state.Incidents.UpdateActive(raw.ID, func(existing *models.Incident) {
			statusChanged = MergeIncident(existing, raw, f.cfg, now)
			merged = existing
		}) {
			if statusChanged {
				result.Updated = append(result.Updated, merged)
				f.state.Events.Append(models.EventOutageUpdated,
					fmt.Sprintf("Outage %s changed status to %q", merged.ID, merged.Status),
					map[string]any{"id": merged.ID, "status": merged.Status},
					now)
			}
			continue
		}

		incident := EnrichIncident(raw, f.cfg, now)
		f.state.Incidents.AddActive(incident)
		result.Created = append(result.Created, incident)
		f.state.Events.Append(models.EventOutageDetected,
			fmt.Sprintf("New %s outage in %s affecting %d households (%s)",
				incident.NetworkType, incident.Location.City, incident.ImpactHouseholds, incident.Severity.Level),
			map[string]any{"id": incident.ID, "severity": incident.Severity.Level, "city": incident.Location.City},
			now)
	}

	for _, id := range f.state.Incidents.ActiveIDs() {
		if seen[id] {
			continue
		}
		if incident := f.state.Incidents.Resolve(id, now); incident != nil {
			result.Resolved = append(result.Resolved, incident)
			f.state.Events.Append(models.EventOutageResolved,
				fmt.Sprintf("Outage %s in %s resolved", incident.ID, incident.Location.City),
				map[string]any{"id": incident.ID},
				now)
		}
	}

	result.Purged = f.state.Incidents.SweepResolved(f.cfg.ResolvedRetention, now)

	f.logger.Printf("reconcile: %d created, %d updated, %d resolved, %d purged",
		len(result.Created), len(result.Updated), len(result.Resolved), result.Purged)

	return result, nil
}
