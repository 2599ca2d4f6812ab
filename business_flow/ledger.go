package businessflow

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stroomalert/stroomalert/models"
)

// ExpiredCampaign is one (outage, platform) pair whose campaign outlived
// its window and is due for pausing.
type ExpiredCampaign struct {
	IncidentID string
	Platform   models.Platform
	Campaign   *models.Campaign
}

// CampaignLedger exclusively owns all campaign records, keyed by outage id
// with one independently nullable slot per platform. It never looks at the
// incident store: the association with incidents is by shared id only, so
// campaigns routinely outlive their incident.
type CampaignLedger struct {
	mu    sync.RWMutex
	slots map[string]*models.CampaignSlots
}

// NewCampaignLedger creates an empty ledger
func NewCampaignLedger() *CampaignLedger {
	return &CampaignLedger{
		slots: make(map[string]*models.CampaignSlots),
	}
}

// RegisterCampaign creates or overwrites the platform slot for an outage.
// No uniqueness check is performed here; preventing duplicate creation is
// the admission path's job. The budget is fixed for the campaign's life.
func (l *CampaignLedger) RegisterCampaign(incidentID string, platform models.Platform, budget float64, externalRefs map[string]string, duration time.Duration, now time.Time) *models.Campaign {
	l.mu.Lock()
	defer l.mu.Unlock()

	campaign := &models.Campaign{
		UUID:         uuid.New(),
		Platform:     platform,
		Budget:       budget,
		CreatedAt:    now,
		ExpiresAt:    now.Add(duration),
		Status:       models.CampaignStatusActive,
		ExternalRefs: externalRefs,
	}

	slots, ok := l.slots[incidentID]
	if !ok {
		slots = &models.CampaignSlots{}
		l.slots[incidentID] = slots
	}
	slots.Set(platform, campaign)
	return campaign
}

// AttributedBudget resolves the budget a campaign slot is registered with:
// the explicit override when the caller supplies one, otherwise the
// incident's severity-derived budget for the platform. A missing incident
// is tolerated and attributes zero, which the admission path then refuses.
func (l *CampaignLedger) AttributedBudget(incident *models.Incident, platform models.Platform, override *float64) float64 {
	if override != nil {
		return *override
	}
	if incident == nil {
		return 0
	}
	budget, err := incident.BudgetFor(platform)
	if err != nil {
		return 0
	}
	return budget
}

// ExpiredCampaigns returns every active campaign whose expiry lies before
// now. Pure read; pausing happens through MarkCampaignPaused once the
// remote platform confirmed.
func (l *CampaignLedger) ExpiredCampaigns(now time.Time) []ExpiredCampaign {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var expired []ExpiredCampaign
	for incidentID, slots := range l.slots {
		for _, platform := range models.AllPlatforms() {
			if campaign := slots.Get(platform); campaign.IsExpired(now) {
				expired = append(expired, ExpiredCampaign{
					IncidentID: incidentID,
					Platform:   platform,
					Campaign:   campaign,
				})
			}
		}
	}
	return expired
}

// MarkCampaignPaused sets the slot to paused. Idempotent: pausing an
// already-paused or absent slot is a silent no-op. Returns whether the
// status actually changed.
func (l *CampaignLedger) MarkCampaignPaused(incidentID string, platform models.Platform) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	slots, ok := l.slots[incidentID]
	if !ok {
		return false
	}
	campaign := slots.Get(platform)
	if campaign == nil || campaign.Status == models.CampaignStatusPaused {
		return false
	}
	campaign.Status = models.CampaignStatusPaused
	return true
}

// CampaignsForOutage returns a deep copy of the slots for one outage id,
// or nil
func (l *CampaignLedger) CampaignsForOutage(incidentID string) *models.CampaignSlots {
	l.mu.RLock()
	defer l.mu.RUnlock()

	slots, ok := l.slots[incidentID]
	if !ok {
		return nil
	}
	return slots.Clone()
}

// HasCampaign reports whether the outage already has a campaign on the platform
func (l *CampaignLedger) HasCampaign(incidentID string, platform models.Platform) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	slots, ok := l.slots[incidentID]
	return ok && slots.Get(platform) != nil
}

// AllCampaigns returns a deep copy of the full slot map. MarkCampaignPaused
// flips status on the stored record, so API readers get clones rather than
// shared pointers.
func (l *CampaignLedger) AllCampaigns() map[string]*models.CampaignSlots {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]*models.CampaignSlots, len(l.slots))
	for id, slots := range l.slots {
		out[id] = slots.Clone()
	}
	return out
}

// Counts returns the number of campaign slots ever filled and how many of
// them are still active. Slots are never deleted, so the filled count is
// the lifetime total.
func (l *CampaignLedger) Counts() (total, active int) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, slots := range l.slots {
		for _, platform := range models.AllPlatforms() {
			if campaign := slots.Get(platform); campaign != nil {
				total++
				if campaign.IsActive() {
					active++
				}
			}
		}
	}
	return total, active
}

// ActiveSpendWithin sums the budgets of active campaigns on a platform
// created within the trailing window ending at now. Recomputed fresh on
// every call; nothing is cached.
func (l *CampaignLedger) ActiveSpendWithin(platform models.Platform, window time.Duration, now time.Time) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	cutoff := now.Add(-window)
	var spent float64
	for _, slots := range l.slots {
		campaign := slots.Get(platform)
		if campaign.IsActive() && !campaign.CreatedAt.Before(cutoff) {
			spent += campaign.Budget
		}
	}
	return spent
}

// Load replaces the ledger from restored state. A nil map defaults to empty.
func (l *CampaignLedger) Load(slots map[string]*models.CampaignSlots) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.slots = make(map[string]*models.CampaignSlots, len(slots))
	for id, s := range slots {
		if s == nil || s.Empty() {
			continue
		}
		l.slots[id] = s
	}
}
