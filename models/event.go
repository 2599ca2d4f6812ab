package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType labels an entry in the rolling engine event log
type EventType string

const (
	EventOutageDetected       EventType = "outage_detected"
	EventOutageUpdated        EventType = "outage_updated"
	EventOutageResolved       EventType = "outage_resolved"
	EventCampaignCreated      EventType = "campaign_created"
	EventCampaignCreateFailed EventType = "campaign_create_failed"
	EventCampaignPaused       EventType = "campaign_paused"
	EventBudgetRejected       EventType = "budget_rejected"
	EventPollSkipped          EventType = "poll_skipped"
	EventStateRestored        EventType = "state_restored"
)

// EngineEvent is one entry of the capped, most-recent-first event log the
// engine produces for external observability. The engine itself never reads
// the log back.
type EngineEvent struct {
	ID        uuid.UUID      `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Type      EventType      `json:"type"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
}

// StateSnapshot bundles everything the persistence gateway writes and
// restores. The four collections are independently restorable; a missing
// bundle on disk defaults to its empty value.
type StateSnapshot struct {
	ActiveIncidents   map[string]*Incident      `json:"active_incidents"`
	ResolvedIncidents map[string]*Incident      `json:"resolved_incidents"`
	Campaigns         map[string]*CampaignSlots `json:"campaigns"`
	Events            []EngineEvent             `json:"events"`
}

// NewStateSnapshot returns an empty snapshot with all collections allocated
func NewStateSnapshot() *StateSnapshot {
	return &StateSnapshot{
		ActiveIncidents:   make(map[string]*Incident),
		ResolvedIncidents: make(map[string]*Incident),
		Campaigns:         make(map[string]*CampaignSlots),
		Events:            []EngineEvent{},
	}
}
