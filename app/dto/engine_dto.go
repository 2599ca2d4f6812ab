package dto

import "time"

// BudgetWindowDTO reports the rolling spend window of one platform
type BudgetWindowDTO struct {
	Platform    string  `json:"platform"`
	WindowSpend float64 `json:"window_spend"`
	Ceiling     float64 `json:"ceiling"`
}

// EngineStatusResponse is the observability aggregate of the engine
type EngineStatusResponse struct {
	ActiveIncidents   int               `json:"active_incidents"`
	ResolvedIncidents int               `json:"resolved_incidents"`
	TotalCampaigns    int               `json:"total_campaigns"`
	ActiveCampaigns   int               `json:"active_campaigns"`
	Budget            []BudgetWindowDTO `json:"budget"`
	EventCount        int               `json:"event_count"`
}

// IncidentDTO is the API shape of a tracked outage
type IncidentDTO struct {
	ID               string     `json:"id"`
	NetworkType      string     `json:"network_type"`
	ImpactHouseholds int        `json:"impact_households"`
	City             string     `json:"city"`
	Province         string     `json:"province,omitempty"`
	PostalCodes      []string   `json:"postal_codes,omitempty"`
	Status           string     `json:"status"`
	SeverityLevel    string     `json:"severity_level"`
	SeverityLabel    string     `json:"severity_label"`
	GoogleBudget     float64    `json:"google_budget"`
	MetaBudget       float64    `json:"meta_budget"`
	RadiusKm         float64    `json:"radius_km"`
	FirstSeen        time.Time  `json:"first_seen"`
	LastUpdated      time.Time  `json:"last_updated"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
	CampaignEndTime  time.Time  `json:"campaign_end_time"`
}

// ListIncidentsResponse partitions tracked outages by lifecycle state
type ListIncidentsResponse struct {
	Active   []IncidentDTO `json:"active"`
	Resolved []IncidentDTO `json:"resolved"`
}

// CampaignDTO is the API shape of one campaign slot
type CampaignDTO struct {
	UUID       string    `json:"uuid"`
	IncidentID string    `json:"incident_id"`
	Platform   string    `json:"platform"`
	Budget     float64   `json:"budget"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// ListCampaignsResponse lists every campaign in the ledger
type ListCampaignsResponse struct {
	Campaigns []CampaignDTO `json:"campaigns"`
}

// EventDTO is the API shape of one engine event
type EventDTO struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
}

// ListEventsResponse returns the rolling event log, most recent first
type ListEventsResponse struct {
	Events []EventDTO `json:"events"`
}

// TriggerPollRequest asks for a manual reconciliation cycle
type TriggerPollRequest struct {
	Reason string `json:"reason,omitempty" validate:"omitempty,max=200"`
}

// TriggerPollResponse reports whether the manual cycle ran or was skipped
type TriggerPollResponse struct {
	Triggered bool   `json:"triggered"`
	Skipped   bool   `json:"skipped"`
	Message   string `json:"message"`
}
