package models

import (
	"fmt"
	"time"
)

// NetworkType represents the affected utility network of an outage
type NetworkType string

const (
	NetworkTypeElectricity NetworkType = "electricity"
	NetworkTypeGas         NetworkType = "gas"
	NetworkTypeOther       NetworkType = "other"
)

// String returns the string representation of the network type
func (n NetworkType) String() string {
	return string(n)
}

// Valid checks if the network type is valid
func (n NetworkType) Valid() bool {
	switch n {
	case NetworkTypeElectricity, NetworkTypeGas, NetworkTypeOther:
		return true
	default:
		return false
	}
}

// Normalize maps unknown upstream network strings onto NetworkTypeOther
func (n NetworkType) Normalize() NetworkType {
	if n.Valid() {
		return n
	}
	return NetworkTypeOther
}

// SeverityLevel represents the severity tier of an outage
type SeverityLevel string

const (
	SeverityMinor    SeverityLevel = "minor"
	SeverityMajor    SeverityLevel = "major"
	SeverityCritical SeverityLevel = "critical"
)

// String returns the string representation of the severity level
func (s SeverityLevel) String() string {
	return string(s)
}

// Valid checks if the severity level is valid
func (s SeverityLevel) Valid() bool {
	switch s {
	case SeverityMinor, SeverityMajor, SeverityCritical:
		return true
	default:
		return false
	}
}

// Severity holds the derived classification of an outage together with the
// default campaign parameters attached to its tier. Budgets are daily
// amounts in euros and are caps, already clamped to the configured
// per-platform maxima at enrichment time.
type Severity struct {
	Level        SeverityLevel `json:"level"`
	Label        string        `json:"label"`
	GoogleBudget float64       `json:"google_budget"`
	MetaBudget   float64       `json:"meta_budget"`
	RadiusKm     float64       `json:"radius_km"`
}

// Location holds the geographic metadata of an outage. Province is derived
// from the first postal code at enrichment time; the rest comes from the
// upstream feed as-is.
type Location struct {
	City        string   `json:"city"`
	Province    string   `json:"province,omitempty"`
	PostalCodes []string `json:"postal_codes,omitempty"`
	Streets     []string `json:"streets,omitempty"`
}

// Period holds the reported time window of an outage
type Period struct {
	Start       time.Time  `json:"start"`
	ObservedEnd *time.Time `json:"observed_end,omitempty"`
	ExpectedEnd *time.Time `json:"expected_end,omitempty"`
}

// RawIncident is the normalized inbound record handed to the engine by the
// outage source on each poll cycle. It carries no derived fields.
type RawIncident struct {
	ID               string      `json:"id" validate:"required"`
	NetworkType      NetworkType `json:"network_type"`
	ImpactHouseholds int         `json:"impact_households" validate:"gte=0"`
	Location         Location    `json:"location"`
	Period           Period      `json:"period"`
	Status           string      `json:"status"`
}

// Sanitize repairs anomalous fields in place so that one malformed record
// never aborts a reconciliation pass. Only the id is mandatory.
func (r *RawIncident) Sanitize() {
	r.NetworkType = r.NetworkType.Normalize()
	if r.ImpactHouseholds < 0 {
		r.ImpactHouseholds = 0
	}
}

// Incident is the canonical tracked state of an outage. It is created once
// at first observation (see businessflow enrichment), merged in place on
// every later snapshot that still carries its id, and moved to the resolved
// set the moment a snapshot no longer contains it.
type Incident struct {
	ID               string      `json:"id"`
	NetworkType      NetworkType `json:"network_type"`
	ImpactHouseholds int         `json:"impact_households"`
	Location         Location    `json:"location"`
	Period           Period      `json:"period"`
	Status           string      `json:"status"`

	Severity        Severity   `json:"severity"`
	FirstSeen       time.Time  `json:"first_seen"`
	LastUpdated     time.Time  `json:"last_updated"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	CampaignEndTime time.Time  `json:"campaign_end_time"`
}

// IsResolved reports whether the incident has been moved to the resolved set
func (i *Incident) IsResolved() bool {
	return i.ResolvedAt != nil
}

// Clone returns a deep copy of the incident. Read views hand out clones so
// that API readers never share memory with the record the reconciler
// mutates in place.
func (i *Incident) Clone() *Incident {
	if i == nil {
		return nil
	}
	out := *i
	out.Location.PostalCodes = append([]string(nil), i.Location.PostalCodes...)
	out.Location.Streets = append([]string(nil), i.Location.Streets...)
	if i.Period.ObservedEnd != nil {
		observedEnd := *i.Period.ObservedEnd
		out.Period.ObservedEnd = &observedEnd
	}
	if i.Period.ExpectedEnd != nil {
		expectedEnd := *i.Period.ExpectedEnd
		out.Period.ExpectedEnd = &expectedEnd
	}
	if i.ResolvedAt != nil {
		resolvedAt := *i.ResolvedAt
		out.ResolvedAt = &resolvedAt
	}
	return &out
}

// BudgetFor returns the severity-attributed daily budget for a platform
func (i *Incident) BudgetFor(platform Platform) (float64, error) {
	switch platform {
	case PlatformGoogle:
		return i.Severity.GoogleBudget, nil
	case PlatformMeta:
		return i.Severity.MetaBudget, nil
	default:
		return 0, fmt.Errorf("unknown platform: %s", platform)
	}
}
