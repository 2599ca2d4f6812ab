package models

import (
	"time"

	"github.com/google/uuid"
)

// Platform represents an advertising platform a campaign runs on
type Platform string

const (
	PlatformGoogle Platform = "google"
	PlatformMeta   Platform = "meta"
)

// String returns the string representation of the platform
func (p Platform) String() string {
	return string(p)
}

// Valid checks if the platform is valid
func (p Platform) Valid() bool {
	switch p {
	case PlatformGoogle, PlatformMeta:
		return true
	default:
		return false
	}
}

// AllPlatforms lists every supported platform in creation order
func AllPlatforms() []Platform {
	return []Platform{PlatformGoogle, PlatformMeta}
}

// CampaignStatus represents the lifecycle state of a campaign. The only
// transition is active -> paused; there is no resume and no deletion.
type CampaignStatus string

const (
	CampaignStatusActive CampaignStatus = "active"
	CampaignStatusPaused CampaignStatus = "paused"
)

// String returns the string representation of the status
func (s CampaignStatus) String() string {
	return string(s)
}

// Campaign is one promotional campaign on one platform for one outage.
// Budget is the daily amount charged against the admission ceiling at
// creation time and is never re-derived, even if the outage severity
// changes later.
type Campaign struct {
	UUID      uuid.UUID      `json:"uuid"`
	Platform  Platform       `json:"platform"`
	Budget    float64        `json:"budget"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
	Status    CampaignStatus `json:"status"`

	// ExternalRefs carries the platform-specific identifiers needed to pause
	// the remote objects later (resource names, ad set ids). The engine
	// passes them through unexamined.
	ExternalRefs map[string]string `json:"external_refs,omitempty"`
}

// IsActive reports whether the campaign still counts against the budget window
func (c *Campaign) IsActive() bool {
	return c != nil && c.Status == CampaignStatusActive
}

// IsExpired reports whether an active campaign has outlived its window
func (c *Campaign) IsExpired(now time.Time) bool {
	return c.IsActive() && c.ExpiresAt.Before(now)
}

// Clone returns a deep copy of the campaign
func (c *Campaign) Clone() *Campaign {
	if c == nil {
		return nil
	}
	out := *c
	if c.ExternalRefs != nil {
		out.ExternalRefs = make(map[string]string, len(c.ExternalRefs))
		for k, v := range c.ExternalRefs {
			out.ExternalRefs[k] = v
		}
	}
	return &out
}

// CampaignSlots holds the at-most-one campaign per platform for one outage.
// Slots are independently nullable; the association with the incident is by
// shared id only, never by ownership, so slots may outlive their incident.
type CampaignSlots struct {
	Google *Campaign `json:"google,omitempty"`
	Meta   *Campaign `json:"meta,omitempty"`
}

// Get returns the slot for a platform, nil when empty or unknown
func (s *CampaignSlots) Get(platform Platform) *Campaign {
	if s == nil {
		return nil
	}
	switch platform {
	case PlatformGoogle:
		return s.Google
	case PlatformMeta:
		return s.Meta
	default:
		return nil
	}
}

// Set overwrites the slot for a platform
func (s *CampaignSlots) Set(platform Platform, c *Campaign) {
	switch platform {
	case PlatformGoogle:
		s.Google = c
	case PlatformMeta:
		s.Meta = c
	}
}

// Empty reports whether both slots are unset
func (s *CampaignSlots) Empty() bool {
	return s == nil || (s.Google == nil && s.Meta == nil)
}

// Clone returns a deep copy of both slots
func (s *CampaignSlots) Clone() *CampaignSlots {
	if s == nil {
		return nil
	}
	return &CampaignSlots{
		Google: s.Google.Clone(),
		Meta:   s.Meta.Clone(),
	}
}
