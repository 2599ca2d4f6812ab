package repository

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/stroomalert/stroomalert/models"
)

// refMap stores campaign external references and event payloads as JSONB.
type refMap map[string]string

func (m refMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *refMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan refMap: expected []byte, got %T", value)
	}
	return json.Unmarshal(bytes, m)
}

// payloadMap stores loosely typed event data as JSONB.
type payloadMap map[string]interface{}

func (m payloadMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *payloadMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan payloadMap: expected []byte, got %T", value)
	}
	return json.Unmarshal(bytes, m)
}

type incidentRow struct {
	ID               string         `gorm:"primaryKey;size:128"`
	Resolved         bool           `gorm:"not null;index"`
	NetworkType      string         `gorm:"size:32;not null"`
	ImpactHouseholds int            `gorm:"not null"`
	City             string         `gorm:"size:128"`
	Province         string         `gorm:"size:64"`
	PostalCodes      pq.StringArray `gorm:"type:text[]"`
	Streets          pq.StringArray `gorm:"type:text[]"`
	PeriodStart      time.Time
	ObservedEnd      *time.Time
	ExpectedEnd      *time.Time
	Status           string `gorm:"size:32;not null"`
	SeverityLevel    string `gorm:"size:16;not null"`
	SeverityLabel    string `gorm:"size:64"`
	GoogleBudget     float64
	MetaBudget       float64
	RadiusKm         float64
	FirstSeen        time.Time `gorm:"not null"`
	LastUpdated      time.Time `gorm:"not null"`
	ResolvedAt       *time.Time
	CampaignEndTime  time.Time
}

func (incidentRow) TableName() string { return "outage_incidents" }

type campaignRow struct {
	UUID         string `gorm:"primaryKey;size:36"`
	IncidentID   string `gorm:"size:128;not null;index"`
	Platform     string `gorm:"size:16;not null"`
	Budget       float64
	CreatedAt    time.Time `gorm:"not null"`
	ExpiresAt    time.Time `gorm:"not null"`
	Status       string    `gorm:"size:16;not null"`
	ExternalRefs refMap    `gorm:"type:jsonb"`
}

func (campaignRow) TableName() string { return "outage_campaigns" }

type eventRow struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Position  int       `gorm:"not null;index"`
	Timestamp time.Time `gorm:"not null"`
	Type      string    `gorm:"size:48;not null"`
	Message   string
	Data      payloadMap `gorm:"type:jsonb"`
}

func (eventRow) TableName() string { return "engine_events" }

// PostgresStateRepository persists engine state in PostgreSQL. Each save
// replaces the previous snapshot inside one transaction, so readers observe
// either the old or the new state.
type PostgresStateRepository struct {
	db *gorm.DB
}

// NewPostgresStateRepository migrates the state tables and returns a
// repository bound to db.
func NewPostgresStateRepository(db *gorm.DB) (*PostgresStateRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if err := db.AutoMigrate(&incidentRow{}, &campaignRow{}, &eventRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate state tables: %w", err)
	}
	return &PostgresStateRepository{db: db}, nil
}

func (r *PostgresStateRepository) SaveState(ctx context.Context, snapshot *models.StateSnapshot) error {
	if snapshot == nil {
		snapshot = models.NewStateSnapshot()
	}

	incidents := make([]incidentRow, 0, len(snapshot.ActiveIncidents)+len(snapshot.ResolvedIncidents))
	for _, incident := range snapshot.ActiveIncidents {
		incidents = append(incidents, toIncidentRow(incident, false))
	}
	for _, incident := range snapshot.ResolvedIncidents {
		incidents = append(incidents, toIncidentRow(incident, true))
	}

	campaigns := make([]campaignRow, 0, len(snapshot.Campaigns)*2)
	for incidentID, slots := range snapshot.Campaigns {
		if slots == nil {
			continue
		}
		for _, platform := range models.AllPlatforms() {
			if campaign := slots.Get(platform); campaign != nil {
				campaigns = append(campaigns, toCampaignRow(incidentID, campaign))
			}
		}
	}

	events := make([]eventRow, 0, len(snapshot.Events))
	for i, event := range snapshot.Events {
		events = append(events, toEventRow(i, event))
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&incidentRow{}, &campaignRow{}, &eventRow{}} {
			if err := tx.Where("1 = 1").Delete(model).Error; err != nil {
				return fmt.Errorf("failed to clear state table: %w", err)
			}
		}
		if len(incidents) > 0 {
			if err := tx.CreateInBatches(incidents, 200).Error; err != nil {
				return fmt.Errorf("failed to save incidents: %w", err)
			}
		}
		if len(campaigns) > 0 {
			if err := tx.CreateInBatches(campaigns, 200).Error; err != nil {
				return fmt.Errorf("failed to save campaigns: %w", err)
			}
		}
		if len(events) > 0 {
			if err := tx.CreateInBatches(events, 200).Error; err != nil {
				return fmt.Errorf("failed to save events: %w", err)
			}
		}
		return nil
	})
}

func (r *PostgresStateRepository) LoadState(ctx context.Context) (*models.StateSnapshot, error) {
	snapshot := models.NewStateSnapshot()

	var incidents []incidentRow
	if err := r.db.WithContext(ctx).Find(&incidents).Error; err != nil {
		return nil, fmt.Errorf("failed to load incidents: %w", err)
	}
	for i := range incidents {
		incident := fromIncidentRow(&incidents[i])
		if incidents[i].Resolved {
			snapshot.ResolvedIncidents[incident.ID] = incident
		} else {
			snapshot.ActiveIncidents[incident.ID] = incident
		}
	}

	var campaigns []campaignRow
	if err := r.db.WithContext(ctx).Find(&campaigns).Error; err != nil {
		return nil, fmt.Errorf("failed to load campaigns: %w", err)
	}
	for i := range campaigns {
		row := &campaigns[i]
		slots, ok := snapshot.Campaigns[row.IncidentID]
		if !ok {
			slots = &models.CampaignSlots{}
			snapshot.Campaigns[row.IncidentID] = slots
		}
		slots.Set(models.Platform(row.Platform), fromCampaignRow(row))
	}

	var events []eventRow
	if err := r.db.WithContext(ctx).Order("position asc").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	for i := range events {
		snapshot.Events = append(snapshot.Events, fromEventRow(&events[i]))
	}

	return snapshot, nil
}

func toIncidentRow(incident *models.Incident, resolved bool) incidentRow {
	return incidentRow{
		ID:               incident.ID,
		Resolved:         resolved,
		NetworkType:      string(incident.NetworkType),
		ImpactHouseholds: incident.ImpactHouseholds,
		City:             incident.Location.City,
		Province:         incident.Location.Province,
		PostalCodes:      pq.StringArray(incident.Location.PostalCodes),
		Streets:          pq.StringArray(incident.Location.Streets),
		PeriodStart:      incident.Period.Start,
		ObservedEnd:      incident.Period.ObservedEnd,
		ExpectedEnd:      incident.Period.ExpectedEnd,
		Status:           incident.Status,
		SeverityLevel:    string(incident.Severity.Level),
		SeverityLabel:    incident.Severity.Label,
		GoogleBudget:     incident.Severity.GoogleBudget,
		MetaBudget:       incident.Severity.MetaBudget,
		RadiusKm:         incident.Severity.RadiusKm,
		FirstSeen:        incident.FirstSeen,
		LastUpdated:      incident.LastUpdated,
		ResolvedAt:       incident.ResolvedAt,
		CampaignEndTime:  incident.CampaignEndTime,
	}
}

func fromIncidentRow(row *incidentRow) *models.Incident {
	return &models.Incident{
		ID:               row.ID,
		NetworkType:      models.NetworkType(row.NetworkType),
		ImpactHouseholds: row.ImpactHouseholds,
		Location: models.Location{
			City:        row.City,
			Province:    row.Province,
			PostalCodes: []string(row.PostalCodes),
			Streets:     []string(row.Streets),
		},
		Period: models.Period{
			Start:       row.PeriodStart,
			ObservedEnd: row.ObservedEnd,
			ExpectedEnd: row.ExpectedEnd,
		},
		Status: row.Status,
		Severity: models.Severity{
			Level:        models.SeverityLevel(row.SeverityLevel),
			Label:        row.SeverityLabel,
			GoogleBudget: row.GoogleBudget,
			MetaBudget:   row.MetaBudget,
			RadiusKm:     row.RadiusKm,
		},
		FirstSeen:       row.FirstSeen,
		LastUpdated:     row.LastUpdated,
		ResolvedAt:      row.ResolvedAt,
		CampaignEndTime: row.CampaignEndTime,
	}
}

func toCampaignRow(incidentID string, campaign *models.Campaign) campaignRow {
	return campaignRow{
		UUID:         campaign.UUID.String(),
		IncidentID:   incidentID,
		Platform:     string(campaign.Platform),
		Budget:       campaign.Budget,
		CreatedAt:    campaign.CreatedAt,
		ExpiresAt:    campaign.ExpiresAt,
		Status:       string(campaign.Status),
		ExternalRefs: refMap(campaign.ExternalRefs),
	}
}

func fromCampaignRow(row *campaignRow) *models.Campaign {
	id, err := uuid.Parse(row.UUID)
	if err != nil {
		id = uuid.Nil
	}
	return &models.Campaign{
		UUID:         id,
		Platform:     models.Platform(row.Platform),
		Budget:       row.Budget,
		CreatedAt:    row.CreatedAt,
		ExpiresAt:    row.ExpiresAt,
		Status:       models.CampaignStatus(row.Status),
		ExternalRefs: map[string]string(row.ExternalRefs),
	}
}

func toEventRow(position int, event models.EngineEvent) eventRow {
	return eventRow{
		ID:        event.ID.String(),
		Position:  position,
		Timestamp: event.Timestamp,
		Type:      string(event.Type),
		Message:   event.Message,
		Data:      payloadMap(event.Data),
	}
}

func fromEventRow(row *eventRow) models.EngineEvent {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		id = uuid.Nil
	}
	return models.EngineEvent{
		ID:        id,
		Timestamp: row.Timestamp,
		Type:      models.EventType(row.Type),
		Message:   row.Message,
		Data:      row.Data,
	}
}
