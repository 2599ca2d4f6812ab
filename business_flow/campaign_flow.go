package businessflow

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/stroomalert/stroomalert/app/dto"
	"github.com/stroomalert/stroomalert/app/services"
	"github.com/stroomalert/stroomalert/config"
	"github.com/stroomalert/stroomalert/models"
	"github.com/stroomalert/stroomalert/utils"
)

var (
	campaignsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_campaigns_created_total",
			Help: "Campaigns successfully created per platform",
		},
		[]string{"platform"},
	)
	campaignsPausedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_campaigns_paused_total",
			Help: "Campaigns paused after expiry per platform",
		},
		[]string{"platform"},
	)
	budgetRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_budget_rejections_total",
			Help: "Campaign creations rejected by the budget ceiling per platform",
		},
		[]string{"platform"},
	)
)

// CampaignFlow handles the campaign lifecycle business logic around the
// ledger: admission-gated creation for new outages, pausing of expired
// campaigns, and the read views consumed by the ops API.
type CampaignFlow interface {
	LaunchCampaigns(ctx context.Context, incidents []*models.Incident, now time.Time) int
	PauseExpired(ctx context.Context, now time.Time) int
	GetStatus(ctx context.Context) (*dto.EngineStatusResponse, error)
	ListIncidents(ctx context.Context) (*dto.ListIncidentsResponse, error)
	ListCampaigns(ctx context.Context) (*dto.ListCampaignsResponse, error)
	ListEvents(ctx context.Context) (*dto.ListEventsResponse, error)
	ExportReport(ctx context.Context) ([]byte, error)
}

// CampaignFlowImpl implements the campaign business flow
type CampaignFlowImpl struct {
	state  *EngineState
	budget *BudgetController
	google services.AdPlatformClient
	meta   services.AdPlatformClient
	cfg    config.EngineConfig
	logger *log.Logger
}

// NewCampaignFlow creates a new campaign flow instance
func NewCampaignFlow(
	state *EngineState,
	budget *BudgetController,
	google services.AdPlatformClient,
	meta services.AdPlatformClient,
	cfg config.EngineConfig,
	logger *log.Logger,
) CampaignFlow {
	if logger == nil {
		logger = log.Default()
	}
	return &CampaignFlowImpl{
		state:  state,
		budget: budget,
		google: google,
		meta:   meta,
		cfg:    cfg,
		logger: logger,
	}
}

func (f *CampaignFlowImpl) clientFor(platform models.Platform) services.AdPlatformClient {
	switch platform {
	case models.PlatformGoogle:
		return f.google
	case models.PlatformMeta:
		return f.meta
	default:
		return nil
	}
}

// LaunchCampaigns attempts to create one campaign per platform for each of
// the given outages, consulting the budget controller first. Platform
// failures are soft: the slot simply stays empty and the reservation is
// released. Returns how many campaigns were created.
func (f *CampaignFlowImpl) LaunchCampaigns(ctx context.Context, incidents []*models.Incident, now time.Time) int {
	created := 0
	for _, incident := range incidents {
		if incident.CampaignEndTime.Before(now) {
			// Restored from an old snapshot; its campaign window already closed.
			continue
		}
		for _, platform := range models.AllPlatforms() {
			if f.launchOne(ctx, incident, platform, now) {
				created++
			}
		}
	}
	return created
}

func (f *CampaignFlowImpl) launchOne(ctx context.Context, incident *models.Incident, platform models.Platform, now time.Time) bool {
	if f.state.Ledger.HasCampaign(incident.ID, platform) {
		return false
	}

	budget := f.state.Ledger.AttributedBudget(incident, platform, nil)
	if budget <= 0 {
		return false
	}

	if !f.budget.Reserve(platform, budget, now) {
		budgetRejectionsTotal.WithLabelValues(platform.String()).Inc()
		f.state.Events.Append(models.EventBudgetRejected,
			fmt.Sprintf("Campaign for outage %s rejected: %s ceiling reached", incident.ID, platform),
			map[string]any{"id": incident.ID, "platform": platform, "budget": budget},
			now)
		f.logger.Printf("campaigns: %s ceiling reached, skipping outage %s", platform, incident.ID)
		return false
	}
	defer f.budget.Release(platform, budget)

	data, err := f.clientFor(platform).CreateCampaign(ctx, services.CreateCampaignRequest{
		OutageID:    incident.ID,
		Label:       incident.Severity.Label,
		City:        incident.Location.City,
		Province:    incident.Location.Province,
		PostalCodes: incident.Location.PostalCodes,
		RadiusKm:    incident.Severity.RadiusKm,
		DailyBudget: budget,
		EndTime:     incident.CampaignEndTime,
	})
	if err != nil || data == nil {
		f.state.Events.Append(models.EventCampaignCreateFailed,
			fmt.Sprintf("Campaign creation on %s failed for outage %s", platform, incident.ID),
			map[string]any{"id": incident.ID, "platform": platform},
			now)
		f.logger.Printf("campaigns: create on %s failed for outage %s: %v", platform, incident.ID, err)
		return false
	}

	campaign := f.state.Ledger.RegisterCampaign(incident.ID, platform, budget, data.ExternalRefs, f.cfg.CampaignDuration, now)
	campaignsCreatedTotal.WithLabelValues(platform.String()).Inc()
	f.state.Events.Append(models.EventCampaignCreated,
		fmt.Sprintf("Campaign %s created on %s for outage %s (%.2f/day)", campaign.UUID, platform, incident.ID, budget),
		map[string]any{"id": incident.ID, "platform": platform, "uuid": campaign.UUID.String(), "budget": budget},
		now)
	return true
}

// PauseExpired asks the platform clients to pause every expired campaign
// and marks confirmed pauses in the ledger. Unconfirmed pauses stay active
// and are retried on the next sweep. Returns how many were paused.
func (f *CampaignFlowImpl) PauseExpired(ctx context.Context, now time.Time) int {
	paused := 0
	for _, expired := range f.state.Ledger.ExpiredCampaigns(now) {
		ok, err := f.clientFor(expired.Platform).PauseCampaign(ctx, expired.Campaign.ExternalRefs)
		if err != nil || !ok {
			f.logger.Printf("campaigns: pause on %s failed for outage %s: %v", expired.Platform, expired.IncidentID, err)
			continue
		}
		if f.state.Ledger.MarkCampaignPaused(expired.IncidentID, expired.Platform) {
			paused++
			campaignsPausedTotal.WithLabelValues(expired.Platform.String()).Inc()
			f.state.Events.Append(models.EventCampaignPaused,
				fmt.Sprintf("Campaign on %s for outage %s paused after expiry", expired.Platform, expired.IncidentID),
				map[string]any{"id": expired.IncidentID, "platform": expired.Platform},
				now)
		}
	}
	return paused
}

// GetStatus returns the engine observability aggregate
func (f *CampaignFlowImpl) GetStatus(ctx context.Context) (*dto.EngineStatusResponse, error) {
	stats := f.state.Stats(f.cfg, utils.UTCNow())
	return &dto.EngineStatusResponse{
		ActiveIncidents:   stats.ActiveIncidents,
		ResolvedIncidents: stats.ResolvedIncidents,
		TotalCampaigns:    stats.TotalCampaigns,
		ActiveCampaigns:   stats.ActiveCampaigns,
		Budget: []dto.BudgetWindowDTO{
			{Platform: models.PlatformGoogle.String(), WindowSpend: stats.GoogleWindowSpend, Ceiling: stats.GoogleCeiling},
			{Platform: models.PlatformMeta.String(), WindowSpend: stats.MetaWindowSpend, Ceiling: stats.MetaCeiling},
		},
		EventCount: f.state.Events.Len(),
	}, nil
}

// ListIncidents returns all tracked outages, active first, newest first
func (f *CampaignFlowImpl) ListIncidents(ctx context.Context) (*dto.ListIncidentsResponse, error) {
	resp := &dto.ListIncidentsResponse{}
	for _, incident := range f.state.Incidents.ActiveIncidents() {
		resp.Active = append(resp.Active, toIncidentDTO(incident))
	}
	for _, incident := range f.state.Incidents.ResolvedIncidents() {
		resp.Resolved = append(resp.Resolved, toIncidentDTO(incident))
	}
	sort.Slice(resp.Active, func(i, j int) bool { return resp.Active[i].FirstSeen.After(resp.Active[j].FirstSeen) })
	sort.Slice(resp.Resolved, func(i, j int) bool { return resp.Resolved[i].FirstSeen.After(resp.Resolved[j].FirstSeen) })
	return resp, nil
}

// ListCampaigns returns every campaign slot in the ledger
func (f *CampaignFlowImpl) ListCampaigns(ctx context.Context) (*dto.ListCampaignsResponse, error) {
	resp := &dto.ListCampaignsResponse{}
	for incidentID, slots := range f.state.Ledger.AllCampaigns() {
		for _, platform := range models.AllPlatforms() {
			if campaign := slots.Get(platform); campaign != nil {
				resp.Campaigns = append(resp.Campaigns, toCampaignDTO(incidentID, campaign))
			}
		}
	}
	sort.Slice(resp.Campaigns, func(i, j int) bool {
		return resp.Campaigns[i].CreatedAt.After(resp.Campaigns[j].CreatedAt)
	})
	return resp, nil
}

// ListEvents returns the rolling event log, most recent first
func (f *CampaignFlowImpl) ListEvents(ctx context.Context) (*dto.ListEventsResponse, error) {
	resp := &dto.ListEventsResponse{}
	for _, event := range f.state.Events.Entries() {
		resp.Events = append(resp.Events, dto.EventDTO{
			ID:        event.ID.String(),
			Timestamp: event.Timestamp,
			Type:      string(event.Type),
			Message:   event.Message,
			Data:      event.Data,
		})
	}
	return resp, nil
}

func toIncidentDTO(incident *models.Incident) dto.IncidentDTO {
	return dto.IncidentDTO{
		ID:               incident.ID,
		NetworkType:      incident.NetworkType.String(),
		ImpactHouseholds: incident.ImpactHouseholds,
		City:             incident.Location.City,
		Province:         incident.Location.Province,
		PostalCodes:      incident.Location.PostalCodes,
		Status:           incident.Status,
		SeverityLevel:    incident.Severity.Level.String(),
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

func toCampaignDTO(incidentID string, campaign *models.Campaign) dto.CampaignDTO {
	return dto.CampaignDTO{
		UUID:       campaign.UUID.String(),
		IncidentID: incidentID,
		Platform:   campaign.Platform.String(),
		Budget:     campaign.Budget,
		Status:     campaign.Status.String(),
		CreatedAt:  campaign.CreatedAt,
		ExpiresAt:  campaign.ExpiresAt,
	}
}
