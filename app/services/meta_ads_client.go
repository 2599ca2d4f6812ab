package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/stroomalert/stroomalert/config"
)

// MetaAdsClient implements AdPlatformClient against the Meta Marketing API
type MetaAdsClient struct {
	config *config.MetaAdsConfig
	client *http.Client
}

// NewMetaAdsClient creates a new Meta Ads client instance
func NewMetaAdsClient(cfg *config.MetaAdsConfig) AdPlatformClient {
	return &MetaAdsClient{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// metaCampaignRequest is the payload for campaign creation
type metaCampaignRequest struct {
	Name        string   `json:"name"`
	DailyBudget int64    `json:"daily_budget"` // cents
	EndTime     string   `json:"end_time"`
	City        string   `json:"city"`
	Region      string   `json:"region"`
	PostalCodes []string `json:"postal_codes,omitempty"`
	RadiusKm    float64  `json:"radius_km"`
	PageID      string   `json:"page_id"`
	Objective   string   `json:"objective"`
	Status      string   `json:"status"`
}

// metaCampaignResponse is the creation result
type metaCampaignResponse struct {
	CampaignID string `json:"campaign_id"`
	AdSetID    string `json:"adset_id"`
	AdID       string `json:"ad_id"`
}

// CreateCampaign creates a geo-targeted campaign with one ad set. A missing
// campaign id in the response counts as "not performed".
func (m *MetaAdsClient) CreateCampaign(ctx context.Context, req CreateCampaignRequest) (*CampaignData, error) {
	payload := metaCampaignRequest{
		Name:        fmt.Sprintf("outage-%s-%s", req.OutageID, req.City),
		DailyBudget: int64(req.DailyBudget * 100),
		EndTime:     req.EndTime.Format("2006-01-02T15:04:05-0700"),
		City:        req.City,
		Region:      req.Province,
		PostalCodes: req.PostalCodes,
		RadiusKm:    req.RadiusKm,
		PageID:      m.config.PageID,
		Objective:   "OUTCOME_TRAFFIC",
		Status:      "ACTIVE",
	}

	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal Meta Ads request: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s/v19.0/act_%s/campaigns?access_token=%s",
		m.config.APIDomain, m.config.AdAccountID, url.QueryEscape(m.config.AccessToken))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send Meta Ads create request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("Meta Ads create returned status %d", resp.StatusCode)
	}

	var result metaCampaignResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode Meta Ads create response: %w", err)
	}
	if result.CampaignID == "" {
		return nil, fmt.Errorf("Meta Ads create returned no campaign id")
	}

	return &CampaignData{
		ExternalRefs: map[string]string{
			"campaign_id": result.CampaignID,
			"adset_id":    result.AdSetID,
			"ad_id":       result.AdID,
		},
	}, nil
}

// PauseCampaign pauses the remote campaign identified by its campaign id
func (m *MetaAdsClient) PauseCampaign(ctx context.Context, externalRefs map[string]string) (bool, error) {
	campaignID := externalRefs["campaign_id"]
	if campaignID == "" {
		return false, fmt.Errorf("missing Meta Ads campaign id")
	}

	payload := map[string]string{"status": "PAUSED"}
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("failed to marshal Meta Ads pause request: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s/v19.0/%s?access_token=%s",
		m.config.APIDomain, campaignID, url.QueryEscape(m.config.AccessToken))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(requestBody))
	if err != nil {
		return false, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("failed to send Meta Ads pause request: %w", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}
