package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/stroomalert/stroomalert/config"
)

// GoogleAdsClient implements AdPlatformClient against the Google Ads API
type GoogleAdsClient struct {
	config *config.GoogleAdsConfig
	client *http.Client
}

// NewGoogleAdsClient creates a new Google Ads client instance
func NewGoogleAdsClient(cfg *config.GoogleAdsConfig) AdPlatformClient {
	return &GoogleAdsClient{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// googleCampaignRequest is the payload for campaign creation
type googleCampaignRequest struct {
	Name               string   `json:"name"`
	DailyBudget        float64  `json:"dailyBudgetEuros"`
	EndTime            string   `json:"endTime"`
	LocationName       string   `json:"locationName"`
	PostalCodes        []string `json:"postalCodes,omitempty"`
	RadiusKm           float64  `json:"radiusKm"`
	AdvertisingChannel string   `json:"advertisingChannelType"`
}

// googleCampaignResponse is the creation result
type googleCampaignResponse struct {
	ResourceName    string `json:"resourceName"`
	BudgetResource  string `json:"budgetResourceName"`
	AdGroupResource string `json:"adGroupResourceName"`
}

// CreateCampaign creates a geo-targeted search campaign. A non-2xx response
// yields (nil, err); the caller treats that as "not performed".
func (g *GoogleAdsClient) CreateCampaign(ctx context.Context, req CreateCampaignRequest) (*CampaignData, error) {
	payload := googleCampaignRequest{
		Name:               fmt.Sprintf("outage-%s-%s", req.OutageID, req.City),
		DailyBudget:        req.DailyBudget,
		EndTime:            req.EndTime.Format("2006-01-02 15:04:05"),
		LocationName:       fmt.Sprintf("%s, %s", req.City, req.Province),
		PostalCodes:        req.PostalCodes,
		RadiusKm:           req.RadiusKm,
		AdvertisingChannel: "SEARCH",
	}

	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal Google Ads request: %w", err)
	}

	url := fmt.Sprintf("https://%s/v17/customers/%s/campaigns:create", g.config.APIDomain, g.config.CustomerID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("developer-token", g.config.DeveloperToken)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send Google Ads create request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("Google Ads create returned status %d", resp.StatusCode)
	}

	var result googleCampaignResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode Google Ads create response: %w", err)
	}
	if result.ResourceName == "" {
		return nil, fmt.Errorf("Google Ads create returned no resource name")
	}

	return &CampaignData{
		ExternalRefs: map[string]string{
			"resource_name":          result.ResourceName,
			"budget_resource_name":   result.BudgetResource,
			"ad_group_resource_name": result.AdGroupResource,
		},
	}, nil
}

// PauseCampaign pauses the remote campaign identified by its resource name
func (g *GoogleAdsClient) PauseCampaign(ctx context.Context, externalRefs map[string]string) (bool, error) {
	resourceName := externalRefs["resource_name"]
	if resourceName == "" {
		return false, fmt.Errorf("missing Google Ads resource name")
	}

	payload := map[string]any{
		"resourceName": resourceName,
		"status":       "PAUSED",
	}
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("failed to marshal Google Ads pause request: %w", err)
	}

	url := fmt.Sprintf("https://%s/v17/customers/%s/campaigns:mutate", g.config.APIDomain, g.config.CustomerID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(requestBody))
	if err != nil {
		return false, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("developer-token", g.config.DeveloperToken)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("failed to send Google Ads pause request: %w", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}
