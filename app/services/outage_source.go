package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/stroomalert/stroomalert/config"
	"github.com/stroomalert/stroomalert/models"
)

// OutageSource produces the normalized outage snapshot the engine consumes
// each poll cycle. A fetch failure MUST surface as an error, never as an
// empty snapshot: reconciling an empty sequence resolves every tracked
// outage, so the caller skips the whole cycle on error instead.
type OutageSource interface {
	FetchSnapshot(ctx context.Context) ([]models.RawIncident, error)
}

// HTTPOutageSource fetches the snapshot from a JSON feed endpoint
type HTTPOutageSource struct {
	config *config.SourceConfig
	client *http.Client
}

// NewHTTPOutageSource creates a new outage feed client instance
func NewHTTPOutageSource(cfg *config.SourceConfig) OutageSource {
	return &HTTPOutageSource{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// feedResponse is the wire shape of the outage feed
type feedResponse struct {
	Outages []models.RawIncident `json:"outages"`
}

// FetchSnapshot retrieves and decodes the current outage list
func (s *HTTPOutageSource) FetchSnapshot(ctx context.Context) ([]models.RawIncident, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.FeedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.config.APIKey != "" {
		req.Header.Set("x-api-key", s.config.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch outage feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("outage feed returned status %d", resp.StatusCode)
	}

	var feed feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("failed to decode outage feed: %w", err)
	}

	// A feed that decoded but carried no list at all is indistinguishable
	// from a broken payload; only an explicit empty list means "no outages".
	if feed.Outages == nil {
		return nil, fmt.Errorf("outage feed payload carried no outage list")
	}

	return feed.Outages, nil
}

// StaticOutageSource serves a fixed snapshot, for tests and dry-run mode
type StaticOutageSource struct {
	Snapshot []models.RawIncident
	Err      error
}

// FetchSnapshot returns the configured snapshot or error. An unset snapshot
// yields an explicit empty list, never nil, so the reconciler treats it as
// "no outages" rather than a failed fetch.
func (s *StaticOutageSource) FetchSnapshot(ctx context.Context) ([]models.RawIncident, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Snapshot == nil {
		return []models.RawIncident{}, nil
	}
	return s.Snapshot, nil
}
