// Package services provides external service integrations and technical concerns like advertising platform clients
package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CreateCampaignRequest carries everything a platform client needs to
// create one geo-targeted campaign for one outage.
type CreateCampaignRequest struct {
	OutageID    string
	Label       string
	City        string
	Province    string
	PostalCodes []string
	RadiusKm    float64
	DailyBudget float64
	EndTime     time.Time
}

// CampaignData is what a platform client hands back after a successful
// create. ExternalRefs holds the opaque platform identifiers needed to
// pause the remote objects later; the engine never inspects them.
type CampaignData struct {
	ExternalRefs map[string]string
}

// AdPlatformClient is the capability surface the engine expects from an
// advertising platform. Both operations are best effort: a nil CampaignData
// or a false pause result means "not performed" and is never escalated.
type AdPlatformClient interface {
	CreateCampaign(ctx context.Context, req CreateCampaignRequest) (*CampaignData, error)
	PauseCampaign(ctx context.Context, externalRefs map[string]string) (bool, error)
}

// MockPlatformClient implements AdPlatformClient for tests and dry-run mode
type MockPlatformClient struct {
	mu       sync.Mutex
	Created  []CreateCampaignRequest
	Paused   []map[string]string
	FailNext bool
}

// NewMockPlatformClient creates a mock platform client
func NewMockPlatformClient() *MockPlatformClient {
	return &MockPlatformClient{}
}

// CreateCampaign records the request and fabricates external refs
func (m *MockPlatformClient) CreateCampaign(ctx context.Context, req CreateCampaignRequest) (*CampaignData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNext {
		m.FailNext = false
		return nil, nil
	}
	m.Created = append(m.Created, req)
	return &CampaignData{
		ExternalRefs: map[string]string{"campaign_id": "mock-" + uuid.New().String()},
	}, nil
}

// PauseCampaign records the pause request and confirms it
func (m *MockPlatformClient) PauseCampaign(ctx context.Context, externalRefs map[string]string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNext {
		m.FailNext = false
		return false, nil
	}
	m.Paused = append(m.Paused, externalRefs)
	return true, nil
}
