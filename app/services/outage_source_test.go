package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stroomalert/stroomalert/config"
)

func newFeedServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func newFeedSource(url string) OutageSource {
	return NewHTTPOutageSource(&config.SourceConfig{
		FeedURL: url,
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	})
}

func TestFetchSnapshot(t *testing.T) {
	body := `{"outages":[{"id":"out-1","network_type":"electricity","impact_households":1500,"location":{"city":"Amsterdam","postal_codes":["1012AB"]},"status":"in_progress"}]}`
	server := newFeedServer(t, http.StatusOK, body)

	snapshot, err := newFeedSource(server.URL).FetchSnapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	assert.Equal(t, "out-1", snapshot[0].ID)
	assert.Equal(t, 1500, snapshot[0].ImpactHouseholds)
	assert.Equal(t, "Amsterdam", snapshot[0].Location.City)
}

func TestFetchSnapshotExplicitEmptyList(t *testing.T) {
	server := newFeedServer(t, http.StatusOK, `{"outages":[]}`)

	snapshot, err := newFeedSource(server.URL).FetchSnapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Empty(t, snapshot)
}

func TestFetchSnapshotMissingListIsAnError(t *testing.T) {
	// A payload without the outages key is a broken feed, not "no outages"
	server := newFeedServer(t, http.StatusOK, `{}`)

	snapshot, err := newFeedSource(server.URL).FetchSnapshot(context.Background())
	assert.Nil(t, snapshot)
	assert.Error(t, err)
}

func TestFetchSnapshotNon200IsAnError(t *testing.T) {
	server := newFeedServer(t, http.StatusBadGateway, `upstream down`)

	snapshot, err := newFeedSource(server.URL).FetchSnapshot(context.Background())
	assert.Nil(t, snapshot)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestFetchSnapshotMalformedJSONIsAnError(t *testing.T) {
	server := newFeedServer(t, http.StatusOK, `{"outages": [`)

	snapshot, err := newFeedSource(server.URL).FetchSnapshot(context.Background())
	assert.Nil(t, snapshot)
	assert.Error(t, err)
}

func TestStaticOutageSource(t *testing.T) {
	source := &StaticOutageSource{}
	snapshot, err := source.FetchSnapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Empty(t, snapshot)

	source.Err = context.DeadlineExceeded
	_, err = source.FetchSnapshot(context.Background())
	assert.Error(t, err)
}
