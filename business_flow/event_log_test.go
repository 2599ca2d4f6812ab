package businessflow

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stroomalert/stroomalert/models"
)

func TestEventLogOrdering(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	log := NewEventLog(200)

	log.Append(models.EventOutageDetected, "first", nil, now)
	log.Append(models.EventOutageResolved, "second", nil, now.Add(time.Minute))

	entries := log.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[0].Message)
	assert.Equal(t, "first", entries[1].Message)
	assert.NotEqual(t, entries[0].ID, entries[1].ID)
}

func TestEventLogCapDropsOldest(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	log := NewEventLog(5)

	for i := 0; i < 8; i++ {
		log.Append(models.EventOutageDetected, fmt.Sprintf("event-%d", i), nil, now.Add(time.Duration(i)*time.Second))
	}

	entries := log.Entries()
	require.Len(t, entries, 5)
	assert.Equal(t, "event-7", entries[0].Message)
	assert.Equal(t, "event-3", entries[4].Message)
}

func TestEventLogEntriesReturnsCopy(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	log := NewEventLog(5)
	log.Append(models.EventOutageDetected, "original", nil, now)

	entries := log.Entries()
	entries[0].Message = "mutated"

	assert.Equal(t, "original", log.Entries()[0].Message)
}

func TestEventLogLoadReTrims(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	source := NewEventLog(10)
	for i := 0; i < 8; i++ {
		source.Append(models.EventOutageDetected, fmt.Sprintf("event-%d", i), nil, now)
	}

	restored := NewEventLog(5)
	restored.Load(source.Entries())

	assert.Equal(t, 5, restored.Len())
	assert.Equal(t, "event-7", restored.Entries()[0].Message)
}
