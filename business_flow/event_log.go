package businessflow

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stroomalert/stroomalert/models"
)

// EventLog is the capped, most-recent-first rolling log of engine events.
// It is purely additive from the engine's point of view; only the ops API
// reads it back.
type EventLog struct {
	mu      sync.RWMutex
	entries []models.EngineEvent
	cap     int
}

// NewEventLog creates an event log retaining at most capacity entries
func NewEventLog(capacity int) *EventLog {
	return &EventLog{
		entries: []models.EngineEvent{},
		cap:     capacity,
	}
}

// Append prepends a new entry, trimming the oldest once past capacity
func (l *EventLog) Append(eventType models.EventType, message string, data map[string]any, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := models.EngineEvent{
		ID:        uuid.New(),
		Timestamp: now,
		Type:      eventType,
		Message:   message,
		Data:      data,
	}
	l.entries = append([]models.EngineEvent{entry}, l.entries...)
	if len(l.entries) > l.cap {
		l.entries = l.entries[:l.cap]
	}
}

// Entries returns a copy of the log, most recent first
func (l *EventLog) Entries() []models.EngineEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.EngineEvent, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of retained entries
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Load replaces the log from restored state, re-trimming to capacity
func (l *EventLog) Load(entries []models.EngineEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(entries) > l.cap {
		entries = entries[:l.cap]
	}
	l.entries = make([]models.EngineEvent, len(entries))
	copy(l.entries, entries)
}
