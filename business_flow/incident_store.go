package businessflow

import (
	"sync"
	"time"

	"github.com/stroomalert/stroomalert/models"
)

// IncidentStore is the in-memory keyed container for tracked outages. It
// maintains the partition invariant: an id lives in exactly one of the
// active and resolved sets at any time. All mutation happens inside one
// reconciliation pass; the lock only protects concurrent ops-API reads.
type IncidentStore struct {
	mu       sync.RWMutex
	active   map[string]*models.Incident
	resolved map[string]*models.Incident
}

// NewIncidentStore creates an empty incident store
func NewIncidentStore() *IncidentStore {
	return &IncidentStore{
		active:   make(map[string]*models.Incident),
		resolved: make(map[string]*models.Incident),
	}
}

// Tracked returns the active incident for an id, or nil when untracked
func (s *IncidentStore) Tracked(id string) *models.Incident {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active[id]
}

// UpdateActive runs fn on the active incident under the write lock, so an
// in-place merge cannot race with the cloning read views. Returns false
// without calling fn when the id is not active.
func (s *IncidentStore) UpdateActive(id string, fn func(*models.Incident)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	incident, ok := s.active[id]
	if !ok {
		return false
	}
	fn(incident)
	return true
}

// AddActive inserts a freshly enriched incident into the active set. A
// lingering resolved record under the same id is discarded so the partition
// invariant holds when an upstream id recurs before retention purges it.
func (s *IncidentStore) AddActive(incident *models.Incident) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.resolved, incident.ID)
	s.active[incident.ID] = incident
}

// Resolve moves an active incident to the resolved set, stamped with the
// given resolution time. Returns nil when the id is not active.
func (s *IncidentStore) Resolve(id string, now time.Time) *models.Incident {
	s.mu.Lock()
	defer s.mu.Unlock()

	incident, ok := s.active[id]
	if !ok {
		return nil
	}
	delete(s.active, id)
	resolvedAt := now
	incident.ResolvedAt = &resolvedAt
	s.resolved[id] = incident
	return incident
}

// ActiveIDs returns the ids of all currently active incidents
func (s *IncidentStore) ActiveIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	return ids
}

// SweepResolved permanently drops resolved incidents older than the
// retention window and returns how many were purged. Pure garbage
// collection; no event is emitted for the drop.
func (s *IncidentStore) SweepResolved(retention time.Duration, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-retention)
	purged := 0
	for id, incident := range s.resolved {
		if incident.ResolvedAt != nil && incident.ResolvedAt.Before(cutoff) {
			delete(s.resolved, id)
			purged++
		}
	}
	return purged
}

// ActiveIncidents returns a deep copy of the active set. API readers run
// on other goroutines than the reconciler, which merges records in place,
// so shared pointers must never leave the lock.
func (s *IncidentStore) ActiveIncidents() map[string]*models.Incident {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*models.Incident, len(s.active))
	for id, incident := range s.active {
		out[id] = incident.Clone()
	}
	return out
}

// ResolvedIncidents returns a deep copy of the resolved set
func (s *IncidentStore) ResolvedIncidents() map[string]*models.Incident {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*models.Incident, len(s.resolved))
	for id, incident := range s.resolved {
		out[id] = incident.Clone()
	}
	return out
}

// Counts returns the sizes of the active and resolved sets
func (s *IncidentStore) Counts() (active, resolved int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.active), len(s.resolved)
}

// Load replaces both sets from restored state. Nil maps default to empty.
func (s *IncidentStore) Load(active, resolved map[string]*models.Incident) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = make(map[string]*models.Incident, len(active))
	for id, incident := range active {
		s.active[id] = incident
	}
	s.resolved = make(map[string]*models.Incident, len(resolved))
	for id, incident := range resolved {
		// Guard the partition invariant against hand-edited state files.
		if _, ok := s.active[id]; ok {
			continue
		}
		s.resolved[id] = incident
	}
}
