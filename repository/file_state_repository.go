package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/stroomalert/stroomalert/models"
)

// File names of the four state bundles inside the state directory.
const (
	activeIncidentsFile   = "active_incidents.json"
	resolvedIncidentsFile = "resolved_incidents.json"
	campaignsFile         = "campaigns.json"
	eventsFile            = "events.json"
)

// FileStateRepository persists engine state as JSON files under a state
// directory. Each bundle is written to a temp file in the same directory and
// renamed into place, so readers see either the old or the new bundle, never
// a partial write.
type FileStateRepository struct {
	dir    string
	logger *log.Logger
}

// NewFileStateRepository creates the state directory if needed and returns a
// file backed repository rooted at dir.
func NewFileStateRepository(dir string, logger *log.Logger) (*FileStateRepository, error) {
	if dir == "" {
		return nil, fmt.Errorf("state directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &FileStateRepository{dir: dir, logger: logger}, nil
}

// SaveState writes all four bundles. A failed bundle aborts the save and is
// reported to the caller; bundles already renamed stay in place, which is
// safe because each bundle restores independently.
func (r *FileStateRepository) SaveState(ctx context.Context, snapshot *models.StateSnapshot) error {
	if snapshot == nil {
		snapshot = models.NewStateSnapshot()
	}
	if err := r.writeBundle(activeIncidentsFile, snapshot.ActiveIncidents); err != nil {
		return err
	}
	if err := r.writeBundle(resolvedIncidentsFile, snapshot.ResolvedIncidents); err != nil {
		return err
	}
	if err := r.writeBundle(campaignsFile, snapshot.Campaigns); err != nil {
		return err
	}
	if err := r.writeBundle(eventsFile, snapshot.Events); err != nil {
		return err
	}
	return nil
}

// LoadState reads whatever bundles exist. A missing file yields that
// bundle's empty default; an unreadable or corrupt file is logged and also
// falls back to the empty default rather than blocking startup.
func (r *FileStateRepository) LoadState(ctx context.Context) (*models.StateSnapshot, error) {
	snapshot := models.NewStateSnapshot()
	if err := r.readBundle(activeIncidentsFile, &snapshot.ActiveIncidents); err != nil {
		r.logger.Printf("state: discarding active incidents bundle: %v", err)
		snapshot.ActiveIncidents = make(map[string]*models.Incident)
	}
	if err := r.readBundle(resolvedIncidentsFile, &snapshot.ResolvedIncidents); err != nil {
		r.logger.Printf("state: discarding resolved incidents bundle: %v", err)
		snapshot.ResolvedIncidents = make(map[string]*models.Incident)
	}
	if err := r.readBundle(campaignsFile, &snapshot.Campaigns); err != nil {
		r.logger.Printf("state: discarding campaigns bundle: %v", err)
		snapshot.Campaigns = make(map[string]*models.CampaignSlots)
	}
	if err := r.readBundle(eventsFile, &snapshot.Events); err != nil {
		r.logger.Printf("state: discarding events bundle: %v", err)
		snapshot.Events = nil
	}
	return snapshot, nil
}

func (r *FileStateRepository) writeBundle(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(r.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(r.dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

func (r *FileStateRepository) readBundle(name string, v interface{}) error {
	data, err := os.ReadFile(filepath.Join(r.dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}
