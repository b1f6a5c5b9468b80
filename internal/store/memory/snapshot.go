package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/voyagedesk/inventory-sync/internal/inventory"
	"github.com/voyagedesk/inventory-sync/internal/logger"
)

// snapshot is the on-disk layout of the memory store
type snapshot struct {
	Items     []*inventory.Item         `json:"items"`
	Profiles  []*inventory.Profile      `json:"profiles"`
	Runs      []*inventory.SyncRun      `json:"runs"`
	Conflicts []*inventory.SyncConflict `json:"conflicts"`
	Errors    []*inventory.SyncError    `json:"errors"`
	History   []*inventory.HistoryEntry `json:"history"`
}

type snapshotFile struct {
	path string
}

// save writes to a temporary file first and renames it into place
func (f *snapshotFile) save(snap *snapshot) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0750); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tempPath := f.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary state file: %w", err)
	}
	if err := os.Rename(tempPath, f.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename state file: %w", err)
	}
	return nil
}

// load returns an empty snapshot when the file does not exist yet
func (f *snapshotFile) load() (*snapshot, error) {
	// #nosec G304 -- path comes from operator configuration
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &snapshot{}, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state file: %w", err)
	}
	return &snap, nil
}

func (s *Store) snapshotLocked() *snapshot {
	snap := &snapshot{}
	for _, bySupplier := range s.items {
		for _, item := range bySupplier {
			snap.Items = append(snap.Items, item)
		}
	}
	for _, p := range s.profiles {
		snap.Profiles = append(snap.Profiles, p)
	}
	for _, r := range s.runs {
		snap.Runs = append(snap.Runs, r)
	}
	for _, c := range s.conflicts {
		snap.Conflicts = append(snap.Conflicts, c)
	}
	for _, e := range s.errors {
		snap.Errors = append(snap.Errors, e)
	}
	snap.History = s.history
	return snap
}

// restore loads a snapshot. Runs a crashed process left queued or running
// stay that way here; the orchestrator fails them on recovery.
func (s *Store) restore(snap *snapshot) {
	for _, item := range snap.Items {
		if s.items[item.SupplierID] == nil {
			s.items[item.SupplierID] = make(map[string]*inventory.Item)
		}
		s.items[item.SupplierID][item.ID] = item
	}
	for _, p := range snap.Profiles {
		s.profiles[p.SupplierID] = p
	}
	active := 0
	for _, r := range snap.Runs {
		s.runs[r.ID] = r
		if r.Status.IsActive() {
			active++
		}
	}
	for _, c := range snap.Conflicts {
		s.conflicts[c.ID] = c
	}
	for _, e := range snap.Errors {
		s.errors[e.ID] = e
	}
	s.history = snap.History
	if active > 0 {
		logger.Warnf("State file contains %d interrupted runs as of %s", active, time.Now().UTC().Format(time.RFC3339))
	}
}
