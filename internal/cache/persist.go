package cache

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// Persister stores cache snapshots across process restarts. Implementations
// must treat Save(nil) as a wipe.
type Persister interface {
	Load() ([]Entry, error)
	Save(entries []Entry) error
}

// FilePersister snapshots entries to a single JSON file with an atomic
// rename, so a crash mid-write leaves the previous snapshot intact.
type FilePersister struct {
	path string
}

// NewFilePersister creates a persister writing to path.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Load reads the snapshot. A missing file is an empty snapshot, not an
// error.
func (p *FilePersister) Load() ([]Entry, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Save writes the snapshot atomically. Saving an empty set removes the
// snapshot file.
func (p *FilePersister) Save(entries []Entry) error {
	if len(entries) == 0 {
		if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	tmp := p.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, p.path)
}
