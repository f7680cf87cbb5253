// Package fragment persists a FragmentManifest describing the pieces of
// an in-progress recording, so a crash mid-write never leaves a reader
// looking at a half-written file.
package fragment

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/screenstudio/core/internal/corerr"
	"github.com/screenstudio/core/internal/logging"
)

var log = logging.L("fragment")

const ManifestVersion = 1

// Fragment describes one piece of a recording's output (used when a
// long recording is split to limit crash-recovery loss).
type Fragment struct {
	Index         int    `json:"index"`
	Path          string `json:"path"`
	DurationTicks int64  `json:"duration_ticks"`
	Complete      bool   `json:"complete"`
	Size          int64  `json:"size"`
}

// Manifest is the on-disk crash-recovery record for a recording.
type Manifest struct {
	Version        int        `json:"version"`
	Fragments      []Fragment `json:"fragments"`
	TotalDuration  int64      `json:"total_duration"`
	IsComplete     bool       `json:"is_complete"`
}

// Store manages atomic persistence of a Manifest under one directory.
type Store struct {
	dir  string
	path string

	mu       sync.Mutex
	manifest Manifest
}

// NewStore creates a Store rooted at dir, starting from an empty manifest.
func NewStore(dir string) *Store {
	return &Store{
		dir:  dir,
		path: filepath.Join(dir, "manifest.json"),
		manifest: Manifest{
			Version: ManifestVersion,
		},
	}
}

// AddFragment appends or replaces a fragment entry by index, then
// persists the manifest atomically.
func (s *Store) AddFragment(f Fragment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	for i, existing := range s.manifest.Fragments {
		if existing.Index == f.Index {
			s.manifest.Fragments[i] = f
			replaced = true
			break
		}
	}
	if !replaced {
		s.manifest.Fragments = append(s.manifest.Fragments, f)
	}
	return s.persistLocked()
}

// Finalize marks the manifest complete with the given total duration
// and persists it atomically.
func (s *Store) Finalize(totalDuration int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifest.TotalDuration = totalDuration
	s.manifest.IsComplete = true
	return s.persistLocked()
}

// persistLocked writes the manifest via write-temp + rename + directory
// fsync, so readers never observe a half-written file: a crash either
// leaves the previous manifest intact or the rename has already landed.
func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.manifest, "", "  ")
	if err != nil {
		return corerr.Wrap(corerr.KindJSON, "fragment.persistLocked", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return corerr.Wrap(corerr.KindIO, "fragment.persistLocked", err)
	}

	tmpFile, err := os.OpenFile(tmpPath, os.O_WRONLY, 0600)
	if err != nil {
		return corerr.Wrap(corerr.KindIO, "fragment.persistLocked", err)
	}
	syncErr := tmpFile.Sync()
	tmpFile.Close()
	if syncErr != nil {
		log.Warn("fsync of temp manifest failed, durability not guaranteed", "error", syncErr)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return corerr.Wrap(corerr.KindIO, "fragment.persistLocked", err)
	}

	if dirFile, err := os.Open(s.dir); err == nil {
		if err := dirFile.Sync(); err != nil {
			log.Warn("fsync of manifest directory failed, durability not guaranteed", "error", err)
		}
		dirFile.Close()
	}
	return nil
}

// ReadManifest loads a persisted manifest. Since writes are always
// atomic-rename, a manifest found on disk is always complete-and-consistent.
func ReadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, corerr.Wrap(corerr.KindIO, "fragment.ReadManifest", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, corerr.Wrap(corerr.KindJSON, "fragment.ReadManifest", err)
	}
	if m.Version != ManifestVersion {
		return Manifest{}, corerr.New(corerr.KindInvalidProject, "fragment.ReadManifest", fmt.Sprintf("unsupported manifest version %d", m.Version))
	}
	return m, nil
}

// Snapshot returns a copy of the current in-memory manifest.
func (s *Store) Snapshot() Manifest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.manifest
	out.Fragments = append([]Fragment(nil), s.manifest.Fragments...)
	return out
}
