package fragment

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAddFragmentPersistsManifest(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	if err := s.AddFragment(Fragment{Index: 0, Path: "part0.mp4", DurationTicks: 100, Complete: true, Size: 1024}); err != nil {
		t.Fatalf("AddFragment: %v", err)
	}

	m, err := ReadManifest(filepath.Join(dir, "manifest.json"))
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if len(m.Fragments) != 1 || m.Fragments[0].Path != "part0.mp4" {
		t.Fatalf("got %+v, want one fragment part0.mp4", m.Fragments)
	}
}

func TestAddFragmentReplacesByIndex(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	s.AddFragment(Fragment{Index: 0, Path: "a.mp4"})
	s.AddFragment(Fragment{Index: 0, Path: "b.mp4"})

	snap := s.Snapshot()
	if len(snap.Fragments) != 1 || snap.Fragments[0].Path != "b.mp4" {
		t.Fatalf("got %+v, want single replaced fragment b.mp4", snap.Fragments)
	}
}

func TestFinalizeSetsCompleteAndDuration(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	s.AddFragment(Fragment{Index: 0})

	if err := s.Finalize(5000); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	m, err := ReadManifest(filepath.Join(dir, "manifest.json"))
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if !m.IsComplete || m.TotalDuration != 5000 {
		t.Fatalf("got %+v, want complete with duration 5000", m)
	}
}

func TestReadManifestLeavesPreviousIntactOnCrashMidWrite(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	s.AddFragment(Fragment{Index: 0, Path: "a.mp4"})

	// Simulate a crash mid-write: a stray .tmp file with garbage content,
	// but the real manifest.json is untouched since rename never happened.
	if err := os.WriteFile(filepath.Join(dir, "manifest.json.tmp"), []byte("{not json"), 0600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	m, err := ReadManifest(filepath.Join(dir, "manifest.json"))
	if err != nil {
		t.Fatalf("ReadManifest after simulated crash: %v", err)
	}
	if len(m.Fragments) != 1 || m.Fragments[0].Path != "a.mp4" {
		t.Fatalf("got %+v, want previous manifest intact", m.Fragments)
	}
}

func TestReadManifestRejectsUnsupportedVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	os.WriteFile(path, []byte(`{"version":99,"fragments":[],"total_duration":0,"is_complete":false}`), 0600)

	if _, err := ReadManifest(path); err == nil {
		t.Fatalf("expected error for unsupported manifest version")
	}
}
