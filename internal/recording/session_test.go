package recording

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/screenstudio/core/internal/capture"
)

func TestCropBGRAExtractsSubRect(t *testing.T) {
	w, h := 4, 4
	data := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := (y*w + x) * 4
			data[off] = byte(x)
			data[off+1] = byte(y)
		}
	}

	rect := capture.Rect{X: 1, Y: 1, W: 2, H: 2}
	out := cropBGRA(data, w, h, rect)

	if len(out) != rect.W*rect.H*4 {
		t.Fatalf("got len %d, want %d", len(out), rect.W*rect.H*4)
	}
	// top-left pixel of the crop should be (x=1, y=1) from the source.
	if out[0] != 1 || out[1] != 1 {
		t.Fatalf("got pixel (%d,%d), want (1,1)", out[0], out[1])
	}
}

func TestCropBGRAReturnsOriginalWhenOutOfBounds(t *testing.T) {
	w, h := 4, 4
	data := make([]byte, w*h*4)
	rect := capture.Rect{X: 3, Y: 3, W: 4, H: 4}
	out := cropBGRA(data, w, h, rect)
	if len(out) != len(data) {
		t.Fatalf("expected fallback to original frame when crop is out of bounds")
	}
}

func TestDrainToLatestKeepsMostRecentFrame(t *testing.T) {
	ch := make(chan capture.Frame, 4)
	ch <- capture.Frame{Index: 1}
	ch <- capture.Frame{Index: 2}
	ch <- capture.Frame{Index: 3}

	got := drainToLatest(ch, capture.Frame{Index: 0})
	if got.Index != 3 {
		t.Fatalf("got index %d, want 3", got.Index)
	}
	select {
	case <-ch:
		t.Fatalf("expected channel to be drained")
	default:
	}
}

func TestDrainToLatestReturnsInputWhenChannelEmpty(t *testing.T) {
	ch := make(chan capture.Frame)
	got := drainToLatest(ch, capture.Frame{Index: 5})
	if got.Index != 5 {
		t.Fatalf("got index %d, want 5", got.Index)
	}
}

func TestRemoveFileTreatsMissingAsSuccess(t *testing.T) {
	if err := removeFile(filepath.Join(t.TempDir(), "does-not-exist.mp4")); err != nil {
		t.Fatalf("removeFile on missing path: %v", err)
	}
}

func TestRemoveFileDeletesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.mp4")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := removeFile(path); err != nil {
		t.Fatalf("removeFile: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected file to be removed")
	}
}

func TestStateStringCoversAllStates(t *testing.T) {
	states := []State{StateIdle, StateCountdown, StateRecording, StatePaused, StateFinishing, StateCompleted, StateCancelled, StateError}
	seen := map[string]bool{}
	for _, s := range states {
		str := s.String()
		if str == "unknown" {
			t.Fatalf("state %d has no String() mapping", s)
		}
		seen[str] = true
	}
	if len(seen) != len(states) {
		t.Fatalf("expected %d distinct state strings, got %d", len(states), len(seen))
	}
}

func TestMaxInt(t *testing.T) {
	if maxInt(3, 5) != 5 {
		t.Fatalf("maxInt(3,5) != 5")
	}
	if maxInt(5, 3) != 5 {
		t.Fatalf("maxInt(5,3) != 5")
	}
}
