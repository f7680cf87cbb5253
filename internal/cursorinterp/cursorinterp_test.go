package cursorinterp

import (
	"math"
	"testing"

	"github.com/screenstudio/core/internal/cursor"
)

func TestSpringConvergesToStationaryTarget(t *testing.T) {
	rec := cursor.Recording{
		Moves: []cursor.Sample{
			{TMs: 0, XUnorm: 0.5, YUnorm: 0.5},
		},
	}
	it := New(rec)

	var x, y float64
	for tMs := int64(0); tMs <= 2000; tMs += 16 {
		x, y = it.Sample(tMs)
	}
	if math.Abs(x-0.5) > 1e-6 || math.Abs(y-0.5) > 1e-6 {
		t.Fatalf("spring did not converge: got (%v, %v), want (0.5, 0.5)", x, y)
	}
}

func TestSpringTracksStepChangeWithoutOvershootBeyondBounds(t *testing.T) {
	rec := cursor.Recording{
		Moves: []cursor.Sample{
			{TMs: 0, XUnorm: 0, YUnorm: 0},
			{TMs: 5000, XUnorm: 1, YUnorm: 1},
		},
	}
	it := New(rec)

	for tMs := int64(0); tMs <= 5000; tMs += 16 {
		x, y := it.Sample(tMs)
		if x < -1e-9 || x > 1+1e-9 || y < -1e-9 || y > 1+1e-9 {
			t.Fatalf("sample left ScreenUV bounds at t=%d: (%v, %v)", tMs, x, y)
		}
	}
}

func TestProfileAtSelectsDragWhileButtonHeld(t *testing.T) {
	rec := cursor.Recording{
		Clicks: []cursor.Event{
			{TMs: 100, Kind: cursor.EventDown, Button: "left"},
			{TMs: 300, Kind: cursor.EventUp, Button: "left"},
		},
	}
	it := New(rec)

	if p := it.profileAt(200); p != ProfileDrag {
		t.Fatalf("got profile %+v while held, want ProfileDrag", p)
	}
	if p := it.profileAt(500); p != ProfileDefault {
		t.Fatalf("got profile %+v after release outside snappy window, want ProfileDefault", p)
	}
}

func TestProfileAtSelectsSnappyNearClick(t *testing.T) {
	rec := cursor.Recording{
		Clicks: []cursor.Event{
			{TMs: 1000, Kind: cursor.EventDown, Button: "left"},
			{TMs: 1010, Kind: cursor.EventUp, Button: "left"},
		},
	}
	it := New(rec)

	if p := it.profileAt(1090); p != ProfileSnappy {
		t.Fatalf("got profile %+v within snappy window after release, want ProfileSnappy", p)
	}
	if p := it.profileAt(2000); p != ProfileDefault {
		t.Fatalf("got profile %+v far from click, want ProfileDefault", p)
	}
}

func TestDensifyFillsGapsLargerThanThreshold(t *testing.T) {
	samples := []cursor.Sample{
		{TMs: 0, XUnorm: 0, YUnorm: 0},
		{TMs: 200, XUnorm: 1, YUnorm: 1},
	}
	track := densify(samples)

	if len(track) < 2 {
		t.Fatalf("expected densified points to fill the 200ms gap, got %d points", len(track))
	}
	for i := 1; i < len(track); i++ {
		if gap := track[i].TMs - track[i-1].TMs; gap > gapThresholdMs {
			t.Fatalf("densified gap too large: %d ms between points", gap)
		}
	}
}

func TestDensifyLeavesShortGapsUntouched(t *testing.T) {
	samples := []cursor.Sample{
		{TMs: 0, XUnorm: 0, YUnorm: 0},
		{TMs: 10, XUnorm: 1, YUnorm: 1},
		{TMs: 20, XUnorm: 0.5, YUnorm: 0.5},
	}
	track := densify(samples)
	if len(track) != len(samples) {
		t.Fatalf("got %d points, want %d (no densification needed)", len(track), len(samples))
	}
}

func TestTargetAtClampsToTrackEnds(t *testing.T) {
	rec := cursor.Recording{
		Moves: []cursor.Sample{
			{TMs: 100, XUnorm: 0.2, YUnorm: 0.3},
			{TMs: 200, XUnorm: 0.8, YUnorm: 0.9},
		},
	}
	it := New(rec)

	x, y := it.targetAt(0)
	if x != 0.2 || y != 0.3 {
		t.Fatalf("before track start: got (%v, %v), want (0.2, 0.3)", x, y)
	}
	x, y = it.targetAt(1000)
	if x != 0.8 || y != 0.9 {
		t.Fatalf("after track end: got (%v, %v), want (0.8, 0.9)", x, y)
	}
}
