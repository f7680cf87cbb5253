package zoom

import (
	"math"
	"testing"

	"github.com/screenstudio/core/internal/project"
)

func region(start, end int64, scale float64, cx, cy float64, inMs, outMs int64) project.ZoomRegion {
	return project.ZoomRegion{
		StartMs: start, EndMs: end, Scale: scale,
		Target: project.ScreenUV{X: cx, Y: cy},
		Mode:   project.ZoomManual,
		Transition: project.ZoomTransition{InMs: inMs, OutMs: outMs},
	}
}

func TestPhaseZeroAtStartAndOneAfterRamp(t *testing.T) {
	it := New([]project.ZoomRegion{region(1000, 2000, 2, 0.5, 0.5, 200, 200)}, nil)

	if s := it.Sample(1000); s.Scale != 1 && math.Abs(s.Scale-1) > 1e-9 {
		// at t=start, phase should be 0, so sample falls back to scale 1
	}
	if w := phase(1000, 1000, 2000, 200, 200); w != 0 {
		t.Fatalf("phase at start = %v, want 0", w)
	}
	if w := phase(1200, 1000, 2000, 200, 200); math.Abs(w-1) > 1e-9 {
		t.Fatalf("phase at start+inMs = %v, want 1", w)
	}
}

func TestPhaseMonotoneDuringRampIn(t *testing.T) {
	prev := -1.0
	for tm := int64(1000); tm <= 1200; tm += 20 {
		w := phase(tm, 1000, 2000, 200, 200)
		if w < prev {
			t.Fatalf("phase not monotone: t=%d w=%v prev=%v", tm, w, prev)
		}
		prev = w
	}
}

func TestSampleFallsBackToScaleOneWithNoActiveRegion(t *testing.T) {
	it := New([]project.ZoomRegion{region(1000, 2000, 3, 0, 0, 100, 100)}, nil)
	s := it.Sample(5000)
	if s.Scale != 1 {
		t.Fatalf("got scale %v, want 1 (no active region)", s.Scale)
	}
}

func TestSampleBlendsOverlappingRegions(t *testing.T) {
	r1 := region(0, 1000, 2, 0, 0, 0, 0)
	r2 := region(0, 1000, 4, 1, 1, 0, 0)
	it := New([]project.ZoomRegion{r1, r2}, nil)

	s := it.Sample(500) // both at plateau (phase=1), weights sum to 1 after normalize
	wantScale := 3.0     // average of 2 and 4 with equal weight
	if math.Abs(s.Scale-wantScale) > 1e-9 {
		t.Fatalf("got scale %v, want %v", s.Scale, wantScale)
	}
}

func TestSampleUsesCursorFollowMode(t *testing.T) {
	r := project.ZoomRegion{StartMs: 0, EndMs: 1000, Scale: 2, Mode: project.ZoomCursorFollow}
	cursorAt := func(tMs int64) project.ScreenUV { return project.ScreenUV{X: 0.9, Y: 0.1} }
	it := New([]project.ZoomRegion{r}, cursorAt)

	s := it.Sample(500)
	if s.Center.X != 0.9 || s.Center.Y != 0.1 {
		t.Fatalf("got center %+v, want cursor-follow position", s.Center)
	}
}
