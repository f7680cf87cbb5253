package project

import (
	"testing"

	"github.com/screenstudio/core/internal/cursor"
)

func TestAutoZoomPlacesRegionOnClick(t *testing.T) {
	rec := cursor.Recording{
		Moves: []cursor.Sample{{TMs: 100, XUnorm: 0.5, YUnorm: 0.5}},
		Clicks: []cursor.Event{
			{TMs: 100, Kind: cursor.EventDown},
		},
	}
	cfg := AutoZoomConfig{Scale: 2, HoldDurationMs: 500, MinGapMs: 200, TransitionInMs: 100, TransitionOutMs: 100}

	regions := AutoZoom(rec, cfg)
	if len(regions) != 1 {
		t.Fatalf("got %d regions, want 1", len(regions))
	}
	if regions[0].StartMs != 100 || regions[0].EndMs != 600 {
		t.Fatalf("got [%d,%d], want [100,600]", regions[0].StartMs, regions[0].EndMs)
	}
	if regions[0].Target.X != 0.5 || regions[0].Target.Y != 0.5 {
		t.Fatalf("got target %+v, want centered on cursor position", regions[0].Target)
	}
}

func TestAutoZoomMergesCloseClicks(t *testing.T) {
	rec := cursor.Recording{
		Clicks: []cursor.Event{
			{TMs: 0, Kind: cursor.EventDown},
			{TMs: 600, Kind: cursor.EventDown}, // within MinGapMs of first region's end (500)
		},
	}
	cfg := AutoZoomConfig{Scale: 2, HoldDurationMs: 500, MinGapMs: 200}

	regions := AutoZoom(rec, cfg)
	if len(regions) != 1 {
		t.Fatalf("got %d regions, want 1 merged region", len(regions))
	}
	if regions[0].EndMs != 1100 {
		t.Fatalf("got end %d, want 1100 (extended by second click's hold)", regions[0].EndMs)
	}
}

func TestAutoZoomKeepsDistantClicksSeparate(t *testing.T) {
	rec := cursor.Recording{
		Clicks: []cursor.Event{
			{TMs: 0, Kind: cursor.EventDown},
			{TMs: 5000, Kind: cursor.EventDown},
		},
	}
	cfg := AutoZoomConfig{Scale: 2, HoldDurationMs: 500, MinGapMs: 200}

	regions := AutoZoom(rec, cfg)
	if len(regions) != 2 {
		t.Fatalf("got %d regions, want 2 separate regions", len(regions))
	}
}

func TestAutoZoomIgnoresMoveOnlyRecording(t *testing.T) {
	rec := cursor.Recording{Moves: []cursor.Sample{{TMs: 10, XUnorm: 0.1, YUnorm: 0.1}}}
	cfg := AutoZoomConfig{Scale: 2, HoldDurationMs: 500, MinGapMs: 200}

	if regions := AutoZoom(rec, cfg); regions != nil {
		t.Fatalf("got %d regions, want none (no clicks)", len(regions))
	}
}
