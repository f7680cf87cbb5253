package project

import (
	"sort"

	"github.com/screenstudio/core/internal/cursor"
)

// AutoZoomConfig controls auto-generated zoom regions.
type AutoZoomConfig struct {
	Scale           float64
	HoldDurationMs  int64
	MinGapMs        int64
	TransitionInMs  int64
	TransitionOutMs int64
}

// AutoZoom places a zoom region centered on each recorded click, held
// for HoldDurationMs afterward, then merges regions closer together
// than MinGapMs. Pure function of its inputs.
func AutoZoom(rec cursor.Recording, cfg AutoZoomConfig) []ZoomRegion {
	var clicks []cursor.Event
	for _, e := range rec.Clicks {
		if e.Kind == cursor.EventDown {
			clicks = append(clicks, e)
		}
	}
	if len(clicks) == 0 {
		return nil
	}

	positionAt := func(tMs int64) ScreenUV {
		return nearestMove(rec.Moves, tMs)
	}

	regions := make([]ZoomRegion, 0, len(clicks))
	for _, c := range clicks {
		regions = append(regions, ZoomRegion{
			StartMs: c.TMs,
			EndMs:   c.TMs + cfg.HoldDurationMs,
			Scale:   cfg.Scale,
			Target:  positionAt(c.TMs),
			Mode:    ZoomManual,
			Transition: ZoomTransition{
				InMs:   cfg.TransitionInMs,
				OutMs:  cfg.TransitionOutMs,
				Easing: EasingEaseInOut,
			},
		})
	}

	sort.Slice(regions, func(i, j int) bool { return regions[i].StartMs < regions[j].StartMs })

	merged := regions[:1]
	for _, r := range regions[1:] {
		last := &merged[len(merged)-1]
		if r.StartMs-last.EndMs <= cfg.MinGapMs {
			if r.EndMs > last.EndMs {
				last.EndMs = r.EndMs
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// nearestMove returns the cursor position sample closest in time to tMs,
// as a ScreenUV; falls back to the origin if no samples exist.
func nearestMove(moves []cursor.Sample, tMs int64) ScreenUV {
	if len(moves) == 0 {
		return ScreenUV{}
	}
	best := moves[0]
	bestDelta := abs64(best.TMs - tMs)
	for _, m := range moves[1:] {
		d := abs64(m.TMs - tMs)
		if d < bestDelta {
			best, bestDelta = m, d
		}
	}
	return ScreenUV{X: best.XUnorm, Y: best.YUnorm}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
