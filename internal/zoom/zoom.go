// Package zoom converts timeline zoom regions into a time-indexed
// scale+center function with cubic ease in/out and blending across
// overlapping regions.
package zoom

import (
	"github.com/screenstudio/core/internal/project"
)

// Sample is the effective zoom transform at a point in time.
type Sample struct {
	Scale  float64
	Center project.ScreenUV
}

// CursorPositionFunc resolves the interpolated cursor position at tMs,
// used to substitute a region's center in CursorFollow mode.
type CursorPositionFunc func(tMs int64) project.ScreenUV

// Interpolator evaluates a project's ordered zoom regions at arbitrary
// times.
type Interpolator struct {
	regions      []project.ZoomRegion
	cursorAt     CursorPositionFunc
}

// New creates an Interpolator over the given regions. cursorAt may be
// nil if no region uses CursorFollow mode.
func New(regions []project.ZoomRegion, cursorAt CursorPositionFunc) *Interpolator {
	return &Interpolator{regions: regions, cursorAt: cursorAt}
}

// phase computes a region's influence weight at t: 0 before start and
// after end, a cubic ease-in ramp over [start, start+inMs), 1 on the
// plateau, and a cubic ease-out ramp over (end-outMs, end].
func phase(t, start, end, inMs, outMs int64) float64 {
	if t < start || t > end {
		return 0
	}
	if inMs > 0 && t < start+inMs {
		x := float64(t-start) / float64(inMs)
		return cubicEaseIn(x)
	}
	if outMs > 0 && t > end-outMs {
		x := float64(end-t) / float64(outMs)
		return cubicEaseIn(x)
	}
	return 1
}

// cubicEaseIn maps x∈[0,1] to a 0→1 ramp via a standard cubic ease.
func cubicEaseIn(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x * x * x
}

// Sample returns the effective scale and center at tMs, blending all
// regions whose phase is nonzero. Falls back to scale=1, center={0,0}
// when no region has influence. On an exact tie in weight the later
// region's center is used; the scale is still the weighted blend.
func (it *Interpolator) Sample(tMs int64) Sample {
	type weighted struct {
		w      float64
		region project.ZoomRegion
	}
	var active []weighted
	var total float64

	for _, r := range it.regions {
		w := phase(tMs, r.StartMs, r.EndMs, r.Transition.InMs, r.Transition.OutMs)
		if w <= 0 {
			continue
		}
		active = append(active, weighted{w: w, region: r})
		total += w
	}

	if total <= 0 {
		return Sample{Scale: 1}
	}

	resolveCenter := func(r project.ZoomRegion) project.ScreenUV {
		if r.Mode == project.ZoomCursorFollow && it.cursorAt != nil {
			return it.cursorAt(tMs)
		}
		return r.Target
	}

	var scale, cx, cy float64
	for _, a := range active {
		norm := a.w / total
		scale += norm * a.region.Scale
		center := resolveCenter(a.region)
		cx += norm * center.X
		cy += norm * center.Y
	}

	// Tie-breaking: when multiple regions share the maximum weight (an
	// exact boundary tie rather than a genuine blend), the later region's
	// center wins outright instead of averaging.
	const epsilon = 1e-9
	maxW := 0.0
	for _, a := range active {
		if a.w > maxW {
			maxW = a.w
		}
	}
	var tieCenter project.ScreenUV
	tieCount := 0
	for _, a := range active {
		if maxW-a.w <= epsilon {
			tieCenter = resolveCenter(a.region)
			tieCount++
		}
	}
	if tieCount > 1 {
		cx, cy = tieCenter.X, tieCenter.Y
	}

	return Sample{Scale: scale, Center: project.ScreenUV{X: cx, Y: cy}}
}
