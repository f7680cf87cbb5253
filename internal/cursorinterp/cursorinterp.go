// Package cursorinterp smooths sparse cursor samples into per-frame
// positions via a critically-damped spring-mass-damper, switching
// profiles near clicks and while a button is held.
package cursorinterp

import (
	"github.com/screenstudio/core/internal/cursor"
)

// Profile is a spring stiffness/damping pair.
type Profile struct {
	K float64 // spring constant
	D float64 // damping constant
}

var (
	ProfileDefault = Profile{K: 180, D: 28}
	ProfileSnappy  = Profile{K: 320, D: 38}
	ProfileDrag    = Profile{K: 120, D: 24}
)

const (
	snappyWindowMs = 120
	gapThresholdMs = 50
	densifyHz      = 60
)

// Point is a densified, time-stamped cursor position in ScreenUV.
type Point struct {
	TMs int64
	X   float64
	Y   float64
}

// densify re-samples gaps larger than gapThresholdMs at 60Hz by linear
// interpolation of the raw samples, so the spring integrator never sees
// a stride long enough to destabilize it.
func densify(samples []cursor.Sample) []Point {
	if len(samples) == 0 {
		return nil
	}
	out := []Point{{TMs: samples[0].TMs, X: samples[0].XUnorm, Y: samples[0].YUnorm}}
	for i := 1; i < len(samples); i++ {
		prev, cur := samples[i-1], samples[i]
		gap := cur.TMs - prev.TMs
		if gap > gapThresholdMs {
			stepMs := int64(1000 / densifyHz)
			for t := prev.TMs + stepMs; t < cur.TMs; t += stepMs {
				frac := float64(t-prev.TMs) / float64(gap)
				out = append(out, Point{
					TMs: t,
					X:   prev.XUnorm + frac*(cur.XUnorm-prev.XUnorm),
					Y:   prev.YUnorm + frac*(cur.YUnorm-prev.YUnorm),
				})
			}
		}
		out = append(out, Point{TMs: cur.TMs, X: cur.XUnorm, Y: cur.YUnorm})
	}
	return out
}

// Interpolator integrates a critically-damped spring toward the
// densified target track, switching profile near clicks / while a
// button is held.
type Interpolator struct {
	track      []Point
	clickTimes []int64
	held       []heldInterval

	x, y   float64
	vx, vy float64
	lastT  int64
	inited bool
}

type heldInterval struct {
	start, end int64
}

// New builds an Interpolator from a recorded cursor.Recording.
func New(rec cursor.Recording) *Interpolator {
	it := &Interpolator{track: densify(rec.Moves)}
	var downAt int64
	haveDown := false
	for _, e := range rec.Clicks {
		switch e.Kind {
		case cursor.EventDown:
			it.clickTimes = append(it.clickTimes, e.TMs)
			downAt, haveDown = e.TMs, true
		case cursor.EventUp:
			if haveDown {
				it.held = append(it.held, heldInterval{start: downAt, end: e.TMs})
				haveDown = false
			}
		}
	}
	return it
}

// profileAt selects the physics profile in effect at tMs.
func (it *Interpolator) profileAt(tMs int64) Profile {
	for _, h := range it.held {
		if tMs >= h.start && tMs <= h.end {
			return ProfileDrag
		}
	}
	for _, c := range it.clickTimes {
		if abs64(tMs-c) <= snappyWindowMs {
			return ProfileSnappy
		}
	}
	return ProfileDefault
}

// targetAt returns the raw (un-smoothed) track position nearest tMs via
// linear interpolation between bracketing densified points.
func (it *Interpolator) targetAt(tMs int64) (float64, float64) {
	if len(it.track) == 0 {
		return 0, 0
	}
	if tMs <= it.track[0].TMs {
		return it.track[0].X, it.track[0].Y
	}
	last := it.track[len(it.track)-1]
	if tMs >= last.TMs {
		return last.X, last.Y
	}
	for i := 1; i < len(it.track); i++ {
		if it.track[i].TMs >= tMs {
			prev := it.track[i-1]
			cur := it.track[i]
			frac := float64(tMs-prev.TMs) / float64(cur.TMs-prev.TMs)
			return prev.X + frac*(cur.X-prev.X), prev.Y + frac*(cur.Y-prev.Y)
		}
	}
	return last.X, last.Y
}

// Sample advances the spring integrator to tMs and returns the smoothed
// position, clamped to [0,1] in each axis (ScreenUV). Must be called
// with non-decreasing tMs.
func (it *Interpolator) Sample(tMs int64) (x, y float64) {
	if !it.inited {
		it.x, it.y = it.targetAt(tMs)
		it.lastT = tMs
		it.inited = true
		return clamp01(it.x), clamp01(it.y)
	}

	dtMs := tMs - it.lastT
	if dtMs < 0 {
		dtMs = 0
	}
	it.lastT = tMs
	dt := float64(dtMs) / 1000.0

	p := it.profileAt(tMs)
	tx, ty := it.targetAt(tMs)

	it.vx += p.K*(tx-it.x)*dt - p.D*it.vx*dt
	it.x += it.vx * dt
	it.vy += p.K*(ty-it.y)*dt - p.D*it.vy*dt
	it.y += it.vy * dt

	return clamp01(it.x), clamp01(it.y)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
