package cursor

import "math"

// MaskShape selects the signed-distance function used to produce an
// anti-aliased alpha mask for rounded corners, cursor outlines, and
// webcam frame shapes.
type MaskShape int

const (
	MaskRounded MaskShape = iota
	MaskSquircle
	MaskCircle
	MaskRectangle
)

// squircleExponent is the superellipse exponent used for Squircle masks;
// n=4 approximates the macOS-style corner without a visible arc seam.
const squircleExponent = 4.0

// Alpha returns the anti-aliased coverage ([0,1]) of a pixel at (px, py)
// for the given shape, centered in a w×h box with the given corner
// radius (ignored for Circle/Rectangle). A pixel strictly inside the
// shape reports 1; a pixel ≥1px outside reports 0; the 1px boundary
// transitions smoothly.
func Alpha(shape MaskShape, px, py float64, w, h, radius float64) float64 {
	switch shape {
	case MaskCircle:
		return circleAlpha(px, py, w, h)
	case MaskSquircle:
		return squircleAlpha(px, py, w, h, radius)
	case MaskRectangle:
		return roundedAlpha(px, py, w, h, 0)
	default:
		return roundedAlpha(px, py, w, h, radius)
	}
}

// distanceToAlpha converts a signed distance (negative inside, positive
// outside, in pixel units) into a 1px-wide anti-aliased coverage value.
func distanceToAlpha(d float64) float64 {
	if d <= -0.5 {
		return 1
	}
	if d >= 0.5 {
		return 0
	}
	return 0.5 - d
}

func circleAlpha(px, py, w, h float64) float64 {
	cx, cy := w/2, h/2
	r := math.Min(w, h) / 2
	dx, dy := px-cx, py-cy
	d := math.Hypot(dx, dy) - r
	return distanceToAlpha(d)
}

// roundedAlpha computes the SDF of an axis-aligned rounded rectangle
// centered in a w×h box.
func roundedAlpha(px, py, w, h, radius float64) float64 {
	cx, cy := w/2, h/2
	halfW, halfH := w/2-radius, h/2-radius
	dx := math.Abs(px-cx) - halfW
	dy := math.Abs(py-cy) - halfH
	outsideX, outsideY := math.Max(dx, 0), math.Max(dy, 0)
	d := math.Hypot(outsideX, outsideY) + math.Min(math.Max(dx, dy), 0) - radius
	return distanceToAlpha(d)
}

// squircleAlpha computes the superellipse SDF: (|x|^n + |y|^n)^(1/n) = r.
// radius scales the superellipse to fill the box's corner region; the
// straight edges coincide with the rounded-rectangle's straight edges.
func squircleAlpha(px, py, w, h, radius float64) float64 {
	cx, cy := w/2, h/2
	halfW, halfH := w/2-radius, h/2-radius
	ax := math.Abs(px - cx)
	ay := math.Abs(py - cy)
	if ax <= halfW || ay <= halfH {
		return roundedAlpha(px, py, w, h, radius)
	}
	// In the corner region, measure against a superellipse of the given
	// radius, offset to the corner center.
	ox := ax - halfW
	oy := ay - halfH
	norm := math.Pow(math.Pow(ox, squircleExponent)+math.Pow(oy, squircleExponent), 1/squircleExponent)
	return distanceToAlpha(norm - radius)
}
