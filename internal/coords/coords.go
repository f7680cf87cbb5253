// Package coords defines four phantom-typed coordinate spaces so that a
// point or rect from one space can never be mixed into arithmetic with
// another without an explicit conversion.
package coords

// ScreenPoint is a raw monitor pixel coordinate, origin at the primary
// monitor's top-left corner.
type ScreenPoint struct {
	X, Y float64
}

// ScreenRect is a rectangle in Screen space.
type ScreenRect struct {
	X, Y, W, H float64
}

// ScreenUVPoint is normalized 0..1 within a specified display or capture
// rect.
type ScreenUVPoint struct {
	U, V float64
}

// FramePoint is a pixel coordinate in the output render target, after
// padding and aspect-fit have been applied.
type FramePoint struct {
	X, Y float64
}

// FrameRect is a rectangle in Frame space.
type FrameRect struct {
	X, Y, W, H float64
}

// ZoomedFramePoint is a Frame-space point after the current zoom
// transform (scale + pan) has been applied.
type ZoomedFramePoint struct {
	X, Y float64
}

// ToUV converts a ScreenPoint to ScreenUVPoint relative to bounds.
func (p ScreenPoint) ToUV(bounds ScreenRect) ScreenUVPoint {
	if bounds.W == 0 || bounds.H == 0 {
		return ScreenUVPoint{}
	}
	return ScreenUVPoint{
		U: (p.X - bounds.X) / bounds.W,
		V: (p.Y - bounds.Y) / bounds.H,
	}
}

// ToScreen converts a ScreenUVPoint back to a ScreenPoint within bounds.
func (p ScreenUVPoint) ToScreen(bounds ScreenRect) ScreenPoint {
	return ScreenPoint{
		X: bounds.X + p.U*bounds.W,
		Y: bounds.Y + p.V*bounds.H,
	}
}

// ToFrame maps a ScreenUVPoint into Frame space given the output frame's
// dimensions, assuming the UV space covers the entire frame (no padding).
func (p ScreenUVPoint) ToFrame(frame FrameRect) FramePoint {
	return FramePoint{
		X: frame.X + p.U*frame.W,
		Y: frame.Y + p.V*frame.H,
	}
}

// ApplyZoom transforms a FramePoint into ZoomedFramePoint space given a
// zoom center (in Frame space) and scale factor.
func (p FramePoint) ApplyZoom(center FramePoint, scale float64) ZoomedFramePoint {
	return ZoomedFramePoint{
		X: center.X + (p.X-center.X)*scale,
		Y: center.Y + (p.Y-center.Y)*scale,
	}
}

// Contains reports whether p lies within r (inclusive of the lower bound,
// exclusive of the upper bound, matching typical raster semantics).
func (r ScreenRect) Contains(p ScreenPoint) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H
}

// Contains reports whether p lies within r.
func (r FrameRect) Contains(p FramePoint) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H
}
