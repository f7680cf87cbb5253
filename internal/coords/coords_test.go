package coords

import "testing"

func TestScreenToUVRoundTrip(t *testing.T) {
	bounds := ScreenRect{X: 100, Y: 200, W: 800, H: 600}
	p := ScreenPoint{X: 500, Y: 500}

	uv := p.ToUV(bounds)
	back := uv.ToScreen(bounds)

	if diff := back.X - p.X; diff < -1e-9 || diff > 1e-9 {
		t.Fatalf("X round trip mismatch: got %v, want %v", back.X, p.X)
	}
	if diff := back.Y - p.Y; diff < -1e-9 || diff > 1e-9 {
		t.Fatalf("Y round trip mismatch: got %v, want %v", back.Y, p.Y)
	}
}

func TestUVToFrame(t *testing.T) {
	frame := FrameRect{X: 0, Y: 0, W: 1920, H: 1080}
	uv := ScreenUVPoint{U: 0.5, V: 0.5}

	got := uv.ToFrame(frame)
	if got.X != 960 || got.Y != 540 {
		t.Fatalf("got %+v, want center of frame", got)
	}
}

func TestApplyZoomScalesAroundCenter(t *testing.T) {
	center := FramePoint{X: 100, Y: 100}
	p := FramePoint{X: 110, Y: 100}

	zoomed := p.ApplyZoom(center, 2.0)
	if zoomed.X != 120 {
		t.Fatalf("got X=%v, want 120", zoomed.X)
	}

	centerZoomed := center.ApplyZoom(center, 2.0)
	if centerZoomed.X != center.X || centerZoomed.Y != center.Y {
		t.Fatalf("zoom center should be a fixed point, got %+v", centerZoomed)
	}
}

func TestScreenRectContains(t *testing.T) {
	r := ScreenRect{X: 0, Y: 0, W: 100, H: 100}

	if !r.Contains(ScreenPoint{X: 0, Y: 0}) {
		t.Fatalf("expected lower-left-inclusive point to be contained")
	}
	if r.Contains(ScreenPoint{X: 100, Y: 100}) {
		t.Fatalf("expected upper bound to be exclusive")
	}
	if r.Contains(ScreenPoint{X: -1, Y: 0}) {
		t.Fatalf("expected point outside rect to be excluded")
	}
}
