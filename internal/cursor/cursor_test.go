package cursor

import (
	"testing"
	"time"
)

type fakeProvider struct {
	snaps   []Snapshot
	idx     int
	buttons chan ButtonEvent
}

func newFakeProvider(snaps []Snapshot) *fakeProvider {
	return &fakeProvider{snaps: snaps, buttons: make(chan ButtonEvent, 8)}
}

func (f *fakeProvider) Poll() (Snapshot, error) {
	if f.idx >= len(f.snaps) {
		return f.snaps[len(f.snaps)-1], nil
	}
	s := f.snaps[f.idx]
	f.idx++
	return s, nil
}

func (f *fakeProvider) Buttons() <-chan ButtonEvent { return f.buttons }
func (f *fakeProvider) Close()                      { close(f.buttons) }

func bitmap(fill byte) []byte {
	b := make([]byte, 4*4*4)
	for i := range b {
		b[i] = fill
	}
	return b
}

func TestTrackerDeduplicatesIdenticalSamples(t *testing.T) {
	snaps := []Snapshot{
		{X: 10, Y: 10, Visible: true, Bitmap: bitmap(1), W: 4, H: 4},
		{X: 10, Y: 10, Visible: true, Bitmap: bitmap(1), W: 4, H: 4},
		{X: 20, Y: 20, Visible: true, Bitmap: bitmap(1), W: 4, H: 4},
	}
	fp := newFakeProvider(snaps)
	tr := New(fp, CropBounds{W: 100, H: 100}, time.Now())

	tr.poll()
	tr.poll()
	tr.poll()

	rec := Recording{Moves: tr.moves}
	if len(rec.Moves) != 2 {
		t.Fatalf("got %d moves, want 2 (dedup consecutive identical)", len(rec.Moves))
	}
}

func TestTrackerContentAddressesShapes(t *testing.T) {
	snaps := []Snapshot{
		{X: 1, Y: 1, Visible: true, Bitmap: bitmap(1), W: 4, H: 4},
		{X: 2, Y: 2, Visible: true, Bitmap: bitmap(1), W: 4, H: 4}, // same shape
		{X: 3, Y: 3, Visible: true, Bitmap: bitmap(2), W: 4, H: 4}, // different shape
	}
	fp := newFakeProvider(snaps)
	tr := New(fp, CropBounds{W: 100, H: 100}, time.Now())

	tr.poll()
	tr.poll()
	tr.poll()

	if len(tr.shapes) != 2 {
		t.Fatalf("got %d distinct shapes, want 2", len(tr.shapes))
	}
}

func TestTrackerNormalizesToCropBounds(t *testing.T) {
	fp := newFakeProvider([]Snapshot{{X: 150, Y: 60, Visible: true, Bitmap: bitmap(1), W: 1, H: 1}})
	tr := New(fp, CropBounds{X: 100, Y: 50, W: 200, H: 100}, time.Now())

	tr.poll()

	if len(tr.moves) != 1 {
		t.Fatalf("expected one move sample")
	}
	m := tr.moves[0]
	if m.XUnorm != 0.25 || m.YUnorm != 0.1 {
		t.Fatalf("got (%v,%v), want (0.25,0.1)", m.XUnorm, m.YUnorm)
	}
}

func TestFlushProducesExpectedShape(t *testing.T) {
	rec := Recording{
		Moves:  []Sample{{TMs: 1, XUnorm: 0.5, YUnorm: 0.5}},
		Clicks: []Event{{TMs: 1, Kind: EventDown, Button: "left", ShapeID: "abc"}},
		Shapes: map[string]Shape{"abc": {W: 4, H: 4, DataB64: "AAAA"}},
	}
	data, err := Flush(rec)
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected non-empty JSON")
	}
}

func TestAlphaInsideOutsideBoundary(t *testing.T) {
	if a := Alpha(MaskCircle, 8, 8, 16, 16, 0); a != 1 {
		t.Fatalf("center of circle: got alpha %v, want 1", a)
	}
	if a := Alpha(MaskCircle, 0, 0, 16, 16, 0); a != 0 {
		t.Fatalf("corner outside circle: got alpha %v, want 0", a)
	}
}

func TestAlphaRoundedRectCorners(t *testing.T) {
	// Far inside the rect body should be fully opaque.
	if a := Alpha(MaskRounded, 32, 32, 64, 64, 8); a != 1 {
		t.Fatalf("rect center: got alpha %v, want 1", a)
	}
	// Far outside any edge should be fully transparent.
	if a := Alpha(MaskRounded, -10, -10, 64, 64, 8); a != 0 {
		t.Fatalf("far outside rect: got alpha %v, want 0", a)
	}
}
