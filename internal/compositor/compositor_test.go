package compositor

import (
	"image"
	"image/color"
	"testing"

	"github.com/screenstudio/core/internal/cursor"
	"github.com/screenstudio/core/internal/project"
)

func TestParseHexColorValid(t *testing.T) {
	c := parseHexColor("#ff8000", color.RGBA{})
	if c.R != 0xff || c.G != 0x80 || c.B != 0x00 {
		t.Fatalf("got %+v", c)
	}
}

func TestParseHexColorFallsBackOnMalformed(t *testing.T) {
	fallback := color.RGBA{1, 2, 3, 4}
	if c := parseHexColor("notacolor", fallback); c != fallback {
		t.Fatalf("got %+v, want fallback", c)
	}
	if c := parseHexColor("", fallback); c != fallback {
		t.Fatalf("got %+v, want fallback", c)
	}
}

func TestLerpColorAtEndpoints(t *testing.T) {
	from := color.RGBA{0, 0, 0, 255}
	to := color.RGBA{255, 255, 255, 255}
	if c := lerpColor(from, to, 0); c != from {
		t.Fatalf("t=0: got %+v", c)
	}
	if c := lerpColor(from, to, 1); c != to {
		t.Fatalf("t=1: got %+v", c)
	}
}

func TestClamp01(t *testing.T) {
	cases := map[float64]float64{-1: 0, 0: 0, 0.5: 0.5, 1: 1, 2: 1}
	for in, want := range cases {
		if got := clamp01(in); got != want {
			t.Fatalf("clamp01(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestClampInt(t *testing.T) {
	if clampInt(-5, 0, 10) != 0 {
		t.Fatal("expected clamp to lo")
	}
	if clampInt(15, 0, 10) != 10 {
		t.Fatal("expected clamp to hi")
	}
	if clampInt(5, 0, 10) != 5 {
		t.Fatal("expected passthrough")
	}
}

func TestScaleToFillCoversTargetDimensions(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 20))
	out := scaleToFill(src, 100, 50)
	if out.Bounds().Dx() != 100 || out.Bounds().Dy() != 50 {
		t.Fatalf("got %v", out.Bounds())
	}
}

func TestScaleToFillHandlesZeroSource(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 0, 0))
	out := scaleToFill(src, 10, 10)
	if out.Bounds().Dx() != 10 || out.Bounds().Dy() != 10 {
		t.Fatalf("got %v", out.Bounds())
	}
}

func TestTextFadeOpacityRampsAtStartAndEnd(t *testing.T) {
	seg := project.TextSegment{StartMs: 1000, EndMs: 2000, FadeDuration: 200}
	if op := textFadeOpacity(seg, 1000); op != 0 {
		t.Fatalf("at start: got %v, want 0", op)
	}
	if op := textFadeOpacity(seg, 1100); op != 0.5 {
		t.Fatalf("mid fade-in: got %v, want 0.5", op)
	}
	if op := textFadeOpacity(seg, 1500); op != 1 {
		t.Fatalf("steady state: got %v, want 1", op)
	}
	if op := textFadeOpacity(seg, 1900); op != 0.5 {
		t.Fatalf("mid fade-out: got %v, want 0.5", op)
	}
	if op := textFadeOpacity(seg, 2000); op != 0 {
		t.Fatalf("at end: got %v, want 0", op)
	}
}

func TestTextFadeOpacityNoFadeIsFullyOpaqueWithinRange(t *testing.T) {
	seg := project.TextSegment{StartMs: 0, EndMs: 1000, FadeDuration: 0}
	if op := textFadeOpacity(seg, 500); op != 1 {
		t.Fatalf("got %v, want 1", op)
	}
}

func TestWebcamAnchorPositionsInEachCorner(t *testing.T) {
	cases := []struct {
		pos  project.WebcamPosition
		wantX, wantY float64
	}{
		{project.WebcamTopLeft, webcamInsetPx, webcamInsetPx},
		{project.WebcamTopRight, 200 - 50 - webcamInsetPx, webcamInsetPx},
		{project.WebcamBottomLeft, webcamInsetPx, 100 - 50 - webcamInsetPx},
		{project.WebcamBottomRight, 200 - 50 - webcamInsetPx, 100 - 50 - webcamInsetPx},
	}
	for _, tc := range cases {
		wc := project.Webcam{Position: tc.pos}
		x, y := webcamAnchor(wc, 200, 100, 50, 50)
		if x != tc.wantX || y != tc.wantY {
			t.Fatalf("%v: got (%v,%v), want (%v,%v)", tc.pos, x, y, tc.wantX, tc.wantY)
		}
	}
}

func TestWebcamAnchorCustomPositionUsesScreenUV(t *testing.T) {
	wc := project.Webcam{Position: project.WebcamCustom, CustomPosition: project.ScreenUV{X: 0.5, Y: 0.5}}
	x, y := webcamAnchor(wc, 200, 100, 50, 50)
	if x != 75 || y != 25 {
		t.Fatalf("got (%v,%v), want (75,25)", x, y)
	}
}

func TestActiveShapeAtTracksMostRecentEventAtOrBeforeTime(t *testing.T) {
	c := &Compositor{clicks: []cursor.Event{
		{TMs: 100, ShapeID: "arrow"},
		{TMs: 500, ShapeID: "hand"},
		{TMs: 900, ShapeID: "ibeam"},
	}}
	if got := c.activeShapeAt(50); got != "" {
		t.Fatalf("before any event: got %q", got)
	}
	if got := c.activeShapeAt(500); got != "hand" {
		t.Fatalf("at event boundary: got %q, want hand", got)
	}
	if got := c.activeShapeAt(700); got != "hand" {
		t.Fatalf("between events: got %q, want hand", got)
	}
	if got := c.activeShapeAt(5000); got != "ibeam" {
		t.Fatalf("after last event: got %q, want ibeam", got)
	}
}

func TestDecodeShapeReturnsNilForUnknownID(t *testing.T) {
	c := &Compositor{shapes: map[string]cursor.Shape{}, decoded: map[string]*image.RGBA{}}
	if img := c.decodeShape("missing"); img != nil {
		t.Fatalf("expected nil, got %+v", img)
	}
	if img := c.decodeShape(""); img != nil {
		t.Fatalf("expected nil for empty id, got %+v", img)
	}
}

func TestDecodeShapeCachesDecodedBitmap(t *testing.T) {
	c := &Compositor{
		shapes: map[string]cursor.Shape{
			"dot": {W: 2, H: 2, DataB64: "AAAAAAAAAAAAAAAAAAAAAA=="},
		},
		decoded: map[string]*image.RGBA{},
	}
	img := c.decodeShape("dot")
	if img == nil {
		t.Fatal("expected decoded image")
	}
	if img2 := c.decodeShape("dot"); img2 != img {
		t.Fatal("expected cached instance to be returned")
	}
}

func TestBlendPixelOutOfBoundsIsNoop(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	blendPixel(img, -1, -1, color.RGBA{255, 0, 0, 255}, 1)
	blendPixel(img, 10, 10, color.RGBA{255, 0, 0, 255}, 1)
	for _, px := range img.Pix {
		if px != 0 {
			t.Fatal("expected buffer untouched for out-of-bounds writes")
		}
	}
}

func TestSceneAtNoSegmentsIsDefault(t *testing.T) {
	c := &Compositor{proj: project.Project{}}
	mode, prev, changedAt := c.sceneAt(1000)
	if mode != project.SceneModeDefault || prev != project.SceneModeDefault || changedAt != -1 {
		t.Fatalf("got (%v,%v,%v)", mode, prev, changedAt)
	}
}

func TestSceneAtFirstSegmentHasNoTransition(t *testing.T) {
	c := &Compositor{proj: project.Project{Scene: project.Scene{Segments: []project.SceneSegment{
		{StartMs: 0, EndMs: 1000, Mode: project.SceneModeScreenOnly},
	}}}}
	mode, prev, changedAt := c.sceneAt(500)
	if mode != project.SceneModeScreenOnly || prev != project.SceneModeScreenOnly || changedAt != -1 {
		t.Fatalf("got (%v,%v,%v)", mode, prev, changedAt)
	}
}

func TestSceneAtReportsPreviousModeAndSwitchTime(t *testing.T) {
	c := &Compositor{proj: project.Project{Scene: project.Scene{Segments: []project.SceneSegment{
		{StartMs: 0, EndMs: 1000, Mode: project.SceneModeDefault},
		{StartMs: 1000, EndMs: 2000, Mode: project.SceneModeCameraOnly},
	}}}}
	mode, prev, changedAt := c.sceneAt(1050)
	if mode != project.SceneModeCameraOnly || prev != project.SceneModeDefault || changedAt != 1000 {
		t.Fatalf("got (%v,%v,%v)", mode, prev, changedAt)
	}
}

func TestBlendFramesAtEndpoints(t *testing.T) {
	prev := image.NewRGBA(image.Rect(0, 0, 2, 2))
	cur := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := range prev.Pix {
		prev.Pix[i] = 0
		cur.Pix[i] = 200
	}
	if out := blendFrames(prev, cur, 0); out != prev {
		t.Fatalf("alpha=0 should return prev unchanged")
	}
	if out := blendFrames(prev, cur, 1); out != cur {
		t.Fatalf("alpha=1 should return cur unchanged")
	}
	mid := blendFrames(prev, cur, 0.5)
	if mid.Pix[0] != 100 {
		t.Fatalf("alpha=0.5: got %v, want 100", mid.Pix[0])
	}
}

func TestBlendPixelFullAlphaOverwrites(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	blendPixel(img, 0, 0, color.RGBA{10, 20, 30, 255}, 1)
	got := img.RGBAAt(0, 0)
	if got.R != 10 || got.G != 20 || got.B != 30 {
		t.Fatalf("got %+v", got)
	}
}
