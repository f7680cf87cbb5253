package decoder

import (
	"bytes"
	"strings"
	"testing"

	"github.com/screenstudio/core/internal/corerr"
)

func TestBuildArgsIncludesSeekAndScale(t *testing.T) {
	src := Source{Path: "in.mp4", Width: 640, Height: 360, StartMs: 1500}
	args := strings.Join(buildArgs(src), " ")
	if !strings.Contains(args, "-ss 1.500") {
		t.Fatalf("args missing seek offset: %q", args)
	}
	if !strings.Contains(args, "scale=640:360") {
		t.Fatalf("args missing scale filter: %q", args)
	}
	if !strings.Contains(args, "-pix_fmt rgba") {
		t.Fatalf("args missing rgba pixel format: %q", args)
	}
}

func TestBuildArgsOmitsFrameCountWhenZero(t *testing.T) {
	src := Source{Path: "in.mp4", Width: 100, Height: 100}
	args := strings.Join(buildArgs(src), " ")
	if strings.Contains(args, "-frames:v") {
		t.Fatalf("expected no frame count cap, got %q", args)
	}
}

func TestBuildArgsIncludesFrameCountWhenSet(t *testing.T) {
	src := Source{Path: "in.mp4", Width: 100, Height: 100, FrameCount: 30}
	args := strings.Join(buildArgs(src), " ")
	if !strings.Contains(args, "-frames:v 30") {
		t.Fatalf("expected frame count cap, got %q", args)
	}
}

func TestNextFrameReturnsFramesWithComputedTimestamps(t *testing.T) {
	w, h := 2, 2
	frameSize := w * h * 4
	var buf bytes.Buffer
	buf.Write(bytes.Repeat([]byte{1}, frameSize))
	buf.Write(bytes.Repeat([]byte{2}, frameSize))

	d := newFromReader(Source{Width: w, Height: h, FPS: 10, StartMs: 1000}, &buf)

	f0, ok, err := d.NextFrame()
	if err != nil || !ok {
		t.Fatalf("frame 0: ok=%v err=%v", ok, err)
	}
	if f0.Idx != 0 || f0.TsMs != 1000 {
		t.Fatalf("frame 0 got idx=%d ts=%d, want idx=0 ts=1000", f0.Idx, f0.TsMs)
	}

	f1, ok, err := d.NextFrame()
	if err != nil || !ok {
		t.Fatalf("frame 1: ok=%v err=%v", ok, err)
	}
	if f1.Idx != 1 || f1.TsMs != 1100 {
		t.Fatalf("frame 1 got idx=%d ts=%d, want idx=1 ts=1100", f1.Idx, f1.TsMs)
	}
}

func TestNextFrameReturnsCleanEOS(t *testing.T) {
	d := newFromReader(Source{Width: 2, Height: 2}, &bytes.Buffer{})
	_, ok, err := d.NextFrame()
	if err != nil {
		t.Fatalf("expected clean EOS, got error: %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false at EOS")
	}
}

func TestNextFrameTreatsTruncatedFinalFrameAsEOS(t *testing.T) {
	w, h := 4, 4
	d := newFromReader(Source{Width: w, Height: h}, bytes.NewReader(make([]byte, w*h*4-1)))
	_, ok, err := d.NextFrame()
	if ok {
		t.Fatalf("expected ok=false for a truncated frame")
	}
	if err != nil {
		t.Fatalf("a truncated trailing frame is treated as clean EOS, got error: %v", err)
	}
}

func TestNextFrameRejectsUseAfterClose(t *testing.T) {
	d := newFromReader(Source{Width: 2, Height: 2}, &bytes.Buffer{})
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	_, _, err := d.NextFrame()
	if !corerr.Is(err, corerr.KindInvalidState) {
		t.Fatalf("expected KindInvalidState after close, got %v", err)
	}
}

func TestNewRejectsNonPositiveDimensions(t *testing.T) {
	_, err := New(nil, Source{Path: "in.mp4", Width: 0, Height: 10})
	if !corerr.Is(err, corerr.KindInvalidState) {
		t.Fatalf("expected KindInvalidState, got %v", err)
	}
}
