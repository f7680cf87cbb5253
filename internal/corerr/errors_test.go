package corerr

import (
	"errors"
	"testing"
)

func TestErrorMessageIncludesOp(t *testing.T) {
	e := New(KindInvalidRegion, "capture.Start", "region exceeds display bounds")
	want := "capture.Start: region exceeds display bounds"
	if got := e.Error(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("pipe closed")
	e := Wrap(KindIO, "export.writeFrame", cause)

	if !errors.Is(e, cause) {
		t.Fatalf("expected errors.Is to find wrapped cause")
	}
	if e.Kind != KindIO {
		t.Fatalf("got Kind %v, want KindIO", e.Kind)
	}
}

func TestWrapNilReturnsNil(t *testing.T) {
	if Wrap(KindOther, "op", nil) != nil {
		t.Fatalf("expected nil for nil cause")
	}
}

func TestIsMatchesKind(t *testing.T) {
	e := New(KindEncoderExitNonZero, "videoenc.Run", "ffmpeg exited")
	if !Is(e, KindEncoderExitNonZero) {
		t.Fatalf("expected Is to match KindEncoderExitNonZero")
	}
	if Is(e, KindGpuInit) {
		t.Fatalf("expected Is to reject mismatched kind")
	}
	if Is(errors.New("plain"), KindOther) {
		t.Fatalf("expected Is to reject non-*Error values")
	}
}

func TestWithStderrAttaches(t *testing.T) {
	e := New(KindEncoderExitNonZero, "videoenc.Run", "exit status 1").WithStderr("unknown encoder flag")
	if e.Stderr != "unknown encoder flag" {
		t.Fatalf("got Stderr %q", e.Stderr)
	}
}

func TestKindStringCoversEveryKind(t *testing.T) {
	kinds := []Kind{
		KindOther, KindCaptureUnavailable, KindCaptureTimeout, KindCaptureDeviceLost,
		KindCaptureCropped, KindAudioNoDevice, KindAudioUnsupportedFormat, KindAudioCallbackError,
		KindEncoderNotFound, KindEncoderSpawn, KindEncoderWriteFailed, KindEncoderExitNonZero,
		KindGpuInit, KindGpuDeviceLost, KindShaderCompile, KindIO, KindJSON, KindImage,
		KindInvalidState, KindInvalidRegion, KindInvalidProject, KindTimeout, KindCancelled,
	}
	seen := make(map[string]bool)
	for _, k := range kinds {
		s := k.String()
		if s == "" {
			t.Fatalf("Kind %d stringified to empty", k)
		}
		if seen[s] {
			t.Fatalf("duplicate Kind string %q", s)
		}
		seen[s] = true
	}
}
