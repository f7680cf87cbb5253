package project

import (
	"fmt"
	"reflect"
	"testing"
)

// floatEpsilon is the tolerance deepEqualProject uses when comparing
// float64 fields, since a marshal/unmarshal round trip through
// encoding/json's decimal text representation is not guaranteed to be
// bit-exact.
const floatEpsilon = 1e-6

// deepEqualProject recursively compares two values field by field,
// treating float64 kinds as equal within floatEpsilon instead of
// requiring bit-exact equality. It returns a description of the first
// mismatch found, or "" if the values are equal.
func deepEqualProject(path string, a, b reflect.Value) string {
	if a.Type() != b.Type() {
		return fmt.Sprintf("%s: type mismatch %s vs %s", path, a.Type(), b.Type())
	}
	switch a.Kind() {
	case reflect.Float64:
		diff := a.Float() - b.Float()
		if diff < -floatEpsilon || diff > floatEpsilon {
			return fmt.Sprintf("%s: %v != %v (diff %v)", path, a.Float(), b.Float(), diff)
		}
	case reflect.Struct:
		for i := 0; i < a.NumField(); i++ {
			name := a.Type().Field(i).Name
			if msg := deepEqualProject(path+"."+name, a.Field(i), b.Field(i)); msg != "" {
				return msg
			}
		}
	case reflect.Slice, reflect.Array:
		if a.Len() != b.Len() {
			return fmt.Sprintf("%s: length %d != %d", path, a.Len(), b.Len())
		}
		for i := 0; i < a.Len(); i++ {
			if msg := deepEqualProject(fmt.Sprintf("%s[%d]", path, i), a.Index(i), b.Index(i)); msg != "" {
				return msg
			}
		}
	case reflect.Ptr:
		if a.IsNil() != b.IsNil() {
			return fmt.Sprintf("%s: nil mismatch", path)
		}
		if !a.IsNil() {
			return deepEqualProject(path, a.Elem(), b.Elem())
		}
	case reflect.Map:
		if a.Len() != b.Len() {
			return fmt.Sprintf("%s: length %d != %d", path, a.Len(), b.Len())
		}
		for _, k := range a.MapKeys() {
			bv := b.MapIndex(k)
			if !bv.IsValid() {
				return fmt.Sprintf("%s: missing key %v", path, k)
			}
			if msg := deepEqualProject(fmt.Sprintf("%s[%v]", path, k), a.MapIndex(k), bv); msg != "" {
				return msg
			}
		}
	default:
		if !reflect.DeepEqual(a.Interface(), b.Interface()) {
			return fmt.Sprintf("%s: %v != %v", path, a.Interface(), b.Interface())
		}
	}
	return ""
}

func validProject() Project {
	return Project{
		Sources: Sources{ScreenVideo: "screen.mp4", OriginalW: 1920, OriginalH: 1080},
		Timeline: Timeline{
			DurationMs: 1000,
			Segments:   []Segment{{StartMs: 0, EndMs: 1000, Speed: 1}},
		},
		Cursor: CursorConfig{Size: 1, Smoothness: 0.5},
		Webcam: Webcam{Size: 0.2},
		Export: Export{Format: FormatMP4, FPS: 30, Quality: 80},
	}
}

func TestValidateAcceptsWellFormedProject(t *testing.T) {
	if err := Validate(validProject()); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsGapInTimeline(t *testing.T) {
	p := validProject()
	p.Timeline.Segments = []Segment{
		{StartMs: 0, EndMs: 400, Speed: 1},
		{StartMs: 500, EndMs: 1000, Speed: 1}, // gap [400,500)
	}
	if err := Validate(p); err == nil {
		t.Fatalf("expected error for non-contiguous segments")
	}
}

func TestValidateRejectsOverlapInTimeline(t *testing.T) {
	p := validProject()
	p.Timeline.Segments = []Segment{
		{StartMs: 0, EndMs: 600, Speed: 1},
		{StartMs: 400, EndMs: 1000, Speed: 1}, // overlap
	}
	if err := Validate(p); err == nil {
		t.Fatalf("expected error for overlapping segments")
	}
}

func TestValidateRejectsSegmentNotCoveringDuration(t *testing.T) {
	p := validProject()
	p.Timeline.Segments = []Segment{{StartMs: 0, EndMs: 500, Speed: 1}}
	if err := Validate(p); err == nil {
		t.Fatalf("expected error: segments end before duration")
	}
}

func TestValidateRejectsZoomScaleOutOfRange(t *testing.T) {
	p := validProject()
	p.Zoom.Regions = []ZoomRegion{{StartMs: 0, EndMs: 100, Scale: 10}}
	if err := Validate(p); err == nil {
		t.Fatalf("expected error for out-of-range zoom scale")
	}
}

func TestValidateRejectsWebcamSizeOutOfRange(t *testing.T) {
	p := validProject()
	p.Webcam.Size = 0.9
	if err := Validate(p); err == nil {
		t.Fatalf("expected error for out-of-range webcam size")
	}
}

func fullyPopulatedProject() Project {
	p := validProject()
	p.Sources.SystemAudio = "system_audio.wav"
	p.Sources.MicAudio = "mic_audio.wav"
	p.Sources.WebcamVideo = "webcam.mp4"
	p.Sources.CursorStream = "cursor.json"
	p.Zoom.Regions = []ZoomRegion{{
		StartMs: 0, EndMs: 500, Scale: 2.5,
		Target:     ScreenUV{X: 0.333333, Y: 0.666667},
		Mode:       ZoomCursorFollow,
		Transition: ZoomTransition{InMs: 100, OutMs: 100, Easing: EasingEaseInOut},
	}}
	p.Cursor.Trail = boolPtr(true)
	p.Webcam = Webcam{
		Enabled: true, Position: WebcamCustom,
		CustomPosition: ScreenUV{X: 0.1, Y: 0.2},
		Size:           0.25, Shape: WebcamSquircle,
		Mirror: true, Shadow: true,
		VisibilitySegments: []VisibilitySegment{{StartMs: 0, EndMs: 1000, Visible: true}},
	}
	p.Scene = Scene{Segments: []SceneSegment{
		{StartMs: 0, EndMs: 500, Mode: SceneModeDefault},
		{StartMs: 500, EndMs: 1000, Mode: SceneModeCameraOnly},
	}}
	p.Text = Text{Segments: []TextSegment{{
		Content: "hello", Center: ScreenUV{X: 0.5, Y: 0.9}, Size: ScreenUV{X: 0.3, Y: 0.1},
		Color: "#ffffff", Font: "Inter", Weight: 600, Italic: false,
		StartMs: 0, EndMs: 1000, FadeDuration: 100, Enabled: true,
	}}}
	p.Background = Background{
		Kind: BackgroundGradient, GradientFrom: "#111111", GradientTo: "#222222",
		GradientAngle: 45.5, PaddingPx: 10, InsetPx: 2, CornerRadiusPx: 8,
		CornerStyle: CornerSquircle, Blur: 0.1,
		Shadow: Shadow{Enabled: true, Strength: 0.333333, Size: 12, Opacity: 0.5, Blur: 4},
		Border: Border{Enabled: true, Width: 1.5, Color: "#000000", Opacity: 0.8},
	}
	p.Export.PreferHardware = true
	return p
}

func boolPtr(b bool) *bool { return &b }

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	p := fullyPopulatedProject()
	data, err := Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if msg := deepEqualProject("Project", reflect.ValueOf(got), reflect.ValueOf(p)); msg != "" {
		t.Fatalf("round-trip mismatch: %s", msg)
	}
}
