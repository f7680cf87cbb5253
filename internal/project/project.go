// Package project defines the editable recording document: sources,
// timeline, zoom regions, cursor/webcam/text configuration, background,
// and export settings. A Project is produced by a recording session,
// mutated only through the editor, and read-only to the exporter.
package project

import (
	"encoding/json"
	"fmt"

	"github.com/screenstudio/core/internal/corerr"
)

// ScreenUV is a point normalized to [0,1] within a display or capture.
type ScreenUV struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Sources struct {
	ScreenVideo  string `json:"screenVideo"`
	SystemAudio  string `json:"systemAudio,omitempty"`
	MicAudio     string `json:"micAudio,omitempty"`
	WebcamVideo  string `json:"webcamVideo,omitempty"`
	CursorStream string `json:"cursorStream,omitempty"`
	OriginalW    int    `json:"originalW"`
	OriginalH    int    `json:"originalH"`
}

type Segment struct {
	StartMs int64   `json:"start"`
	EndMs   int64   `json:"end"`
	Speed   float64 `json:"speed"`
}

type Timeline struct {
	DurationMs int64     `json:"durationMs"`
	Segments   []Segment `json:"segments"`
}

type ZoomMode string

const (
	ZoomManual       ZoomMode = "Manual"
	ZoomCursorFollow ZoomMode = "CursorFollow"
)

type Easing string

const (
	EasingLinear    Easing = "Linear"
	EasingEaseInOut Easing = "EaseInOut"
)

type ZoomTransition struct {
	InMs   int64  `json:"inMs"`
	OutMs  int64  `json:"outMs"`
	Easing Easing `json:"easing"`
}

type ZoomRegion struct {
	StartMs    int64          `json:"startMs"`
	EndMs      int64          `json:"endMs"`
	Scale      float64        `json:"scale"`
	Target     ScreenUV       `json:"target"`
	Mode       ZoomMode       `json:"mode"`
	Transition ZoomTransition `json:"transition"`
}

type Zoom struct {
	Regions []ZoomRegion `json:"regions"`
}

type CursorConfig struct {
	Size              float64 `json:"size"`
	Smoothness        float64 `json:"smoothness"`
	ClickEffectEnabled bool   `json:"clickEffectEnabled"`
	Trail             *bool   `json:"trail,omitempty"`
}

type WebcamPosition string

const (
	WebcamTopLeft     WebcamPosition = "TL"
	WebcamTopRight    WebcamPosition = "TR"
	WebcamBottomLeft  WebcamPosition = "BL"
	WebcamBottomRight WebcamPosition = "BR"
	WebcamCustom      WebcamPosition = "Custom"
)

type WebcamShape string

const (
	WebcamCircle    WebcamShape = "Circle"
	WebcamRectangle WebcamShape = "Rectangle"
	WebcamSquircle  WebcamShape = "Squircle"
)

type VisibilitySegment struct {
	StartMs int64 `json:"startMs"`
	EndMs   int64 `json:"endMs"`
	Visible bool  `json:"visible"`
}

type Webcam struct {
	Enabled            bool                `json:"enabled"`
	Position           WebcamPosition      `json:"position"`
	CustomPosition     ScreenUV            `json:"customPosition,omitempty"`
	Size               float64             `json:"size"`
	Shape              WebcamShape         `json:"shape"`
	Mirror             bool                `json:"mirror"`
	Shadow             bool                `json:"shadow"`
	VisibilitySegments []VisibilitySegment `json:"visibilitySegments"`
}

// SceneMode selects which sources the compositor draws from at a given
// timestamp.
type SceneMode string

const (
	SceneModeDefault    SceneMode = "Default"
	SceneModeCameraOnly SceneMode = "CameraOnly"
	SceneModeScreenOnly SceneMode = "ScreenOnly"
)

// SceneSegment assigns a SceneMode to a [StartMs,EndMs) span of the
// timeline, the same shape as Webcam.VisibilitySegments.
type SceneSegment struct {
	StartMs int64     `json:"startMs"`
	EndMs   int64     `json:"endMs"`
	Mode    SceneMode `json:"mode"`
}

// Scene is the timeline of scene-mode switches a project records,
// consumed by the Compositor to decide which pass combination to run
// and when to cross-fade between two scene modes.
type Scene struct {
	Segments []SceneSegment `json:"segments"`
}

type TextSegment struct {
	Content      string   `json:"content"`
	Center       ScreenUV `json:"center"`
	Size         ScreenUV `json:"size"`
	Color        string   `json:"color"`
	Font         string   `json:"font"`
	Weight       int      `json:"weight"`
	Italic       bool     `json:"italic"`
	StartMs      int64    `json:"start"`
	EndMs        int64    `json:"end"`
	FadeDuration int64    `json:"fadeDuration"`
	Enabled      bool     `json:"enabled"`
}

type Text struct {
	Segments []TextSegment `json:"segments"`
}

type BackgroundKind string

const (
	BackgroundSolid    BackgroundKind = "Solid"
	BackgroundGradient BackgroundKind = "Gradient"
	BackgroundImage    BackgroundKind = "Image"
	BackgroundWallpaper BackgroundKind = "Wallpaper"
)

type CornerStyle string

const (
	CornerRounded  CornerStyle = "Rounded"
	CornerSquircle CornerStyle = "Squircle"
)

type Shadow struct {
	Enabled  bool    `json:"enabled"`
	Strength float64 `json:"strength"`
	Size     float64 `json:"size"`
	Opacity  float64 `json:"opacity"`
	Blur     float64 `json:"blur"`
}

type Border struct {
	Enabled bool    `json:"enabled"`
	Width   float64 `json:"width"`
	Color   string  `json:"color"`
	Opacity float64 `json:"opacity"`
}

type Background struct {
	Kind           BackgroundKind `json:"kind"`
	Color          string         `json:"color,omitempty"`
	GradientFrom   string         `json:"gradientFrom,omitempty"`
	GradientTo     string         `json:"gradientTo,omitempty"`
	GradientAngle  float64        `json:"gradientAngleDeg,omitempty"`
	ImagePath      string         `json:"imagePath,omitempty"`
	WallpaperKey   string         `json:"wallpaperKey,omitempty"`
	PaddingPx      float64        `json:"paddingPx"`
	InsetPx        float64        `json:"insetPx"`
	CornerRadiusPx float64        `json:"cornerRadiusPx"`
	CornerStyle    CornerStyle    `json:"cornerStyle"`
	Blur           float64        `json:"blur"`
	Shadow         Shadow         `json:"shadow"`
	Border         Border         `json:"border"`
}

type ExportFormat string

const (
	FormatMP4  ExportFormat = "MP4"
	FormatWebM ExportFormat = "WebM"
	FormatGIF  ExportFormat = "GIF"
)

type Export struct {
	Format         ExportFormat `json:"format"`
	FPS            int          `json:"fps"`
	Quality        int          `json:"quality"`
	PreferHardware bool         `json:"preferHardware"`
}

// Project is the full editable recording document.
type Project struct {
	Sources    Sources      `json:"sources"`
	Timeline   Timeline     `json:"timeline"`
	Zoom       Zoom         `json:"zoom"`
	Cursor     CursorConfig `json:"cursor"`
	Webcam     Webcam       `json:"webcam"`
	Scene      Scene        `json:"scene"`
	Text       Text         `json:"text"`
	Background Background   `json:"background"`
	Export     Export       `json:"export"`
}

// Marshal serializes a Project to its camelCase wire format.
func Marshal(p Project) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, corerr.Wrap(corerr.KindJSON, "project.Marshal", err)
	}
	return data, nil
}

// Unmarshal parses a Project from its wire format.
func Unmarshal(data []byte) (Project, error) {
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return Project{}, corerr.Wrap(corerr.KindJSON, "project.Unmarshal", err)
	}
	return p, nil
}

// Validate checks the invariants every Project must satisfy: segments
// strictly ordered, disjoint, and covering [0,duration]; every region's
// end > start; shape_ids referenced from text/cursor config resolved
// elsewhere (the cursor stream's own shape map, not validated here).
func Validate(p Project) error {
	if err := validateTimeline(p.Timeline); err != nil {
		return err
	}
	for i, r := range p.Zoom.Regions {
		if r.EndMs <= r.StartMs {
			return corerr.New(corerr.KindInvalidProject, "project.Validate", fmt.Sprintf("zoom region %d: end %d <= start %d", i, r.EndMs, r.StartMs))
		}
		if r.Scale < 1 || r.Scale > 6 {
			return corerr.New(corerr.KindInvalidProject, "project.Validate", fmt.Sprintf("zoom region %d: scale %v out of [1,6]", i, r.Scale))
		}
	}
	for i, s := range p.Text.Segments {
		if s.EndMs <= s.StartMs {
			return corerr.New(corerr.KindInvalidProject, "project.Validate", fmt.Sprintf("text segment %d: end %d <= start %d", i, s.EndMs, s.StartMs))
		}
	}
	for i, v := range p.Webcam.VisibilitySegments {
		if v.EndMs <= v.StartMs {
			return corerr.New(corerr.KindInvalidProject, "project.Validate", fmt.Sprintf("visibility segment %d: end %d <= start %d", i, v.EndMs, v.StartMs))
		}
	}
	for i, sc := range p.Scene.Segments {
		if sc.EndMs <= sc.StartMs {
			return corerr.New(corerr.KindInvalidProject, "project.Validate", fmt.Sprintf("scene segment %d: end %d <= start %d", i, sc.EndMs, sc.StartMs))
		}
	}
	if p.Webcam.Size < 0.05 || p.Webcam.Size > 0.4 {
		return corerr.New(corerr.KindInvalidProject, "project.Validate", fmt.Sprintf("webcam size %v out of [0.05,0.4]", p.Webcam.Size))
	}
	if p.Cursor.Size < 0.5 || p.Cursor.Size > 4 {
		return corerr.New(corerr.KindInvalidProject, "project.Validate", fmt.Sprintf("cursor size %v out of [0.5,4]", p.Cursor.Size))
	}
	return nil
}

func validateTimeline(t Timeline) error {
	if len(t.Segments) == 0 {
		if t.DurationMs != 0 {
			return corerr.New(corerr.KindInvalidProject, "project.validateTimeline", "no segments but nonzero duration")
		}
		return nil
	}
	prevEnd := int64(0)
	for i, s := range t.Segments {
		if s.EndMs <= s.StartMs {
			return corerr.New(corerr.KindInvalidProject, "project.validateTimeline", fmt.Sprintf("segment %d: end %d <= start %d", i, s.EndMs, s.StartMs))
		}
		if s.StartMs != prevEnd {
			return corerr.New(corerr.KindInvalidProject, "project.validateTimeline", fmt.Sprintf("segment %d: start %d does not continue from previous end %d (segments must be disjoint and cover [0,duration])", i, s.StartMs, prevEnd))
		}
		prevEnd = s.EndMs
	}
	if prevEnd != t.DurationMs {
		return corerr.New(corerr.KindInvalidProject, "project.validateTimeline", fmt.Sprintf("segments cover [0,%d] but duration is %d", prevEnd, t.DurationMs))
	}
	return nil
}
