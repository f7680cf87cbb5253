// Package compositor renders one output frame by running a fixed
// pipeline of passes — background, screen, webcam, cursor, text — over
// an RGBA buffer, mirroring a GPU shader pipeline's pass order in CPU
// raster code.
package compositor

import (
	"image"
	"image/draw"

	"github.com/screenstudio/core/internal/cursor"
	"github.com/screenstudio/core/internal/cursorinterp"
	"github.com/screenstudio/core/internal/gpu"
	"github.com/screenstudio/core/internal/project"
	"github.com/screenstudio/core/internal/zoom"
)

// sceneTransitionMs is the pure alpha-blend duration between scene
// modes.
const sceneTransitionMs = 300

// Input bundles the decoded source frames and timing needed to render
// one output frame.
type Input struct {
	TMs int64

	Screen *image.RGBA // BGRA reinterpreted as image.RGBA channel order is handled by caller
	Webcam *image.RGBA // nil if no webcam source this frame

	OutputW, OutputH int
}

// Compositor holds the project configuration and the interpolators it
// samples each frame. It uses the Renderer its caller passes to New;
// it does not create or share one itself.
type Compositor struct {
	proj     project.Project
	renderer gpu.Renderer
	zoomIt   *zoom.Interpolator
	cursorIt *cursorinterp.Interpolator
	shapes   map[string]cursor.Shape
	clicks   []cursor.Event
	decoded  map[string]*image.RGBA
	font     *textRenderer
}

// New builds a Compositor for proj, sampling zoom from regions and
// cursor position from rec.
func New(proj project.Project, renderer gpu.Renderer, rec cursor.Recording) *Compositor {
	var cursorAt zoom.CursorPositionFunc
	ci := cursorinterp.New(rec)
	cursorAt = func(tMs int64) project.ScreenUV {
		x, y := ci.Sample(tMs)
		return project.ScreenUV{X: x, Y: y}
	}
	return &Compositor{
		proj:     proj,
		renderer: renderer,
		zoomIt:   zoom.New(proj.Zoom.Regions, cursorAt),
		cursorIt: ci,
		shapes:   rec.Shapes,
		clicks:   rec.Clicks,
		decoded:  make(map[string]*image.RGBA),
		font:     newTextRenderer(),
	}
}

// Composite runs the full pass pipeline and returns the finished
// output frame. When TMs falls within sceneTransitionMs of a
// project.Scene mode switch, it composites both the previous and
// current mode and cross-fades between them.
func (c *Compositor) Composite(in Input) (*image.RGBA, error) {
	mode, prevMode, changedAtMs := c.sceneAt(in.TMs)

	out := c.composeScene(in, mode)

	if changedAtMs >= 0 && prevMode != mode {
		elapsed := in.TMs - changedAtMs
		if elapsed >= 0 && elapsed < sceneTransitionMs {
			prev := c.composeScene(in, prevMode)
			alpha := float64(elapsed) / float64(sceneTransitionMs)
			out = blendFrames(prev, out, alpha)
		}
	}

	return out, nil
}

// composeScene runs the background/screen/webcam/cursor/text pass
// sequence for a single scene mode, producing one complete frame.
func (c *Compositor) composeScene(in Input, mode project.SceneMode) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, in.OutputW, in.OutputH))

	c.backgroundPass(out, in)

	if in.Screen != nil && (mode == project.SceneModeDefault || mode == project.SceneModeScreenOnly) {
		zs := c.zoomIt.Sample(in.TMs)
		c.screenPass(out, in, zs)
	}

	if in.Webcam != nil && c.proj.Webcam.Enabled && c.webcamVisible(in.TMs) {
		cover := mode == project.SceneModeCameraOnly
		c.webcamPass(out, in, cover)
	}

	c.cursorPass(out, in)
	c.textPass(out, in)

	return out
}

// sceneAt returns the scene mode active at tMs, the mode immediately
// preceding it, and the timestamp the switch to the current mode
// began. changedAtMs is -1 when tMs falls in the timeline's first
// segment (no preceding mode to blend from).
func (c *Compositor) sceneAt(tMs int64) (mode, prevMode project.SceneMode, changedAtMs int64) {
	segs := c.proj.Scene.Segments
	if len(segs) == 0 {
		return project.SceneModeDefault, project.SceneModeDefault, -1
	}
	mode = segs[len(segs)-1].Mode
	changedAtMs = segs[len(segs)-1].StartMs
	for i, s := range segs {
		if tMs >= s.StartMs && tMs < s.EndMs {
			mode = s.Mode
			changedAtMs = s.StartMs
			if i == 0 {
				return mode, mode, -1
			}
			return mode, segs[i-1].Mode, changedAtMs
		}
	}
	if len(segs) == 1 {
		return mode, mode, -1
	}
	return mode, segs[len(segs)-2].Mode, changedAtMs
}

func (c *Compositor) webcamVisible(tMs int64) bool {
	segs := c.proj.Webcam.VisibilitySegments
	if len(segs) == 0 {
		return true
	}
	for _, s := range segs {
		if tMs >= s.StartMs && tMs < s.EndMs {
			return s.Visible
		}
	}
	return true
}

// blendFrames linearly interpolates every byte (including alpha) of
// prev and cur, alpha=0 returning prev and alpha=1 returning cur. Both
// frames must share the same bounds.
func blendFrames(prev, cur *image.RGBA, alpha float64) *image.RGBA {
	if alpha <= 0 {
		return prev
	}
	if alpha >= 1 {
		return cur
	}
	out := image.NewRGBA(cur.Bounds())
	n := len(cur.Pix)
	if len(prev.Pix) < n {
		n = len(prev.Pix)
	}
	for i := 0; i < n; i++ {
		out.Pix[i] = byte(float64(prev.Pix[i])*(1-alpha) + float64(cur.Pix[i])*alpha)
	}
	return out
}

// drawRGBAAt alpha-composites src onto dst with its top-left corner at
// (x, y), clipping to dst's bounds.
func drawRGBAAt(dst *image.RGBA, src *image.RGBA, x, y int) {
	dstRect := image.Rect(x, y, x+src.Bounds().Dx(), y+src.Bounds().Dy())
	draw.Draw(dst, dstRect, src, src.Bounds().Min, draw.Over)
}
