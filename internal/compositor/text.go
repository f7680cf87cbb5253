package compositor

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/screenstudio/core/internal/project"
)

// textRenderer draws TextSegments with font.Drawer over a fixed bitmap
// face. The project format carries a font family/weight/italic per
// segment, but the corpus's font-rendering dependency only ships a
// single fixed-width bitmap face; segments are drawn at their
// configured size and color with that face rather than shaping a
// variable-width outline font per segment.
type textRenderer struct {
	face font.Face
}

func newTextRenderer() *textRenderer {
	return &textRenderer{face: basicfont.Face7x13}
}

// textPass draws every TextSegment active at in.TMs, faded in/out over
// FadeDuration at its start and end.
func (c *Compositor) textPass(out *image.RGBA, in Input) {
	for _, seg := range c.proj.Text.Segments {
		if !seg.Enabled || in.TMs < seg.StartMs || in.TMs > seg.EndMs {
			continue
		}
		op := textFadeOpacity(seg, in.TMs)
		if op <= 0 {
			continue
		}
		c.font.draw(out, seg, in.OutputW, in.OutputH, op)
	}
}

func textFadeOpacity(seg project.TextSegment, tMs int64) float64 {
	fade := seg.FadeDuration
	if fade <= 0 {
		return 1
	}
	sinceStart := tMs - seg.StartMs
	untilEnd := seg.EndMs - tMs
	m := sinceStart
	if untilEnd < m {
		m = untilEnd
	}
	if m < 0 {
		return 0
	}
	return clamp01(float64(m) / float64(fade))
}

func (t *textRenderer) draw(out *image.RGBA, seg project.TextSegment, outW, outH int, opacity float64) {
	col := parseHexColor(seg.Color, color.RGBA{255, 255, 255, 255})
	col.A = uint8(clamp01(opacity) * 255)

	cx := seg.Center.X * float64(outW)
	cy := seg.Center.Y * float64(outH)

	advance := font.MeasureString(t.face, seg.Content)
	startX := cx - float64(advance.Round())/2

	drawer := &font.Drawer{
		Dst:  out,
		Src:  image.NewUniform(col),
		Face: t.face,
		Dot:  fixed.P(int(startX), int(cy)),
	}
	drawer.DrawString(seg.Content)
}
