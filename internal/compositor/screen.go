package compositor

import (
	"image"
	"image/color"

	"github.com/screenstudio/core/internal/cursor"
	"github.com/screenstudio/core/internal/project"
	"github.com/screenstudio/core/internal/zoom"
)

// screenPlacement computes the screen content's destination rect in
// output space, combining base placement (centered, padding_px margin)
// with the current zoom transform. Shared with the cursor pass so the
// cursor tracks the zoomed, panned screen rect rather than raw output
// coordinates.
func (c *Compositor) screenPlacement(in Input, zs zoom.Sample) (destX0, destY0, destW, destH float64, ok bool) {
	bg := c.proj.Background
	padding := bg.PaddingPx

	outW, outH := float64(in.OutputW), float64(in.OutputH)
	availW, availH := outW-2*padding, outH-2*padding
	if availW <= 0 || availH <= 0 || in.Screen == nil {
		return 0, 0, 0, 0, false
	}

	srcW, srcH := float64(in.Screen.Bounds().Dx()), float64(in.Screen.Bounds().Dy())
	if srcW == 0 || srcH == 0 {
		return 0, 0, 0, 0, false
	}

	baseScale := availW / srcW
	if alt := availH / srcH; alt < baseScale {
		baseScale = alt
	}
	scale := baseScale * zs.Scale

	destW = srcW * scale
	destH = srcH * scale

	centerX := padding + availW/2
	centerY := padding + availH/2

	panX := (zs.Center.X - 0.5) * destW * -1
	panY := (zs.Center.Y - 0.5) * destH * -1

	destX0 = centerX - destW/2 + panX
	destY0 = centerY - destH/2 + panY
	return destX0, destY0, destW, destH, true
}

// screenPass places the captured screen frame in the output, applies
// the current zoom transform, corner rounding, a drop shadow, and a
// border stroke, all via the shared SDF mask helpers.
func (c *Compositor) screenPass(out *image.RGBA, in Input, zs zoom.Sample) {
	bg := c.proj.Background

	destX0, destY0, destW, destH, ok := c.screenPlacement(in, zs)
	if !ok {
		return
	}

	radius := bg.CornerRadiusPx
	shape := cursor.MaskRounded
	if bg.CornerStyle == "Squircle" {
		shape = cursor.MaskSquircle
	}

	if bg.Shadow.Enabled {
		drawShadow(out, destX0, destY0, destW, destH, radius, shape, bg.Shadow)
	}

	x0, y0 := int(destX0), int(destY0)
	x1, y1 := int(destX0+destW), int(destY0+destH)
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > in.OutputW {
		x1 = in.OutputW
	}
	if y1 > in.OutputH {
		y1 = in.OutputH
	}

	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			localX := float64(x) - destX0
			localY := float64(y) - destY0
			alpha := cursor.Alpha(shape, localX, localY, destW, destH, radius)
			if alpha <= 0 {
				continue
			}
			u := localX / destW
			v := localY / destH
			px := bilinearSample(in.Screen, u, v)
			blendPixel(out, x, y, px, alpha)
		}
	}

	if bg.Border.Enabled {
		drawBorder(out, destX0, destY0, destW, destH, radius, shape, bg.Border)
	}
}

// bilinearSample samples src at normalized UV [0,1] with clamp-to-edge.
func bilinearSample(src *image.RGBA, u, v float64) color.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	fx := u*float64(w) - 0.5
	fy := v*float64(h) - 0.5
	x0 := clampInt(int(fx), 0, w-1)
	y0 := clampInt(int(fy), 0, h-1)
	x1 := clampInt(x0+1, 0, w-1)
	y1 := clampInt(y0+1, 0, h-1)
	tx := fx - float64(x0)
	ty := fy - float64(y0)
	if tx < 0 {
		tx = 0
	}
	if ty < 0 {
		ty = 0
	}

	c00 := src.RGBAAt(b.Min.X+x0, b.Min.Y+y0)
	c10 := src.RGBAAt(b.Min.X+x1, b.Min.Y+y0)
	c01 := src.RGBAAt(b.Min.X+x0, b.Min.Y+y1)
	c11 := src.RGBAAt(b.Min.X+x1, b.Min.Y+y1)

	lerp := func(a, bc uint8, t float64) float64 { return float64(a) + (float64(bc)-float64(a))*t }
	topR := lerp(c00.R, c10.R, tx)
	topG := lerp(c00.G, c10.G, tx)
	topB := lerp(c00.B, c10.B, tx)
	topA := lerp(c00.A, c10.A, tx)
	botR := lerp(c01.R, c11.R, tx)
	botG := lerp(c01.G, c11.G, tx)
	botB := lerp(c01.B, c11.B, tx)
	botA := lerp(c01.A, c11.A, tx)

	return color.RGBA{
		R: uint8(topR + (botR-topR)*ty),
		G: uint8(topG + (botG-topG)*ty),
		B: uint8(topB + (botB-topB)*ty),
		A: uint8(topA + (botA-topA)*ty),
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// blendPixel alpha-composites src (already scaled by `alpha` in
// [0,1]) over dst's pixel at (x, y).
func blendPixel(dst *image.RGBA, x, y int, src color.RGBA, alpha float64) {
	if x < dst.Bounds().Min.X || x >= dst.Bounds().Max.X || y < dst.Bounds().Min.Y || y >= dst.Bounds().Max.Y {
		return
	}
	a := alpha * (float64(src.A) / 255)
	if a <= 0 {
		return
	}
	bgc := dst.RGBAAt(x, y)
	mix := func(s, d uint8) uint8 { return uint8(float64(s)*a + float64(d)*(1-a)) }
	dst.SetRGBA(x, y, color.RGBA{mix(src.R, bgc.R), mix(src.G, bgc.G), mix(src.B, bgc.B), 255})
}

func drawShadow(out *image.RGBA, x0, y0, w, h, radius float64, shape cursor.MaskShape, s project.Shadow) {
	size := s.Size
	col := color.RGBA{0, 0, 0, uint8(clamp01(s.Opacity) * 255)}
	ox0, oy0 := int(x0-size), int(y0-size)
	ox1, oy1 := int(x0+w+size), int(y0+h+size)
	for y := oy0; y < oy1; y++ {
		for x := ox0; x < ox1; x++ {
			localX := float64(x) - x0
			localY := float64(y) - y0
			alpha := cursor.Alpha(shape, localX, localY, w, h, radius)
			if alpha <= 0 {
				continue
			}
			blendPixel(out, x, y, col, alpha*s.Strength)
		}
	}
}

func drawBorder(out *image.RGBA, x0, y0, w, h, radius float64, shape cursor.MaskShape, b project.Border) {
	col := parseHexColor(b.Color, color.RGBA{255, 255, 255, 255})
	col.A = uint8(clamp01(b.Opacity) * 255)
	width := b.Width
	ix0, iy0 := int(x0), int(y0)
	ix1, iy1 := int(x0+w), int(y0+h)
	for y := iy0; y < iy1; y++ {
		for x := ix0; x < ix1; x++ {
			localX := float64(x) - x0
			localY := float64(y) - y0
			outer := cursor.Alpha(shape, localX, localY, w, h, radius)
			inner := cursor.Alpha(shape, localX-width, localY-width, w-2*width, h-2*width, radius-width)
			ring := outer - inner
			if ring <= 0 {
				continue
			}
			blendPixel(out, x, y, col, ring)
		}
	}
}
