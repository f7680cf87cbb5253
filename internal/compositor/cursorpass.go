package compositor

import (
	"encoding/base64"
	"image"
	"image/color"
	"math"

	"github.com/screenstudio/core/internal/cursor"
)

// clickEffectDurationMs is how long the click ripple stays visible
// after a button-down event.
const clickEffectDurationMs = 300

// cursorPass draws the interpolated cursor position using the
// recorded content-addressed bitmap, mapped through the same zoomed
// screen placement the screen pass uses, plus an optional fading click
// ripple.
func (c *Compositor) cursorPass(out *image.RGBA, in Input) {
	if len(c.shapes) == 0 && len(c.clicks) == 0 {
		return
	}

	zs := c.zoomIt.Sample(in.TMs)
	destX0, destY0, destW, destH, ok := c.screenPlacement(in, zs)
	if !ok {
		return
	}

	x, y := c.cursorIt.Sample(in.TMs)
	cx := destX0 + x*destW
	cy := destY0 + y*destH

	shapeID := c.activeShapeAt(in.TMs)
	bmp := c.decodeShape(shapeID)
	if bmp != nil {
		shape := c.shapes[shapeID]
		scale := c.proj.Cursor.Size
		if scale <= 0 {
			scale = 1
		}
		hx := float64(shape.HotspotX) * scale
		hy := float64(shape.HotspotY) * scale
		drawCursorBitmap(out, bmp, cx-hx, cy-hy, scale)
	} else {
		drawLegacyCursorSprite(out, int(cx), int(cy))
	}

	if c.proj.Cursor.ClickEffectEnabled {
		drawClickEffect(out, cx, cy, c.clicks, in.TMs)
	}
}

// activeShapeAt returns the shape_id in effect at tMs: the most recent
// click/button event at or before tMs, or "" if none has occurred yet.
func (c *Compositor) activeShapeAt(tMs int64) string {
	id := ""
	for _, e := range c.clicks {
		if e.TMs > tMs {
			break
		}
		id = e.ShapeID
	}
	return id
}

func (c *Compositor) decodeShape(id string) *image.RGBA {
	if id == "" {
		return nil
	}
	if img, ok := c.decoded[id]; ok {
		return img
	}
	shape, ok := c.shapes[id]
	if !ok || shape.W == 0 || shape.H == 0 {
		return nil
	}
	raw, err := base64.StdEncoding.DecodeString(shape.DataB64)
	if err != nil || len(raw) != shape.W*shape.H*4 {
		return nil
	}
	img := &image.RGBA{Pix: raw, Stride: shape.W * 4, Rect: image.Rect(0, 0, shape.W, shape.H)}
	c.decoded[id] = img
	return img
}

// drawCursorBitmap alpha-blends a cursor sprite at (x, y) in output
// space, nearest-neighbor scaled by cursorSize.
func drawCursorBitmap(out *image.RGBA, bmp *image.RGBA, x, y, scale float64) {
	b := bmp.Bounds()
	w, h := int(float64(b.Dx())*scale), int(float64(b.Dy())*scale)
	if w <= 0 || h <= 0 {
		return
	}
	for dy := 0; dy < h; dy++ {
		sy := b.Min.Y + dy*b.Dy()/h
		for dx := 0; dx < w; dx++ {
			sx := b.Min.X + dx*b.Dx()/w
			px := bmp.RGBAAt(sx, sy)
			if px.A == 0 {
				continue
			}
			blendPixel(out, int(x)+dx, int(y)+dy, px, float64(px.A)/255)
		}
	}
}

// drawClickEffect draws a fading ring centered on the cursor for
// clickEffectDurationMs after the most recent button-down event.
func drawClickEffect(out *image.RGBA, cx, cy float64, clicks []cursor.Event, tMs int64) {
	var downAt int64 = -1
	for _, e := range clicks {
		if e.TMs > tMs {
			break
		}
		if e.Kind == cursor.EventDown {
			downAt = e.TMs
		}
	}
	if downAt < 0 {
		return
	}
	age := tMs - downAt
	if age < 0 || age > clickEffectDurationMs {
		return
	}
	t := float64(age) / clickEffectDurationMs
	radius := 10 + t*20
	ringWidth := 2.0
	alpha := 1 - t
	col := color.RGBA{255, 255, 255, 255}
	for dy := -int(radius) - 2; dy <= int(radius)+2; dy++ {
		for dx := -int(radius) - 2; dx <= int(radius)+2; dx++ {
			d := math.Hypot(float64(dx), float64(dy))
			if d < radius-ringWidth || d > radius+ringWidth {
				continue
			}
			blendPixel(out, int(cx)+dx, int(cy)+dy, col, alpha*0.6)
		}
	}
}
