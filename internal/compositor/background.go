package compositor

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"

	_ "image/jpeg"
	_ "image/png"
)

// backgroundPass fills the output buffer: solid/gradient are computed
// directly; image/wallpaper sources are decoded once per frame call
// (the caller is expected to cache decoded images for export-time
// throughput; the editor's single-frame preview path tolerates it) and
// blurred with a separable box-blur approximation of the spec's
// gaussian, with sigma controlled by Background.Blur.
func (c *Compositor) backgroundPass(out *image.RGBA, in Input) {
	bg := c.proj.Background
	switch bg.Kind {
	case "", "Solid":
		fillSolid(out, parseHexColor(bg.Color, color.RGBA{20, 20, 24, 255}))
	case "Gradient":
		fillGradient(out, parseHexColor(bg.GradientFrom, color.RGBA{10, 10, 14, 255}), parseHexColor(bg.GradientTo, color.RGBA{40, 30, 60, 255}), bg.GradientAngle)
	case "Image", "Wallpaper":
		path := bg.ImagePath
		if bg.Kind == "Wallpaper" {
			path = bg.WallpaperKey
		}
		img := loadBackgroundImage(path)
		if img == nil {
			fillSolid(out, color.RGBA{20, 20, 24, 255})
			return
		}
		scaled := scaleToFill(img, out.Bounds().Dx(), out.Bounds().Dy())
		if bg.Blur > 0 {
			scaled = boxBlurApprox(scaled, bg.Blur)
		}
		drawRGBAAt(out, scaled, 0, 0)
	}
}

func fillSolid(out *image.RGBA, col color.RGBA) {
	for y := out.Bounds().Min.Y; y < out.Bounds().Max.Y; y++ {
		for x := out.Bounds().Min.X; x < out.Bounds().Max.X; x++ {
			out.SetRGBA(x, y, col)
		}
	}
}

func fillGradient(out *image.RGBA, from, to color.RGBA, angleDeg float64) {
	w, h := out.Bounds().Dx(), out.Bounds().Dy()
	rad := angleDeg * math.Pi / 180
	dx, dy := math.Cos(rad), math.Sin(rad)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			u := float64(x)/float64(w)*dx + float64(y)/float64(h)*dy
			u = clamp01(u)
			out.SetRGBA(x, y, lerpColor(from, to, u))
		}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func lerpColor(a, b color.RGBA, t float64) color.RGBA {
	lerp := func(x, y uint8) uint8 { return uint8(float64(x) + (float64(y)-float64(x))*t) }
	return color.RGBA{lerp(a.R, b.R), lerp(a.G, b.G), lerp(a.B, b.B), 255}
}

func parseHexColor(s string, fallback color.RGBA) color.RGBA {
	if len(s) != 7 || s[0] != '#' {
		return fallback
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return fallback
	}
	return color.RGBA{r, g, b, 255}
}

func loadBackgroundImage(path string) *image.RGBA {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	src, _, err := image.Decode(f)
	if err != nil {
		return nil
	}
	b := src.Bounds()
	dst := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(x, y, src.At(x, y))
		}
	}
	return dst
}

// scaleToFill nearest-neighbor scales src to cover w x h (COVER fit).
func scaleToFill(src *image.RGBA, w, h int) *image.RGBA {
	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	if sw == 0 || sh == 0 {
		return image.NewRGBA(image.Rect(0, 0, w, h))
	}
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		sy := sb.Min.Y + y*sh/h
		for x := 0; x < w; x++ {
			sx := sb.Min.X + x*sw/w
			out.SetRGBA(x, y, src.RGBAAt(sx, sy))
		}
	}
	return out
}

// boxBlurApprox approximates a separable gaussian with a few passes of
// a box blur, radius derived from sigma (3x box blur converges to a
// near-gaussian kernel).
func boxBlurApprox(src *image.RGBA, sigma float64) *image.RGBA {
	radius := int(sigma)
	if radius < 1 {
		return src
	}
	img := src
	for pass := 0; pass < 3; pass++ {
		img = boxBlurHorizontal(img, radius)
		img = boxBlurVertical(img, radius)
	}
	return img
}

func boxBlurHorizontal(src *image.RGBA, radius int) *image.RGBA {
	b := src.Bounds()
	out := image.NewRGBA(b)
	w := b.Dx()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var rs, gs, bs, as, n int
			for k := -radius; k <= radius; k++ {
				sx := x + k
				if sx < b.Min.X || sx >= b.Min.X+w {
					continue
				}
				px := src.RGBAAt(sx, y)
				rs += int(px.R)
				gs += int(px.G)
				bs += int(px.B)
				as += int(px.A)
				n++
			}
			if n == 0 {
				n = 1
			}
			out.SetRGBA(x, y, color.RGBA{uint8(rs / n), uint8(gs / n), uint8(bs / n), uint8(as / n)})
		}
	}
	return out
}

func boxBlurVertical(src *image.RGBA, radius int) *image.RGBA {
	b := src.Bounds()
	out := image.NewRGBA(b)
	h := b.Dy()
	for x := b.Min.X; x < b.Max.X; x++ {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			var rs, gs, bs, as, n int
			for k := -radius; k <= radius; k++ {
				sy := y + k
				if sy < b.Min.Y || sy >= b.Min.Y+h {
					continue
				}
				px := src.RGBAAt(x, sy)
				rs += int(px.R)
				gs += int(px.G)
				bs += int(px.B)
				as += int(px.A)
				n++
			}
			if n == 0 {
				n = 1
			}
			out.SetRGBA(x, y, color.RGBA{uint8(rs / n), uint8(gs / n), uint8(bs / n), uint8(as / n)})
		}
	}
	return out
}
