package compositor

import (
	"image"

	"github.com/screenstudio/core/internal/cursor"
	"github.com/screenstudio/core/internal/project"
)

// webcamInsetPx keeps corner-anchored webcam bubbles off the output
// edge.
const webcamInsetPx = 24

// webcamPass places the webcam frame per the project's anchor (or
// CustomPosition), masks it per Webcam.Shape, and optionally mirrors
// and shadows it. When cover is true (SceneCameraOnly) the webcam
// fills the whole output frame instead of its configured bubble size.
func (c *Compositor) webcamPass(out *image.RGBA, in Input, cover bool) {
	wc := c.proj.Webcam
	outW, outH := float64(in.OutputW), float64(in.OutputH)

	srcW, srcH := float64(in.Webcam.Bounds().Dx()), float64(in.Webcam.Bounds().Dy())
	if srcW == 0 || srcH == 0 {
		return
	}

	var destW, destH, destX0, destY0 float64
	if cover {
		destW, destH = outW, outH
		destX0, destY0 = 0, 0
	} else {
		side := wc.Size * outH
		destW, destH = side, side
		if destW > outW {
			destW = outW
			destH = outW
		}
		destX0, destY0 = webcamAnchor(wc, outW, outH, destW, destH)
	}

	radius := destW * 0.5
	shape := cursor.MaskCircle
	switch wc.Shape {
	case project.WebcamRectangle:
		shape = cursor.MaskRectangle
		radius = 12
	case project.WebcamSquircle:
		shape = cursor.MaskSquircle
		radius = destW * 0.3
	}

	if wc.Shadow && !cover {
		drawShadow(out, destX0, destY0, destW, destH, radius, shape, project.Shadow{
			Enabled: true, Size: 10, Opacity: 0.4, Strength: 0.6,
		})
	}

	x0, y0 := clampInt(int(destX0), 0, in.OutputW), clampInt(int(destY0), 0, in.OutputH)
	x1, y1 := clampInt(int(destX0+destW), 0, in.OutputW), clampInt(int(destY0+destH), 0, in.OutputH)

	// Crop-to-fill in both cover and bubble modes: a bubble webcam
	// overlay never letterboxes inside its circular/squircle mask, so
	// non-square sources still need the larger of the two ratios.
	baseScale := destW / srcW
	if alt := destH / srcH; alt > baseScale {
		baseScale = alt
	}
	cropW, cropH := destW/baseScale, destH/baseScale
	cropX0 := (srcW - cropW) / 2
	cropY0 := (srcH - cropH) / 2

	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			localX := float64(x) - destX0
			localY := float64(y) - destY0
			alpha := cursor.Alpha(shape, localX, localY, destW, destH, radius)
			if alpha <= 0 {
				continue
			}
			u := localX / destW
			if wc.Mirror {
				u = 1 - u
			}
			v := localY / destH
			su := (cropX0 + u*cropW) / srcW
			sv := (cropY0 + v*cropH) / srcH
			px := bilinearSample(in.Webcam, su, sv)
			blendPixel(out, x, y, px, alpha)
		}
	}
}

func webcamAnchor(wc project.Webcam, outW, outH, destW, destH float64) (float64, float64) {
	switch wc.Position {
	case project.WebcamTopLeft:
		return webcamInsetPx, webcamInsetPx
	case project.WebcamTopRight:
		return outW - destW - webcamInsetPx, webcamInsetPx
	case project.WebcamBottomLeft:
		return webcamInsetPx, outH - destH - webcamInsetPx
	case project.WebcamCustom:
		return wc.CustomPosition.X*outW - destW/2, wc.CustomPosition.Y*outH - destH/2
	default: // WebcamBottomRight and unset
		return outW - destW - webcamInsetPx, outH - destH - webcamInsetPx
	}
}
