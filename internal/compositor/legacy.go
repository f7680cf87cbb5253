package compositor

import "image"

// legacyCursorSprite is a 12x20 standard arrow used as the cursor
// pass's fallback when no recorded shape bitmap is available for the
// active shape_id — e.g. the live preview composited before a
// recording has captured its first cursor snapshot. 0=transparent,
// 1=black border, 2=white fill.
var legacyCursorSprite = [20][12]byte{
	{1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
	{1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
	{1, 2, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0},
	{1, 2, 2, 1, 0, 0, 0, 0, 0, 0, 0, 0},
	{1, 2, 2, 2, 1, 0, 0, 0, 0, 0, 0, 0},
	{1, 2, 2, 2, 2, 1, 0, 0, 0, 0, 0, 0},
	{1, 2, 2, 2, 2, 2, 1, 0, 0, 0, 0, 0},
	{1, 2, 2, 2, 2, 2, 2, 1, 0, 0, 0, 0},
	{1, 2, 2, 2, 2, 2, 2, 2, 1, 0, 0, 0},
	{1, 2, 2, 2, 2, 2, 2, 2, 2, 1, 0, 0},
	{1, 2, 2, 2, 2, 2, 2, 2, 2, 2, 1, 0},
	{1, 2, 2, 2, 2, 2, 2, 1, 1, 1, 1, 1},
	{1, 2, 2, 2, 1, 2, 2, 1, 0, 0, 0, 0},
	{1, 2, 2, 1, 0, 1, 2, 2, 1, 0, 0, 0},
	{1, 2, 1, 0, 0, 1, 2, 2, 1, 0, 0, 0},
	{1, 1, 0, 0, 0, 0, 1, 2, 2, 1, 0, 0},
	{1, 0, 0, 0, 0, 0, 1, 2, 2, 1, 0, 0},
	{0, 0, 0, 0, 0, 0, 0, 1, 2, 2, 1, 0},
	{0, 0, 0, 0, 0, 0, 0, 1, 2, 2, 1, 0},
	{0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 0, 0},
}

// drawLegacyCursorSprite draws the fallback arrow with its top-left
// corner (the hotspot, for this sprite) at (cx, cy).
func drawLegacyCursorSprite(img *image.RGBA, cx, cy int) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pix := img.Pix
	stride := img.Stride

	for dy := 0; dy < 20; dy++ {
		py := cy + dy
		if py < 0 || py >= h {
			continue
		}
		for dx := 0; dx < 12; dx++ {
			px := cx + dx
			if px < 0 || px >= w {
				continue
			}
			v := legacyCursorSprite[dy][dx]
			if v == 0 {
				continue
			}
			off := py*stride + px*4
			if v == 1 {
				pix[off+0], pix[off+1], pix[off+2], pix[off+3] = 0, 0, 0, 255
			} else {
				pix[off+0], pix[off+1], pix[off+2], pix[off+3] = 255, 255, 255, 255
			}
		}
	}
}
