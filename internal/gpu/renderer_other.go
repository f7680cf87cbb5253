//go:build !windows

package gpu

import "github.com/screenstudio/core/internal/corerr"

func newPlatformRenderer() (Renderer, error) {
	return nil, corerr.New(corerr.KindGpuInit, "gpu.newPlatformRenderer", "no GPU renderer for this platform")
}
