// Package gpu wraps a GPU device+queue behind the Renderer interface.
// Each New call creates its own device; the package does not share one
// device between the editor, preview, and exporter, and cmd/screenstudio
// creates a separate Renderer per editor instance and per export.
package gpu

import (
	"github.com/screenstudio/core/internal/corerr"
	"github.com/screenstudio/core/internal/logging"
)

var log = logging.L("gpu")

// Texture is an opaque GPU-resident (or, on the CPU fallback, host-
// resident) buffer created by a Renderer.
type Texture struct {
	handle uintptr
	W, H   int
	// cpuData backs the CPU fallback realization; nil when GPU-resident.
	cpuData []byte
}

// Renderer owns the GPU device, creates/uploads/reads back textures,
// and compiles shaders. Preferred color format is linear-sRGB.
type Renderer interface {
	TextureFromBGRA(data []byte, w, h int) (Texture, error)
	CreateOutputTexture(w, h int) (Texture, error)
	ReadTexture(t Texture) ([]byte, error)
	CreateShader(wgsl string) (ShaderHandle, error)
	Close() error
}

// ShaderHandle identifies a compiled shader program.
type ShaderHandle struct {
	id uintptr
}

// New creates the platform-preferred Renderer, falling back to a CPU
// buffer-only realization where no GPU device can be created.
func New() (Renderer, error) {
	r, err := newPlatformRenderer()
	if err != nil {
		log.Warn("platform GPU renderer unavailable, using CPU fallback", "error", err)
		return newCPURenderer(), nil
	}
	return r, nil
}

var errShaderUnsupported = corerr.New(corerr.KindShaderCompile, "gpu.CreateShader", "shader compilation unsupported on this renderer")
