//go:build !windows

package capture

import (
	"github.com/screenstudio/core/internal/corerr"
)

// newPlatformBackend returns Unavailable on platforms without a capture
// realization. Per the spec, only the Windows backend is required; the
// interface stays platform-agnostic so a future backend slots in here.
func newPlatformBackend(opts Options) (Backend, error) {
	return nil, corerr.New(corerr.KindCaptureUnavailable, "capture.newPlatformBackend", "no capture backend for this platform")
}
