package recording

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/screenstudio/core/internal/corerr"
)

// itsscaleTolerance is the minimum deviation from 1.0 worth the extra
// encode pass; camera clocks rarely land exactly on their nominal fps,
// so sub-percent drift is left alone.
const itsscaleTolerance = 0.01

// shouldRemux reports whether itsscale deviates from 1.0 enough, and
// is itself sane enough (positive, finite), to justify a remux pass.
func shouldRemux(itsscale float64) bool {
	if itsscale <= 0 {
		return false
	}
	diff := itsscale - 1
	if diff < 0 {
		diff = -diff
	}
	return diff > itsscaleTolerance
}

// webcamItsscale computes the itsscale factor that corrects path's
// container duration for a camera that ran at observedFPS instead of
// its nominal fps, per the fixed formula nominalFPS/observedFPS.
func webcamItsscale(nominalFPS, observedFPS float64) float64 {
	if observedFPS <= 0 {
		return 0
	}
	if nominalFPS <= 0 {
		nominalFPS = 30
	}
	return nominalFPS / observedFPS
}

// remuxWebcamDuration rewrites path's container timestamps by
// itsscale so its declared duration matches the session's actual
// elapsed wall-clock time, compensating for a webcam whose observed
// capture rate differs from the encoder's nominal fps.
func remuxWebcamDuration(ctx context.Context, path string, itsscale float64) error {
	if !shouldRemux(itsscale) {
		return nil
	}
	tmp := path + ".remux.mp4"
	args := []string{"-y", "-itsscale", fmt.Sprintf("%f", itsscale), "-i", path, "-c", "copy", tmp}
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		os.Remove(tmp)
		return corerr.Wrap(corerr.KindEncoderExitNonZero, "recording.remuxWebcamDuration", fmt.Errorf("%w: %s", err, out))
	}
	if err := os.Rename(tmp, path); err != nil {
		return corerr.Wrap(corerr.KindIO, "recording.remuxWebcamDuration", err)
	}
	return nil
}
