// Package webcam provides a single-producer/multi-consumer camera feed
// with drift correction against the recording's wall clock.
package webcam

import (
	"time"

	"github.com/screenstudio/core/internal/logging"
)

var log = logging.L("webcam")

const (
	wallClockToleranceSecs = 0.1
	warmupSecs             = 2.0
	minDriftRatio          = 0.95
	maxDriftRatio          = 1.05
)

// DriftTracker corrects webcam hardware timestamps against wall-clock time.
// Camera clocks drift slowly relative to the system clock; this establishes
// a baseline offset after a warmup window and then applies a clamped
// correction ratio to keep the webcam track in sync with the rest of the
// recording.
type DriftTracker struct {
	baselineOffsetSecs    float64
	haveBaseline          bool
	cappedFrameCount      uint64
}

// NewDriftTracker creates a drift tracker with no baseline yet captured.
func NewDriftTracker() *DriftTracker {
	return &DriftTracker{}
}

// CalculateTimestamp returns the corrected duration to use as the frame's
// PTS, given the camera's own hardware-reported duration and the wall
// clock elapsed time since the start of the recording.
func (t *DriftTracker) CalculateTimestamp(cameraDuration, wallClockElapsed time.Duration) time.Duration {
	cameraSecs := cameraDuration.Seconds()
	wallClockSecs := wallClockElapsed.Seconds()
	maxAllowedSecs := wallClockSecs + wallClockToleranceSecs

	if wallClockSecs < warmupSecs || cameraSecs < warmupSecs {
		resultSecs := min(cameraSecs, maxAllowedSecs)
		if resultSecs < cameraSecs {
			t.cappedFrameCount++
		}
		return durationFromSecs(resultSecs)
	}

	if !t.haveBaseline {
		offset := cameraSecs - wallClockSecs
		log.Debug("capturing drift baseline after warmup", "wallSecs", wallClockSecs, "cameraSecs", cameraSecs, "offsetSecs", offset)
		t.baselineOffsetSecs = offset
		t.haveBaseline = true
	}

	adjustedCameraSecs := max(cameraSecs-t.baselineOffsetSecs, 0)

	driftRatio := 1.0
	if adjustedCameraSecs > 0 {
		driftRatio = wallClockSecs / adjustedCameraSecs
	}

	var correctedSecs float64
	if driftRatio < minDriftRatio || driftRatio > maxDriftRatio {
		log.Warn("extreme webcam drift detected", "ratio", driftRatio, "wallSecs", wallClockSecs, "adjustedCameraSecs", adjustedCameraSecs, "baselineSecs", t.baselineOffsetSecs)
		clamped := clamp(driftRatio, minDriftRatio, maxDriftRatio)
		correctedSecs = adjustedCameraSecs * clamped
	} else {
		correctedSecs = adjustedCameraSecs * driftRatio
	}

	finalSecs := min(correctedSecs, maxAllowedSecs)
	if finalSecs < correctedSecs {
		t.cappedFrameCount++
	}
	return durationFromSecs(finalSecs)
}

// CappedFrameCount returns the number of frames whose timestamp was
// clamped to the wall-clock tolerance bound.
func (t *DriftTracker) CappedFrameCount() uint64 {
	return t.cappedFrameCount
}

// BaselineOffset returns the captured camera-vs-wall-clock offset in
// seconds, and false if the tracker is still in its warmup window.
func (t *DriftTracker) BaselineOffset() (float64, bool) {
	return t.baselineOffsetSecs, t.haveBaseline
}

// Reset clears the captured baseline, used after a pause/resume cycle
// where the camera's internal clock may have reset.
func (t *DriftTracker) Reset() {
	t.baselineOffsetSecs = 0
	t.haveBaseline = false
	t.cappedFrameCount = 0
}

func durationFromSecs(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
