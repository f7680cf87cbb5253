package webcam

import (
	"testing"
	"time"
)

func sec(s float64) time.Duration {
	return durationFromSecs(s)
}

func TestDriftTrackerWarmupPassesThrough(t *testing.T) {
	tracker := NewDriftTracker()

	result := tracker.CalculateTimestamp(sec(1.0), sec(1.0))
	if diff := result.Seconds() - 1.0; diff < -0.001 || diff > 0.001 {
		t.Fatalf("got %v, want ~1s", result)
	}
	if _, have := tracker.BaselineOffset(); have {
		t.Fatalf("expected no baseline during warmup")
	}

	result = tracker.CalculateTimestamp(sec(1.5), sec(1.5))
	if diff := result.Seconds() - 1.5; diff < -0.001 || diff > 0.001 {
		t.Fatalf("got %v, want ~1.5s", result)
	}
}

func TestDriftTrackerCapturesBaseline(t *testing.T) {
	tracker := NewDriftTracker()

	tracker.CalculateTimestamp(sec(2.1), sec(2.0))

	offset, have := tracker.BaselineOffset()
	if !have {
		t.Fatalf("expected baseline to be captured after warmup")
	}
	if diff := offset - 0.1; diff < -0.01 || diff > 0.01 {
		t.Fatalf("got offset %v, want ~0.1", offset)
	}
}

func TestDriftTrackerClampsExtremeDrift(t *testing.T) {
	tracker := NewDriftTracker()

	tracker.CalculateTimestamp(sec(2.0), sec(2.0))

	result := tracker.CalculateTimestamp(sec(12.0), sec(10.0))

	maxAllowed := 10.0 + wallClockToleranceSecs
	if result.Seconds() > maxAllowed+0.001 {
		t.Fatalf("got %v, want <= %v", result, maxAllowed)
	}
}
