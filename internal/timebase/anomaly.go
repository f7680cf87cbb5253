package timebase

import (
	"fmt"
	"time"

	"github.com/screenstudio/core/internal/logging"
)

var anomalyLog = logging.L("timebase")

// AnomalyTracker is a per-stream monotonicity guard independent of a
// Timebase's own max(prev+1,...) clamp: the clamp handles PTS ordering,
// this diagnoses why a source misbehaved. It detects backward jumps
// (<-1ms, compensated by last+1ms, auto-resync after 10 consecutive
// anomalies) and large forward jumps (>5s, logged but accepted) in a
// stream of durations. Used on RecordingSession's audio and webcam
// ingestion paths.
type AnomalyTracker struct {
	streamName string

	anomalyCount          uint64
	consecutiveAnomalies  uint64
	totalBackwardSkewSecs float64
	maxBackwardSkewSecs   float64
	totalForwardSkewSecs  float64
	maxForwardSkewSecs    float64
	lastValidDuration     time.Duration
	haveLastValid         bool
	accumulatedCompSecs   float64
	resyncCount           uint64
}

// NewAnomalyTracker creates an anomaly tracker for the named stream, used
// only in log lines and the diagnostic Summary.
func NewAnomalyTracker(streamName string) *AnomalyTracker {
	return &AnomalyTracker{streamName: streamName}
}

// Process inspects duration against the last accepted value and returns a
// corrected duration if an anomaly was detected, or the input unchanged.
func (t *AnomalyTracker) Process(duration time.Duration) time.Duration {
	if !t.haveLastValid {
		t.lastValidDuration = duration
		t.haveLastValid = true
		return duration
	}

	lastSecs := t.lastValidDuration.Seconds()
	currentSecs := duration.Seconds()
	delta := currentSecs - lastSecs

	if delta < -0.001 {
		t.anomalyCount++
		t.consecutiveAnomalies++
		t.totalBackwardSkewSecs += -delta
		if -delta > t.maxBackwardSkewSecs {
			t.maxBackwardSkewSecs = -delta
		}

		compensated := lastSecs + 0.001
		t.accumulatedCompSecs += compensated - currentSecs

		if t.consecutiveAnomalies > 10 {
			anomalyLog.Warn("stream resyncing after consecutive backward jumps", "stream", t.streamName, "consecutive", t.consecutiveAnomalies)
			t.resyncCount++
			t.consecutiveAnomalies = 0
			t.lastValidDuration = duration
			return duration
		}

		result := time.Duration(compensated * float64(time.Second))
		t.lastValidDuration = result
		return result
	}

	if delta > 5.0 {
		t.anomalyCount++
		t.consecutiveAnomalies++
		t.totalForwardSkewSecs += delta
		if delta > t.maxForwardSkewSecs {
			t.maxForwardSkewSecs = delta
		}

		anomalyLog.Warn("large forward timestamp jump", "stream", t.streamName, "fromSecs", lastSecs, "toSecs", currentSecs, "deltaSecs", delta)

		t.lastValidDuration = duration
		return duration
	}

	t.consecutiveAnomalies = 0
	t.lastValidDuration = duration
	return duration
}

// AnomalyCount returns the total number of anomalies detected.
func (t *AnomalyTracker) AnomalyCount() uint64 {
	return t.anomalyCount
}

// Summary returns a one-line diagnostic string suitable for a log field.
func (t *AnomalyTracker) Summary() string {
	return fmt.Sprintf("[%s] anomalies=%d resyncs=%d backwardSkew=%.3fs (max=%.3fs) forwardSkew=%.3fs (max=%.3fs) compensation=%.3fs",
		t.streamName, t.anomalyCount, t.resyncCount,
		t.totalBackwardSkewSecs, t.maxBackwardSkewSecs,
		t.totalForwardSkewSecs, t.maxForwardSkewSecs,
		t.accumulatedCompSecs)
}
