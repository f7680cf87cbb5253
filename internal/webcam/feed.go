package webcam

import (
	"sync"
	"time"

	"github.com/screenstudio/core/internal/corerr"
	"github.com/screenstudio/core/internal/timebase"
)

// Frame is a single webcam frame in the camera's native pixel format.
type Frame struct {
	Data      []byte
	W, H      int
	PTSTicks  int64 // corrected, monotone per subscriber feed
}

// subscriberQueueDepth bounds each subscriber's lossy channel; a camera
// typically runs 30fps and consumers render at display refresh, so a few
// frames of slack absorbs scheduling jitter without unbounded growth.
const subscriberQueueDepth = 4

// Feed is a single camera-capture producer broadcasting frames to N
// subscribers over lossy bounded channels. Each subscriber independently
// decides to drop a frame on lag rather than block the producer.
type Feed struct {
	drift   *DriftTracker
	anomaly *timebase.AnomalyTracker

	mu          sync.RWMutex
	subscribers map[int]chan Frame
	nextSubID   int
	closed      bool

	startWallClock time.Time
}

// NewFeed creates a webcam feed. startWallClock is the recording's start
// instant, used by the drift tracker to compute wall-clock elapsed time.
func NewFeed(startWallClock time.Time) *Feed {
	return &Feed{
		drift:          NewDriftTracker(),
		anomaly:        timebase.NewAnomalyTracker("webcam"),
		subscribers:    make(map[int]chan Frame),
		startWallClock: startWallClock,
	}
}

// Subscribe registers a new consumer and returns a channel of frames plus
// an unsubscribe function. The channel is closed when Close is called.
func (f *Feed) Subscribe() (<-chan Frame, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextSubID
	f.nextSubID++
	ch := make(chan Frame, subscriberQueueDepth)
	f.subscribers[id] = ch

	unsubscribe := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if sub, ok := f.subscribers[id]; ok {
			delete(f.subscribers, id)
			close(sub)
		}
	}
	return ch, unsubscribe
}

// Publish applies drift correction and anomaly detection to a raw
// hardware-timestamped frame, then fans it out to every subscriber,
// dropping the frame for any subscriber whose channel is full.
func (f *Feed) Publish(data []byte, w, h int, cameraDuration time.Duration) error {
	f.mu.RLock()
	if f.closed {
		f.mu.RUnlock()
		return corerr.New(corerr.KindInvalidState, "webcam.Publish", "feed is closed")
	}
	f.mu.RUnlock()

	wallElapsed := time.Since(f.startWallClock)
	corrected := f.drift.CalculateTimestamp(cameraDuration, wallElapsed)
	corrected = f.anomaly.Process(corrected)

	frame := Frame{
		Data:     data,
		W:        w,
		H:        h,
		PTSTicks: corrected.Nanoseconds() / 100,
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, ch := range f.subscribers {
		select {
		case ch <- frame:
		default:
			// Lagging subscriber; drop rather than block the producer.
		}
	}
	return nil
}

// Close shuts down the feed and closes every subscriber channel.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for id, ch := range f.subscribers {
		delete(f.subscribers, id)
		close(ch)
	}
}

// CappedFrameCount reports how many frames had their PTS clamped by the
// drift tracker's wall-clock tolerance bound.
func (f *Feed) CappedFrameCount() uint64 {
	return f.drift.CappedFrameCount()
}

// AnomalyCount reports how many timestamp anomalies the feed's anomaly
// tracker has detected.
func (f *Feed) AnomalyCount() uint64 {
	return f.anomaly.AnomalyCount()
}
