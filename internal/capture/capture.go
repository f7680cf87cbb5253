// Package capture provides a platform-abstracted producer of BGRA frames
// from a display, window, or region, at a requested frame rate, with
// optional cursor compositing.
package capture

import (
	"github.com/screenstudio/core/internal/corerr"
	"github.com/screenstudio/core/internal/logging"
)

var log = logging.L("capture")

// TargetKind selects what a Backend captures.
type TargetKind int

const (
	TargetDisplay TargetKind = iota
	TargetWindow
	TargetRegion
)

// Target describes the capture source.
type Target struct {
	Kind         TargetKind
	DisplayIndex int
	WindowID     uintptr
	Region       Rect // only meaningful when Kind == TargetRegion
}

// Rect is a capture-space rectangle in Screen pixels.
type Rect struct {
	X, Y, W, H int
}

// Frame is a single captured BGRA8 frame, no row padding. Owned by the
// producer until handed to the encoder; never shared mutably.
type Frame struct {
	Data     []byte
	W, H     int
	TSTicks  int64
	Index    uint64
}

// Options configures a capture session.
type Options struct {
	Target     Target
	FPS        int
	Cursor     bool
	DrawBorder bool
}

// Backend is a platform-abstracted producer of capture frames. The
// implementation negotiates the platform's preferred zero-copy capture
// API, falling back to a slower duplication/blit API if the GPU device
// is lost mid-capture.
type Backend interface {
	// Frames returns the channel frames are delivered on. The channel is
	// closed when the backend stops (either via Close or an unrecoverable
	// error).
	Frames() <-chan Frame

	// Start begins capturing. Must be called once.
	Start() error

	// SwitchToFallback forces a fallback to the slower capture path, in
	// response to a GPU-device-lost signal. Frame indices remain monotone
	// across the switch.
	SwitchToFallback() error

	// Close releases any resources held by the backend.
	Close() error
}

// Queue is a bounded single-producer/single-consumer queue that drops the
// oldest frame when full, so a slow consumer never blocks the capture
// producer.
type Queue struct {
	frames chan Frame
}

// DefaultQueueDepth matches the spec's bounded SPSC queue size.
const DefaultQueueDepth = 4

// NewQueue creates a drop-oldest SPSC queue of the given depth.
func NewQueue(depth int) *Queue {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	return &Queue{frames: make(chan Frame, depth)}
}

// Push enqueues a frame, dropping the oldest queued frame if full.
func (q *Queue) Push(f Frame) {
	for {
		select {
		case q.frames <- f:
			return
		default:
			select {
			case <-q.frames:
			default:
			}
		}
	}
}

// Chan exposes the underlying channel for consumption.
func (q *Queue) Chan() <-chan Frame {
	return q.frames
}

// Close closes the underlying channel. Only the producer should call this.
func (q *Queue) Close() {
	close(q.frames)
}

// NewBackend constructs the platform-appropriate backend for opts.
func NewBackend(opts Options) (Backend, error) {
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	b, err := newPlatformBackend(opts)
	if err != nil {
		return nil, corerr.Wrap(corerr.KindCaptureUnavailable, "capture.NewBackend", err)
	}
	return b, nil
}
