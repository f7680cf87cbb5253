// Package audio provides two independent producers — loopback system
// audio and microphone — emitting interleaved float32 samples at the
// device's native sample rate and channel count.
package audio

import (
	"github.com/screenstudio/core/internal/logging"
)

var log = logging.L("audio")

// Frame is a buffer of interleaved float32 samples.
type Frame struct {
	Samples          []float32
	Channels         int
	SampleRate       int
	FirstSampleTicks int64
}

// Capture is a single audio producer: loopback (system output) or
// microphone (input endpoint).
type Capture interface {
	// Start begins capturing. callback is invoked on the device thread for
	// each buffer; it must never panic or block for long, and any error
	// inside the callback is logged and swallowed, never propagated,
	// since a panic here would kill the audio device thread.
	Start(callback func(Frame)) error
	// Stop stops capture and releases device resources.
	Stop()
}

// Kind selects which endpoint a Capture attaches to.
type Kind int

const (
	KindLoopback Kind = iota
	KindMicrophone
)

// New creates a platform-appropriate Capture for the given endpoint kind.
func New(kind Kind) (Capture, error) {
	return newPlatformCapture(kind)
}

// mixGainDivisor and clip bounds implement the spec's additive mixing of
// two sources for a single track.
const mixGainDivisor = 0.5

// Mix additively combines two equal-length interleaved buffers with a
// constant-gain divisor and hard-clips the result to [-1, 1].
func Mix(a, b []float32) []float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := (a[i] + b[i]) * mixGainDivisor
		if v > 1.0 {
			v = 1.0
		} else if v < -1.0 {
			v = -1.0
		}
		out[i] = v
	}
	return out
}

// safeCallback wraps a user callback so a panic inside it is logged and
// swallowed rather than propagating into the audio device thread.
func safeCallback(name string, callback func(Frame), frame Frame) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("audio callback panicked, dropping buffer", "source", name, "panic", r)
		}
	}()
	callback(frame)
}
