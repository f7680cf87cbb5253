// Package timebase provides the single source of truth for synchronized
// timestamps across capture, audio, and webcam producers. All timestamps
// are ticks: 64-bit signed integers in 100ns units.
package timebase

import (
	"sync/atomic"
	"time"
)

// TicksPerSecond is the number of ticks (100ns units) in one second.
const TicksPerSecond = 10_000_000

// Ticks is a 100ns-unit timestamp, monotone within a Timebase.
type Ticks int64

// Timebase is lock-free and safe for concurrent use by multiple producer
// goroutines (capture, audio, webcam) and reader goroutines.
type Timebase struct {
	startInstant time.Time

	started atomic.Bool
	paused  atomic.Bool

	pauseDurationTicks atomic.Int64
	pauseStartTicks    atomic.Int64

	audioSampleCount atomic.Uint64
	audioSampleRate  atomic.Uint64

	lastVideoTicks atomic.Int64
	lastAudioTicks atomic.Int64
}

// New creates a Timebase, not yet started.
func New() *Timebase {
	tb := &Timebase{startInstant: time.Now()}
	tb.audioSampleRate.Store(48000)
	return tb
}

// Start marks the clock as running. elapsed_ticks begins advancing from
// the instant Start is called.
func (t *Timebase) Start() {
	t.startInstant = time.Now()
	t.started.Store(true)
}

// SetAudioSampleRate configures the denominator used by AudioTicks.
func (t *Timebase) SetAudioSampleRate(rate uint32) {
	t.audioSampleRate.Store(uint64(rate))
}

// Pause freezes elapsed-ticks accumulation. Idempotent.
func (t *Timebase) Pause() {
	if t.paused.CompareAndSwap(false, true) {
		t.pauseStartTicks.Store(int64(t.rawElapsed()))
	}
}

// Resume unfreezes elapsed-ticks accumulation. Idempotent.
func (t *Timebase) Resume() {
	if t.paused.CompareAndSwap(true, false) {
		pauseStart := t.pauseStartTicks.Load()
		now := int64(t.rawElapsed())
		duration := now - pauseStart
		if duration < 0 {
			duration = 0
		}
		t.pauseDurationTicks.Add(duration)
		t.pauseStartTicks.Store(0)
	}
}

// IsPaused reports whether the clock is currently paused.
func (t *Timebase) IsPaused() bool {
	return t.paused.Load()
}

// rawElapsed returns wall-clock ticks since Start, ignoring pauses.
func (t *Timebase) rawElapsed() Ticks {
	return Ticks(time.Since(t.startInstant) / 100)
}

// ElapsedTicks returns ticks since Start, excluding paused intervals.
// Monotonically non-decreasing.
func (t *Timebase) ElapsedTicks() Ticks {
	total := int64(t.rawElapsed())
	pauseDuration := t.pauseDurationTicks.Load()

	var currentPause int64
	if t.paused.Load() {
		pauseStart := t.pauseStartTicks.Load()
		currentPause = total - pauseStart
		if currentPause < 0 {
			currentPause = 0
		}
	}

	elapsed := total - pauseDuration - currentPause
	if elapsed < 0 {
		elapsed = 0
	}
	return Ticks(elapsed)
}

// VideoTicks returns a strictly monotone timestamp for the next video
// frame, derived from wall-clock elapsed time.
func (t *Timebase) VideoTicks() Ticks {
	ts := int64(t.ElapsedTicks())
	for {
		last := t.lastVideoTicks.Load()
		next := ts
		if next <= last {
			next = last + 1
		}
		if t.lastVideoTicks.CompareAndSwap(last, next) {
			return Ticks(next)
		}
	}
}

// AudioTicks returns a strictly monotone timestamp derived from the
// number of samples sent so far, not wall-clock time, so repeated
// buffers of the same size never jitter.
func (t *Timebase) AudioTicks() Ticks {
	samples := t.audioSampleCount.Load()
	rate := t.audioSampleRate.Load()
	if rate == 0 {
		rate = 48000
	}
	ts := int64(samples * TicksPerSecond / rate)
	for {
		last := t.lastAudioTicks.Load()
		next := ts
		if next <= last {
			next = last + 1
		}
		if t.lastAudioTicks.CompareAndSwap(last, next) {
			return Ticks(next)
		}
	}
}

// AdvanceAudioSamples records that samples more frames have been sent to
// the encoder. Call once per audio buffer, after AudioTicks.
func (t *Timebase) AdvanceAudioSamples(samples uint64) {
	t.audioSampleCount.Add(samples)
}

// AudioSampleCount returns the running total of samples sent.
func (t *Timebase) AudioSampleCount() uint64 {
	return t.audioSampleCount.Load()
}

// ResetAudioSamples zeroes the sample counter, used when resynchronizing
// after a pause/resume cycle changes the audio device's stream position.
func (t *Timebase) ResetAudioSamples() {
	t.audioSampleCount.Store(0)
}

// FromPerfCounter converts a QueryPerformanceCounter value that the
// caller has already normalized to 100ns units into Ticks. The value is
// returned unchanged; no Timebase start offset is subtracted.
func FromPerfCounter(counterTicks100ns int64) Ticks {
	return Ticks(counterTicks100ns)
}

// FromSystemTime100ns converts a Windows FILETIME-style 100ns timestamp
// into Ticks. FILETIME and Ticks share the same unit by construction.
func FromSystemTime100ns(systemTime100ns int64) Ticks {
	return Ticks(systemTime100ns)
}

// Seconds converts Ticks to a float64 second count, for UI display only.
func (t Ticks) Seconds() float64 {
	return float64(t) / TicksPerSecond
}

// Milliseconds converts Ticks to a millisecond count, truncated.
func (t Ticks) Milliseconds() int64 {
	return int64(t) / (TicksPerSecond / 1000)
}
