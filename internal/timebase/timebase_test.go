package timebase

import (
	"testing"
	"time"
)

func TestElapsedTicksMonotonic(t *testing.T) {
	tb := New()
	tb.Start()
	time.Sleep(20 * time.Millisecond)

	elapsed := tb.ElapsedTicks()
	if elapsed <= 0 {
		t.Fatalf("expected positive elapsed ticks, got %d", elapsed)
	}
}

func TestPauseFreezesElapsed(t *testing.T) {
	tb := New()
	tb.Start()
	time.Sleep(10 * time.Millisecond)

	tb.Pause()
	before := tb.ElapsedTicks()
	time.Sleep(30 * time.Millisecond)
	during := tb.ElapsedTicks()

	deltaMs := (during - before).Milliseconds()
	if deltaMs > 1 {
		t.Fatalf("elapsed advanced %dms during pause, want <=1ms", deltaMs)
	}

	tb.Resume()
	time.Sleep(10 * time.Millisecond)
	after := tb.ElapsedTicks()
	if after <= during {
		t.Fatalf("expected elapsed to advance after resume")
	}
}

func TestVideoTicksStrictlyIncreasing(t *testing.T) {
	tb := New()
	tb.Start()

	var last Ticks = -1
	for i := 0; i < 1000; i++ {
		ts := tb.VideoTicks()
		if ts <= last {
			t.Fatalf("video ticks not strictly increasing: %d <= %d", ts, last)
		}
		last = ts
	}
}

func TestAudioTicksDriftFree(t *testing.T) {
	tb := New()
	tb.Start()
	tb.SetAudioSampleRate(48000)

	tb.AdvanceAudioSamples(48000)
	ts := tb.AudioTicks()

	want := Ticks(TicksPerSecond)
	if diff := ts - want; diff < -1 || diff > 1 {
		t.Fatalf("got %d ticks, want %d +/- 1", ts, want)
	}
}

func TestAudioTicksMonotonicAcrossCalls(t *testing.T) {
	tb := New()
	tb.Start()
	tb.SetAudioSampleRate(48000)

	var last Ticks = -1
	for i := 0; i < 10; i++ {
		tb.AdvanceAudioSamples(960) // 20ms buffers
		ts := tb.AudioTicks()
		if ts < last {
			t.Fatalf("audio ticks went backward: %d < %d", ts, last)
		}
		last = ts
	}
}

func TestFromPerfCounterAndSystemTimeAreIdentity(t *testing.T) {
	if got := FromPerfCounter(12345); got != Ticks(12345) {
		t.Fatalf("FromPerfCounter: got %d", got)
	}
	if got := FromSystemTime100ns(67890); got != Ticks(67890) {
		t.Fatalf("FromSystemTime100ns: got %d", got)
	}
}

func TestTicksSecondsAndMilliseconds(t *testing.T) {
	ticks := Ticks(TicksPerSecond * 3 / 2) // 1.5s
	if got := ticks.Seconds(); got < 1.49 || got > 1.51 {
		t.Fatalf("Seconds: got %f", got)
	}
	if got := ticks.Milliseconds(); got != 1500 {
		t.Fatalf("Milliseconds: got %d", got)
	}
}
