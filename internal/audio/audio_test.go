package audio

import "testing"

func TestMixAveragesWithGainDivisor(t *testing.T) {
	a := []float32{0.4, -0.4}
	b := []float32{0.2, -0.2}
	out := Mix(a, b)
	want := []float32{0.3, -0.3}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("Mix[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestMixHardClipsAboveOne(t *testing.T) {
	a := []float32{1.0, -1.0}
	b := []float32{1.0, -1.0}
	out := Mix(a, b)
	if out[0] != 1.0 {
		t.Fatalf("Mix[0] = %v, want clipped to 1.0", out[0])
	}
	if out[1] != -1.0 {
		t.Fatalf("Mix[1] = %v, want clipped to -1.0", out[1])
	}
}

func TestMixTruncatesToShorterBuffer(t *testing.T) {
	a := []float32{0.1, 0.2, 0.3}
	b := []float32{0.1}
	out := Mix(a, b)
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1", len(out))
	}
}

func TestSafeCallbackSwallowsPanic(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("panic escaped safeCallback: %v", r)
		}
	}()
	safeCallback("test", func(Frame) {
		panic("boom")
	}, Frame{})
}

func TestSafeCallbackInvokesNormally(t *testing.T) {
	called := false
	safeCallback("test", func(f Frame) {
		called = true
		if f.Channels != 2 {
			t.Fatalf("Channels = %d, want 2", f.Channels)
		}
	}, Frame{Channels: 2})
	if !called {
		t.Fatalf("callback was not invoked")
	}
}
