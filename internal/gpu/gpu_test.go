package gpu

import "testing"

func TestCPURendererRoundTripsBGRAToRGBA(t *testing.T) {
	r := newCPURenderer()
	bgra := []byte{10, 20, 30, 255}
	tex, err := r.TextureFromBGRA(bgra, 1, 1)
	if err != nil {
		t.Fatalf("TextureFromBGRA: %v", err)
	}
	data, err := r.ReadTexture(tex)
	if err != nil {
		t.Fatalf("ReadTexture: %v", err)
	}
	want := []byte{30, 20, 10, 255} // BGRA -> RGBA swap
	for i := range want {
		if data[i] != want[i] {
			t.Fatalf("got %v, want %v", data, want)
		}
	}
}

func TestCPURendererCreateOutputTextureIsZeroed(t *testing.T) {
	r := newCPURenderer()
	tex, err := r.CreateOutputTexture(4, 4)
	if err != nil {
		t.Fatalf("CreateOutputTexture: %v", err)
	}
	data, _ := r.ReadTexture(tex)
	if len(data) != 4*4*4 {
		t.Fatalf("got len %d, want %d", len(data), 4*4*4)
	}
	for _, b := range data {
		if b != 0 {
			t.Fatalf("expected zeroed output texture")
		}
	}
}

func TestCPURendererCreateShaderUnsupported(t *testing.T) {
	r := newCPURenderer()
	if _, err := r.CreateShader("fake wgsl"); err == nil {
		t.Fatalf("expected error: CPU renderer does not support shaders")
	}
}

func TestNewFallsBackToCPURendererWhenPlatformUnavailable(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if r == nil {
		t.Fatalf("expected a non-nil renderer")
	}
}
