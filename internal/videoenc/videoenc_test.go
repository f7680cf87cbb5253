package videoenc

import "testing"

func TestValidateRejectsZeroDimensions(t *testing.T) {
	cfg := Config{Width: 0, Height: 720, OutputPath: "out.mp4"}
	cfg = applyDefaults(cfg)
	if err := validate(cfg); err == nil {
		t.Fatalf("expected error for zero width")
	}
}

func TestValidateRejectsMissingOutputPath(t *testing.T) {
	cfg := applyDefaults(Config{Width: 1920, Height: 1080})
	if err := validate(cfg); err == nil {
		t.Fatalf("expected error for missing output path")
	}
}

func TestValidateRejectsInvalidQuality(t *testing.T) {
	cfg := applyDefaults(Config{Width: 1920, Height: 1080, OutputPath: "out.mp4", Quality: "extreme"})
	if err := validate(cfg); err == nil {
		t.Fatalf("expected error for invalid quality preset")
	}
}

func TestPresetFromQualityBuckets(t *testing.T) {
	cases := map[int]QualityPreset{
		0:   QualityAuto,
		-5:  QualityAuto,
		10:  QualityLow,
		39:  QualityLow,
		40:  QualityMedium,
		74:  QualityMedium,
		75:  QualityHigh,
		100: QualityHigh,
	}
	for in, want := range cases {
		if got := PresetFromQuality(in); got != want {
			t.Fatalf("PresetFromQuality(%d) = %v, want %v", in, got, want)
		}
	}
}

func TestApplyDefaultsFillsZeroValues(t *testing.T) {
	cfg := applyDefaults(Config{Width: 1920, Height: 1080, OutputPath: "out.mp4"})
	if cfg.Quality != QualityAuto {
		t.Fatalf("got quality %v, want QualityAuto", cfg.Quality)
	}
	if cfg.FPS != 30 {
		t.Fatalf("got fps %v, want 30", cfg.FPS)
	}
	if cfg.Bitrate == 0 {
		t.Fatalf("expected nonzero default bitrate")
	}
}

func TestBgraToNV12ProducesExpectedPlaneSizes(t *testing.T) {
	w, h := 4, 4
	bgra := make([]byte, w*h*4)
	for i := range bgra {
		bgra[i] = 128
	}
	nv12 := bgraToNV12(bgra, w, h)
	if len(nv12) != w*h+w*h/2 {
		t.Fatalf("got len %d, want %d", len(nv12), w*h+w*h/2)
	}
}

func TestBgraToNV12GrayInputProducesMidGrayLuma(t *testing.T) {
	w, h := 2, 2
	bgra := make([]byte, w*h*4)
	for i := 0; i < len(bgra); i += 4 {
		bgra[i+0], bgra[i+1], bgra[i+2], bgra[i+3] = 128, 128, 128, 255
	}
	nv12 := bgraToNV12(bgra, w, h)
	y := nv12[0]
	if y < 116 || y > 136 {
		t.Fatalf("got Y=%d for mid-gray input, want near 126", y)
	}
}

func TestNV12BufferPoolReusesOnMatchingDimensions(t *testing.T) {
	buf1 := getNV12Buffer(8, 8)
	putNV12Buffer(buf1)
	buf2 := getNV12Buffer(8, 8)
	if &buf1[0] != &buf2[0] {
		t.Fatalf("expected pooled buffer to be reused for matching dimensions")
	}
}
