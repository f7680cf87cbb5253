package config

import (
	"fmt"
	"testing"
)

func TestValidateTieredLowFPSClampedAsWarning(t *testing.T) {
	cfg := Default()
	cfg.DefaultFPS = 0

	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("clamped fps should be a warning, not fatal: %v", result.Fatals)
	}
	if cfg.DefaultFPS != 1 {
		t.Fatalf("expected fps clamped to 1, got %d", cfg.DefaultFPS)
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected a warning for out-of-range fps")
	}
}

func TestValidateTieredHighFPSClampedAsWarning(t *testing.T) {
	cfg := Default()
	cfg.DefaultFPS = 1000

	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("clamped fps should be a warning, not fatal: %v", result.Fatals)
	}
	if cfg.DefaultFPS != 240 {
		t.Fatalf("expected fps clamped to 240, got %d", cfg.DefaultFPS)
	}
}

func TestValidateTieredQualityClamping(t *testing.T) {
	cfg := Default()
	cfg.DefaultQuality = -5

	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("clamped quality should be a warning: %v", result.Fatals)
	}
	if cfg.DefaultQuality != 0 {
		t.Fatalf("expected quality clamped to 0, got %d", cfg.DefaultQuality)
	}
}

func TestValidateTieredEmptyOutputDirIsFatal(t *testing.T) {
	cfg := Default()
	cfg.OutputDir = ""

	result := cfg.ValidateTiered()
	if !result.HasFatals() {
		t.Fatal("expected empty output_dir to be fatal")
	}
}

func TestValidateTieredUnknownLogLevelIsWarningAndDefaults(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "verbose"

	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("unknown log level should be a warning: %v", result.Fatals)
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected a warning for unknown log level")
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("expected log level defaulted to info, got %q", cfg.LogLevel)
	}
}

func TestValidateTieredInvalidLogFormatIsWarning(t *testing.T) {
	cfg := Default()
	cfg.LogFormat = "xml"

	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("invalid log format should be a warning: %v", result.Fatals)
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected a warning for invalid log format")
	}
}

func TestValidateTieredPipelineDepthClamping(t *testing.T) {
	cfg := Default()
	cfg.ExporterPipelineDepth = 0

	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("clamped pipeline depth should be a warning: %v", result.Fatals)
	}
	if cfg.ExporterPipelineDepth != 1 {
		t.Fatalf("expected pipeline depth clamped to 1, got %d", cfg.ExporterPipelineDepth)
	}
}

func TestHasFatals(t *testing.T) {
	var r ValidationResult
	if r.HasFatals() {
		t.Fatal("HasFatals() on empty result should be false")
	}
	r.Fatals = append(r.Fatals, fmt.Errorf("test error"))
	if !r.HasFatals() {
		t.Fatal("HasFatals() should be true with a fatal error")
	}
}

func TestValidateTieredDefaultConfigIsClean(t *testing.T) {
	cfg := Default()

	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("default config has fatals: %v", result.Fatals)
	}
	if len(result.Warnings) > 0 {
		t.Fatalf("default config has warnings: %v", result.Warnings)
	}
}

func TestStoreReplaceRejectsFatalConfig(t *testing.T) {
	store := NewStore(Default())
	bad := Default()
	bad.OutputDir = ""

	if err := store.Replace(bad); err == nil {
		t.Fatal("expected Replace to reject a config with a fatal validation error")
	}
	if store.Get().OutputDir == "" {
		t.Fatal("Store should keep the last valid config after a rejected Replace")
	}
}

func TestStoreReplaceAppliesValidConfig(t *testing.T) {
	store := NewStore(Default())
	updated := Default()
	updated.DefaultFPS = 60

	if err := store.Replace(updated); err != nil {
		t.Fatalf("unexpected error replacing valid config: %v", err)
	}
	if store.Get().DefaultFPS != 60 {
		t.Fatalf("expected store to reflect replaced config, got fps=%d", store.Get().DefaultFPS)
	}
}
