package config

import (
	"fmt"
	"strings"
)

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"warning": true,
	"error": true,
}

// ValidationResult separates fatal errors (block startup) from warnings
// (logged, offending field clamped to a safe value, startup continues).
type ValidationResult struct {
	Fatals   []error
	Warnings []error
}

// HasFatals reports whether any fatal validation error was recorded.
func (r ValidationResult) HasFatals() bool {
	return len(r.Fatals) > 0
}

// ValidateTiered checks the config for invalid values. Out-of-range fps,
// quality, countdown and pipeline depth are clamped, and an unknown log
// level or format is reset to its default, each reported as a warning;
// an empty output_dir is fatal. The preview bind address is not checked.
func (c *Config) ValidateTiered() ValidationResult {
	var r ValidationResult

	if c.DefaultFPS < 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("default_fps %d is below minimum 1, clamping", c.DefaultFPS))
		c.DefaultFPS = 1
	} else if c.DefaultFPS > 240 {
		r.Warnings = append(r.Warnings, fmt.Errorf("default_fps %d exceeds maximum 240, clamping", c.DefaultFPS))
		c.DefaultFPS = 240
	}

	if c.DefaultQuality < 0 {
		r.Warnings = append(r.Warnings, fmt.Errorf("default_quality %d is below minimum 0, clamping", c.DefaultQuality))
		c.DefaultQuality = 0
	} else if c.DefaultQuality > 100 {
		r.Warnings = append(r.Warnings, fmt.Errorf("default_quality %d exceeds maximum 100, clamping", c.DefaultQuality))
		c.DefaultQuality = 100
	}

	if c.CountdownSeconds < 0 {
		r.Warnings = append(r.Warnings, fmt.Errorf("countdown_seconds %d is negative, clamping to 0", c.CountdownSeconds))
		c.CountdownSeconds = 0
	} else if c.CountdownSeconds > 30 {
		r.Warnings = append(r.Warnings, fmt.Errorf("countdown_seconds %d exceeds maximum 30, clamping", c.CountdownSeconds))
		c.CountdownSeconds = 30
	}

	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		r.Warnings = append(r.Warnings, fmt.Errorf("log_level %q is not valid (use debug, info, warn, error), defaulting to info", c.LogLevel))
		c.LogLevel = "info"
	}

	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		r.Warnings = append(r.Warnings, fmt.Errorf("log_format %q is not valid (use text or json), defaulting to text", c.LogFormat))
		c.LogFormat = "text"
	}

	if c.OutputDir == "" {
		r.Fatals = append(r.Fatals, fmt.Errorf("output_dir must not be empty"))
	}

	if c.ExporterPipelineDepth < 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("exporter_pipeline_depth %d is below minimum 1, clamping", c.ExporterPipelineDepth))
		c.ExporterPipelineDepth = 1
	} else if c.ExporterPipelineDepth > 64 {
		r.Warnings = append(r.Warnings, fmt.Errorf("exporter_pipeline_depth %d exceeds maximum 64, clamping", c.ExporterPipelineDepth))
		c.ExporterPipelineDepth = 64
	}

	return r
}
