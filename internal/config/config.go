// Package config holds the recording core's runtime configuration: a single
// Config struct loaded from YAML + environment by viper, and a Store that
// lets commands like set_recording_config replace it atomically without a
// process restart.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/spf13/viper"

	"github.com/screenstudio/core/internal/logging"
)

var log = logging.L("config")

// Config holds every tunable of the capture/recording/export core.
type Config struct {
	// Recording defaults
	DefaultFPS          int     `mapstructure:"default_fps"`
	DefaultQuality      int     `mapstructure:"default_quality"` // 0-100
	SystemAudioEnabled  bool    `mapstructure:"system_audio_enabled"`
	MicAudioEnabled     bool    `mapstructure:"mic_audio_enabled"`
	CursorEnabled       bool    `mapstructure:"cursor_enabled"`
	HideDesktopIcons    bool    `mapstructure:"hide_desktop_icons"`
	OutputDir           string  `mapstructure:"output_dir"`
	CountdownSeconds    int     `mapstructure:"countdown_seconds"`
	FragmentingEnabled  bool    `mapstructure:"fragmenting_enabled"`
	FragmentMaxDuration float64 `mapstructure:"fragment_max_duration_secs"`

	// Encoder preference
	PreferHardwareEncoder bool `mapstructure:"prefer_hardware_encoder"`

	// Local preview
	PreviewBindAddr string `mapstructure:"preview_bind_addr"`

	// Logging
	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"`
	LogFile       string `mapstructure:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`

	// Concurrency
	ExporterPipelineDepth int `mapstructure:"exporter_pipeline_depth"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		DefaultFPS:            30,
		DefaultQuality:        80,
		SystemAudioEnabled:    true,
		MicAudioEnabled:       false,
		CursorEnabled:         true,
		HideDesktopIcons:      false,
		OutputDir:             defaultOutputDir(),
		CountdownSeconds:      3,
		FragmentingEnabled:    false,
		FragmentMaxDuration:   0,
		PreferHardwareEncoder: true,
		PreviewBindAddr:       "127.0.0.1:0",
		LogLevel:              "info",
		LogFormat:             "text",
		LogMaxSizeMB:          50,
		LogMaxBackups:         3,
		ExporterPipelineDepth: 4,
	}
}

// Load reads configuration from cfgFile (or the default search paths),
// applying SCREENSTUDIO_* environment overrides, validates it, and returns
// the resolved Config. Fatal validation errors abort loading; warnings are
// logged and the offending field is clamped to a safe value.
func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("screenstudio")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir())
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("SCREENSTUDIO")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	result := cfg.ValidateTiered()
	for _, err := range result.Warnings {
		log.Warn("config validation", "error", err)
	}
	if result.HasFatals() {
		for _, err := range result.Fatals {
			log.Error("config validation fatal", "error", err)
		}
		return nil, fmt.Errorf("config has fatal validation errors: %v", result.Fatals[0])
	}

	return cfg, nil
}

// Store holds a live Config behind a reader-writer lock so set_recording_config
// can replace it atomically while in-flight recordings read a consistent
// snapshot. Write sections are short: a single pointer swap under the lock.
type Store struct {
	mu  sync.RWMutex
	cfg *Config
}

// NewStore wraps cfg in a Store. A nil cfg defaults to Default().
func NewStore(cfg *Config) *Store {
	if cfg == nil {
		cfg = Default()
	}
	return &Store{cfg: cfg}
}

// Get returns the current configuration snapshot (pointer, treat read-only).
func (s *Store) Get() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Replace atomically swaps in a new configuration after validating it.
func (s *Store) Replace(cfg *Config) error {
	result := cfg.ValidateTiered()
	for _, err := range result.Warnings {
		log.Warn("config validation", "error", err)
	}
	if result.HasFatals() {
		return fmt.Errorf("config has fatal validation errors: %v", result.Fatals[0])
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return nil
}

func defaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "ScreenStudio", "Recordings")
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("AppData"), "ScreenStudio")
	case "darwin":
		return "/Library/Application Support/ScreenStudio"
	default:
		return filepath.Join(os.Getenv("HOME"), ".config", "screenstudio")
	}
}
