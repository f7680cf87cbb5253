// Package videoenc selects and drives a hardware-or-software H.264
// encoder backend, converting BGRA frames to the backend's native
// pixel format.
package videoenc

import (
	"fmt"
	"sync"

	"github.com/screenstudio/core/internal/corerr"
	"github.com/screenstudio/core/internal/logging"
)

var log = logging.L("videoenc")

type Codec string

const (
	CodecH264 Codec = "h264"
)

type QualityPreset string

const (
	QualityAuto   QualityPreset = "auto"
	QualityLow    QualityPreset = "low"
	QualityMedium QualityPreset = "medium"
	QualityHigh   QualityPreset = "high"
)

func (q QualityPreset) valid() bool {
	switch q {
	case QualityAuto, QualityLow, QualityMedium, QualityHigh:
		return true
	default:
		return false
	}
}

// PresetFromQuality maps the 0-100 quality dial used across the command
// surface onto the encoder's coarse presets.
func PresetFromQuality(q int) QualityPreset {
	switch {
	case q <= 0:
		return QualityAuto
	case q < 40:
		return QualityLow
	case q < 75:
		return QualityMedium
	default:
		return QualityHigh
	}
}

// Config describes the requested encoding parameters for screen.mp4 /
// webcam.mp4: hardware H.264, yuv420p, faststart, GOP == fps.
type Config struct {
	Width          int
	Height         int
	FPS            int
	Quality        QualityPreset
	Bitrate        int
	PreferHardware bool
	OutputPath     string
}

func applyDefaults(cfg Config) Config {
	if cfg.Quality == "" {
		cfg.Quality = QualityAuto
	}
	if cfg.Bitrate == 0 {
		cfg.Bitrate = 8_000_000
	}
	if cfg.FPS == 0 {
		cfg.FPS = 30
	}
	return cfg
}

func validate(cfg Config) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return corerr.New(corerr.KindInvalidState, "videoenc.validate", "width/height must be positive")
	}
	if !cfg.Quality.valid() {
		return corerr.New(corerr.KindInvalidState, "videoenc.validate", fmt.Sprintf("invalid quality preset %q", cfg.Quality))
	}
	if cfg.OutputPath == "" {
		return corerr.New(corerr.KindInvalidState, "videoenc.validate", "output path required")
	}
	return nil
}

// backend is the interface every encoder realization implements.
// GOP is pinned to FPS (one keyframe per second) per the spec's
// screen.mp4 contract.
type backend interface {
	Encode(frameBGRA []byte, ptsTicks int64) error
	Finalize() error
	Name() string
	IsHardware() bool
}

type backendFactory func(cfg Config) (backend, error)

var (
	hardwareFactoriesMu sync.Mutex
	hardwareFactories   []backendFactory
)

func registerHardwareFactory(f backendFactory) {
	hardwareFactoriesMu.Lock()
	defer hardwareFactoriesMu.Unlock()
	hardwareFactories = append(hardwareFactories, f)
}

// Encoder drives one output file's worth of encoding.
type Encoder struct {
	mu      sync.Mutex
	cfg     Config
	be      backend
	flushed bool
}

// New creates an Encoder, probing hardware backends first when
// PreferHardware is set, falling back to the software backend.
func New(cfg Config) (*Encoder, error) {
	cfg = applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	be, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}
	logHardwareProbe(cfg, be)
	return &Encoder{cfg: cfg, be: be}, nil
}

func newBackend(cfg Config) (backend, error) {
	if cfg.PreferHardware {
		if be := tryHardware(cfg); be != nil {
			return be, nil
		}
		log.Warn("no hardware encoder available, falling back to software", "path", cfg.OutputPath)
	}
	return newSoftwareBackend(cfg)
}

func tryHardware(cfg Config) backend {
	hardwareFactoriesMu.Lock()
	factories := append([]backendFactory(nil), hardwareFactories...)
	hardwareFactoriesMu.Unlock()
	for _, f := range factories {
		be, err := f(cfg)
		if err == nil && be != nil {
			return be
		}
	}
	return nil
}

// Submit encodes one BGRA frame at the given presentation timestamp.
func (e *Encoder) Submit(frameBGRA []byte, ptsTicks int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.be == nil {
		return corerr.New(corerr.KindInvalidState, "videoenc.Submit", "encoder already finalized")
	}
	if err := e.be.Encode(frameBGRA, ptsTicks); err != nil {
		return corerr.Wrap(corerr.KindEncoderWriteFailed, "videoenc.Submit", err)
	}
	return nil
}

// Finalize writes the trailer (faststart moov relocation) and releases
// the backend. Safe to call once; subsequent calls are no-ops.
func (e *Encoder) Finalize() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.flushed || e.be == nil {
		return nil
	}
	e.flushed = true
	be := e.be
	e.be = nil
	if err := be.Finalize(); err != nil {
		return corerr.Wrap(corerr.KindEncoderWriteFailed, "videoenc.Finalize", err)
	}
	return nil
}

func (e *Encoder) BackendName() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.be == nil {
		return ""
	}
	return e.be.Name()
}

func (e *Encoder) IsHardware() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.be != nil && e.be.IsHardware()
}
