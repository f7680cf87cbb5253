package videoenc

import (
	"fmt"
	"os"

	openh264 "github.com/y9o/go-openh264"
)

// softwareBackend encodes via a CPU openh264 session, writing the raw
// Annex-B elementary stream to OutputPath. Used whenever no hardware
// backend registers, or when PreferHardware is false; MP4 muxing with
// faststart is the hardware backend's responsibility (it owns the
// platform's media foundation sink writer).
type softwareBackend struct {
	cfg Config
	enc *openh264.Encoder
	out *os.File
}

func newSoftwareBackend(cfg Config) (backend, error) {
	enc, err := openh264.NewEncoder(openh264.EncoderOptions{
		Width:        cfg.Width,
		Height:       cfg.Height,
		FPS:          cfg.FPS,
		BitrateBPS:   cfg.Bitrate,
		IntraPeriod:  cfg.FPS, // GOP == fps
	})
	if err != nil {
		return nil, fmt.Errorf("openh264 encoder init: %w", err)
	}

	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("create output file: %w", err)
	}

	return &softwareBackend{cfg: cfg, enc: enc, out: f}, nil
}

func (b *softwareBackend) Encode(frameBGRA []byte, ptsTicks int64) error {
	nv12 := bgraToNV12(frameBGRA, b.cfg.Width, b.cfg.Height)
	defer putNV12Buffer(nv12)

	yLen := b.cfg.Width * b.cfg.Height
	y := nv12[:yLen]
	uv := nv12[yLen:]

	nal, err := b.enc.EncodeNV12(y, uv)
	if err != nil {
		return fmt.Errorf("openh264 encode: %w", err)
	}
	if _, err := b.out.Write(nal); err != nil {
		return fmt.Errorf("write encoded frame: %w", err)
	}
	return nil
}

func (b *softwareBackend) Finalize() error {
	b.enc.Close()
	return b.out.Close()
}

func (b *softwareBackend) Name() string   { return "openh264-software" }
func (b *softwareBackend) IsHardware() bool { return false }
