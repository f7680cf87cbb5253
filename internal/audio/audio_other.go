//go:build !windows

package audio

import (
	"github.com/screenstudio/core/internal/corerr"
)

type unavailableCapture struct{}

func newPlatformCapture(kind Kind) (Capture, error) {
	return nil, corerr.New(corerr.KindAudioNoDevice, "audio.newPlatformCapture", "no audio backend for this platform")
}

func (unavailableCapture) Start(callback func(Frame)) error {
	return corerr.New(corerr.KindAudioNoDevice, "audio.unavailableCapture.Start", "no audio backend for this platform")
}

func (unavailableCapture) Stop() {}
