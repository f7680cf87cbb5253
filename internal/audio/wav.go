package audio

import (
	"encoding/binary"
	"os"

	"github.com/screenstudio/core/internal/corerr"
)

// wavBitsPerSample and wavPCMFormat fix the sink to 16-bit linear PCM,
// the format every downstream ffmpeg stage (export's muxAudio) decodes
// without a codec probe.
const (
	wavBitsPerSample = 16
	wavPCMFormat     = 1
)

// WavWriter streams interleaved float32 samples to a 16-bit PCM WAV
// file, patching the RIFF and data chunk sizes on Close once the
// total sample count is known. Not safe for concurrent use.
type WavWriter struct {
	f          *os.File
	channels   int
	sampleRate int
	dataBytes  uint32
}

// NewWavWriter creates path and writes a placeholder 44-byte WAV
// header sized for channels/sampleRate, which Close rewrites with the
// final chunk sizes.
func NewWavWriter(path string, channels, sampleRate int) (*WavWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, corerr.Wrap(corerr.KindIO, "audio.NewWavWriter", err)
	}
	w := &WavWriter{f: f, channels: channels, sampleRate: sampleRate}
	if err := w.writeHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

func (w *WavWriter) writeHeader() error {
	blockAlign := w.channels * (wavBitsPerSample / 8)
	byteRate := w.sampleRate * blockAlign

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 36) // patched on Close
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], wavPCMFormat)
	binary.LittleEndian.PutUint16(header[22:24], uint16(w.channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(w.sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], wavBitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], 0) // patched on Close

	if _, err := w.f.Write(header); err != nil {
		return corerr.Wrap(corerr.KindIO, "audio.WavWriter.writeHeader", err)
	}
	return nil
}

// WriteSamples converts interleaved float32 samples in [-1,1] to
// 16-bit PCM and appends them to the data chunk.
func (w *WavWriter) WriteSamples(samples []float32) error {
	if len(samples) == 0 {
		return nil
	}
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(s*32767)))
	}
	if _, err := w.f.Write(buf); err != nil {
		return corerr.Wrap(corerr.KindIO, "audio.WavWriter.WriteSamples", err)
	}
	w.dataBytes += uint32(len(buf))
	return nil
}

// Close patches the RIFF and data chunk sizes and closes the file.
func (w *WavWriter) Close() error {
	defer w.f.Close()
	if _, err := w.f.Seek(4, 0); err != nil {
		return corerr.Wrap(corerr.KindIO, "audio.WavWriter.Close", err)
	}
	var sizeBuf [4]byte
	binary.LittleEndian.PutUint32(sizeBuf[:], 36+w.dataBytes)
	if _, err := w.f.Write(sizeBuf[:]); err != nil {
		return corerr.Wrap(corerr.KindIO, "audio.WavWriter.Close", err)
	}
	if _, err := w.f.Seek(40, 0); err != nil {
		return corerr.Wrap(corerr.KindIO, "audio.WavWriter.Close", err)
	}
	binary.LittleEndian.PutUint32(sizeBuf[:], w.dataBytes)
	if _, err := w.f.Write(sizeBuf[:]); err != nil {
		return corerr.Wrap(corerr.KindIO, "audio.WavWriter.Close", err)
	}
	return nil
}
