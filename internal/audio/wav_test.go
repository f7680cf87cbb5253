package audio

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func TestWavWriterProducesValidHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	w, err := NewWavWriter(path, 2, 48000)
	if err != nil {
		t.Fatalf("NewWavWriter: %v", err)
	}
	if err := w.WriteSamples([]float32{0.5, -0.5, 0.25, -0.25}); err != nil {
		t.Fatalf("WriteSamples: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) != 44+8 {
		t.Fatalf("file size = %d, want %d", len(data), 44+8)
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("missing RIFF/WAVE markers")
	}
	if string(data[12:16]) != "fmt " || string(data[36:40]) != "data" {
		t.Fatalf("missing fmt/data subchunk markers")
	}
	channels := binary.LittleEndian.Uint16(data[22:24])
	if channels != 2 {
		t.Fatalf("channels = %d, want 2", channels)
	}
	sampleRate := binary.LittleEndian.Uint32(data[24:28])
	if sampleRate != 48000 {
		t.Fatalf("sampleRate = %d, want 48000", sampleRate)
	}
	dataSize := binary.LittleEndian.Uint32(data[40:44])
	if dataSize != 8 {
		t.Fatalf("data chunk size = %d, want 8", dataSize)
	}
	riffSize := binary.LittleEndian.Uint32(data[4:8])
	if riffSize != uint32(len(data))-8 {
		t.Fatalf("RIFF size = %d, want %d", riffSize, len(data)-8)
	}
}

func TestWavWriterClipsOutOfRangeSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	w, err := NewWavWriter(path, 1, 16000)
	if err != nil {
		t.Fatalf("NewWavWriter: %v", err)
	}
	if err := w.WriteSamples([]float32{2.0, -2.0}); err != nil {
		t.Fatalf("WriteSamples: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	sample0 := int16(binary.LittleEndian.Uint16(data[44:46]))
	sample1 := int16(binary.LittleEndian.Uint16(data[46:48]))
	if sample0 != 32767 {
		t.Fatalf("sample0 = %d, want clipped to 32767", sample0)
	}
	if sample1 != -32767 {
		t.Fatalf("sample1 = %d, want clipped to -32767", sample1)
	}
}
