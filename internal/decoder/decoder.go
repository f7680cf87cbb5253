// Package decoder streams raw RGBA frames from an external ffmpeg
// process, seeking once on start and reading exactly one frame's worth
// of bytes per call thereafter.
package decoder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/screenstudio/core/internal/corerr"
	"github.com/screenstudio/core/internal/logging"
)

var log = logging.L("decoder")

// DecodedFrame is one decoded video frame.
type DecodedFrame struct {
	Idx  int64
	TsMs int64
	Data []byte
	W    int
	H    int
}

// Source describes the input video and the decode window.
type Source struct {
	Path       string
	Width      int
	Height     int
	FPS        float64
	StartMs    int64
	FrameCount int64 // 0 = decode to EOS
}

// perFrameBudget bounds how long a single read_exact may block before
// the caller's loop logs a drop and continues.
const perFrameBudget = 500 * time.Millisecond

// StreamDecoder reads back-to-back raw RGBA frames from ffmpeg's
// stdout, seeking once at process start so per-frame reads are pure
// sequential I/O with no further seeking.
type StreamDecoder struct {
	src       Source
	cmd       *exec.Cmd
	stdout    io.ReadCloser
	reader    *bufio.Reader
	frameSize int
	nextIdx   int64
	closed    bool
}

// buildArgs constructs the ffmpeg argument list for src: seek once
// before the input (cheap keyframe-aligned seek), cap the frame count
// when requested, and emit raw RGBA on stdout.
func buildArgs(src Source) []string {
	args := []string{
		"-ss", fmt.Sprintf("%.3f", float64(src.StartMs)/1000.0),
		"-i", src.Path,
	}
	if src.FrameCount > 0 {
		args = append(args, "-frames:v", fmt.Sprintf("%d", src.FrameCount))
	}
	args = append(args,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-vf", fmt.Sprintf("scale=%d:%d", src.Width, src.Height),
		"pipe:1",
	)
	return args
}

// New starts ffmpeg decoding src.Path from src.StartMs, producing
// rawvideo rgba frames at src.Width x src.Height.
func New(ctx context.Context, src Source) (*StreamDecoder, error) {
	if src.Width <= 0 || src.Height <= 0 {
		return nil, corerr.New(corerr.KindInvalidState, "decoder.New", "width/height must be positive")
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", buildArgs(src)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, corerr.Wrap(corerr.KindEncoderSpawn, "decoder.New", err)
	}
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return nil, corerr.Wrap(corerr.KindEncoderSpawn, "decoder.New", err)
	}

	return &StreamDecoder{
		src:       src,
		cmd:       cmd,
		stdout:    stdout,
		reader:    bufio.NewReaderSize(stdout, src.Width*src.Height*4),
		frameSize: src.Width * src.Height * 4,
	}, nil
}

// newFromReader builds a StreamDecoder around an arbitrary reader
// instead of a live ffmpeg process, for testing NextFrame's framing
// and timestamp logic in isolation.
func newFromReader(src Source, r io.Reader) *StreamDecoder {
	return &StreamDecoder{
		src:       src,
		reader:    bufio.NewReaderSize(r, src.Width*src.Height*4),
		frameSize: src.Width * src.Height * 4,
	}
}

// NextFrame blocks for up to perFrameBudget reading one frame. Returns
// (frame, true, nil) on success, (DecodedFrame{}, false, nil) at a
// clean EOS, or a non-nil error if the read failed or timed out.
func (d *StreamDecoder) NextFrame() (DecodedFrame, bool, error) {
	if d.closed {
		return DecodedFrame{}, false, corerr.New(corerr.KindInvalidState, "decoder.NextFrame", "decoder closed")
	}

	type result struct {
		buf []byte
		err error
	}
	ch := make(chan result, 1)
	go func() {
		buf := make([]byte, d.frameSize)
		_, err := io.ReadFull(d.reader, buf)
		ch <- result{buf: buf, err: err}
	}()

	select {
	case r := <-ch:
		if r.err == io.EOF || r.err == io.ErrUnexpectedEOF {
			return DecodedFrame{}, false, nil
		}
		if r.err != nil {
			return DecodedFrame{}, false, corerr.Wrap(corerr.KindIO, "decoder.NextFrame", r.err)
		}
		idx := d.nextIdx
		d.nextIdx++
		tsMs := d.src.StartMs
		if d.src.FPS > 0 {
			tsMs += int64(float64(idx) * 1000.0 / d.src.FPS)
		}
		return DecodedFrame{Idx: idx, TsMs: tsMs, Data: r.buf, W: d.src.Width, H: d.src.Height}, true, nil
	case <-time.After(perFrameBudget):
		log.Warn("decoder frame read exceeded budget, dropping", "idx", d.nextIdx, "budget_ms", perFrameBudget.Milliseconds())
		d.nextIdx++
		return DecodedFrame{}, false, corerr.New(corerr.KindTimeout, "decoder.NextFrame", "frame read timed out")
	}
}

// Close terminates the ffmpeg process and releases its pipe.
func (d *StreamDecoder) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if d.stdout != nil {
		_ = d.stdout.Close()
	}
	if d.cmd == nil {
		return nil
	}
	if d.cmd.Process != nil {
		_ = d.cmd.Process.Kill()
	}
	return d.cmd.Wait()
}
