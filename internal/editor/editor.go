// Package editor runs the playback actor behind the project editor:
// decode, composite, and publish frames on demand or on a timer,
// honoring Play/Pause/Seek/SetSpeed/RenderFrame/Stop commands over an
// internal channel.
package editor

import (
	"context"
	"encoding/binary"
	"image"
	"sync"
	"time"

	"github.com/screenstudio/core/internal/compositor"
	"github.com/screenstudio/core/internal/cursor"
	"github.com/screenstudio/core/internal/decoder"
	"github.com/screenstudio/core/internal/gpu"
	"github.com/screenstudio/core/internal/logging"
	"github.com/screenstudio/core/internal/project"
)

var log = logging.L("editor")

// tickInterval approximates the host display's refresh rate; there is
// no portable way to read the real value from Go, so playback ticks at
// a fixed 60Hz and lets SetSpeed control perceived rate instead.
const tickInterval = time.Second / 60

// resyncThresholdMs is how far a requested timestamp may drift from a
// decoder's next sequential frame before the decoder reseeks instead
// of reading forward.
const resyncThresholdMs = 150

// wireMagic is the trailer's magic value, ASCII "ABGR" little-endian.
const wireMagic = 0x52474241

// trailerSize is the fixed byte length appended after RGBA pixel data:
// stride, height, width, frame_num (all u32), target_time_ns (u64),
// magic (u32).
const trailerSize = 4 + 4 + 4 + 4 + 8 + 4

// PlaybackState is the editor's externally observable playback position.
type PlaybackState struct {
	Playing bool
	TMs     int64
	Speed   float64
}

type commandKind int

const (
	cmdPlay commandKind = iota
	cmdPause
	cmdSeek
	cmdSetSpeed
	cmdRenderFrame
	cmdStop
)

type command struct {
	kind  commandKind
	msArg int64
	fArg  float64
}

// Instance is one editor playback actor: shared Renderer, per-source
// decoders, a Compositor, and the Project being edited.
type Instance struct {
	proj     project.Project
	renderer gpu.Renderer
	comp     *compositor.Compositor

	screenSrc decoder.Source
	webcamSrc *decoder.Source

	mu        sync.RWMutex
	state     PlaybackState
	screenDec *decoder.StreamDecoder
	webcamDec *decoder.StreamDecoder

	cmdCh   chan command
	watchCh chan []byte
	done    chan struct{}
	stopped sync.Once

	frameNum uint32
}

// New builds an Instance for proj. rec supplies the cursor samples the
// shared Compositor interpolates.
func New(proj project.Project, renderer gpu.Renderer, rec cursor.Recording) *Instance {
	screenSrc := decoder.Source{
		Path:   proj.Sources.ScreenVideo,
		Width:  proj.Sources.OriginalW,
		Height: proj.Sources.OriginalH,
	}
	var webcamSrc *decoder.Source
	if proj.Sources.WebcamVideo != "" {
		webcamSrc = &decoder.Source{Path: proj.Sources.WebcamVideo, Width: proj.Sources.OriginalW, Height: proj.Sources.OriginalH}
	}
	return &Instance{
		proj:      proj,
		renderer:  renderer,
		comp:      compositor.New(proj, renderer, rec),
		screenSrc: screenSrc,
		webcamSrc: webcamSrc,
		state:     PlaybackState{Speed: 1},
		cmdCh:     make(chan command, 8),
		watchCh:   make(chan []byte, 1),
		done:      make(chan struct{}),
	}
}

// Frames returns the watch channel new composited wire frames are
// published on. It holds only the most recent frame: a slow consumer
// misses intermediate frames rather than blocking the playback loop.
func (e *Instance) Frames() <-chan []byte { return e.watchCh }

func (e *Instance) Play()             { e.send(command{kind: cmdPlay}) }
func (e *Instance) Pause()            { e.send(command{kind: cmdPause}) }
func (e *Instance) Seek(ms int64)     { e.send(command{kind: cmdSeek, msArg: ms}) }
func (e *Instance) SetSpeed(x float64) { e.send(command{kind: cmdSetSpeed, fArg: x}) }
func (e *Instance) RenderFrame(ms int64) { e.send(command{kind: cmdRenderFrame, msArg: ms}) }
func (e *Instance) Stop()             { e.send(command{kind: cmdStop}) }

func (e *Instance) send(c command) {
	select {
	case e.cmdCh <- c:
	case <-e.done:
	}
}

// State returns the current playback position and speed.
func (e *Instance) State() PlaybackState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Done closes when the actor has stopped.
func (e *Instance) Done() <-chan struct{} { return e.done }

// Run drives the command loop and the playback ticker until Stop is
// received or ctx is cancelled. It is meant to run in its own goroutine.
func (e *Instance) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	lastTick := time.Now()

	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			return
		case c := <-e.cmdCh:
			if e.applyCommand(c) {
				e.shutdown()
				return
			}
		case now := <-ticker.C:
			dt := now.Sub(lastTick)
			lastTick = now
			e.mu.Lock()
			playing := e.state.Playing
			if playing {
				e.state.TMs += int64(dt.Seconds() * 1000 * e.state.Speed)
			}
			tMs := e.state.TMs
			e.mu.Unlock()
			if playing {
				e.renderAndPublish(tMs)
			}
		}
	}
}

// applyCommand mutates state for one command; it returns true when the
// actor should stop.
func (e *Instance) applyCommand(c command) bool {
	switch c.kind {
	case cmdPlay:
		e.mu.Lock()
		e.state.Playing = true
		e.mu.Unlock()
	case cmdPause:
		e.mu.Lock()
		e.state.Playing = false
		e.mu.Unlock()
	case cmdSeek:
		e.mu.Lock()
		e.state.TMs = c.msArg
		e.mu.Unlock()
		e.renderAndPublish(c.msArg)
	case cmdSetSpeed:
		speed := clampSpeed(c.fArg)
		e.mu.Lock()
		e.state.Speed = speed
		e.mu.Unlock()
	case cmdRenderFrame:
		e.renderAndPublish(c.msArg)
	case cmdStop:
		return true
	}
	return false
}

func clampSpeed(x float64) float64 {
	if x < 0.25 {
		return 0.25
	}
	if x > 4 {
		return 4
	}
	return x
}

// renderAndPublish decodes the frame(s) needed at tMs, composites them,
// round-trips through the shared Renderer (texture upload + read-back,
// mirroring the GPU path even on the CPU fallback), and publishes the
// wire frame, dropping it if no client is currently reading.
func (e *Instance) renderAndPublish(tMs int64) {
	screenFrame, err := e.decodeAt(&e.screenDec, e.screenSrc, tMs)
	if err != nil {
		log.Warn("screen decode failed", "t_ms", tMs, "error", err)
		return
	}

	var webcamImg *image.RGBA
	if e.webcamSrc != nil {
		wf, err := e.decodeAt(&e.webcamDec, *e.webcamSrc, tMs)
		if err != nil {
			log.Warn("webcam decode failed", "t_ms", tMs, "error", err)
		} else if wf != nil {
			webcamImg = rgbaFromFrame(wf)
		}
	}

	out, err := e.comp.Composite(compositor.Input{
		TMs:     tMs,
		Screen:  rgbaFromFrame(screenFrame),
		Webcam:  webcamImg,
		OutputW: e.screenSrc.Width,
		OutputH: e.screenSrc.Height,
	})
	if err != nil {
		log.Warn("composite failed", "t_ms", tMs, "error", err)
		return
	}

	tex, err := e.renderer.TextureFromBGRA(out.Pix, out.Bounds().Dx(), out.Bounds().Dy())
	if err != nil {
		log.Warn("texture upload failed", "error", err)
		return
	}
	pixels, err := e.renderer.ReadTexture(tex)
	if err != nil {
		log.Warn("texture read-back failed", "error", err)
		return
	}

	e.frameNum++
	wire := encodeWireFrame(pixels, out.Bounds().Dx()*4, out.Bounds().Dy(), out.Bounds().Dx(), e.frameNum, tMs)

	select {
	case e.watchCh <- wire:
	default:
		select {
		case <-e.watchCh:
		default:
		}
		select {
		case e.watchCh <- wire:
		default:
		}
	}
}

// decodeAt returns the next decodable frame at or after tMs, reseeking
// the held decoder when tMs has drifted more than resyncThresholdMs
// from where the decoder is positioned.
func (e *Instance) decodeAt(decPtr **decoder.StreamDecoder, src decoder.Source, tMs int64) (*decoder.DecodedFrame, error) {
	dec := *decPtr
	if dec == nil {
		src.StartMs = tMs
		d, err := decoder.New(context.Background(), src)
		if err != nil {
			return nil, err
		}
		*decPtr = d
		dec = d
	}
	frame, ok, err := dec.NextFrame()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	if abs64(frame.TsMs-tMs) > resyncThresholdMs {
		dec.Close()
		src.StartMs = tMs
		d, err := decoder.New(context.Background(), src)
		if err != nil {
			*decPtr = nil
			return nil, err
		}
		*decPtr = d
		frame, ok, err = d.NextFrame()
		if err != nil || !ok {
			return nil, err
		}
	}
	return &frame, nil
}

// rgbaFromFrame wraps a decoded frame's raw bytes as an *image.RGBA
// without copying. Returns nil for a nil frame (clean EOS).
func rgbaFromFrame(f *decoder.DecodedFrame) *image.RGBA {
	if f == nil {
		return nil
	}
	return &image.RGBA{Pix: f.Data, Stride: f.W * 4, Rect: image.Rect(0, 0, f.W, f.H)}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func (e *Instance) shutdown() {
	e.stopped.Do(func() {
		if e.screenDec != nil {
			e.screenDec.Close()
		}
		if e.webcamDec != nil {
			e.webcamDec.Close()
		}
		close(e.done)
	})
}

// encodeWireFrame appends the fixed 28-byte trailer (stride, height,
// width, frame_num, target_time_ns, magic), all little-endian, after
// the raw RGBA payload.
func encodeWireFrame(rgba []byte, stride, height, width int, frameNum uint32, targetMs int64) []byte {
	out := make([]byte, len(rgba)+trailerSize)
	n := copy(out, rgba)
	binary.LittleEndian.PutUint32(out[n:], uint32(stride))
	binary.LittleEndian.PutUint32(out[n+4:], uint32(height))
	binary.LittleEndian.PutUint32(out[n+8:], uint32(width))
	binary.LittleEndian.PutUint32(out[n+12:], frameNum)
	binary.LittleEndian.PutUint64(out[n+16:], uint64(targetMs)*uint64(time.Millisecond))
	binary.LittleEndian.PutUint32(out[n+24:], wireMagic)
	return out
}
