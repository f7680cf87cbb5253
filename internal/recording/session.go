// Package recording drives a single recording session's finite state
// machine: Idle, Countdown, Recording/Paused, Finishing, and the
// terminal Completed/Cancelled/Error states, owning the capture
// backend, audio captures, webcam feed, encoders, cursor tracker, and
// optional fragment manifest for the session's lifetime.
package recording

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/screenstudio/core/internal/audio"
	"github.com/screenstudio/core/internal/capture"
	"github.com/screenstudio/core/internal/corerr"
	"github.com/screenstudio/core/internal/cursor"
	"github.com/screenstudio/core/internal/fragment"
	"github.com/screenstudio/core/internal/logging"
	"github.com/screenstudio/core/internal/project"
	"github.com/screenstudio/core/internal/timebase"
	"github.com/screenstudio/core/internal/videoenc"
	"github.com/screenstudio/core/internal/webcam"
)

var log = logging.L("recording")

// State is one node of the RecordingSession finite state machine.
type State int

const (
	StateIdle State = iota
	StateCountdown
	StateRecording
	StatePaused
	StateFinishing
	StateCompleted
	StateCancelled
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCountdown:
		return "countdown"
	case StateRecording:
		return "recording"
	case StatePaused:
		return "paused"
	case StateFinishing:
		return "finishing"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Progress is emitted every progressInterval frames while recording.
type Progress struct {
	FramesEncoded uint64
	ElapsedMs     int64
}

// command is a session control message, processed between frames.
type command int

const (
	cmdPause command = iota
	cmdResume
	cmdStop
	cmdCancel
)

// Config describes the producers a session should own. System audio,
// mic audio, webcam, and the fragment manifest are optional
// (EnableSystemAudio, EnableMicAudio, EnableWebcam false or FragmentDir
// empty disables them).
type Config struct {
	CaptureOpts       capture.Options
	Crop              *capture.Rect // non-nil enables a non-native crop extraction
	EnableSystemAudio bool
	EnableMicAudio    bool
	EnableWebcam      bool
	FragmentDir       string // non-empty enables the recovery manifest
	OutputDir         string // where cursor.json, audio sinks, and project.json are written; "" skips all of them

	ScreenEncoder videoenc.Config
	WebcamEncoder videoenc.Config // only used when EnableWebcam

	CountdownSeconds int
}

const progressInterval = 10

// Session owns one recording's full producer/encoder graph and drives
// its finite state machine.
type Session struct {
	cfg Config
	tb  *timebase.Timebase

	capBackend capture.Backend
	sysAudio   audio.Capture
	micAudio   audio.Capture
	webcamFeed *webcam.Feed
	cursorTrk  *cursor.Tracker

	screenEnc *videoenc.Encoder
	webcamEnc *videoenc.Encoder
	fragments *fragment.Store

	mu    sync.Mutex
	state State
	err   error

	cmdCh      chan command
	progressCh chan Progress
	done       chan struct{}

	framesEncoded       atomic.Uint64
	webcamFramesEncoded atomic.Uint64
	outW, outH          int
	stopOnce            sync.Once
	wg                  sync.WaitGroup

	audioMu      sync.Mutex
	sysAnomaly   *timebase.AnomalyTracker
	micAnomaly   *timebase.AnomalyTracker
	sysSink      *audio.WavWriter
	micSink      *audio.WavWriter
	mixedSink    *audio.WavWriter
	sysBuf       []float32
	micBuf       []float32
	sysAudioPath string
	micAudioPath string
	cursorPath   string
}

// New constructs a Session in StateIdle. Producers are created but not
// started until Start is called.
func New(cfg Config, cursorProvider cursor.Provider, crop cursor.CropBounds) (*Session, error) {
	tb := timebase.New()

	capBackend, err := capture.NewBackend(cfg.CaptureOpts)
	if err != nil {
		return nil, err
	}

	s := &Session{
		cfg:        cfg,
		tb:         tb,
		capBackend: capBackend,
		cmdCh:      make(chan command, 4),
		progressCh: make(chan Progress, 16),
		done:       make(chan struct{}),
		state:      StateIdle,
	}

	if cfg.EnableSystemAudio {
		s.sysAudio, err = audio.New(audio.KindLoopback)
		if err != nil {
			return nil, err
		}
		s.sysAnomaly = timebase.NewAnomalyTracker("system_audio")
	}
	if cfg.EnableMicAudio {
		s.micAudio, err = audio.New(audio.KindMicrophone)
		if err != nil {
			return nil, err
		}
		s.micAnomaly = timebase.NewAnomalyTracker("mic_audio")
	}
	if cfg.EnableWebcam {
		s.webcamFeed = webcam.NewFeed(time.Now())
	}
	if cursorProvider != nil {
		s.cursorTrk = cursor.New(cursorProvider, crop, time.Now())
	}
	if cfg.FragmentDir != "" {
		s.fragments = fragment.NewStore(cfg.FragmentDir)
	}

	return s, nil
}

// State returns the session's current FSM state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error that drove the session into StateError, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Progress exposes the channel progress updates are published on.
func (s *Session) Progress() <-chan Progress {
	return s.progressCh
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	s.state = StateError
	s.err = err
	s.mu.Unlock()
	log.Error("recording session failed", "error", err)
}

// Start runs the countdown (if configured), then transitions to
// Recording and drives the session until Stop/Cancel or a fatal error.
// Blocks until the session reaches a terminal state; call from its own
// goroutine.
func (s *Session) Start() {
	s.setState(StateCountdown)
	for n := s.cfg.CountdownSeconds; n > 0; n-- {
		select {
		case cmd := <-s.cmdCh:
			if cmd == cmdCancel {
				s.setState(StateCancelled)
				close(s.done)
				return
			}
		case <-time.After(time.Second):
		}
	}

	s.tb.Start()
	screenEnc, err := videoenc.New(s.cfg.ScreenEncoder)
	if err != nil {
		s.fail(err)
		close(s.done)
		return
	}
	s.screenEnc = screenEnc

	if s.cfg.EnableWebcam {
		webcamEnc, err := videoenc.New(s.cfg.WebcamEncoder)
		if err != nil {
			s.fail(err)
			close(s.done)
			return
		}
		s.webcamEnc = webcamEnc
	}

	if err := s.capBackend.Start(); err != nil {
		s.fail(err)
		close(s.done)
		return
	}
	if s.sysAudio != nil {
		if err := s.sysAudio.Start(s.onSystemAudioBuffer); err != nil {
			s.fail(err)
			close(s.done)
			return
		}
	}
	if s.micAudio != nil {
		if err := s.micAudio.Start(s.onMicAudioBuffer); err != nil {
			s.fail(err)
			close(s.done)
			return
		}
	}
	if s.cursorTrk != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.cursorTrk.Run()
		}()
	}
	if s.webcamFeed != nil && s.webcamEnc != nil {
		ch, unsubscribe := s.webcamFeed.Subscribe()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer unsubscribe()
			s.runWebcamEncodeLoop(ch)
		}()
	}

	s.setState(StateRecording)
	s.runFrameLoop()
}

// runWebcamEncodeLoop submits webcam frames (already drift-corrected by
// the Feed) to the independent webcam encoder until the feed closes.
// Runs as its own subscriber, so a slow webcam encoder never backs up
// the Feed's other subscribers.
func (s *Session) runWebcamEncodeLoop(frames <-chan webcam.Frame) {
	for f := range frames {
		if s.State() == StatePaused {
			continue
		}
		if err := s.webcamEnc.Submit(f.Data, f.PTSTicks); err != nil {
			log.Warn("webcam encoder submit failed, dropping frame", "error", err)
			continue
		}
		s.webcamFramesEncoded.Add(1)
	}
}

// onSystemAudioBuffer and onMicAudioBuffer tag each Capture's shared
// callback signature with which device produced the buffer, since
// audio.Frame itself carries no source identifier.
func (s *Session) onSystemAudioBuffer(f audio.Frame) { s.onAudioBuffer(true, f) }
func (s *Session) onMicAudioBuffer(f audio.Frame)    { s.onAudioBuffer(false, f) }

// audioFrameDuration interprets a buffer's hardware timestamp as a
// tick count in the same 100ns units Timebase uses elsewhere.
func audioFrameDuration(f audio.Frame) time.Duration {
	return time.Duration(f.FirstSampleTicks) * 100
}

// onAudioBuffer advances the shared audio timebase and persists the
// buffer to this source's WAV sink, opening it lazily on first call
// so the sink inherits the device's actual channel count and sample
// rate. When both system and mic audio are enabled, per spec they are
// mixed into a single track via audio.Mix rather than kept separate.
func (s *Session) onAudioBuffer(isSystem bool, f audio.Frame) {
	s.mu.Lock()
	paused := s.state == StatePaused
	s.mu.Unlock()
	if paused {
		return
	}
	s.tb.AdvanceAudioSamples(uint64(len(f.Samples) / maxInt(f.Channels, 1)))

	if s.cfg.OutputDir == "" {
		return
	}

	s.audioMu.Lock()
	defer s.audioMu.Unlock()

	if isSystem {
		s.sysAnomaly.Process(audioFrameDuration(f))
	} else {
		s.micAnomaly.Process(audioFrameDuration(f))
	}

	if s.cfg.EnableSystemAudio && s.cfg.EnableMicAudio {
		s.mixBufferedLocked(isSystem, f)
		return
	}

	if isSystem {
		if s.sysSink == nil {
			sink, path, err := s.openAudioSink("system_audio.wav", f)
			if err != nil {
				log.Warn("failed to open system audio sink", "error", err)
				return
			}
			s.sysSink, s.sysAudioPath = sink, path
		}
		if err := s.sysSink.WriteSamples(f.Samples); err != nil {
			log.Warn("system audio write failed", "error", err)
		}
		return
	}

	if s.micSink == nil {
		sink, path, err := s.openAudioSink("mic_audio.wav", f)
		if err != nil {
			log.Warn("failed to open mic audio sink", "error", err)
			return
		}
		s.micSink, s.micAudioPath = sink, path
	}
	if err := s.micSink.WriteSamples(f.Samples); err != nil {
		log.Warn("mic audio write failed", "error", err)
	}
}

// mixBufferedLocked accumulates interleaved samples from each source
// until both have buffered at least one overlapping chunk, mixes that
// overlap via audio.Mix, and writes the result to the single combined
// track. Must be called with audioMu held.
func (s *Session) mixBufferedLocked(isSystem bool, f audio.Frame) {
	if s.mixedSink == nil {
		sink, path, err := s.openAudioSink("audio.wav", f)
		if err != nil {
			log.Warn("failed to open mixed audio sink", "error", err)
			return
		}
		s.mixedSink, s.sysAudioPath = sink, path
	}

	if isSystem {
		s.sysBuf = append(s.sysBuf, f.Samples...)
	} else {
		s.micBuf = append(s.micBuf, f.Samples...)
	}

	n := len(s.sysBuf)
	if len(s.micBuf) < n {
		n = len(s.micBuf)
	}
	if n == 0 {
		return
	}
	mixed := audio.Mix(s.sysBuf[:n], s.micBuf[:n])
	if err := s.mixedSink.WriteSamples(mixed); err != nil {
		log.Warn("mixed audio write failed", "error", err)
	}
	s.sysBuf = append([]float32(nil), s.sysBuf[n:]...)
	s.micBuf = append([]float32(nil), s.micBuf[n:]...)
}

func (s *Session) openAudioSink(name string, f audio.Frame) (*audio.WavWriter, string, error) {
	path := filepath.Join(s.cfg.OutputDir, name)
	w, err := audio.NewWavWriter(path, maxInt(f.Channels, 1), maxInt(f.SampleRate, 1))
	if err != nil {
		return nil, "", err
	}
	return w, path, nil
}

// flushAudioSinks writes any buffered-but-unmixed tail samples (the
// last odd-sized chunk from whichever source stopped producing first)
// and closes every open WAV sink, patching its final header sizes.
func (s *Session) flushAudioSinks() {
	s.audioMu.Lock()
	defer s.audioMu.Unlock()

	if s.mixedSink != nil {
		if len(s.sysBuf) > 0 {
			if err := s.mixedSink.WriteSamples(s.sysBuf); err != nil {
				log.Warn("mixed audio tail write failed", "error", err)
			}
		}
		if len(s.micBuf) > 0 {
			if err := s.mixedSink.WriteSamples(s.micBuf); err != nil {
				log.Warn("mixed audio tail write failed", "error", err)
			}
		}
		if err := s.mixedSink.Close(); err != nil {
			log.Warn("failed to close mixed audio sink", "error", err)
		}
	}
	if s.sysSink != nil {
		if err := s.sysSink.Close(); err != nil {
			log.Warn("failed to close system audio sink", "error", err)
		}
	}
	if s.micSink != nil {
		if err := s.micSink.Close(); err != nil {
			log.Warn("failed to close mic audio sink", "error", err)
		}
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// runFrameLoop is the per-frame Recording/Paused body: drain to
// latest, compute pts, skip below the fps interval, crop, submit, and
// emit progress every progressInterval frames.
func (s *Session) runFrameLoop() {
	frames := s.capBackend.Frames()
	minIntervalTicks := int64(timebase.TicksPerSecond / maxInt(s.cfg.CaptureOpts.FPS, 1))
	var lastPts int64 = -1

	for {
		select {
		case cmd := <-s.cmdCh:
			switch cmd {
			case cmdPause:
				s.setState(StatePaused)
				s.tb.Pause()
			case cmdResume:
				s.tb.Resume()
				s.setState(StateRecording)
			case cmdStop:
				s.finish(false)
				return
			case cmdCancel:
				s.finish(true)
				return
			}
			continue
		case frame, ok := <-frames:
			if !ok {
				s.fail(corerr.New(corerr.KindCaptureDeviceLost, "recording.runFrameLoop", "capture backend channel closed"))
				s.flushOnError()
				return
			}
			if s.State() == StatePaused {
				continue
			}
			frame = drainToLatest(frames, frame)

			pts := int64(s.tb.VideoTicks())
			if lastPts >= 0 && pts-lastPts < minIntervalTicks {
				continue
			}
			lastPts = pts

			data := frame.Data
			w, h := frame.W, frame.H
			if s.cfg.Crop != nil {
				data = cropBGRA(data, frame.W, frame.H, *s.cfg.Crop)
				w, h = s.cfg.Crop.W, s.cfg.Crop.H
			}
			s.outW, s.outH = w, h

			if err := s.screenEnc.Submit(data, pts); err != nil {
				s.fail(err)
				s.flushOnError()
				return
			}
			n := s.framesEncoded.Add(1)
			if n%progressInterval == 0 {
				select {
				case s.progressCh <- Progress{FramesEncoded: n, ElapsedMs: int64(s.tb.ElapsedTicks()) / (timebase.TicksPerSecond / 1000)}:
				default:
				}
			}
		}
	}
}

// drainToLatest discards any frames already queued behind frame,
// keeping only the most recent one, per the spec's drop-to-latest
// backpressure contract.
func drainToLatest(ch <-chan capture.Frame, frame capture.Frame) capture.Frame {
	for {
		select {
		case next, ok := <-ch:
			if !ok {
				return frame
			}
			frame = next
		default:
			return frame
		}
	}
}

// cropBGRA extracts rect from a tightly-packed BGRA8 frame of size w x h.
func cropBGRA(data []byte, w, h int, rect capture.Rect) []byte {
	if rect.X < 0 || rect.Y < 0 || rect.X+rect.W > w || rect.Y+rect.H > h {
		return data
	}
	out := make([]byte, rect.W*rect.H*4)
	srcStride := w * 4
	dstStride := rect.W * 4
	for row := 0; row < rect.H; row++ {
		srcOff := (rect.Y+row)*srcStride + rect.X*4
		dstOff := row * dstStride
		copy(out[dstOff:dstOff+dstStride], data[srcOff:srcOff+dstStride])
	}
	return out
}

// Pause requests a transition to Paused. No-op outside Recording.
func (s *Session) Pause() { s.send(cmdPause) }

// Resume requests a transition back to Recording. No-op outside Paused.
func (s *Session) Resume() { s.send(cmdResume) }

// Stop requests a graceful finish: drain, finalize, persist.
func (s *Session) Stop() { s.send(cmdStop) }

// Cancel requests an abrupt stop: partial files are deleted, the
// manifest (if any) is kept for diagnostics only.
func (s *Session) Cancel() { s.send(cmdCancel) }

func (s *Session) send(cmd command) {
	select {
	case s.cmdCh <- cmd:
	default:
		log.Warn("recording command dropped, channel full", "cmd", cmd)
	}
}

// Done returns a channel closed once the session reaches a terminal
// state (Completed, Cancelled, or Error).
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// finish drains producers and finalizes encoders. cancel selects the
// Cancel semantics (delete partials, keep manifest for diagnostics
// only) versus Stop's full finalize-and-persist path.
func (s *Session) finish(cancel bool) {
	s.stopOnce.Do(func() {
		s.setState(StateFinishing)
		s.stopProducers()

		if cancel {
			s.cleanupCancelled()
			s.setState(StateCancelled)
			close(s.done)
			return
		}

		var finalErr error
		if s.screenEnc != nil {
			if err := s.screenEnc.Finalize(); err != nil {
				finalErr = err
			}
		}
		if s.webcamEnc != nil {
			if err := s.webcamEnc.Finalize(); err != nil && finalErr == nil {
				finalErr = err
			} else if err == nil {
				s.remuxWebcamForDuration()
			}
		}
		if s.fragments != nil {
			if err := s.fragments.Finalize(int64(s.tb.ElapsedTicks()) / (timebase.TicksPerSecond / 1000)); err != nil && finalErr == nil {
				finalErr = err
			}
		}

		s.writeProjectFile()

		if finalErr != nil {
			s.fail(finalErr)
		} else {
			s.setState(StateCompleted)
		}
		close(s.done)
	})
}

func (s *Session) stopProducers() {
	if s.capBackend != nil {
		_ = s.capBackend.Close()
	}
	if s.sysAudio != nil {
		s.sysAudio.Stop()
	}
	if s.micAudio != nil {
		s.micAudio.Stop()
	}
	if s.webcamFeed != nil {
		s.webcamFeed.Close()
	}
	if s.cursorTrk != nil {
		rec := s.cursorTrk.Stop()
		data, err := cursor.Flush(rec)
		if err != nil {
			log.Warn("failed to marshal cursor recording", "error", err)
		} else if s.cfg.OutputDir != "" {
			path := filepath.Join(s.cfg.OutputDir, "cursor.json")
			if err := os.WriteFile(path, data, 0o644); err != nil {
				log.Warn("failed to write cursor.json", "path", path, "error", err)
			} else {
				s.cursorPath = path
			}
		}
	}
	s.flushAudioSinks()
	s.wg.Wait()
}

// remuxWebcamForDuration corrects the finalized webcam container's
// declared duration for the observed capture rate versus the
// encoder's nominal fps, per spec's itsscale = nominal/observed.
func (s *Session) remuxWebcamForDuration() {
	elapsedSec := float64(s.tb.ElapsedTicks()) / timebase.TicksPerSecond
	if elapsedSec <= 0 {
		return
	}
	observedFPS := float64(s.webcamFramesEncoded.Load()) / elapsedSec
	itsscale := webcamItsscale(float64(s.cfg.WebcamEncoder.FPS), observedFPS)
	if err := remuxWebcamDuration(context.Background(), s.cfg.WebcamEncoder.OutputPath, itsscale); err != nil {
		log.Warn("webcam duration remux failed", "error", err)
	}
}

// buildProject assembles the Project manifest describing this
// session's outputs, for persistence as project.json on Stop.
func (s *Session) buildProject() project.Project {
	durationMs := int64(s.tb.ElapsedTicks()) / (timebase.TicksPerSecond / 1000)

	p := project.Project{
		Sources: project.Sources{
			ScreenVideo:  s.cfg.ScreenEncoder.OutputPath,
			SystemAudio:  s.sysAudioPath,
			MicAudio:     s.micAudioPath,
			CursorStream: s.cursorPath,
			OriginalW:    s.outW,
			OriginalH:    s.outH,
		},
		Cursor: project.CursorConfig{Size: 1, Smoothness: 0.5},
		Webcam: project.Webcam{Size: 0.2},
		Export: project.Export{Format: project.FormatMP4, FPS: 30, Quality: 80},
	}
	if s.cfg.EnableWebcam {
		p.Sources.WebcamVideo = s.cfg.WebcamEncoder.OutputPath
		p.Webcam.Enabled = true
	}
	if durationMs > 0 {
		p.Timeline = project.Timeline{
			DurationMs: durationMs,
			Segments:   []project.Segment{{StartMs: 0, EndMs: durationMs, Speed: 1}},
		}
	}
	return p
}

// writeProjectFile persists the session's Project manifest so the
// editor can reopen this recording. Validation failures are logged,
// not fatal, since a recording's raw outputs are still usable.
func (s *Session) writeProjectFile() {
	if s.cfg.OutputDir == "" {
		return
	}
	p := s.buildProject()
	if err := project.Validate(p); err != nil {
		log.Warn("recording produced an invalid project manifest", "error", err)
	}
	data, err := project.Marshal(p)
	if err != nil {
		log.Warn("failed to marshal project manifest", "error", err)
		return
	}
	path := filepath.Join(s.cfg.OutputDir, "project.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Warn("failed to write project.json", "path", path, "error", err)
	}
}

// flushOnError attempts to finalize whatever was already encoded after
// a mid-recording encoder failure, per the spec's Error failure path.
func (s *Session) flushOnError() {
	s.stopProducers()
	if s.screenEnc != nil {
		_ = s.screenEnc.Finalize()
	}
	if s.webcamEnc != nil {
		_ = s.webcamEnc.Finalize()
	}
	close(s.done)
}

// cleanupCancelled deletes partial output files on a user-initiated
// cancel. The fragment manifest, if any, is left in place for
// diagnostics only.
func (s *Session) cleanupCancelled() {
	if s.screenEnc != nil {
		_ = s.screenEnc.Finalize()
	}
	if s.webcamEnc != nil {
		_ = s.webcamEnc.Finalize()
	}
	paths := []string{s.cfg.ScreenEncoder.OutputPath}
	if s.cfg.EnableWebcam {
		paths = append(paths, s.cfg.WebcamEncoder.OutputPath)
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := removeFile(p); err != nil {
			log.Warn("failed to remove partial recording file", "path", p, "error", err)
		}
	}
}
