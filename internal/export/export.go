// Package export runs the off-screen render pipeline that turns a
// Project into a finished output file: decode every source frame in
// order, composite it, and encode it, with audio mixed in as a
// separate pass once the video track is finalized.
package export

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/screenstudio/core/internal/compositor"
	"github.com/screenstudio/core/internal/corerr"
	"github.com/screenstudio/core/internal/cursor"
	"github.com/screenstudio/core/internal/decoder"
	"github.com/screenstudio/core/internal/gpu"
	"github.com/screenstudio/core/internal/logging"
	"github.com/screenstudio/core/internal/project"
	"github.com/screenstudio/core/internal/videoenc"
	"github.com/screenstudio/core/internal/workerpool"
)

var log = logging.L("export")

// pipelineBufferSize bounds how many in-flight items each pipeline
// stage may hold ahead of the next.
const pipelineBufferSize = 4

// AudioTrack is one input to the post-video audio mix.
type AudioTrack struct {
	Path string
	Gain float64 // linear gain multiplier, 1.0 = unity
}

// Config describes one export run.
type Config struct {
	Proj        project.Project
	OutputPath  string
	AudioTracks []AudioTrack
}

// Progress reports encode advancement. One is offered after every
// encoded frame and dropped if the channel buffer is full; TotalFrames
// is not filled in.
type Progress struct {
	FramesEncoded int64
	TotalFrames   int64
}

type frameBundle struct {
	idx    int64
	tMs    int64
	screen *decoder.DecodedFrame
	webcam *decoder.DecodedFrame
}

type encodeItem struct {
	tMs  int64
	data []byte
}

// Exporter drives the bounded decode -> render -> encode pipeline.
type Exporter struct {
	cfg      Config
	renderer gpu.Renderer
	comp     *compositor.Compositor
	enc      *videoenc.Encoder
	pool     *workerpool.Pool

	progressCh chan Progress
}

// New builds an Exporter for cfg. The video track is written to a
// temporary path alongside OutputPath; Run muxes audio in afterward.
func New(cfg Config, renderer gpu.Renderer, rec cursor.Recording) (*Exporter, error) {
	if cfg.Proj.Sources.ScreenVideo == "" {
		return nil, corerr.New(corerr.KindInvalidState, "export.New", "project has no screen source")
	}
	if cfg.OutputPath == "" {
		return nil, corerr.New(corerr.KindInvalidState, "export.New", "output path required")
	}

	enc, err := videoenc.New(videoenc.Config{
		Width:          cfg.Proj.Sources.OriginalW,
		Height:         cfg.Proj.Sources.OriginalH,
		FPS:            cfg.Proj.Export.FPS,
		Quality:        videoenc.PresetFromQuality(cfg.Proj.Export.Quality),
		PreferHardware: cfg.Proj.Export.PreferHardware,
		OutputPath:     videoOnlyPath(cfg.OutputPath),
	})
	if err != nil {
		return nil, err
	}

	return &Exporter{
		cfg:        cfg,
		renderer:   renderer,
		comp:       compositor.New(cfg.Proj, renderer, rec),
		enc:        enc,
		pool:       workerpool.New(3, 3),
		progressCh: make(chan Progress, 16),
	}, nil
}

// Progress returns the channel progress events are emitted on. Run
// never blocks on it: an event that does not fit in the channel's
// buffer is dropped. Run closes the channel when it returns.
func (ex *Exporter) Progress() <-chan Progress { return ex.progressCh }

func videoOnlyPath(outPath string) string {
	return outPath + ".video.mp4"
}

// Run executes the full pipeline: decode, composite, encode, then
// (if any audio tracks were configured) mixes and muxes audio into
// the final OutputPath. It returns once the output file is complete
// or ctx is cancelled.
func (ex *Exporter) Run(ctx context.Context) error {
	defer close(ex.progressCh)

	screenSrc := decoder.Source{
		Path:   ex.cfg.Proj.Sources.ScreenVideo,
		Width:  ex.cfg.Proj.Sources.OriginalW,
		Height: ex.cfg.Proj.Sources.OriginalH,
		FPS:    float64(ex.cfg.Proj.Export.FPS),
	}
	screenDec, err := decoder.New(ctx, screenSrc)
	if err != nil {
		return err
	}
	defer screenDec.Close()

	var webcamDec *decoder.StreamDecoder
	if ex.cfg.Proj.Sources.WebcamVideo != "" {
		webcamSrc := screenSrc
		webcamSrc.Path = ex.cfg.Proj.Sources.WebcamVideo
		webcamDec, err = decoder.New(ctx, webcamSrc)
		if err != nil {
			return err
		}
		defer webcamDec.Close()
	}

	bundleCh := make(chan frameBundle, pipelineBufferSize)
	encodeCh := make(chan encodeItem, pipelineBufferSize)
	errCh := make(chan error, 3)

	ex.pool.Submit(func() { ex.decodeStage(ctx, screenDec, webcamDec, bundleCh, errCh) })
	ex.pool.Submit(func() { ex.renderStage(ctx, bundleCh, encodeCh, errCh) })
	ex.pool.Submit(func() { ex.encodeStage(ctx, encodeCh, errCh) })

	ex.pool.StopAccepting()
	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ex.pool.Drain(drainCtx)

	if err := ex.enc.Finalize(); err != nil {
		return err
	}

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	default:
	}

	if len(ex.cfg.AudioTracks) == 0 {
		if err := os.Rename(videoOnlyPath(ex.cfg.OutputPath), ex.cfg.OutputPath); err != nil {
			return corerr.Wrap(corerr.KindIO, "export.Run", err)
		}
		return nil
	}
	return muxAudio(ctx, videoOnlyPath(ex.cfg.OutputPath), ex.cfg.AudioTracks, ex.cfg.OutputPath)
}

// decodeStage reads screen (and optional webcam) frames strictly in
// order and bundles each pair by index, closing bundleCh at EOS.
func (ex *Exporter) decodeStage(ctx context.Context, screenDec, webcamDec *decoder.StreamDecoder, out chan<- frameBundle, errCh chan<- error) {
	defer close(out)
	var idx int64
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		sf, ok, err := screenDec.NextFrame()
		if err != nil {
			errCh <- err
			return
		}
		if !ok {
			return
		}
		var wf *decoder.DecodedFrame
		if webcamDec != nil {
			f, ok, err := webcamDec.NextFrame()
			if err != nil {
				log.Warn("webcam decode error, continuing without webcam frame", "error", err)
			} else if ok {
				wf = &f
			}
		}
		b := frameBundle{idx: idx, tMs: sf.TsMs, screen: &sf, webcam: wf}
		idx++
		select {
		case out <- b:
		case <-ctx.Done():
			return
		}
	}
}

// renderStage composites each bundle and round-trips it through the
// shared Renderer, mirroring the GPU texture upload/read-back path.
func (ex *Exporter) renderStage(ctx context.Context, in <-chan frameBundle, out chan<- encodeItem, errCh chan<- error) {
	defer close(out)
	for b := range in {
		composited, err := ex.comp.Composite(compositor.Input{
			TMs:     b.tMs,
			Screen:  rgbaFromFrame(b.screen),
			Webcam:  rgbaFromFrame(b.webcam),
			OutputW: ex.cfg.Proj.Sources.OriginalW,
			OutputH: ex.cfg.Proj.Sources.OriginalH,
		})
		if err != nil {
			errCh <- err
			return
		}
		tex, err := ex.renderer.TextureFromBGRA(composited.Pix, composited.Bounds().Dx(), composited.Bounds().Dy())
		if err != nil {
			errCh <- err
			return
		}
		pixels, err := ex.renderer.ReadTexture(tex)
		if err != nil {
			errCh <- err
			return
		}
		select {
		case out <- encodeItem{tMs: b.tMs, data: pixels}:
		case <-ctx.Done():
			return
		}
	}
}

// encodeStage submits each composited frame to the video encoder in
// order and reports progress.
func (ex *Exporter) encodeStage(ctx context.Context, in <-chan encodeItem, errCh chan<- error) {
	var n int64
	fps := ex.cfg.Proj.Export.FPS
	if fps <= 0 {
		fps = 30
	}
	for item := range in {
		pts := item.tMs * int64(fps) / 1000
		if err := ex.enc.Submit(item.data, pts); err != nil {
			errCh <- err
			return
		}
		n++
		select {
		case ex.progressCh <- Progress{FramesEncoded: n}:
		default:
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// rgbaFromFrame wraps a decoded frame's raw bytes as an *image.RGBA
// without copying. Returns nil for a nil frame.
func rgbaFromFrame(f *decoder.DecodedFrame) *image.RGBA {
	if f == nil {
		return nil
	}
	return &image.RGBA{Pix: f.Data, Stride: f.W * 4, Rect: image.Rect(0, 0, f.W, f.H)}
}

// buildAudioFilterGraph constructs an ffmpeg -filter_complex expression
// applying per-track volume then mixing every track to one output pad
// labeled [aout], or a single volume filter when there is one track.
func buildAudioFilterGraph(tracks []AudioTrack) string {
	if len(tracks) == 1 {
		return fmt.Sprintf("[0:a]volume=%g[aout]", tracks[0].Gain)
	}
	var parts []string
	var labels []string
	for i, t := range tracks {
		label := fmt.Sprintf("a%d", i)
		parts = append(parts, fmt.Sprintf("[%d:a]volume=%g[%s]", i, t.Gain, label))
		labels = append(labels, fmt.Sprintf("[%s]", label))
	}
	parts = append(parts, fmt.Sprintf("%samix=inputs=%d:duration=longest[aout]", strings.Join(labels, ""), len(tracks)))
	return strings.Join(parts, ";")
}

// muxAudio remuxes videoPath's video stream with the gain-adjusted,
// mixed audio tracks into outPath.
func muxAudio(ctx context.Context, videoPath string, tracks []AudioTrack, outPath string) error {
	args := []string{"-y", "-i", videoPath}
	for _, t := range tracks {
		args = append(args, "-i", t.Path)
	}
	args = append(args,
		"-filter_complex", buildAudioFilterGraph(tracks),
		"-map", "0:v",
		"-map", "[aout]",
		"-c:v", "copy",
		"-c:a", "aac",
		"-movflags", "+faststart",
		outPath,
	)
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return corerr.Wrap(corerr.KindEncoderExitNonZero, "export.muxAudio", fmt.Errorf("%w: %s", err, out))
	}
	return nil
}
