package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/screenstudio/core/internal/capture"
	"github.com/screenstudio/core/internal/config"
	"github.com/screenstudio/core/internal/corerr"
	"github.com/screenstudio/core/internal/cursor"
	"github.com/screenstudio/core/internal/recording"
	"github.com/screenstudio/core/internal/videoenc"
)

var (
	recordDisplay     int
	recordRegion      string
	recordFPS         int
	recordQuality     int
	recordSystemAudio bool
	recordMicAudio    bool
	recordWebcam      bool
	recordNoCursor    bool
	recordOutputDir   string
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record the screen until interrupted",
	RunE:  runRecord,
}

func init() {
	recordCmd.Flags().IntVar(&recordDisplay, "display", 0, "display index to capture")
	recordCmd.Flags().StringVar(&recordRegion, "region", "", "capture a region instead of a full display, as x,y,w,h")
	recordCmd.Flags().IntVar(&recordFPS, "fps", 0, "capture frame rate (0 = config default)")
	recordCmd.Flags().IntVar(&recordQuality, "quality", 0, "encoder quality 0-100 (0 = config default)")
	recordCmd.Flags().BoolVar(&recordSystemAudio, "system-audio", false, "capture system audio loopback")
	recordCmd.Flags().BoolVar(&recordMicAudio, "mic-audio", false, "capture microphone audio")
	recordCmd.Flags().BoolVar(&recordWebcam, "webcam", false, "capture a webcam feed alongside the screen")
	recordCmd.Flags().BoolVar(&recordNoCursor, "no-cursor", false, "disable cursor position/shape tracking")
	recordCmd.Flags().StringVar(&recordOutputDir, "output-dir", "", "recording directory (default: config output_dir/<timestamp_ms>)")
}

func runRecord(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return corerr.Wrap(corerr.KindInvalidState, "record", err)
	}
	initLogging(cfg)

	target, err := parseCaptureTarget(recordDisplay, recordRegion)
	if err != nil {
		return err
	}

	fps := recordFPS
	if fps <= 0 {
		fps = cfg.DefaultFPS
	}
	quality := recordQuality
	if quality <= 0 {
		quality = cfg.DefaultQuality
	}

	dir := recordOutputDir
	if dir == "" {
		dir = filepath.Join(cfg.OutputDir, fmt.Sprintf("%d", time.Now().UnixMilli()))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return corerr.Wrap(corerr.KindIO, "record", err)
	}

	sessCfg := recording.Config{
		CaptureOpts: capture.Options{
			Target: target,
			FPS:    fps,
			Cursor: !recordNoCursor,
		},
		EnableSystemAudio: recordSystemAudio || cfg.SystemAudioEnabled,
		EnableMicAudio:    recordMicAudio || cfg.MicAudioEnabled,
		EnableWebcam:      recordWebcam,
		FragmentDir:       dir,
		OutputDir:         dir,
		ScreenEncoder: videoenc.Config{
			FPS:            fps,
			Quality:        videoenc.PresetFromQuality(quality),
			PreferHardware: cfg.PreferHardwareEncoder,
			OutputPath:     filepath.Join(dir, "screen.mp4"),
		},
		CountdownSeconds: cfg.CountdownSeconds,
	}
	if recordWebcam {
		sessCfg.WebcamEncoder = videoenc.Config{
			FPS:            fps,
			Quality:        videoenc.PresetFromQuality(quality),
			PreferHardware: cfg.PreferHardwareEncoder,
			OutputPath:     filepath.Join(dir, "webcam.mp4"),
		}
	}

	var provider cursor.Provider
	if cfg.CursorEnabled && !recordNoCursor {
		provider = cursor.NewDefaultProvider()
	}
	crop := cursor.CropBounds{}
	if target.Kind == capture.TargetRegion {
		crop = cursor.CropBounds{X: target.Region.X, Y: target.Region.Y, W: target.Region.W, H: target.Region.H}
	}

	sess, err := recording.New(sessCfg, provider, crop)
	if err != nil {
		return err
	}

	ctx, cancel := notifyContext()
	defer cancel()

	done := make(chan struct{})
	go func() {
		sess.Start()
		close(done)
	}()

	go func() {
		for p := range sess.Progress() {
			log.Info("recording progress", "frames_encoded", p.FramesEncoded, "elapsed_ms", p.ElapsedMs)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("stopping recording")
		sess.Stop()
		<-done
	case <-done:
	}

	if sess.State() == recording.StateError {
		return sess.Err()
	}
	fmt.Printf("recording saved to %s\n", filepath.Join(dir, "project.json"))
	return nil
}

func parseCaptureTarget(display int, region string) (capture.Target, error) {
	if region == "" {
		return capture.Target{Kind: capture.TargetDisplay, DisplayIndex: display}, nil
	}
	var x, y, w, h int
	if _, err := fmt.Sscanf(region, "%d,%d,%d,%d", &x, &y, &w, &h); err != nil {
		return capture.Target{}, corerr.New(corerr.KindInvalidRegion, "record", fmt.Sprintf("invalid --region %q, want x,y,w,h", region))
	}
	if w <= 0 || h <= 0 {
		return capture.Target{}, corerr.New(corerr.KindInvalidRegion, "record", fmt.Sprintf("region %q has non-positive size", region))
	}
	return capture.Target{Kind: capture.TargetRegion, Region: capture.Rect{X: x, Y: y, W: w, H: h}}, nil
}
