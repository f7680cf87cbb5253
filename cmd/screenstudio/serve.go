package main

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/spf13/cobra"

	"github.com/screenstudio/core/internal/capture"
	"github.com/screenstudio/core/internal/config"
	"github.com/screenstudio/core/internal/corerr"
	"github.com/screenstudio/core/internal/cursor"
	"github.com/screenstudio/core/internal/editor"
	"github.com/screenstudio/core/internal/export"
	"github.com/screenstudio/core/internal/gpu"
	"github.com/screenstudio/core/internal/ipc"
	"github.com/screenstudio/core/internal/previewws"
	"github.com/screenstudio/core/internal/project"
	"github.com/screenstudio/core/internal/recording"
	"github.com/screenstudio/core/internal/videoenc"
)

var serveSocketPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the command-surface IPC server for the UI collaborator process",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveSocketPath, "socket", "", "command-surface socket/pipe path (default: platform default)")
}

// editorEntry bundles one editor Instance with the preview server
// broadcasting its composited frames.
type editorEntry struct {
	inst    *editor.Instance
	preview *previewws.Server
	cancel  func()
}

// serveState holds everything the command-surface handlers share:
// the live config, the at-most-one active recording session, and the
// set of open editor instances, each keyed by a generated id.
type serveState struct {
	cfgStore *config.Store

	mu      sync.Mutex
	sess    *recording.Session
	sessDir string
	editors map[string]*editorEntry
	nextID  int
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return corerr.Wrap(corerr.KindInvalidState, "serve", err)
	}
	initLogging(cfg)

	socketPath := serveSocketPath
	if socketPath == "" {
		socketPath = ipc.DefaultSocketPath()
	}

	st := &serveState{
		cfgStore: config.NewStore(cfg),
		editors:  make(map[string]*editorEntry),
	}

	srv := ipc.NewServer(socketPath)
	srv.Handle(ipc.TypeSetRecordingConfig, st.handleSetRecordingConfig)
	srv.Handle(ipc.TypePrepareRecording, st.handlePrepareRecording)
	srv.Handle(ipc.TypeStartRecording, st.handleStartRecording)
	srv.Handle(ipc.TypePauseRecording, st.handlePauseRecording)
	srv.Handle(ipc.TypeResumeRecording, st.handleResumeRecording)
	srv.Handle(ipc.TypeStopRecording, st.handleStopRecording)
	srv.Handle(ipc.TypeCancelRecording, st.handleCancelRecording)
	srv.Handle(ipc.TypeGetRecordingState, st.handleGetRecordingState)
	srv.Handle(ipc.TypeCreateEditor, st.handleCreateEditor)
	srv.Handle(ipc.TypeEditorPlay, st.handleEditorPlay)
	srv.Handle(ipc.TypeEditorPause, st.handleEditorPause)
	srv.Handle(ipc.TypeEditorSeek, st.handleEditorSeek)
	srv.Handle(ipc.TypeEditorSetSpeed, st.handleEditorSetSpeed)
	srv.Handle(ipc.TypeEditorRenderFrame, st.handleEditorRenderFrame)
	srv.Handle(ipc.TypeExport, st.handleExport)

	ctx, cancel := notifyContext()
	defer cancel()

	stopChan := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(stopChan)
	}()

	fmt.Printf("serving command surface on %s\n", socketPath)
	return srv.Serve(stopChan)
}

func (st *serveState) handleSetRecordingConfig(conn *ipc.Conn, id string, payload json.RawMessage) (any, error) {
	var cfg config.Config
	if err := json.Unmarshal(payload, &cfg); err != nil {
		return nil, corerr.Wrap(corerr.KindJSON, "serve.handleSetRecordingConfig", err)
	}
	if err := st.cfgStore.Replace(&cfg); err != nil {
		return nil, corerr.Wrap(corerr.KindInvalidState, "serve.handleSetRecordingConfig", err)
	}
	return struct{}{}, nil
}

func (st *serveState) handlePrepareRecording(conn *ipc.Conn, id string, payload json.RawMessage) (any, error) {
	var req ipc.PrepareRecordingRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, corerr.Wrap(corerr.KindJSON, "serve.handlePrepareRecording", err)
	}
	st.mu.Lock()
	st.sessDir = req.Dir
	st.mu.Unlock()
	return struct{}{}, nil
}

func targetFromIPC(t ipc.RecordingTarget) (capture.Target, error) {
	switch t.Kind {
	case "display":
		return capture.Target{Kind: capture.TargetDisplay, DisplayIndex: t.DisplayIndex}, nil
	case "region":
		if t.RegionW <= 0 || t.RegionH <= 0 {
			return capture.Target{}, corerr.New(corerr.KindInvalidRegion, "serve.targetFromIPC", "region has non-positive size")
		}
		return capture.Target{Kind: capture.TargetRegion, Region: capture.Rect{X: t.RegionX, Y: t.RegionY, W: t.RegionW, H: t.RegionH}}, nil
	case "window":
		id, err := strconv.ParseUint(t.WindowID, 10, 64)
		if err != nil {
			return capture.Target{}, corerr.Wrap(corerr.KindInvalidRegion, "serve.targetFromIPC", err)
		}
		return capture.Target{Kind: capture.TargetWindow, WindowID: uintptr(id)}, nil
	default:
		return capture.Target{}, corerr.New(corerr.KindInvalidState, "serve.targetFromIPC", fmt.Sprintf("unknown target kind %q", t.Kind))
	}
}

func (st *serveState) handleStartRecording(conn *ipc.Conn, id string, payload json.RawMessage) (any, error) {
	var req ipc.StartRecordingRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, corerr.Wrap(corerr.KindJSON, "serve.handleStartRecording", err)
	}
	target, err := targetFromIPC(req.Target)
	if err != nil {
		return nil, err
	}

	cfg := st.cfgStore.Get()

	st.mu.Lock()
	if st.sess != nil && st.sess.State() != recording.StateCompleted && st.sess.State() != recording.StateCancelled && st.sess.State() != recording.StateError {
		st.mu.Unlock()
		return nil, corerr.New(corerr.KindInvalidState, "serve.handleStartRecording", "a recording is already in progress")
	}
	dir := st.sessDir
	st.mu.Unlock()
	if dir == "" {
		return nil, corerr.New(corerr.KindInvalidState, "serve.handleStartRecording", "prepare_recording must run before start_recording")
	}

	sessCfg := recording.Config{
		CaptureOpts: capture.Options{
			Target: target,
			FPS:    cfg.DefaultFPS,
			Cursor: cfg.CursorEnabled,
		},
		EnableSystemAudio: cfg.SystemAudioEnabled,
		EnableMicAudio:    cfg.MicAudioEnabled,
		FragmentDir:       dir,
		OutputDir:         dir,
		ScreenEncoder: videoEncoderConfig(cfg, dir, "screen.mp4"),
		CountdownSeconds: cfg.CountdownSeconds,
	}

	var provider cursor.Provider
	if cfg.CursorEnabled {
		provider = cursor.NewDefaultProvider()
	}
	crop := cursor.CropBounds{}
	if target.Kind == capture.TargetRegion {
		crop = cursor.CropBounds{X: target.Region.X, Y: target.Region.Y, W: target.Region.W, H: target.Region.H}
	}

	sess, err := recording.New(sessCfg, provider, crop)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	st.sess = sess
	st.mu.Unlock()

	go sess.Start()

	return ipc.RecordingStateResponse{State: sess.State().String()}, nil
}

func (st *serveState) currentSession() (*recording.Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.sess == nil {
		return nil, corerr.New(corerr.KindInvalidState, "serve", "no recording session is active")
	}
	return st.sess, nil
}

func (st *serveState) handlePauseRecording(conn *ipc.Conn, id string, payload json.RawMessage) (any, error) {
	sess, err := st.currentSession()
	if err != nil {
		return nil, err
	}
	sess.Pause()
	return struct{}{}, nil
}

func (st *serveState) handleResumeRecording(conn *ipc.Conn, id string, payload json.RawMessage) (any, error) {
	sess, err := st.currentSession()
	if err != nil {
		return nil, err
	}
	sess.Resume()
	return struct{}{}, nil
}

func (st *serveState) handleStopRecording(conn *ipc.Conn, id string, payload json.RawMessage) (any, error) {
	sess, err := st.currentSession()
	if err != nil {
		return nil, err
	}
	sess.Stop()
	return struct{}{}, nil
}

func (st *serveState) handleCancelRecording(conn *ipc.Conn, id string, payload json.RawMessage) (any, error) {
	sess, err := st.currentSession()
	if err != nil {
		return nil, err
	}
	sess.Cancel()
	return struct{}{}, nil
}

func (st *serveState) handleGetRecordingState(conn *ipc.Conn, id string, payload json.RawMessage) (any, error) {
	st.mu.Lock()
	sess := st.sess
	st.mu.Unlock()
	if sess == nil {
		return ipc.RecordingStateResponse{State: recording.StateIdle.String()}, nil
	}
	var elapsedMs int64
	select {
	case p := <-sess.Progress():
		elapsedMs = p.ElapsedMs
	default:
	}
	return ipc.RecordingStateResponse{State: sess.State().String(), ElapsedMs: elapsedMs}, nil
}

func (st *serveState) handleCreateEditor(conn *ipc.Conn, id string, payload json.RawMessage) (any, error) {
	var req ipc.CreateEditorRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, corerr.Wrap(corerr.KindJSON, "serve.handleCreateEditor", err)
	}
	proj, err := project.Unmarshal(req.ProjectJSON)
	if err != nil {
		return nil, err
	}
	if err := project.Validate(proj); err != nil {
		return nil, err
	}

	rec, err := loadCursorRecording(proj.Sources.CursorStream)
	if err != nil {
		return nil, err
	}

	renderer, err := gpu.New()
	if err != nil {
		return nil, corerr.Wrap(corerr.KindGpuInit, "serve.handleCreateEditor", err)
	}

	inst := editor.New(proj, renderer, rec)
	preview := previewws.New(inst, st.cfgStore.Get().PreviewBindAddr)
	if err := preview.Listen(); err != nil {
		renderer.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	go inst.Run(ctx)
	go func() {
		if err := preview.Serve(); err != nil {
			log.Warn("preview server stopped", "error", err)
		}
	}()

	st.mu.Lock()
	st.nextID++
	editorID := fmt.Sprintf("editor-%d", st.nextID)
	st.editors[editorID] = &editorEntry{inst: inst, preview: preview, cancel: cancel}
	st.mu.Unlock()

	return ipc.CreateEditorResponse{EditorID: editorID, PreviewURL: "ws://" + preview.Addr() + "/"}, nil
}

func (st *serveState) editorByID(editorID string) (*editorEntry, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	e, ok := st.editors[editorID]
	if !ok {
		return nil, corerr.New(corerr.KindInvalidState, "serve", fmt.Sprintf("unknown editor id %q", editorID))
	}
	return e, nil
}

func (st *serveState) handleEditorPlay(conn *ipc.Conn, id string, payload json.RawMessage) (any, error) {
	var req ipc.EditorSeekRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, corerr.Wrap(corerr.KindJSON, "serve.handleEditorPlay", err)
	}
	e, err := st.editorByID(req.EditorID)
	if err != nil {
		return nil, err
	}
	e.inst.Play()
	return struct{}{}, nil
}

func (st *serveState) handleEditorPause(conn *ipc.Conn, id string, payload json.RawMessage) (any, error) {
	var req ipc.EditorSeekRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, corerr.Wrap(corerr.KindJSON, "serve.handleEditorPause", err)
	}
	e, err := st.editorByID(req.EditorID)
	if err != nil {
		return nil, err
	}
	e.inst.Pause()
	return struct{}{}, nil
}

func (st *serveState) handleEditorSeek(conn *ipc.Conn, id string, payload json.RawMessage) (any, error) {
	var req ipc.EditorSeekRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, corerr.Wrap(corerr.KindJSON, "serve.handleEditorSeek", err)
	}
	e, err := st.editorByID(req.EditorID)
	if err != nil {
		return nil, err
	}
	e.inst.Seek(req.TMs)
	return struct{}{}, nil
}

func (st *serveState) handleEditorSetSpeed(conn *ipc.Conn, id string, payload json.RawMessage) (any, error) {
	var req ipc.EditorSetSpeedRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, corerr.Wrap(corerr.KindJSON, "serve.handleEditorSetSpeed", err)
	}
	e, err := st.editorByID(req.EditorID)
	if err != nil {
		return nil, err
	}
	e.inst.SetSpeed(req.Speed)
	return struct{}{}, nil
}

func (st *serveState) handleEditorRenderFrame(conn *ipc.Conn, id string, payload json.RawMessage) (any, error) {
	var req ipc.EditorSeekRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, corerr.Wrap(corerr.KindJSON, "serve.handleEditorRenderFrame", err)
	}
	e, err := st.editorByID(req.EditorID)
	if err != nil {
		return nil, err
	}
	e.inst.RenderFrame(req.TMs)
	return struct{}{}, nil
}

// handleExport runs a full export in the background, pushing
// export_progress envelopes to the requesting connection as frames
// encode and a final done=true envelope when Run returns. It replies
// immediately with nil so dispatch sends no synchronous response.
func (st *serveState) handleExport(conn *ipc.Conn, id string, payload json.RawMessage) (any, error) {
	var req ipc.ExportRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, corerr.Wrap(corerr.KindJSON, "serve.handleExport", err)
	}
	proj, err := project.Unmarshal(req.ProjectJSON)
	if err != nil {
		return nil, err
	}
	if err := project.Validate(proj); err != nil {
		return nil, err
	}

	rec, err := loadCursorRecording(proj.Sources.CursorStream)
	if err != nil {
		return nil, err
	}

	renderer, err := gpu.New()
	if err != nil {
		return nil, corerr.Wrap(corerr.KindGpuInit, "serve.handleExport", err)
	}

	var audioTracks []export.AudioTrack
	if proj.Sources.SystemAudio != "" {
		audioTracks = append(audioTracks, export.AudioTrack{Path: proj.Sources.SystemAudio, Gain: 1})
	}
	if proj.Sources.MicAudio != "" {
		audioTracks = append(audioTracks, export.AudioTrack{Path: proj.Sources.MicAudio, Gain: 1})
	}

	exporter, err := export.New(export.Config{
		Proj:        proj,
		OutputPath:  req.OutputPath,
		AudioTracks: audioTracks,
	}, renderer, rec)
	if err != nil {
		renderer.Close()
		return nil, err
	}

	go func() {
		defer renderer.Close()
		go func() {
			for p := range exporter.Progress() {
				conn.SendTyped(id, ipc.TypeExportProgress, ipc.ExportProgress{
					FramesDone: uint64(p.FramesEncoded),
				})
			}
		}()

		runErr := exporter.Run(context.Background())
		final := ipc.ExportProgress{Done: true}
		if runErr != nil {
			final.Error = runErr.Error()
		}
		conn.SendTyped(id, ipc.TypeExportProgress, final)
	}()

	return nil, nil
}

func videoEncoderConfig(cfg *config.Config, dir, filename string) videoenc.Config {
	return videoenc.Config{
		FPS:            cfg.DefaultFPS,
		Quality:        videoenc.PresetFromQuality(cfg.DefaultQuality),
		PreferHardware: cfg.PreferHardwareEncoder,
		OutputPath:     filepath.Join(dir, filename),
	}
}
