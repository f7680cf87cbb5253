package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/screenstudio/core/internal/config"
	"github.com/screenstudio/core/internal/corerr"
	"github.com/screenstudio/core/internal/editor"
	"github.com/screenstudio/core/internal/gpu"
	"github.com/screenstudio/core/internal/previewws"
	"github.com/screenstudio/core/internal/project"
)

var (
	previewProjectPath string
	previewBindAddr    string
)

var servePreviewCmd = &cobra.Command{
	Use:   "serve-preview",
	Short: "Serve an editor's composited frames over a local WebSocket",
	RunE:  runServePreview,
}

func init() {
	servePreviewCmd.Flags().StringVar(&previewProjectPath, "project", "", "path to project.json")
	servePreviewCmd.Flags().StringVar(&previewBindAddr, "addr", "", "bind address (default: config preview_bind_addr)")
	servePreviewCmd.MarkFlagRequired("project")
}

func runServePreview(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return corerr.Wrap(corerr.KindInvalidState, "serve-preview", err)
	}
	initLogging(cfg)

	data, err := os.ReadFile(previewProjectPath)
	if err != nil {
		return corerr.Wrap(corerr.KindIO, "serve-preview", err)
	}
	proj, err := project.Unmarshal(data)
	if err != nil {
		return err
	}

	rec, err := loadCursorRecording(proj.Sources.CursorStream)
	if err != nil {
		return err
	}

	renderer, err := gpu.New()
	if err != nil {
		return corerr.Wrap(corerr.KindGpuInit, "serve-preview", err)
	}
	defer renderer.Close()

	inst := editor.New(proj, renderer, rec)

	addr := previewBindAddr
	if addr == "" {
		addr = cfg.PreviewBindAddr
	}
	srv := previewws.New(inst, addr)

	ctx, cancel := notifyContext()
	defer cancel()

	go inst.Run(ctx)
	inst.Play()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	fmt.Printf("serving preview on %s\n", addr)

	select {
	case <-ctx.Done():
		log.Info("shutting down preview server")
		srv.Close()
		inst.Stop()
		return nil
	case err := <-errCh:
		return err
	}
}
