package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/screenstudio/core/internal/corerr"
	"github.com/screenstudio/core/internal/cursor"
	"github.com/screenstudio/core/internal/export"
	"github.com/screenstudio/core/internal/gpu"
	"github.com/screenstudio/core/internal/project"
)

var (
	exportProjectPath string
	exportOutputPath  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render a project to a finished video file",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportProjectPath, "project", "", "path to project.json")
	exportCmd.Flags().StringVar(&exportOutputPath, "output", "", "output file path")
	exportCmd.MarkFlagRequired("project")
	exportCmd.MarkFlagRequired("output")
}

func runExport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(exportProjectPath)
	if err != nil {
		return corerr.Wrap(corerr.KindIO, "export", err)
	}
	proj, err := project.Unmarshal(data)
	if err != nil {
		return err
	}
	if err := project.Validate(proj); err != nil {
		return err
	}

	rec, err := loadCursorRecording(proj.Sources.CursorStream)
	if err != nil {
		return err
	}

	renderer, err := gpu.New()
	if err != nil {
		return corerr.Wrap(corerr.KindGpuInit, "export", err)
	}
	defer renderer.Close()

	var audioTracks []export.AudioTrack
	if proj.Sources.SystemAudio != "" {
		audioTracks = append(audioTracks, export.AudioTrack{Path: proj.Sources.SystemAudio, Gain: 1})
	}
	if proj.Sources.MicAudio != "" {
		audioTracks = append(audioTracks, export.AudioTrack{Path: proj.Sources.MicAudio, Gain: 1})
	}

	exporter, err := export.New(export.Config{
		Proj:        proj,
		OutputPath:  exportOutputPath,
		AudioTracks: audioTracks,
	}, renderer, rec)
	if err != nil {
		return err
	}

	ctx, cancel := notifyContext()
	defer cancel()

	go func() {
		for p := range exporter.Progress() {
			log.Info("export progress", "frames_encoded", p.FramesEncoded)
		}
	}()

	if err := exporter.Run(ctx); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", exportOutputPath)
	return nil
}

// loadCursorRecording reads the cursor.json referenced by a project's
// CursorStream path. A project with no cursor stream exports with no
// cursor overlay drawn.
func loadCursorRecording(path string) (cursor.Recording, error) {
	if path == "" {
		return cursor.Recording{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cursor.Recording{}, corerr.Wrap(corerr.KindIO, "export.loadCursorRecording", err)
	}
	var rec cursor.Recording
	if err := json.Unmarshal(data, &rec); err != nil {
		return cursor.Recording{}, corerr.Wrap(corerr.KindJSON, "export.loadCursorRecording", err)
	}
	return rec, nil
}
