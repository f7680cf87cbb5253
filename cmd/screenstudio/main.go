package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/screenstudio/core/internal/config"
	"github.com/screenstudio/core/internal/corerr"
	"github.com/screenstudio/core/internal/logging"
)

var (
	version = "0.1.0"
	cfgFile string
)

var log = logging.L("main")

var rootCmd = &cobra.Command{
	Use:   "screenstudio",
	Short: "ScreenStudio capture and export core",
	Long:  `ScreenStudio core - screen/webcam recording, GPU compositing, and export pipeline`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is the platform config dir)")

	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(servePreviewCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a corerr.Kind to the CLI's exit code contract: 0
// success, 1 generic error, 2 invalid arguments, 3 device unavailable,
// 4 encoder failure.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	switch {
	case corerr.Is(err, corerr.KindInvalidState),
		corerr.Is(err, corerr.KindInvalidRegion),
		corerr.Is(err, corerr.KindInvalidProject):
		return 2
	case corerr.Is(err, corerr.KindCaptureUnavailable),
		corerr.Is(err, corerr.KindCaptureDeviceLost),
		corerr.Is(err, corerr.KindAudioNoDevice),
		corerr.Is(err, corerr.KindGpuInit),
		corerr.Is(err, corerr.KindGpuDeviceLost):
		return 3
	case corerr.Is(err, corerr.KindEncoderNotFound),
		corerr.Is(err, corerr.KindEncoderSpawn),
		corerr.Is(err, corerr.KindEncoderWriteFailed),
		corerr.Is(err, corerr.KindEncoderExitNonZero):
		return 4
	default:
		return 1
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("screenstudio v%s\n", version)
	},
}

// initLogging sets up structured logging from config. Call after
// config.Load().
func initLogging(cfg *config.Config) {
	var output io.Writer = os.Stdout
	logFileFallback := false

	if cfg.LogFile != "" {
		rw, err := logging.NewRotatingWriter(cfg.LogFile, cfg.LogMaxSizeMB, cfg.LogMaxBackups)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v (logging to stdout)\n", cfg.LogFile, err)
			logFileFallback = true
		} else {
			output = logging.TeeWriter(os.Stdout, rw)
		}
	}

	logging.Init(cfg.LogFormat, cfg.LogLevel, output)
	log = logging.L("main")

	if logFileFallback {
		log.Warn("log file fallback active, logging to stdout only", "requestedFile", cfg.LogFile)
	}
}

// notifyContext returns a context canceled on SIGINT/SIGTERM.
func notifyContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
