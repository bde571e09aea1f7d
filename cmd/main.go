package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/seqtransit/timetable"
	"github.com/seqtransit/timetable/config"
	"github.com/seqtransit/timetable/downloader"
	"github.com/seqtransit/timetable/logger"
)

var rootCmd = &cobra.Command{
	Use:          "timetable",
	Short:        "SEQ transit timetable tool",
	Long:         "Serves and queries the SEQ transit timetable",
	SilenceUsage: true,
}

var (
	configPath string
	quiet      bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress log output")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(departuresCmd)
	rootCmd.AddCommand(trainsCmd)
	rootCmd.AddCommand(stopsCmd)
}

func main() {
	// Missing .env is fine; env overrides are optional.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

func newLogger(cfg *config.Config) logger.Logger {
	if quiet {
		return logger.Nop()
	}
	writers := []io.Writer{logger.ConsoleWriter()}
	if cfg.Logging.FilePath != "" {
		writers = append(writers, logger.FileWriter(cfg.Logging.FilePath))
	}
	return logger.New(cfg.Logging.Level, writers...)
}

// loadManager builds a manager with a filesystem download cache and
// performs the initial schedule load. One-shot commands use this to
// avoid re-downloading the schedule zip on every invocation.
func loadManager(ctx context.Context) (*timetable.Manager, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	manager := timetable.NewManager(cfg, newLogger(cfg))

	fs, err := downloader.NewFilesystem("./timetable-cache.json")
	if err != nil {
		return nil, fmt.Errorf("creating download cache: %w", err)
	}
	manager.SetDownloader(fs)

	if err := manager.RefreshStatic(ctx); err != nil {
		return nil, fmt.Errorf("loading schedule dataset: %w", err)
	}
	if err := manager.RefreshRealtime(ctx); err != nil {
		return nil, fmt.Errorf("loading realtime feed: %w", err)
	}

	return manager, nil
}
