package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mortidx/mortidx/internal/config"
	"github.com/spf13/cobra"

	// Import storage backends for self-registration
	_ "github.com/mortidx/mortidx/internal/storages/local"
	_ "github.com/mortidx/mortidx/internal/storages/s3"
)

var (
	cfg = config.New()

	rootCmd = &cobra.Command{
		Use:   "mortidx",
		Short: "Mortality-record search index refresh pipeline",
		Long:  "Rebuilds the mortality-record search index from provider drops, rotates the resulting snapshots into backup destinations and reports run statistics.",
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.SourceDir, "source-dir", "", "Drop-off directory filled by the data provider")
	rootCmd.PersistentFlags().StringVar(&cfg.WorkDir, "work-dir", cfg.WorkDir, "Backend working directory (contains upload/, backup/, esdata/, log/)")
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json)")

	// Add commands
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(statsCmd)
}

func setupLogging() {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
