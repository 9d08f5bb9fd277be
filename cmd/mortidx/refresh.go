package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	// Import notifiers for self-registration
	_ "github.com/mortidx/mortidx/internal/notifiers"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run one index refresh",
	Long:  "Run the full refresh sequence once: transfer provider data, rebuild the index, archive it and rotate the archive into every backup destination.",
	RunE:  runRefresh,
}

func init() {
	addPipelineFlags(refreshCmd)
}

// addPipelineFlags registers the flags shared by refresh and daemon
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&cfg.BuildCommand, "build-command", cfg.BuildCommand, "Build tool driving the pipeline steps")
	cmd.Flags().StringVar(&cfg.BuildDir, "build-dir", cfg.BuildDir, "Directory the build tool runs in")
	cmd.Flags().StringVar(&cfg.ArchiveGlob, "archive-glob", cfg.ArchiveGlob, "Archive naming pattern")
	cmd.Flags().IntVar(&cfg.RetentionCount, "retention", cfg.RetentionCount, "Archives kept per destination")
	cmd.Flags().IntVar(&cfg.StatsMinDigits, "stats-min-digits", cfg.StatsMinDigits, "Minimum digit run for log counters")
	cmd.Flags().StringVar(&cfg.IndexName, "index", cfg.IndexName, "Index name for document-count reporting")
	cmd.Flags().StringSliceVar(&cfg.IndexStoreAddrs, "index-store", nil, "Index store addresses (e.g. http://localhost:9200)")
	cmd.Flags().StringVar(&cfg.IndexStoreContainer, "index-store-container", "", "Manage the index store as this container instead of build targets")
	cmd.Flags().StringVar(&cfg.DockerHost, "docker-host", cfg.DockerHost, "Container runtime socket")
	cmd.Flags().StringVar(&cfg.DefaultStorage, "default-storage", "", "Default storage pool name")
	cmd.Flags().StringArrayVar(&cfg.StorageArgs, "storage", []string{}, "Storage pool configuration (format: pool.option=value)")
	cmd.Flags().StringArrayVar(&cfg.NotifyArgs, "notify", []string{}, "Notification provider configuration (format: provider.option=value)")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	setupLogging()

	pools, err := buildPoolManager()
	if err != nil {
		return err
	}

	p, cleanup, err := buildPipeline(pools)
	defer cleanup()
	if err != nil {
		return err
	}

	res, err := p.Run(cmd.Context())
	if err != nil {
		return err
	}

	slog.Info("refresh finished",
		"archive", res.Archive,
		"duration", res.FinishedAt.Sub(res.StartedAt),
	)
	return nil
}
