package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mortidx/mortidx/internal/scheduler"
	"github.com/mortidx/mortidx/internal/status"
	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run refreshes on a schedule",
	Long:  "Run the refresh pipeline on a cron schedule and expose a status API.",
	RunE:  runDaemon,
}

func init() {
	addPipelineFlags(daemonCmd)
	daemonCmd.Flags().StringVar(&cfg.Schedule, "schedule", cfg.Schedule, "Cron schedule for the refresh")
	daemonCmd.Flags().StringVar(&cfg.StatusAddr, "status-addr", "", "Enable status API on address (e.g. :8080)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	setupLogging()

	slog.Info("starting mortidx daemon",
		"schedule", cfg.Schedule,
		"work_dir", cfg.WorkDir,
	)

	pools, err := buildPoolManager()
	if err != nil {
		return err
	}

	p, cleanup, err := buildPipeline(pools)
	defer cleanup()
	if err != nil {
		return err
	}

	sched := scheduler.New()

	var statusServer *status.Server
	triggerRefresh := func(ctx context.Context) error {
		res, err := p.Run(ctx)
		if statusServer != nil && res != nil {
			snapshot := status.RunSnapshot{
				Archive:    res.Archive,
				Success:    err == nil,
				LogMissing: res.LogMissing,
				StartedAt:  res.StartedAt,
				FinishedAt: res.FinishedAt,
			}
			if err != nil {
				snapshot.Error = err.Error()
			}
			statusServer.SetLastRun(snapshot)
		}
		return err
	}

	if cfg.StatusAddr != "" {
		statusServer = status.NewServer(cfg.StatusAddr, pools, sched, triggerRefresh)
		go func() {
			if err := statusServer.Start(); err != nil && err != http.ErrServerClosed {
				slog.Error("status server error", "error", err)
			}
		}()
	}

	err = sched.AddJob("refresh", cfg.Schedule, func(ctx context.Context) {
		if err := triggerRefresh(ctx); err != nil {
			slog.Error("scheduled refresh failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	sched.Start()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	slog.Info("received shutdown signal", "signal", sig)

	// Graceful shutdown: let a running refresh finish.
	<-sched.Stop().Done()
	if statusServer != nil {
		if err := statusServer.Shutdown(context.Background()); err != nil {
			slog.Warn("status server shutdown error", "error", err)
		}
	}

	slog.Info("daemon stopped")
	return nil
}
