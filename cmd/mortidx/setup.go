package main

import (
	"log/slog"
	"path/filepath"

	"github.com/mortidx/mortidx/internal/config"
	"github.com/mortidx/mortidx/internal/docker"
	"github.com/mortidx/mortidx/internal/indexstore"
	"github.com/mortidx/mortidx/internal/logstats"
	"github.com/mortidx/mortidx/internal/notification"
	"github.com/mortidx/mortidx/internal/pipeline"
	"github.com/mortidx/mortidx/internal/rotation"
	"github.com/mortidx/mortidx/internal/storage"
	"github.com/mortidx/mortidx/internal/taskrunner"
)

// buildPoolManager resolves backup destinations. When nothing is configured a
// local pool under the working directory is used, so a bare invocation still
// rotates archives somewhere durable.
func buildPoolManager() (*storage.PoolManager, error) {
	if err := cfg.ParseStoragePools(); err != nil {
		return nil, err
	}

	if len(cfg.StoragePools) == 0 {
		archiveDir := filepath.Join(cfg.WorkDir, "archive")
		slog.Info("no storage pools configured, using local pool", "path", archiveDir)
		cfg.StoragePools["local"] = &config.StoragePool{
			Name:    "local",
			Type:    "local",
			Options: map[string]string{"path": archiveDir},
		}
		cfg.DefaultStorage = "local"
	}

	for name, pool := range cfg.StoragePools {
		slog.Info("storage pool", "name", name, "type", pool.Type)
	}

	return storage.NewPoolManager(cfg.StoragePools, cfg.DefaultStorage)
}

func buildNotifyManager() (*notification.Manager, error) {
	if err := cfg.ParseNotifyConfigs(); err != nil {
		return nil, err
	}

	manager := notification.NewManager()
	for name, notifyCfg := range cfg.NotifyConfigs {
		notifier, err := notification.CreateNotifier(notifyCfg.Type, name, notifyCfg.Options)
		if err != nil {
			return nil, err
		}
		manager.AddNotifier(name, notifier)
		slog.Info("notification provider configured", "name", name, "type", notifyCfg.Type)
	}

	return manager, nil
}

// buildRunner wires the build-tool runner, routing index-store lifecycle
// through Docker when a container name is configured. The returned cleanup
// closes the Docker client and is safe to call unconditionally.
func buildRunner() (taskrunner.Runner, func(), error) {
	runner := taskrunner.NewExecRunner(cfg.BuildCommand, cfg.BuildDir, taskrunner.Targets{
		DataTransfer: cfg.TargetDataTransfer,
		Recipe:       cfg.TargetRecipe,
		Backup:       cfg.TargetBackup,
		StoreUp:      cfg.TargetStoreUp,
		StoreDown:    cfg.TargetStoreDown,
	})

	cleanup := func() {}

	if cfg.IndexStoreContainer != "" {
		dockerClient, err := docker.NewClient(cfg.DockerHost)
		if err != nil {
			return nil, cleanup, err
		}
		runner.WithDockerLifecycle(dockerClient, cfg.IndexStoreContainer, cfg.StoreStopTimeout)
		cleanup = func() { dockerClient.Close() }
		slog.Info("index store lifecycle via container runtime", "container", cfg.IndexStoreContainer)
	}

	return runner, cleanup, nil
}

// buildPipeline assembles the refresh pipeline from the resolved config
func buildPipeline(pools *storage.PoolManager) (*pipeline.Pipeline, func(), error) {
	notifyMgr, err := buildNotifyManager()
	if err != nil {
		return nil, func() {}, err
	}

	runner, cleanup, err := buildRunner()
	if err != nil {
		return nil, cleanup, err
	}

	var docs pipeline.DocCounter
	if len(cfg.IndexStoreAddrs) > 0 {
		client, err := indexstore.NewClient(cfg.IndexStoreAddrs)
		if err != nil {
			// Reporting only; the refresh itself does not need the client.
			slog.Warn("index store client unavailable", "error", err)
		} else {
			docs = client
		}
	}

	rotator := rotation.New(pools, cfg.RetentionCount, cfg.ArchiveGlob)
	extractor := logstats.NewExtractor(cfg.StatsMinDigits)

	return pipeline.New(cfg, runner, rotator, extractor, docs, notifyMgr), cleanup, nil
}
