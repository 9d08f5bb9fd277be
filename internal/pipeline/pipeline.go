// Package pipeline sequences the index refresh run: data transfer,
// indexation, statistics extraction, backup rotation and notification.
// Execution is strictly sequential and fail-fast; the only tolerated
// failures are a missing processing log and notification delivery.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mortidx/mortidx/internal/archive"
	"github.com/mortidx/mortidx/internal/config"
	"github.com/mortidx/mortidx/internal/logstats"
	"github.com/mortidx/mortidx/internal/notification"
	"github.com/mortidx/mortidx/internal/rotation"
	"github.com/mortidx/mortidx/internal/taskrunner"
)

// ErrMissingSourceDir is returned when the source upload directory does not
// exist. Fatal, and detected before any mutation.
var ErrMissingSourceDir = errors.New("source upload directory missing")

// DocCounter queries the index store for a document count
type DocCounter interface {
	DocCount(ctx context.Context, index string) (int64, error)
}

// Result describes one refresh run
type Result struct {
	Archive    string
	Stats      *logstats.Stats
	LogMissing bool
	StartedAt  time.Time
	FinishedAt time.Time
}

// Pipeline runs the refresh sequence
type Pipeline struct {
	cfg       *config.Config
	runner    taskrunner.Runner
	rotator   *rotation.Rotator
	extractor *logstats.Extractor
	docs      DocCounter // nil when no index store is configured
	notify    *notification.Manager
}

// New creates a pipeline. docs may be nil to skip document-count reporting.
func New(cfg *config.Config, runner taskrunner.Runner, rotator *rotation.Rotator, extractor *logstats.Extractor, docs DocCounter, notify *notification.Manager) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		runner:    runner,
		rotator:   rotator,
		extractor: extractor,
		docs:      docs,
		notify:    notify,
	}
}

// Run executes one refresh. Any fatal failure aborts immediately with no
// rollback; a failure notification is attempted before returning.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	res := &Result{StartedAt: time.Now()}

	// The source check happens before anything mutates.
	if info, err := os.Stat(p.cfg.SourceDir); err != nil || !info.IsDir() {
		return p.abort(ctx, res, fmt.Errorf("%w: %s", ErrMissingSourceDir, p.cfg.SourceDir))
	}

	p.emit(ctx, res, notification.EventRefreshStarted, nil)

	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"index store start", p.runner.StartIndexStore},
		{"data transfer", p.runner.RunDataTransfer},
		{"recipe", p.runner.RunRecipe},
	}
	for _, step := range steps {
		slog.Info("pipeline step", "step", step.name)
		if err := step.run(ctx); err != nil {
			return p.abort(ctx, res, fmt.Errorf("%s: %w", step.name, err))
		}
	}

	p.collectStats(ctx, res)

	// Quiesce the store so the data directory can be archived consistently,
	// then bring it back once the archive exists.
	slog.Info("pipeline step", "step", "index store stop")
	if err := p.runner.StopIndexStore(ctx); err != nil {
		return p.abort(ctx, res, fmt.Errorf("index store stop: %w", err))
	}
	slog.Info("pipeline step", "step", "backup")
	if err := p.runner.RunBackup(ctx); err != nil {
		return p.abort(ctx, res, fmt.Errorf("backup: %w", err))
	}
	slog.Info("pipeline step", "step", "index store start")
	if err := p.runner.StartIndexStore(ctx); err != nil {
		return p.abort(ctx, res, fmt.Errorf("index store restart: %w", err))
	}

	arc, err := archive.SelectLatest(p.cfg.BackupDir(), p.cfg.ArchiveGlob)
	if err != nil {
		return p.abort(ctx, res, err)
	}
	res.Archive = arc.Name

	logPath := p.cfg.LogPath()
	if res.LogMissing {
		logPath = ""
	}
	slog.Info("pipeline step", "step", "rotation", "archive", arc.Name)
	if err := p.rotator.Rotate(ctx, arc, logPath); err != nil {
		return p.abort(ctx, res, fmt.Errorf("rotation: %w", err))
	}

	res.FinishedAt = time.Now()
	p.emit(ctx, res, notification.EventRefreshCompleted, nil)
	slog.Info("refresh completed", "archive", res.Archive, "duration", res.FinishedAt.Sub(res.StartedAt))

	return res, nil
}

// collectStats extracts run statistics from the processing log and attaches
// the index-store document count. Both are best-effort.
func (p *Pipeline) collectStats(ctx context.Context, res *Result) {
	stats, err := p.extractor.Extract(p.cfg.LogPath())
	switch {
	case errors.Is(err, logstats.ErrLogFileMissing):
		res.LogMissing = true
		slog.Warn("processing log missing, statistics skipped", "log", p.cfg.LogPath())
	case err != nil:
		res.LogMissing = true
		slog.Warn("failed to extract statistics", "log", p.cfg.LogPath(), "error", err)
	default:
		res.Stats = stats
	}

	if p.docs == nil {
		return
	}
	count, err := p.docs.DocCount(ctx, p.cfg.IndexName)
	if err != nil {
		slog.Warn("failed to query document count", "index", p.cfg.IndexName, "error", err)
		return
	}
	if res.Stats == nil {
		res.Stats = &logstats.Stats{}
	}
	res.Stats.DocCount = &count
}

func (p *Pipeline) abort(ctx context.Context, res *Result, err error) (*Result, error) {
	res.FinishedAt = time.Now()
	slog.Error("refresh aborted", "error", err)
	p.emit(ctx, res, notification.EventRefreshFailed, err)
	return res, err
}

func (p *Pipeline) emit(ctx context.Context, res *Result, eventType notification.EventType, err error) {
	if p.notify == nil {
		return
	}

	var duration time.Duration
	if !res.FinishedAt.IsZero() {
		duration = res.FinishedAt.Sub(res.StartedAt)
	}

	p.notify.Notify(ctx, notification.Event{
		Type:       eventType,
		Archive:    res.Archive,
		Stats:      res.Stats,
		LogMissing: res.LogMissing,
		Duration:   duration,
		Error:      err,
		Timestamp:  time.Now(),
	})
}
