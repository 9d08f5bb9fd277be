package taskrunner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/mortidx/mortidx/internal/docker"
)

// Targets names the build-tool targets backing each pipeline step
type Targets struct {
	DataTransfer string
	Recipe       string
	Backup       string
	StoreUp      string
	StoreDown    string
}

// ExecRunner runs pipeline steps through an external build tool. When a
// Docker client and container name are configured, index-store lifecycle goes
// through the container runtime instead of build-tool targets.
type ExecRunner struct {
	command string
	dir     string
	targets Targets

	dockerClient *docker.Client
	container    string
	stopTimeout  time.Duration
}

// NewExecRunner creates a runner invoking command (e.g. "make") in dir
func NewExecRunner(command, dir string, targets Targets) *ExecRunner {
	return &ExecRunner{
		command:     command,
		dir:         dir,
		targets:     targets,
		stopTimeout: 30 * time.Second,
	}
}

// WithDockerLifecycle routes StartIndexStore/StopIndexStore through the
// container runtime for the named container.
func (r *ExecRunner) WithDockerLifecycle(client *docker.Client, container string, stopTimeout time.Duration) *ExecRunner {
	r.dockerClient = client
	r.container = container
	if stopTimeout > 0 {
		r.stopTimeout = stopTimeout
	}
	return r
}

// RunDataTransfer invokes the data-transfer target
func (r *ExecRunner) RunDataTransfer(ctx context.Context) error {
	return r.run(ctx, r.targets.DataTransfer)
}

// RunRecipe invokes the indexation recipe target
func (r *ExecRunner) RunRecipe(ctx context.Context) error {
	return r.run(ctx, r.targets.Recipe)
}

// RunBackup invokes the archive-producing target
func (r *ExecRunner) RunBackup(ctx context.Context) error {
	return r.run(ctx, r.targets.Backup)
}

// StartIndexStore brings the index store up
func (r *ExecRunner) StartIndexStore(ctx context.Context) error {
	if r.dockerClient != nil && r.container != "" {
		slog.Info("starting index store container", "container", r.container)
		return r.dockerClient.StartContainer(ctx, r.container)
	}
	return r.run(ctx, r.targets.StoreUp)
}

// StopIndexStore quiesces the index store
func (r *ExecRunner) StopIndexStore(ctx context.Context) error {
	if r.dockerClient != nil && r.container != "" {
		slog.Info("stopping index store container", "container", r.container)
		return r.dockerClient.StopContainer(ctx, r.container, r.stopTimeout)
	}
	return r.run(ctx, r.targets.StoreDown)
}

func (r *ExecRunner) run(ctx context.Context, target string) error {
	if target == "" {
		return fmt.Errorf("no build target configured for this step")
	}

	slog.Info("running build target", "command", r.command, "target", target, "dir", r.dir)

	cmd := exec.CommandContext(ctx, r.command, target)
	cmd.Dir = r.dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s failed: %w", r.command, target, err)
	}

	return nil
}
