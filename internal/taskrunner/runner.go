// Package taskrunner abstracts the external steps of the refresh pipeline.
// Every step delegates to an external build tool or container runtime; the
// pipeline itself only sequences them.
package taskrunner

import "context"

// Runner executes the delegated pipeline steps. Each method blocks until the
// step completes and returns any failure verbatim; the caller decides whether
// a failure aborts the run.
type Runner interface {
	// RunDataTransfer moves fresh mortality records from the source
	// drop-off into the working upload directory.
	RunDataTransfer(ctx context.Context) error

	// RunRecipe runs the indexation recipe, producing the processing log.
	RunRecipe(ctx context.Context) error

	// RunBackup produces a fresh index archive in the working backup
	// directory.
	RunBackup(ctx context.Context) error

	// StartIndexStore brings the index store up.
	StartIndexStore(ctx context.Context) error

	// StopIndexStore quiesces the index store so its data directory can be
	// archived consistently.
	StopIndexStore(ctx context.Context) error
}
