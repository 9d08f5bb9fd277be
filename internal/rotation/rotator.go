package rotation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/mortidx/mortidx/internal/archive"
	"github.com/mortidx/mortidx/internal/storage"
)

// LogExt is the extension of the zstd-compressed processing log stored next
// to each archive.
const LogExt = ".log.zst"

// Pools yields the configured backup destinations
type Pools interface {
	All() []storage.NamedStorage
}

// Rotator copies fresh archives into every backup destination and enforces
// the retention policy: the keep most recent archives survive, everything
// older is removed together with its companion files.
type Rotator struct {
	pools Pools
	keep  int
	glob  string
}

// New creates a rotator. keep is the number of archives retained per
// destination, glob the archive naming pattern (e.g. esdata_*.tar).
func New(pools Pools, keep int, glob string) *Rotator {
	if keep < 1 {
		keep = 1
	}
	return &Rotator{pools: pools, keep: keep, glob: glob}
}

// Rotate copies the archive, its sidecar (if present) and the processing log
// (if logPath is non-empty and readable) into every destination, then
// enforces retention. Copy failures are fatal; companion cleanup failures and
// log archiving failures are logged and non-fatal. Rotate is idempotent.
func (r *Rotator) Rotate(ctx context.Context, arc *archive.Archive, logPath string) error {
	for _, dest := range r.pools.All() {
		if err := r.copyIn(ctx, dest, arc, logPath); err != nil {
			return fmt.Errorf("pool %q: %w", dest.Name, err)
		}
		if err := r.enforce(ctx, dest); err != nil {
			return fmt.Errorf("pool %q: %w", dest.Name, err)
		}
	}
	return nil
}

// Enforce runs retention and companion cleanup on every destination without
// copying anything in.
func (r *Rotator) Enforce(ctx context.Context) error {
	for _, dest := range r.pools.All() {
		if err := r.enforce(ctx, dest); err != nil {
			return fmt.Errorf("pool %q: %w", dest.Name, err)
		}
	}
	return nil
}

func (r *Rotator) copyIn(ctx context.Context, dest storage.NamedStorage, arc *archive.Archive, logPath string) error {
	if err := r.storeFile(ctx, dest.Storage, arc.Name, arc.Path); err != nil {
		return fmt.Errorf("failed to copy archive: %w", err)
	}
	slog.Info("archive copied", "pool", dest.Name, "key", arc.Name, "size", arc.Size)

	if sidecar, ok := arc.Sidecar(); ok {
		key := strings.TrimSuffix(arc.Name, archive.TarExt) + archive.SidecarExt
		if err := r.storeFile(ctx, dest.Storage, key, sidecar); err != nil {
			return fmt.Errorf("failed to copy sidecar: %w", err)
		}
		slog.Info("sidecar copied", "pool", dest.Name, "key", key)
	}

	if logPath != "" {
		key := strings.TrimSuffix(arc.Name, archive.TarExt) + LogExt
		if err := r.storeCompressedLog(ctx, dest.Storage, key, logPath); err != nil {
			slog.Warn("failed to archive processing log",
				"pool", dest.Name,
				"log", logPath,
				"error", err,
			)
		}
	}

	return nil
}

func (r *Rotator) storeFile(ctx context.Context, store storage.Storage, key, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return store.Store(ctx, key, file)
}

// storeCompressedLog streams the processing log through zstd into the
// destination.
func (r *Rotator) storeCompressedLog(ctx context.Context, store storage.Storage, key, logPath string) error {
	file, err := os.Open(logPath)
	if err != nil {
		return err
	}
	defer file.Close()

	pr, pw := io.Pipe()
	zw, err := zstd.NewWriter(pw)
	if err != nil {
		return err
	}

	go func() {
		_, copyErr := io.Copy(zw, file)
		closeErr := zw.Close()
		if copyErr != nil {
			pw.CloseWithError(copyErr)
			return
		}
		pw.CloseWithError(closeErr)
	}()

	err = store.Store(ctx, key, pr)
	// A destination that gives up mid-transfer stops reading the pipe;
	// close the read side so the compressor goroutine is not left blocked
	// on a write forever.
	pr.CloseWithError(err)
	return err
}

func (r *Rotator) enforce(ctx context.Context, dest storage.NamedStorage) error {
	files, err := dest.Storage.List(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to list destination: %w", err)
	}

	var archives []storage.StoredFile
	for _, f := range files {
		if matched, _ := path.Match(r.glob, f.Key); matched {
			archives = append(archives, f)
		}
	}

	sort.Slice(archives, func(i, j int) bool {
		if !archives[i].LastModified.Equal(archives[j].LastModified) {
			return archives[i].LastModified.After(archives[j].LastModified)
		}
		return archives[i].Key > archives[j].Key
	})

	present := make(map[string]bool, len(archives))
	for _, f := range archives {
		present[f.Key] = true
	}

	for i, f := range archives {
		if i < r.keep {
			continue
		}

		if err := dest.Storage.Delete(ctx, f.Key); err != nil {
			slog.Warn("failed to delete old archive",
				"pool", dest.Name,
				"key", f.Key,
				"error", err,
			)
			continue
		}
		delete(present, f.Key)
		slog.Info("deleted old archive", "pool", dest.Name, "key", f.Key, "age", f.LastModified)
	}

	// Companion files (sidecars, archived logs) survive as long as their
	// archive does, even when that archive aged out but could not be deleted.
	for _, f := range files {
		tarKey, ok := companionTar(f.Key)
		if !ok || present[tarKey] {
			continue
		}

		if err := dest.Storage.Delete(ctx, f.Key); err != nil {
			slog.Warn("failed to delete orphaned companion file",
				"pool", dest.Name,
				"key", f.Key,
				"error", err,
			)
			continue
		}
		slog.Info("deleted orphaned companion file", "pool", dest.Name, "key", f.Key)
	}

	return nil
}

// companionTar maps a companion key to the archive key it belongs to
func companionTar(key string) (string, bool) {
	switch {
	case strings.HasSuffix(key, archive.SidecarExt):
		return strings.TrimSuffix(key, archive.SidecarExt) + archive.TarExt, true
	case strings.HasSuffix(key, LogExt):
		return strings.TrimSuffix(key, LogExt) + archive.TarExt, true
	}
	return "", false
}
