package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNoArchiveFound is returned when a directory contains no archive matching
// the naming pattern. Callers treat this as fatal for the run.
var ErrNoArchiveFound = errors.New("no archive found")

// Archive extensions
const (
	TarExt     = ".tar"
	SidecarExt = ".snar"
)

// Archive is an index snapshot on the local filesystem
type Archive struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// SidecarPath returns the path of the incremental-metadata sidecar that would
// accompany this archive (esdata_x.tar -> esdata_x.snar).
func (a *Archive) SidecarPath() string {
	return strings.TrimSuffix(a.Path, TarExt) + SidecarExt
}

// Sidecar returns the sidecar path if the sidecar actually exists next to the
// archive.
func (a *Archive) Sidecar() (string, bool) {
	path := a.SidecarPath()
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

// SelectLatest returns the archive in dir matching glob with the maximal
// modification time. Ties are broken by name (descending) so selection is
// deterministic.
func SelectLatest(dir, glob string) (*Archive, error) {
	matches, err := filepath.Glob(filepath.Join(dir, glob))
	if err != nil {
		return nil, fmt.Errorf("invalid archive pattern %q: %w", glob, err)
	}

	var candidates []*Archive
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		candidates = append(candidates, &Archive{
			Path:    path,
			Name:    filepath.Base(path),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s in %s", ErrNoArchiveFound, glob, dir)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].ModTime.Equal(candidates[j].ModTime) {
			return candidates[i].ModTime.After(candidates[j].ModTime)
		}
		return candidates[i].Name > candidates[j].Name
	})

	return candidates[0], nil
}
