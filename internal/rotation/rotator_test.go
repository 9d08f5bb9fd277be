package rotation

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/mortidx/mortidx/internal/archive"
	"github.com/mortidx/mortidx/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStorage is an in-memory Storage with controllable modification times
type memStorage struct {
	files     map[string]memFile
	clock     time.Time
	storeErr  error
	deleteErr map[string]error
}

type memFile struct {
	data  []byte
	mtime time.Time
}

func newMemStorage() *memStorage {
	return &memStorage{
		files:     make(map[string]memFile),
		clock:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		deleteErr: make(map[string]error),
	}
}

func (m *memStorage) put(key string, mtime time.Time) {
	m.files[key] = memFile{data: []byte(key), mtime: mtime}
}

func (m *memStorage) Store(ctx context.Context, key string, reader io.Reader) error {
	if m.storeErr != nil {
		return m.storeErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.clock = m.clock.Add(time.Minute)
	m.files[key] = memFile{data: data, mtime: m.clock}
	return nil
}

func (m *memStorage) List(ctx context.Context, prefix string) ([]storage.StoredFile, error) {
	var out []storage.StoredFile
	for key, f := range m.files {
		out = append(out, storage.StoredFile{Key: key, Size: int64(len(f.data)), LastModified: f.mtime})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastModified.After(out[j].LastModified) })
	return out, nil
}

func (m *memStorage) Delete(ctx context.Context, key string) error {
	if err := m.deleteErr[key]; err != nil {
		return err
	}
	delete(m.files, key)
	return nil
}

func (m *memStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	f, ok := m.files[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

func (m *memStorage) keys() []string {
	var keys []string
	for k := range m.files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// singlePool satisfies Pools with one destination
type singlePool struct {
	store storage.Storage
}

func (p singlePool) All() []storage.NamedStorage {
	return []storage.NamedStorage{{Name: "primary", Storage: p.store}}
}

func sourceArchive(t *testing.T, dir, name string, withSidecar bool) *archive.Archive {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("tar content"), 0644))
	if withSidecar {
		sidecar := filepath.Join(dir, "esdata_new.snar")
		require.NoError(t, os.WriteFile(sidecar, []byte("snar content"), 0644))
	}

	arc, err := archive.SelectLatest(dir, "esdata_*.tar")
	require.NoError(t, err)
	return arc
}

func TestRotate_RetainsTwoNewest(t *testing.T) {
	store := newMemStorage()
	base := store.clock
	store.put("esdata_t1.tar", base.Add(-3*time.Hour))
	store.put("esdata_t2.tar", base.Add(-2*time.Hour))
	store.put("esdata_t1.snar", base.Add(-3*time.Hour))

	arc := sourceArchive(t, t.TempDir(), "esdata_new.tar", false)
	r := New(singlePool{store}, 2, "esdata_*.tar")

	require.NoError(t, r.Rotate(context.Background(), arc, ""))

	assert.Equal(t, []string{"esdata_new.tar", "esdata_t2.tar"}, store.keys(),
		"only the two most recent archives should remain, and t1's sidecar must go with t1")
}

func TestRotate_CopiesSidecar(t *testing.T) {
	store := newMemStorage()
	arc := sourceArchive(t, t.TempDir(), "esdata_new.tar", true)
	r := New(singlePool{store}, 2, "esdata_*.tar")

	require.NoError(t, r.Rotate(context.Background(), arc, ""))

	assert.Contains(t, store.keys(), "esdata_new.tar")
	assert.Contains(t, store.keys(), "esdata_new.snar")
	assert.Equal(t, []byte("snar content"), store.files["esdata_new.snar"].data)
}

func TestRotate_Idempotent(t *testing.T) {
	store := newMemStorage()
	store.put("esdata_old.tar", store.clock.Add(-time.Hour))

	arc := sourceArchive(t, t.TempDir(), "esdata_new.tar", true)
	r := New(singlePool{store}, 2, "esdata_*.tar")

	require.NoError(t, r.Rotate(context.Background(), arc, ""))
	first := store.keys()

	require.NoError(t, r.Rotate(context.Background(), arc, ""))
	assert.Equal(t, first, store.keys(), "rotating twice with the same archive must not change the retained set")
}

func TestRotate_CopyFailureIsFatal(t *testing.T) {
	store := newMemStorage()
	store.storeErr = errors.New("disk full")

	arc := sourceArchive(t, t.TempDir(), "esdata_new.tar", false)
	r := New(singlePool{store}, 2, "esdata_*.tar")

	err := r.Rotate(context.Background(), arc, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestRotate_OrphanDeleteFailureIsNonFatal(t *testing.T) {
	store := newMemStorage()
	store.put("esdata_orphan.snar", store.clock.Add(-time.Hour))
	store.deleteErr["esdata_orphan.snar"] = errors.New("permission denied")

	arc := sourceArchive(t, t.TempDir(), "esdata_new.tar", false)
	r := New(singlePool{store}, 2, "esdata_*.tar")

	assert.NoError(t, r.Rotate(context.Background(), arc, ""),
		"orphan cleanup is best-effort and must not fail the rotation")
}

func TestRotate_ArchivesProcessingLog(t *testing.T) {
	store := newMemStorage()
	dir := t.TempDir()
	arc := sourceArchive(t, dir, "esdata_new.tar", false)

	logPath := filepath.Join(dir, "indexation.log")
	logContent := "2024-01-01 10:00:00 start\nprocessing done\n"
	require.NoError(t, os.WriteFile(logPath, []byte(logContent), 0644))

	r := New(singlePool{store}, 2, "esdata_*.tar")
	require.NoError(t, r.Rotate(context.Background(), arc, logPath))

	stored, ok := store.files["esdata_new.log.zst"]
	require.True(t, ok, "compressed log should be stored next to the archive")

	zr, err := zstd.NewReader(bytes.NewReader(stored.data))
	require.NoError(t, err)
	defer zr.Close()

	decompressed, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, logContent, string(decompressed))
}

func TestRotate_MissingLogIsNonFatal(t *testing.T) {
	store := newMemStorage()
	arc := sourceArchive(t, t.TempDir(), "esdata_new.tar", false)

	r := New(singlePool{store}, 2, "esdata_*.tar")
	assert.NoError(t, r.Rotate(context.Background(), arc, "/nonexistent/indexation.log"))
}

// abortingStorage reads a little of the stream and then fails, like a remote
// destination dropping an upload mid-transfer.
type abortingStorage struct {
	memStorage
}

func (a *abortingStorage) Store(ctx context.Context, key string, reader io.Reader) error {
	buf := make([]byte, 512)
	_, _ = reader.Read(buf)
	return errors.New("upload interrupted")
}

func TestRotate_FailedLogStoreReleasesCompressor(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "indexation.log")

	// Incompressible content, so the compressed stream is far larger than
	// the destination ever reads and the compressor has to block on the pipe.
	data := make([]byte, 256*1024)
	_, err := rand.New(rand.NewSource(1)).Read(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(logPath, data, 0644))

	before := runtime.NumGoroutine()

	r := New(singlePool{newMemStorage()}, 2, "esdata_*.tar")
	store := &abortingStorage{}
	err = r.storeCompressedLog(context.Background(), store, "esdata_new.log.zst", logPath)
	require.Error(t, err)

	// Poll from the test goroutine: assert.Eventually runs the condition in
	// a fresh goroutine each tick, so NumGoroutine can never reach baseline.
	released := false
	for deadline := time.Now().Add(2 * time.Second); time.Now().Before(deadline); {
		if runtime.NumGoroutine() <= before {
			released = true
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.True(t, released,
		"compressor goroutine must exit after the destination fails")
}

func TestEnforce_KeepsCompanionWhenArchiveDeleteFails(t *testing.T) {
	store := newMemStorage()
	base := store.clock
	store.put("esdata_t1.tar", base.Add(-3*time.Hour))
	store.put("esdata_t1.snar", base.Add(-3*time.Hour))
	store.put("esdata_t2.tar", base.Add(-2*time.Hour))
	store.put("esdata_t3.tar", base.Add(-time.Hour))
	store.deleteErr["esdata_t1.tar"] = errors.New("permission denied")

	r := New(singlePool{store}, 2, "esdata_*.tar")
	require.NoError(t, r.Enforce(context.Background()))

	// t1 aged out but could not be deleted; its sidecar must stay with it.
	assert.Contains(t, store.keys(), "esdata_t1.tar")
	assert.Contains(t, store.keys(), "esdata_t1.snar",
		"a sidecar whose archive is still present must not be removed")
	assert.Contains(t, store.keys(), "esdata_t2.tar")
	assert.Contains(t, store.keys(), "esdata_t3.tar")
}

func TestEnforce_RemovesOrphanedCompanions(t *testing.T) {
	store := newMemStorage()
	base := store.clock
	store.put("esdata_kept.tar", base)
	store.put("esdata_kept.snar", base)
	store.put("esdata_kept.log.zst", base)
	store.put("esdata_gone.snar", base.Add(-time.Hour))
	store.put("esdata_gone.log.zst", base.Add(-time.Hour))

	r := New(singlePool{store}, 2, "esdata_*.tar")
	require.NoError(t, r.Enforce(context.Background()))

	assert.Equal(t, []string{"esdata_kept.log.zst", "esdata_kept.snar", "esdata_kept.tar"}, store.keys())
}

func TestCompanionTar(t *testing.T) {
	tests := []struct {
		key  string
		tar  string
		isIt bool
	}{
		{"esdata_x.snar", "esdata_x.tar", true},
		{"esdata_x.log.zst", "esdata_x.tar", true},
		{"esdata_x.tar", "", false},
		{"readme.txt", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			tar, ok := companionTar(tt.key)
			assert.Equal(t, tt.isIt, ok)
			assert.Equal(t, tt.tar, tar)
		})
	}
}
