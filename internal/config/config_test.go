package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	cfg := New()

	assert.Equal(t, "esdata_*.tar", cfg.ArchiveGlob)
	assert.Equal(t, 2, cfg.RetentionCount)
	assert.Equal(t, 7, cfg.StatsMinDigits)
	assert.Equal(t, "make", cfg.BuildCommand)
	assert.NotNil(t, cfg.StoragePools)
	assert.NotNil(t, cfg.NotifyConfigs)
}

func TestConfig_WorkingDirectories(t *testing.T) {
	cfg := New()
	cfg.WorkDir = "/srv/mortidx"
	cfg.LogFile = "indexation.log"

	assert.Equal(t, filepath.Join("/srv/mortidx", "upload"), cfg.UploadDir())
	assert.Equal(t, filepath.Join("/srv/mortidx", "backup"), cfg.BackupDir())
	assert.Equal(t, filepath.Join("/srv/mortidx", "esdata"), cfg.EsdataDir())
	assert.Equal(t, filepath.Join("/srv/mortidx", "log", "indexation.log"), cfg.LogPath())
}

func TestParseStoragePools_FromArgs(t *testing.T) {
	cfg := New()
	cfg.StorageArgs = []string{
		"primary.type=local",
		"primary.path=/var/backups/mortidx",
	}

	require.NoError(t, cfg.ParseStoragePools())

	pool, ok := cfg.StoragePools["primary"]
	require.True(t, ok)
	assert.Equal(t, "local", pool.Type)
	assert.Equal(t, "/var/backups/mortidx", pool.Options["path"])
	assert.Equal(t, "primary", cfg.DefaultStorage, "single pool should become default")
}

func TestParseStoragePools_FromEnv(t *testing.T) {
	t.Setenv("MORTIDX_STORAGE_OFFSITE_TYPE", "s3")
	t.Setenv("MORTIDX_STORAGE_OFFSITE_BUCKET", "mortidx-backups")
	t.Setenv("MORTIDX_STORAGE_OFFSITE_ACCESS_KEY", "key")

	cfg := New()
	require.NoError(t, cfg.ParseStoragePools())

	pool, ok := cfg.StoragePools["offsite"]
	require.True(t, ok)
	assert.Equal(t, "s3", pool.Type)
	assert.Equal(t, "mortidx-backups", pool.Options["bucket"])
	assert.Equal(t, "key", pool.Options["access-key"], "underscores become hyphens")
}

func TestParseStoragePools_ArgsOverrideEnv(t *testing.T) {
	t.Setenv("MORTIDX_STORAGE_PRIMARY_TYPE", "s3")

	cfg := New()
	cfg.StorageArgs = []string{"primary.type=local", "primary.path=/tmp"}

	require.NoError(t, cfg.ParseStoragePools())
	assert.Equal(t, "local", cfg.StoragePools["primary"].Type)
}

func TestParseStoragePools_MissingType(t *testing.T) {
	cfg := New()
	cfg.StorageArgs = []string{"primary.path=/tmp"}

	assert.Error(t, cfg.ParseStoragePools())
}

func TestParseStoragePools_InvalidFormat(t *testing.T) {
	cfg := New()
	cfg.StorageArgs = []string{"no-equals-sign"}
	assert.Error(t, cfg.ParseStoragePools())

	cfg = New()
	cfg.StorageArgs = []string{"nodot=value"}
	assert.Error(t, cfg.ParseStoragePools())
}

func TestParseStoragePools_UnknownDefault(t *testing.T) {
	cfg := New()
	cfg.DefaultStorage = "missing"
	cfg.StorageArgs = []string{"primary.type=local", "primary.path=/tmp"}

	assert.Error(t, cfg.ParseStoragePools())
}

func TestParseNotifyConfigs(t *testing.T) {
	t.Setenv("MORTIDX_NOTIFY_OPS_TYPE", "webhook")
	t.Setenv("MORTIDX_NOTIFY_OPS_URL", "https://chat.example.com/hooks/abc")

	cfg := New()
	require.NoError(t, cfg.ParseNotifyConfigs())

	nc, ok := cfg.NotifyConfigs["ops"]
	require.True(t, ok)
	assert.Equal(t, "webhook", nc.Type)
	assert.Equal(t, "https://chat.example.com/hooks/abc", nc.Options["url"])
}

func TestParseNotifyConfigs_MissingType(t *testing.T) {
	cfg := New()
	cfg.NotifyArgs = []string{"ops.url=https://example.com"}

	assert.Error(t, cfg.ParseNotifyConfigs())
}
