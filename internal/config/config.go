package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// EnvPrefix is the prefix for all environment variables
	EnvPrefix = "MORTIDX_"
	// EnvStoragePrefix is the prefix for backup destination environment variables
	EnvStoragePrefix = EnvPrefix + "STORAGE_"
	// EnvNotifyPrefix is the prefix for notification provider environment variables
	EnvNotifyPrefix = EnvPrefix + "NOTIFY_"
)

// Config holds the global application configuration. It is populated once at
// startup from flags and environment and never mutated afterwards.
type Config struct {
	// Pipeline layout
	SourceDir string // drop-off directory the data provider fills with mortality records
	WorkDir   string // backend working set, containing upload/, backup/, esdata/ and log/
	LogFile   string // processing log file name inside WorkDir/log

	// Archive handling
	ArchiveGlob    string // naming pattern of index snapshots, e.g. esdata_*.tar
	RetentionCount int    // archives kept per destination after rotation
	StatsMinDigits int    // minimum digit run for counter extraction from the log

	// Build tool
	BuildCommand       string // external build tool, e.g. make
	BuildDir           string // directory the build tool runs in
	TargetDataTransfer string
	TargetRecipe       string
	TargetBackup       string
	TargetStoreUp      string
	TargetStoreDown    string

	// Index store
	IndexName           string
	IndexStoreAddrs     []string
	IndexStoreContainer string // container name; when set, lifecycle goes through Docker
	DockerHost          string
	StoreStopTimeout    time.Duration

	// Backup destinations
	DefaultStorage string
	StorageArgs    []string
	StoragePools   map[string]*StoragePool

	// Notification settings
	NotifyArgs    []string
	NotifyConfigs map[string]*NotifyConfig

	// Daemon settings
	Schedule   string
	StatusAddr string

	// Logging
	LogLevel  string
	LogFormat string
}

// StoragePool represents a named backup destination configuration
type StoragePool struct {
	Name    string
	Type    string
	Options map[string]string
}

// NotifyConfig represents a named notification provider configuration
type NotifyConfig struct {
	Name    string
	Type    string
	Options map[string]string
}

// New creates a new Config with default values
func New() *Config {
	return &Config{
		WorkDir:            "/srv/mortidx",
		LogFile:            "indexation.log",
		ArchiveGlob:        "esdata_*.tar",
		RetentionCount:     2,
		StatsMinDigits:     7,
		BuildCommand:       "make",
		TargetDataTransfer: "data-transfer",
		TargetRecipe:       "recipe",
		TargetBackup:       "backup",
		TargetStoreUp:      "store-up",
		TargetStoreDown:    "store-down",
		IndexName:          "deces",
		DockerHost:         "unix:///var/run/docker.sock",
		StoreStopTimeout:   30 * time.Second,
		Schedule:           "0 3 * * *",
		LogLevel:           "info",
		LogFormat:          "text",
		StoragePools:       make(map[string]*StoragePool),
		NotifyConfigs:      make(map[string]*NotifyConfig),
	}
}

// UploadDir is the working upload directory fed by the data transfer step.
func (c *Config) UploadDir() string { return filepath.Join(c.WorkDir, "upload") }

// BackupDir is the working directory the backup step writes fresh archives to.
func (c *Config) BackupDir() string { return filepath.Join(c.WorkDir, "backup") }

// EsdataDir is the live index data directory.
func (c *Config) EsdataDir() string { return filepath.Join(c.WorkDir, "esdata") }

// LogDir is the directory holding processing logs.
func (c *Config) LogDir() string { return filepath.Join(c.WorkDir, "log") }

// LogPath is the full path of the processing log.
func (c *Config) LogPath() string { return filepath.Join(c.LogDir(), c.LogFile) }

// ParseStoragePools resolves backup destinations from environment variables
// and CLI arguments (CLI overrides env).
func (c *Config) ParseStoragePools() error {
	parseEnvOptions(EnvStoragePrefix, func(pool, option, value string) {
		c.setPoolOption(c.storagePool(pool), option, value)
	})

	if err := parseArgOptions(c.StorageArgs, "storage", func(pool, option, value string) {
		c.setPoolOption(c.storagePool(pool), option, value)
	}); err != nil {
		return err
	}

	for name, pool := range c.StoragePools {
		if pool.Type == "" {
			return fmt.Errorf("storage pool %q is missing required 'type' option", name)
		}
	}

	if c.DefaultStorage == "" {
		if envDefault := os.Getenv(EnvPrefix + "DEFAULT_STORAGE"); envDefault != "" {
			c.DefaultStorage = envDefault
		}
	}
	if c.DefaultStorage == "" && len(c.StoragePools) == 1 {
		for name := range c.StoragePools {
			c.DefaultStorage = name
		}
	}
	if c.DefaultStorage != "" {
		if _, exists := c.StoragePools[c.DefaultStorage]; !exists {
			return fmt.Errorf("default storage pool %q does not exist", c.DefaultStorage)
		}
	}

	return nil
}

// ParseNotifyConfigs resolves notification providers from environment
// variables and CLI arguments (CLI overrides env).
func (c *Config) ParseNotifyConfigs() error {
	parseEnvOptions(EnvNotifyPrefix, func(provider, option, value string) {
		c.setNotifyOption(c.notifyConfig(provider), option, value)
	})

	if err := parseArgOptions(c.NotifyArgs, "notify", func(provider, option, value string) {
		c.setNotifyOption(c.notifyConfig(provider), option, value)
	}); err != nil {
		return err
	}

	for name, cfg := range c.NotifyConfigs {
		if cfg.Type == "" {
			return fmt.Errorf("notification provider %q is missing required 'type' option", name)
		}
	}

	return nil
}

func (c *Config) storagePool(name string) *StoragePool {
	pool, exists := c.StoragePools[name]
	if !exists {
		pool = &StoragePool{Name: name, Options: make(map[string]string)}
		c.StoragePools[name] = pool
	}
	return pool
}

func (c *Config) notifyConfig(name string) *NotifyConfig {
	cfg, exists := c.NotifyConfigs[name]
	if !exists {
		cfg = &NotifyConfig{Name: name, Options: make(map[string]string)}
		c.NotifyConfigs[name] = cfg
	}
	return cfg
}

func (c *Config) setPoolOption(pool *StoragePool, option, value string) {
	if option == "type" {
		pool.Type = value
		return
	}
	pool.Options[option] = value
}

func (c *Config) setNotifyOption(cfg *NotifyConfig, option, value string) {
	if option == "type" {
		cfg.Type = value
		return
	}
	cfg.Options[option] = value
}

// parseArgOptions parses name.option=value CLI arguments
func parseArgOptions(args []string, kind string, set func(name, option, value string)) error {
	for _, arg := range args {
		parts := strings.SplitN(arg, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid %s argument format: %s (expected name.option=value)", kind, arg)
		}

		keyParts := strings.SplitN(parts[0], ".", 2)
		if len(keyParts) != 2 {
			return fmt.Errorf("invalid %s key format: %s (expected name.option)", kind, parts[0])
		}

		set(keyParts[0], keyParts[1], parts[1])
	}
	return nil
}

// parseEnvOptions parses PREFIX_NAME_OPTION=value environment variables.
// MORTIDX_STORAGE_OFFSITE_ACCESS_KEY becomes (offsite, access-key).
func parseEnvOptions(prefix string, set func(name, option, value string)) {
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, prefix) {
			continue
		}

		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}

		remainder := strings.TrimPrefix(parts[0], prefix)
		underscoreIdx := strings.Index(remainder, "_")
		if underscoreIdx == -1 {
			continue
		}

		name := strings.ToLower(remainder[:underscoreIdx])
		option := strings.ToLower(remainder[underscoreIdx+1:])
		option = strings.ReplaceAll(option, "_", "-")

		set(name, option, parts[1])
	}
}
