package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mortidx/mortidx/internal/config"
)

// PoolManager manages named backup destinations
type PoolManager struct {
	pools       map[string]Storage
	defaultPool string
	mu          sync.RWMutex
}

// NewPoolManager creates a pool manager from destination configurations
func NewPoolManager(pools map[string]*config.StoragePool, defaultPool string) (*PoolManager, error) {
	pm := &PoolManager{
		pools:       make(map[string]Storage),
		defaultPool: defaultPool,
	}

	for name, poolCfg := range pools {
		backend, ok := Get(poolCfg.Type)
		if !ok {
			return nil, fmt.Errorf("unknown storage type %q for pool %q (available: %v)", poolCfg.Type, name, List())
		}

		store, err := backend.Create(name, poolCfg.Options)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage pool %q: %w", name, err)
		}

		pm.pools[name] = store
	}

	return pm, nil
}

// Get returns a destination by name
func (pm *PoolManager) Get(name string) (Storage, error) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	store, ok := pm.pools[name]
	if !ok {
		return nil, fmt.Errorf("storage pool %q not found", name)
	}

	return store, nil
}

// GetDefault returns the default destination
func (pm *PoolManager) GetDefault() (Storage, error) {
	if pm.defaultPool == "" {
		return nil, fmt.Errorf("no default storage pool configured")
	}

	return pm.Get(pm.defaultPool)
}

// All returns every destination keyed by pool name, in stable name order.
func (pm *PoolManager) All() []NamedStorage {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	result := make([]NamedStorage, 0, len(pm.pools))
	for name, store := range pm.pools {
		result = append(result, NamedStorage{Name: name, Storage: store})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// NamedStorage pairs a destination with its pool name
type NamedStorage struct {
	Name    string
	Storage Storage
}

// List returns all pool names
func (pm *PoolManager) List() []string {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	names := make([]string, 0, len(pm.pools))
	for name := range pm.pools {
		names = append(names, name)
	}
	return names
}

// PoolCount returns the number of destinations
func (pm *PoolManager) PoolCount() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return len(pm.pools)
}
