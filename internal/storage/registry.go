package storage

import (
	"fmt"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Backend)
)

// Register adds a storage backend to the registry.
// Called from init() functions in backend packages.
func Register(b Backend) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := b.Name()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("storage backend %q already registered", name))
	}

	registry[name] = b
}

// Get returns a registered backend by name
func Get(name string) (Backend, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	b, ok := registry[name]
	return b, ok
}

// List returns all registered backend names
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
