package notification

import (
	"fmt"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]NotifierType)
)

// Register adds a notifier type to the registry.
// Called from init() functions in provider packages.
func Register(nt NotifierType) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := nt.Name()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("notifier type %q already registered", name))
	}

	registry[name] = nt
}

// Get returns a registered notifier type by name
func Get(name string) (NotifierType, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	nt, ok := registry[name]
	return nt, ok
}

// List returns all registered notifier type names
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// CreateNotifier builds a notifier instance from a provider configuration
func CreateNotifier(typeName, name string, options map[string]string) (Notifier, error) {
	nt, ok := Get(typeName)
	if !ok {
		return nil, fmt.Errorf("unknown notifier type %q (available: %v)", typeName, List())
	}
	return nt.Create(name, options)
}
