package notification

import (
	"context"
	"log/slog"
	"sync"
)

// Manager holds the configured notifiers and dispatches events to all of
// them. Delivery is best-effort: failures are logged and never propagate.
type Manager struct {
	notifiers map[string]Notifier
	mu        sync.RWMutex
}

// NewManager creates a new notification manager
func NewManager() *Manager {
	return &Manager{
		notifiers: make(map[string]Notifier),
	}
}

// AddNotifier adds a notifier to the manager
func (m *Manager) AddNotifier(name string, notifier Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifiers[name] = notifier
}

// Notify sends an event to every configured notifier. A no-op when none are
// configured.
func (m *Manager) Notify(ctx context.Context, event Event) {
	m.mu.RLock()
	notifiers := make(map[string]Notifier, len(m.notifiers))
	for name, n := range m.notifiers {
		notifiers[name] = n
	}
	m.mu.RUnlock()

	for name, notifier := range notifiers {
		if err := notifier.Send(ctx, event); err != nil {
			slog.Warn("notification failed",
				"notifier", name,
				"event", event.Type,
				"error", err,
			)
		}
	}
}

// NotifierCount returns the number of registered notifiers
func (m *Manager) NotifierCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.notifiers)
}
