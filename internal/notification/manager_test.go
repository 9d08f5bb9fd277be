package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mortidx/mortidx/internal/logstats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockNotifier is a test implementation of Notifier
type mockNotifier struct {
	name      string
	typeName  string
	sendFunc  func(ctx context.Context, event Event) error
	sendCount int
}

func (m *mockNotifier) Name() string { return m.name }
func (m *mockNotifier) Type() string { return m.typeName }

func (m *mockNotifier) Send(ctx context.Context, event Event) error {
	m.sendCount++
	if m.sendFunc != nil {
		return m.sendFunc(ctx, event)
	}
	return nil
}

func TestNewManager(t *testing.T) {
	mgr := NewManager()
	require.NotNil(t, mgr)
	assert.Equal(t, 0, mgr.NotifierCount())
}

func TestManager_AddNotifier(t *testing.T) {
	mgr := NewManager()
	mgr.AddNotifier("ops", &mockNotifier{name: "ops", typeName: "mock"})
	mgr.AddNotifier("oncall", &mockNotifier{name: "oncall", typeName: "mock"})

	assert.Equal(t, 2, mgr.NotifierCount())
}

func TestManager_AddNotifier_Replace(t *testing.T) {
	mgr := NewManager()
	mgr.AddNotifier("ops", &mockNotifier{name: "ops", typeName: "mock1"})
	mgr.AddNotifier("ops", &mockNotifier{name: "ops", typeName: "mock2"})

	assert.Equal(t, 1, mgr.NotifierCount())
}

func TestManager_Notify_DispatchesToAll(t *testing.T) {
	mgr := NewManager()
	a := &mockNotifier{name: "a", typeName: "mock"}
	b := &mockNotifier{name: "b", typeName: "mock"}
	mgr.AddNotifier("a", a)
	mgr.AddNotifier("b", b)

	mgr.Notify(context.Background(), Event{Type: EventRefreshCompleted})

	assert.Equal(t, 1, a.sendCount)
	assert.Equal(t, 1, b.sendCount)
}

func TestManager_Notify_FailureIsSwallowed(t *testing.T) {
	mgr := NewManager()
	failing := &mockNotifier{
		name:     "bad",
		typeName: "mock",
		sendFunc: func(ctx context.Context, event Event) error {
			return errors.New("network down")
		},
	}
	ok := &mockNotifier{name: "good", typeName: "mock"}
	mgr.AddNotifier("bad", failing)
	mgr.AddNotifier("good", ok)

	// Must not panic or propagate; the other notifier still runs.
	mgr.Notify(context.Background(), Event{Type: EventRefreshFailed})
	assert.Equal(t, 1, ok.sendCount)
}

func TestManager_Notify_NoNotifiers(t *testing.T) {
	mgr := NewManager()
	mgr.Notify(context.Background(), Event{Type: EventRefreshStarted})
}

func TestEvent_Summary(t *testing.T) {
	docs := int64(25489412)
	event := Event{
		Type:    EventRefreshCompleted,
		Archive: "esdata_20240101.tar",
		Stats: &logstats.Stats{
			LinesProcessed: 12345678,
			LinesWritten:   12345000,
			StartTime:      "2024-01-01 10:00:00",
			EndTime:        "2024-01-01 10:05:00",
			DocCount:       &docs,
		},
		Duration: 5 * time.Minute,
	}

	msg := event.Summary()
	assert.Contains(t, msg, "Index refresh completed")
	assert.Contains(t, msg, "esdata_20240101.tar")
	assert.Contains(t, msg, "Lines processed: 12345678")
	assert.Contains(t, msg, "Lines written: 12345000")
	assert.Contains(t, msg, "2024-01-01 10:00:00 to 2024-01-01 10:05:00")
	assert.Contains(t, msg, "Documents in index: 25489412")
}

func TestEvent_Summary_FailureWithMissingLog(t *testing.T) {
	event := Event{
		Type:       EventRefreshFailed,
		LogMissing: true,
		Error:      errors.New("recipe step failed"),
	}

	msg := event.Summary()
	assert.Contains(t, msg, "Index refresh failed")
	assert.Contains(t, msg, "Processing log missing")
	assert.Contains(t, msg, "recipe step failed")
}
