package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mortidx/mortidx/internal/logstats"
)

// Event represents a pipeline event that can be notified
type Event struct {
	Type       EventType
	Archive    string          // archive key rotated into the destinations
	Stats      *logstats.Stats // run statistics, nil when extraction failed
	LogMissing bool            // the processing log could not be found
	Duration   time.Duration
	Error      error
	Timestamp  time.Time
}

// EventType represents the type of pipeline event
type EventType string

const (
	EventRefreshStarted   EventType = "refresh_started"
	EventRefreshCompleted EventType = "refresh_completed"
	EventRefreshFailed    EventType = "refresh_failed"
)

// Title returns a human-readable headline for the event
func (e Event) Title() string {
	switch e.Type {
	case EventRefreshStarted:
		return "Index refresh started"
	case EventRefreshCompleted:
		return "Index refresh completed"
	case EventRefreshFailed:
		return "Index refresh failed"
	default:
		return string(e.Type)
	}
}

// Summary renders the event as a plain-text message for chat channels
func (e Event) Summary() string {
	var b strings.Builder
	b.WriteString(e.Title())

	if e.Archive != "" {
		fmt.Fprintf(&b, "\nArchive: %s", e.Archive)
	}
	if e.Stats != nil {
		if e.Stats.LinesProcessed > 0 {
			fmt.Fprintf(&b, "\nLines processed: %d", e.Stats.LinesProcessed)
		}
		if e.Stats.LinesWritten > 0 {
			fmt.Fprintf(&b, "\nLines written: %d", e.Stats.LinesWritten)
		}
		if e.Stats.StartTime != "" && e.Stats.EndTime != "" {
			fmt.Fprintf(&b, "\nWindow: %s to %s", e.Stats.StartTime, e.Stats.EndTime)
		}
		if e.Stats.DocCount != nil {
			fmt.Fprintf(&b, "\nDocuments in index: %d", *e.Stats.DocCount)
		}
	}
	if e.LogMissing {
		b.WriteString("\nProcessing log missing, statistics skipped")
	}
	if e.Duration > 0 {
		fmt.Fprintf(&b, "\nDuration: %s", e.Duration.Round(time.Second))
	}
	if e.Error != nil {
		fmt.Fprintf(&b, "\nError: %s", e.Error)
	}

	return b.String()
}

// Notifier defines the interface for notification providers
type Notifier interface {
	// Name returns the notifier instance name
	Name() string

	// Type returns the notifier type (e.g., "webhook", "telegram")
	Type() string

	// Send sends a notification for the given event
	Send(ctx context.Context, event Event) error
}

// NotifierType creates Notifier instances from configuration
type NotifierType interface {
	// Name returns the type identifier ("webhook", "telegram", etc.)
	Name() string

	// Create instantiates a notifier from configuration options
	Create(name string, options map[string]string) (Notifier, error)
}
