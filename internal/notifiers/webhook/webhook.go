package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mortidx/mortidx/internal/notification"
)

func init() {
	notification.Register(&WebhookType{})
}

// WebhookType implements NotifierType for generic chat webhooks
// (Mattermost, Slack and compatible).
type WebhookType struct{}

// Name returns the notifier type identifier
func (t *WebhookType) Name() string {
	return "webhook"
}

// Create instantiates a webhook notifier from options
func (t *WebhookType) Create(name string, options map[string]string) (notification.Notifier, error) {
	url, ok := options["url"]
	if !ok || url == "" {
		return nil, fmt.Errorf("webhook notifier %q requires 'url' option", name)
	}

	return &WebhookNotifier{
		name:     name,
		url:      url,
		username: options["username"],
		client:   &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// WebhookNotifier posts a text payload to an incoming-webhook endpoint
type WebhookNotifier struct {
	name     string
	url      string
	username string
	client   *http.Client
}

// Name returns the notifier instance name
func (w *WebhookNotifier) Name() string {
	return w.name
}

// Type returns the notifier type
func (w *WebhookNotifier) Type() string {
	return "webhook"
}

// Send posts the event summary as a text message
func (w *WebhookNotifier) Send(ctx context.Context, event notification.Event) error {
	payload := map[string]string{
		"text": w.prefix(event) + " " + event.Summary(),
	}
	if w.username != "" {
		payload["username"] = w.username
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

func (w *WebhookNotifier) prefix(event notification.Event) string {
	switch event.Type {
	case notification.EventRefreshCompleted:
		return ":white_check_mark:"
	case notification.EventRefreshFailed:
		return ":x:"
	default:
		return ":arrows_counterclockwise:"
	}
}
