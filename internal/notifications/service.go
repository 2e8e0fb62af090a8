package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"packmill/internal/config"
)

const userAgent = "Packmill/0.1.0"

// Service defines the notification surface exposed to the operation engine.
type Service interface {
	NotifyOperationCompleted(ctx context.Context, class string, successCount, failureCount, totalCount int) error
	NotifyOperationAborted(ctx context.Context, class, reason string) error
	NotifyConnected(ctx context.Context, account string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyOperationCompleted(ctx context.Context, class string, successCount, failureCount, totalCount int) error {
	class = strings.TrimSpace(class)
	var message string
	if failureCount == 0 {
		message = fmt.Sprintf("✅ %s finished: %d/%d items succeeded", class, successCount, totalCount)
	} else {
		message = fmt.Sprintf("⚠️ %s finished: %d succeeded, %d failed of %d", class, successCount, failureCount, totalCount)
	}
	data := payload{
		title:   "Packmill - Operation Finished",
		message: message,
		tags:    []string{"packmill", class, "finished"},
	}
	if failureCount > 0 {
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyOperationAborted(ctx context.Context, class, reason string) error {
	data := payload{
		title:    "Packmill - Operation Aborted",
		message:  fmt.Sprintf("❌ %s aborted: %s", strings.TrimSpace(class), strings.TrimSpace(reason)),
		tags:     []string{"packmill", strings.TrimSpace(class), "aborted"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyConnected(ctx context.Context, account string) error {
	data := payload{
		title:   "Packmill - Connected",
		message: fmt.Sprintf("🔗 Account connected: %s", strings.TrimSpace(account)),
		tags:    []string{"packmill", "auth", "connected"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Packmill - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"packmill", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

type noopService struct{}

func (noopService) NotifyOperationCompleted(context.Context, string, int, int, int) error { return nil }
func (noopService) NotifyOperationAborted(context.Context, string, string) error          { return nil }
func (noopService) NotifyConnected(context.Context, string) error                         { return nil }
func (noopService) TestNotification(context.Context) error                                { return nil }
