package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"aaxsplit/internal/config"
)

const userAgent = "aaxsplit/0.1.0"

// Service defines the notifications a convert run can publish.
type Service interface {
	NotifyBookConverted(ctx context.Context, title, bookDir string, failedSegments int) error
	NotifyError(ctx context.Context, err error, source string) error
	NotifyRunCompleted(ctx context.Context, converted, failed int, duration time.Duration) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
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

func (n *ntfyService) NotifyBookConverted(ctx context.Context, title, bookDir string, failedSegments int) error {
	title = strings.TrimSpace(title)
	message := fmt.Sprintf("📚 Converted: %s", title)
	tags := []string{"aaxsplit", "book", "completed"}
	if failedSegments > 0 {
		message = fmt.Sprintf("📚 Converted with %d failed segment(s): %s", failedSegments, title)
		tags = []string{"aaxsplit", "book", "partial"}
	}
	if bookDir = strings.TrimSpace(bookDir); bookDir != "" {
		message = fmt.Sprintf("%s\nDirectory: %s", message, bookDir)
	}
	return n.send(ctx, payload{
		title:   "aaxsplit - Book Converted",
		message: message,
		tags:    tags,
	})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, source string) error {
	var builder strings.Builder
	builder.WriteString("❌ Conversion failed")
	if source = strings.TrimSpace(source); source != "" {
		builder.WriteString(" for ")
		builder.WriteString(source)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "aaxsplit - Error",
		message:  builder.String(),
		tags:     []string{"aaxsplit", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, converted, failed int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	title := "aaxsplit - Run Complete"
	message := fmt.Sprintf("Converted %d file(s) in %s", converted, duration)
	if failed > 0 {
		title = "aaxsplit - Run Complete (with errors)"
		message = fmt.Sprintf("%d converted, %d failed in %s", converted, failed, duration)
	}
	return n.send(ctx, payload{
		title:   title,
		message: message,
		tags:    []string{"aaxsplit", "run", "completed"},
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "aaxsplit - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"aaxsplit", "test"},
		priority: "low",
	})
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
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyBookConverted(context.Context, string, string, int) error    { return nil }
func (noopService) NotifyError(context.Context, error, string) error                  { return nil }
func (noopService) NotifyRunCompleted(context.Context, int, int, time.Duration) error { return nil }
func (noopService) TestNotification(context.Context) error                            { return nil }
