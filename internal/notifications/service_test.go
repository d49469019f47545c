package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"aaxsplit/internal/config"
	"aaxsplit/internal/notifications"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func newCapturingServer(t *testing.T, status int) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		got.title = r.Header.Get("Title")
		got.tags = r.Header.Get("Tags")
		got.priority = r.Header.Get("Priority")
		body, _ := io.ReadAll(r.Body)
		got.body = string(body)
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, got
}

func serviceFor(url string) notifications.Service {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = url
	cfg.Notifications.RequestTimeoutSeconds = 5
	return notifications.NewService(&cfg)
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyRunCompleted(context.Background(), 1, 0, time.Second); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := notifications.NewService(nil).TestNotification(context.Background()); err != nil {
		t.Fatalf("expected noop for nil config, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "book converted",
			send: func(s notifications.Service) error {
				return s.NotifyBookConverted(context.Background(), "Dune", "/books/Dune", 0)
			},
			expectTitle:   "aaxsplit - Book Converted",
			expectMessage: "📚 Converted: Dune\nDirectory: /books/Dune",
			expectTags:    "aaxsplit,book,completed",
		},
		{
			name: "book partial",
			send: func(s notifications.Service) error {
				return s.NotifyBookConverted(context.Background(), "Dune", "", 2)
			},
			expectTitle:   "aaxsplit - Book Converted",
			expectMessage: "📚 Converted with 2 failed segment(s): Dune",
			expectTags:    "aaxsplit,book,partial",
		},
		{
			name: "error",
			send: func(s notifications.Service) error {
				return s.NotifyError(context.Background(), errors.New("no working activation bytes"), "book.aax")
			},
			expectTitle:    "aaxsplit - Error",
			expectMessage:  "❌ Conversion failed for book.aax: no working activation bytes",
			expectTags:     "aaxsplit,error,alert",
			expectPriority: "high",
		},
		{
			name: "run with failures",
			send: func(s notifications.Service) error {
				return s.NotifyRunCompleted(context.Background(), 3, 1, 90*time.Second+400*time.Millisecond)
			},
			expectTitle:   "aaxsplit - Run Complete (with errors)",
			expectMessage: "3 converted, 1 failed in 1m30s",
			expectTags:    "aaxsplit,run,completed",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server, got := newCapturingServer(t, http.StatusOK)
			if err := tc.send(serviceFor(server.URL)); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}
			if got.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, got.title)
			}
			if got.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, got.body)
			}
			if got.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, got.tags)
			}
			if got.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, got.priority)
			}
		})
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server, _ := newCapturingServer(t, http.StatusForbidden)
	if err := serviceFor(server.URL).TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for 403 response")
	}
}
