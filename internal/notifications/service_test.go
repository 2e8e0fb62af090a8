package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"packmill/internal/config"
	"packmill/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyOperationCompleted(context.Background(), "convert", 3, 0, 3); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		notify         func(notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "clean completion",
			notify: func(svc notifications.Service) error {
				return svc.NotifyOperationCompleted(context.Background(), "convert", 3, 0, 3)
			},
			expectTitle:   "Packmill - Operation Finished",
			expectMessage: "✅ convert finished: 3/3 items succeeded",
			expectTags:    "packmill,convert,finished",
		},
		{
			name: "partial failure",
			notify: func(svc notifications.Service) error {
				return svc.NotifyOperationCompleted(context.Background(), "publish", 2, 1, 3)
			},
			expectTitle:    "Packmill - Operation Finished",
			expectMessage:  "⚠️ publish finished: 2 succeeded, 1 failed of 3",
			expectTags:     "packmill,publish,finished",
			expectPriority: "high",
		},
		{
			name: "abort",
			notify: func(svc notifications.Service) error {
				return svc.NotifyOperationAborted(context.Background(), "patch", "persistent-error")
			},
			expectTitle:    "Packmill - Operation Aborted",
			expectMessage:  "❌ patch aborted: persistent-error",
			expectTags:     "packmill,patch,aborted",
			expectPriority: "high",
		},
		{
			name: "connected",
			notify: func(svc notifications.Service) error {
				return svc.NotifyConnected(context.Background(), "+15550100")
			},
			expectTitle:   "Packmill - Connected",
			expectMessage: "🔗 Account connected: +15550100",
			expectTags:    "packmill,auth,connected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotTitle, gotMessage, gotTags, gotPriority string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, _ := io.ReadAll(r.Body)
				gotMessage = string(body)
				gotTitle = r.Header.Get("Title")
				gotTags = r.Header.Get("Tags")
				gotPriority = r.Header.Get("Priority")
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			svc := notifications.NewService(&cfg)

			if err := tt.notify(svc); err != nil {
				t.Fatalf("notify: %v", err)
			}
			if gotTitle != tt.expectTitle {
				t.Errorf("title = %q, want %q", gotTitle, tt.expectTitle)
			}
			if gotMessage != tt.expectMessage {
				t.Errorf("message = %q, want %q", gotMessage, tt.expectMessage)
			}
			if gotTags != tt.expectTags {
				t.Errorf("tags = %q, want %q", gotTags, tt.expectTags)
			}
			if gotPriority != tt.expectPriority {
				t.Errorf("priority = %q, want %q", gotPriority, tt.expectPriority)
			}
		})
	}
}

func TestNtfyServiceSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic rejected", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
