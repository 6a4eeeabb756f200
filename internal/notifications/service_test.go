package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"visiontune/internal/config"
	"visiontune/internal/notifications"
)

type captured struct {
	title    string
	body     string
	tags     string
	priority string
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, <-chan captured) {
	t.Helper()
	ch := make(chan captured, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		ch <- captured{
			title:    r.Header.Get("Title"),
			body:     string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, ch
}

func configWithTopic(topic string) *config.Config {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = topic
	return &cfg
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	svc := notifications.NewService(configWithTopic(""))
	if notifications.Enabled(svc) {
		t.Fatal("expected disabled service without a topic")
	}
	if err := svc.NotifyRunFailed(context.Background(), "run", errors.New("boom")); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNotifyRunCompleted(t *testing.T) {
	srv, ch := newCaptureServer(t, http.StatusOK)
	svc := notifications.NewService(configWithTopic(srv.URL))
	if !notifications.Enabled(svc) {
		t.Fatal("expected enabled service")
	}

	err := svc.NotifyRunCompleted(context.Background(), notifications.RunSummary{
		RunID:       "0123456789abcdef",
		TrainImages: 120,
		ValidImages: 120,
		ExportPath:  "/out/anticheat_finetuned/weights/best.onnx",
		Duration:    90*time.Minute + 400*time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NotifyRunCompleted: %v", err)
	}
	got := <-ch
	if got.title != "visiontune - Run 01234567 complete" {
		t.Fatalf("unexpected title %q", got.title)
	}
	for _, want := range []string{"best.onnx", "Train images: 120", "1h30m0s"} {
		if !strings.Contains(got.body, want) {
			t.Fatalf("body %q missing %q", got.body, want)
		}
	}
	if got.tags != "visiontune,run,completed" || got.priority != "" {
		t.Fatalf("unexpected tags %q priority %q", got.tags, got.priority)
	}
}

func TestNotifyRunFailedIsHighPriority(t *testing.T) {
	srv, ch := newCaptureServer(t, http.StatusOK)
	svc := notifications.NewService(configWithTopic(srv.URL))

	if err := svc.NotifyRunFailed(context.Background(), "abc", errors.New("train: exit status 1")); err != nil {
		t.Fatalf("NotifyRunFailed: %v", err)
	}
	got := <-ch
	if got.priority != "high" || got.body != "train: exit status 1" {
		t.Fatalf("unexpected failure message %+v", got)
	}
}

func TestSendReportsHTTPErrors(t *testing.T) {
	srv, _ := newCaptureServer(t, http.StatusForbidden)
	svc := notifications.NewService(configWithTopic(srv.URL))

	err := svc.TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected status error, got %v", err)
	}
}
