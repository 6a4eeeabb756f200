package pipeline_test

import (
	"context"

	"visiontune/internal/config"
	"visiontune/internal/merge"
	"visiontune/internal/notifications"
)

type preparerFunc func(ctx context.Context)

func (f preparerFunc) Prepare(ctx context.Context, _, outDir string, _ []config.Dataset) (merge.Summary, error) {
	f(ctx)
	return merge.Summary{OutputDir: outDir}, nil
}

type recordingNotifier struct {
	completed []notifications.RunSummary
	failed    []string
}

func (n *recordingNotifier) NotifyRunCompleted(_ context.Context, summary notifications.RunSummary) error {
	n.completed = append(n.completed, summary)
	return nil
}

func (n *recordingNotifier) NotifyRunFailed(_ context.Context, runID string, _ error) error {
	n.failed = append(n.failed, runID)
	return nil
}

func (n *recordingNotifier) TestNotification(context.Context) error { return nil }
