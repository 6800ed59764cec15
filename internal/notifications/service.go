package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mediatool/internal/config"
)

const userAgent = "mediatool-notify/1"

// RunReport summarises a finished pipeline run.
type RunReport struct {
	RunID     string
	Action    string
	Root      string
	Simulate  bool
	Failed    int
	Modified  int
	Unchanged int
	Skipped   int
	Duration  time.Duration
	// Err is set when the run aborted.
	Err error
}

// Service is the notification surface the CLI depends on.
type Service interface {
	NotifyRunFinished(ctx context.Context, report RunReport) error
	NotifyUpdateInstalled(ctx context.Context, from, to string) error
	TestNotification(ctx context.Context) error
}

// NewService builds an ntfy-backed service, or a no-op when no topic is set.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:        topic,
		client:          &http.Client{Timeout: timeout},
		notifySimulated: cfg.Notifications.NotifySimulated,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint        string
	client          *http.Client
	notifySimulated bool
}

func (n *ntfyService) NotifyRunFinished(ctx context.Context, report RunReport) error {
	if report.Simulate && !n.notifySimulated {
		return nil
	}

	action := strings.TrimSpace(report.Action)
	if report.Simulate {
		action += " (simulated)"
	}
	root := strings.TrimSpace(report.Root)

	if report.Err != nil {
		return n.send(ctx, payload{
			title:    "mediatool - Run Aborted",
			message:  fmt.Sprintf("%s of %s aborted: %s", action, root, strings.TrimSpace(report.Err.Error())),
			tags:     []string{"mediatool", "run", "error"},
			priority: "high",
		})
	}

	duration := report.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	message := fmt.Sprintf("%s of %s finished in %s\nmodified %d, unchanged %d, skipped %d, failed %d",
		action, root, duration, report.Modified, report.Unchanged, report.Skipped, report.Failed)
	data := payload{
		title:   "mediatool - Run Complete",
		message: message,
		tags:    []string{"mediatool", "run", "completed"},
	}
	if report.Failed > 0 {
		data.title = "mediatool - Run Complete (with failures)"
		data.tags = []string{"mediatool", "run", "warning"}
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyUpdateInstalled(ctx context.Context, from, to string) error {
	return n.send(ctx, payload{
		title:   "mediatool - ffmpeg Updated",
		message: fmt.Sprintf("ffmpeg updated from %s to %s", strings.TrimSpace(from), strings.TrimSpace(to)),
		tags:    []string{"mediatool", "ffmpeg", "update"},
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "mediatool - Test",
		message:  "Notification system test",
		tags:     []string{"mediatool", "test"},
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

func (noopService) NotifyRunFinished(context.Context, RunReport) error          { return nil }
func (noopService) NotifyUpdateInstalled(context.Context, string, string) error { return nil }
func (noopService) TestNotification(context.Context) error                      { return nil }
