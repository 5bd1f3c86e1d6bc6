package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"despatch/internal/config"
)

const userAgent = "despatch/1.0"

// Service defines the notification surface exposed to the submission
// pipeline.
type Service interface {
	NotifySubmissionSucceeded(ctx context.Context, site, user string, records int) error
	NotifySubmissionFailed(ctx context.Context, site string, records int, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
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

// Enabled reports whether svc actually sends anything.
func Enabled(svc Service) bool {
	_, noop := svc.(noopService)
	return svc != nil && !noop
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

func (n *ntfyService) NotifySubmissionSucceeded(ctx context.Context, site, user string, records int) error {
	site = config.DisplayName(site)
	data := payload{
		title:   "Despatch - Submitted",
		message: fmt.Sprintf("%s: %d job id(s) submitted by %s", site, records, strings.TrimSpace(user)),
		tags:    []string{"despatch", "submit", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySubmissionFailed(ctx context.Context, site string, records int, err error) error {
	var builder strings.Builder
	builder.WriteString(config.DisplayName(site))
	fmt.Fprintf(&builder, ": submission of %d job id(s) failed: ", records)
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Despatch - Submission Failed",
		message:  builder.String(),
		tags:     []string{"despatch", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Despatch - Test",
		message:  "Notification system test",
		tags:     []string{"despatch", "test"},
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
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifySubmissionSucceeded(context.Context, string, string, int) error { return nil }
func (noopService) NotifySubmissionFailed(context.Context, string, int, error) error     { return nil }
func (noopService) TestNotification(context.Context) error                               { return nil }
