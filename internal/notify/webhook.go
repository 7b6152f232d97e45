package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"upkeep-backend/internal/messaging"

	"github.com/go-resty/resty/v2"
)

// Notifier delivers analysis completion events. Delivery is best effort,
// a failed notification never fails the analysis job that produced it.
type Notifier interface {
	NotifyAnalysisDone(ctx context.Context, payload messaging.NotifyPayload) error
}

type NoopNotifier struct{}

func (NoopNotifier) NotifyAnalysisDone(ctx context.Context, payload messaging.NotifyPayload) error {
	return nil
}

// WebhookNotifier posts completion events to a configured endpoint, retrying
// transient failures through resty's built-in backoff.
type WebhookNotifier struct {
	client *resty.Client
}

func NewWebhookNotifier(endpoint string) *WebhookNotifier {
	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second)

	return &WebhookNotifier{client: client}
}

func (n *WebhookNotifier) NotifyAnalysisDone(ctx context.Context, payload messaging.NotifyPayload) error {
	res, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post("")
	if err != nil {
		return fmt.Errorf("error posting notification webhook: %w", err)
	}

	if res.IsError() {
		return fmt.Errorf("notification webhook returned status %d", res.StatusCode())
	}

	slog.Info("delivered analysis notification", "image_id", payload.ImageId, "status", payload.Status)
	return nil
}
