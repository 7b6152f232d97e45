package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	AnalyzeImageQueue = "analyze_image_queue"
	NotifyQueue       = "notify_queue"
	RetryDelay        = 5 * time.Second
	MaxConnectRetry   = 5
)

type Task interface {
	Type() string

	Payload() []byte

	Ack() error

	Nack() error

	Reject() error
}

type AnalyzeImagePayload struct {
	ImageId uuid.UUID
}

type NotifyPayload struct {
	ImageId   uuid.UUID
	UserId    uuid.UUID
	Status    string
	TaskCount int
}

type Publisher interface {
	PublishAnalyzeImageTask(ctx context.Context, payload AnalyzeImagePayload) error

	PublishNotifyTask(ctx context.Context, payload NotifyPayload) error

	Close()
}

type Reciever interface {
	Tasks() <-chan Task

	Close()
}
