package api

import (
	"time"

	"github.com/google/uuid"
)

type Task struct {
	Id         uuid.UUID
	LocationId *uuid.UUID

	Title       string
	Description string
	Status      string
	Priority    string
	Source      string

	DueDate      *time.Time
	SnoozedUntil *time.Time

	AiConfidence  *float64
	AiProvider    string     `json:"AiProvider,omitempty"`
	SourceImageId *uuid.UUID `json:"SourceImageId,omitempty"`

	CreationTime   time.Time
	CompletionTime *time.Time
}

type CreateTaskRequest struct {
	Title       string
	Description string
	Priority    string
	LocationId  *uuid.UUID
	DueDate     *time.Time
}

type CreateTaskResponse struct {
	TaskId uuid.UUID
}

type UpdateTaskRequest struct {
	Title       *string
	Description *string
	Priority    *string
	Status      *string
	LocationId  *uuid.UUID
	DueDate     *time.Time
}

type ListTasksQuery struct {
	Status         string `schema:"status"`
	Source         string `schema:"source"`
	LocationId     string `schema:"location_id"`
	DueBefore      string `schema:"due_before"`
	IncludeSnoozed bool   `schema:"include_snoozed"`
	Limit          int    `schema:"limit"`
	Offset         int    `schema:"offset"`
}

type SnoozeRequest struct {
	Option string
	Until  *time.Time
}

type SnoozeOption struct {
	Key   string
	Label string
	Until time.Time
}

type SnoozeOptionsResponse struct {
	Locale  string
	Options []SnoozeOption
}

type Location struct {
	Id   uuid.UUID
	Name string
	Kind string
	Icon string

	TaskCount    int `json:"TaskCount,omitempty"`
	CreationTime time.Time
}

type CreateLocationRequest struct {
	Name string
	Kind string
	Icon string
}

type CreateLocationResponse struct {
	LocationId uuid.UUID
}

type UpdateLocationRequest struct {
	Name *string
	Kind *string
	Icon *string
}

type UserSettings struct {
	Locale    string
	Timezone  string
	WeekStart string
}

type AnalyzeImageResponse struct {
	ImageId uuid.UUID
	Status  string
}

type Image struct {
	Id         uuid.UUID
	LocationId *uuid.UUID

	Status        string
	Error         string `json:"Error,omitempty"`
	Provider      string `json:"Provider,omitempty"`
	Confidence    *float64
	TaskCount     int
	ContentType   string
	OriginalBytes int64
	Width         int
	Height        int

	CreationTime   time.Time
	CompletionTime *time.Time
}
