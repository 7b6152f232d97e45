package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	TaskPending   string = "PENDING"
	TaskCompleted string = "COMPLETED"
	TaskSnoozed   string = "SNOOZED"
	TaskDismissed string = "DISMISSED"
)

const (
	PriorityLow    string = "LOW"
	PriorityMedium string = "MEDIUM"
	PriorityHigh   string = "HIGH"
)

const (
	SourceManual      string = "MANUAL"
	SourceAiGenerated string = "AI_GENERATED"
)

const (
	KindRoom      string = "room"
	KindOutdoor   string = "outdoor"
	KindSystem    string = "system"
	KindAppliance string = "appliance"
)

const (
	AnalysisQueued    string = "QUEUED"
	AnalysisRunning   string = "RUNNING"
	AnalysisCompleted string = "COMPLETED"
	AnalysisFailed    string = "FAILED"
)

type User struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Email string `gorm:"size:255"`
	Name  string `gorm:"size:255"`

	CreationTime time.Time

	Tasks     []Task     `gorm:"foreignKey:UserId;constraint:OnDelete:CASCADE"`
	Locations []Location `gorm:"foreignKey:UserId;constraint:OnDelete:CASCADE"`
	Images    []Image    `gorm:"foreignKey:UserId;constraint:OnDelete:CASCADE"`

	Settings *UserSettings `gorm:"foreignKey:UserId;constraint:OnDelete:CASCADE"`
}

type UserSettings struct {
	UserId uuid.UUID `gorm:"type:uuid;primaryKey"`

	Locale    string `gorm:"size:20"`
	Timezone  string `gorm:"size:64"`
	WeekStart string `gorm:"size:10"`
}

type Location struct {
	Id     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId uuid.UUID `gorm:"type:uuid;index;not null"`

	Name string `gorm:"size:255;not null"`
	Kind string `gorm:"size:20"`
	Icon string `gorm:"size:64"`

	Deleted bool `gorm:"default:false"`

	CreationTime time.Time

	Tasks []Task `gorm:"foreignKey:LocationId"`
}

type Task struct {
	Id     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId uuid.UUID `gorm:"type:uuid;index;not null"`

	LocationId uuid.NullUUID `gorm:"type:uuid"`
	Location   *Location     `gorm:"foreignKey:LocationId"`

	Title       string `gorm:"size:500;not null"`
	Description string
	Status      string `gorm:"size:20;not null"`
	Priority    string `gorm:"size:20;not null"`
	Source      string `gorm:"size:20;not null"`

	DueDate      sql.NullTime
	SnoozedUntil sql.NullTime

	AiConfidence  sql.NullFloat64
	AiProvider    sql.NullString `gorm:"size:50"`
	SourceImageId uuid.NullUUID  `gorm:"type:uuid"`

	Deleted bool `gorm:"default:false"`

	CreationTime   time.Time
	UpdateTime     time.Time
	CompletionTime sql.NullTime
}

type Image struct {
	Id     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId uuid.UUID `gorm:"type:uuid;index;not null"`

	LocationId uuid.NullUUID `gorm:"type:uuid"`
	Location   *Location     `gorm:"foreignKey:LocationId"`

	OriginalKey  string `gorm:"size:512;not null"`
	ProcessedKey string `gorm:"size:512"`
	ContentType  string `gorm:"size:100"`

	OriginalBytes  int64
	ProcessedBytes int64
	Width          int
	Height         int

	Notes string

	Status     string `gorm:"size:20;not null"`
	Error      string
	Provider   string `gorm:"size:50"`
	Confidence sql.NullFloat64
	TaskCount  int `gorm:"default:0"`

	// Snapshot of what the model proposed, kept even after the user edits or
	// deletes the generated tasks.
	Suggestions datatypes.JSON

	CreationTime   time.Time
	CompletionTime sql.NullTime

	Tasks []Task `gorm:"foreignKey:SourceImageId"`
}
