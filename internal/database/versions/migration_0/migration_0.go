package migration_0

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Frozen copy of the initial schema. Later schema changes live in their own
// migration packages so this one never has to change.

type User struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Email string `gorm:"size:255"`
	Name  string `gorm:"size:255"`

	CreationTime time.Time
}

type UserSettings struct {
	UserId uuid.UUID `gorm:"type:uuid;primaryKey"`

	Locale   string `gorm:"size:20"`
	Timezone string `gorm:"size:64"`
}

type Location struct {
	Id     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId uuid.UUID `gorm:"type:uuid;index;not null"`

	Name string `gorm:"size:255;not null"`
	Kind string `gorm:"size:20"`
	Icon string `gorm:"size:64"`

	Deleted bool `gorm:"default:false"`

	CreationTime time.Time
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

	Suggestions datatypes.JSON

	CreationTime   time.Time
	CompletionTime sql.NullTime
}

func Migration(db *gorm.DB) error {
	err := db.AutoMigrate(
		&User{}, &UserSettings{}, &Location{}, &Task{}, &Image{},
	)
	if err != nil {
		return fmt.Errorf("initial migration failed: %w", err)
	}
	return nil
}
