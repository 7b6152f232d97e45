package migration_1

import (
	"fmt"

	"gorm.io/gorm"
)

type UserSettings struct {
	WeekStart string `gorm:"size:10"`
}

func Migration(db *gorm.DB) error {
	if err := db.Migrator().AddColumn(&UserSettings{}, "week_start"); err != nil {
		return fmt.Errorf("error adding WeekStart column: %w", err)
	}
	return nil
}

func Rollback(db *gorm.DB) error {
	if err := db.Migrator().DropColumn(&UserSettings{}, "WeekStart"); err != nil {
		return fmt.Errorf("error dropping WeekStart column: %w", err)
	}
	return nil
}
