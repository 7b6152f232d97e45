package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func UpdateImageStatus(ctx context.Context, db *gorm.DB, imageId uuid.UUID, status string) error {
	updates := map[string]any{"status": status}
	if status == AnalysisCompleted || status == AnalysisFailed {
		updates["completion_time"] = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}

	if err := db.WithContext(ctx).Model(&Image{}).Where("id = ?", imageId).Updates(updates).Error; err != nil {
		return fmt.Errorf("error updating image %s status to %s: %w", imageId, status, err)
	}
	return nil
}

func MarkImageFailed(ctx context.Context, db *gorm.DB, imageId uuid.UUID, analysisErr error) error {
	if err := db.WithContext(ctx).Model(&Image{}).Where("id = ?", imageId).Updates(map[string]any{
		"status":          AnalysisFailed,
		"error":           analysisErr.Error(),
		"completion_time": sql.NullTime{Time: time.Now().UTC(), Valid: true},
	}).Error; err != nil {
		return fmt.Errorf("error marking image %s failed: %w", imageId, err)
	}
	return nil
}

// GetOrCreateUser provisions a user row the first time a valid token for that
// user id is seen. Identity lives with the external token issuer, so there is
// nothing more to a user than its id until settings are written.
func GetOrCreateUser(ctx context.Context, db *gorm.DB, userId uuid.UUID) (User, error) {
	var user User
	err := db.WithContext(ctx).
		Where(User{Id: userId}).
		Attrs(User{CreationTime: time.Now().UTC()}).
		FirstOrCreate(&user).Error
	if err != nil {
		return User{}, fmt.Errorf("error provisioning user %s: %w", userId, err)
	}
	return user, nil
}
