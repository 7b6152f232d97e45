package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"upkeep-backend/internal/auth"
	"upkeep-backend/internal/database"
	"upkeep-backend/internal/locale"
	"upkeep-backend/pkg/api"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *BackendService) GetUserSettings(r *http.Request) (any, error) {
	userId := auth.UserId(r.Context())

	var stored database.UserSettings
	err := s.db.WithContext(r.Context()).First(&stored, "user_id = ?", userId).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// No row yet, report the negotiated defaults without persisting.
			return api.UserSettings{
				Locale:    locale.Negotiate("", r.Header.Get("Accept-Language")),
				Timezone:  "UTC",
				WeekStart: "monday",
			}, nil
		}
		slog.Error("error getting user settings", "user_id", userId, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving user settings")
	}

	out := api.UserSettings{
		Locale:    stored.Locale,
		Timezone:  stored.Timezone,
		WeekStart: stored.WeekStart,
	}
	if out.Locale == "" {
		out.Locale = locale.Negotiate("", r.Header.Get("Accept-Language"))
	}
	if out.Timezone == "" {
		out.Timezone = "UTC"
	}
	if out.WeekStart == "" {
		out.WeekStart = "monday"
	}
	return out, nil
}

func (s *BackendService) UpdateUserSettings(r *http.Request) (any, error) {
	req, err := ParseRequest[api.UserSettings](r)
	if err != nil {
		return nil, err
	}

	if req.Locale != "" && !locale.IsSupported(req.Locale) {
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "unsupported locale '%s'", req.Locale)
	}
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			return nil, CodedErrorf(http.StatusUnprocessableEntity, "unknown timezone '%s'", req.Timezone)
		}
	}
	weekStart := strings.ToLower(req.WeekStart)
	if weekStart != "" && weekStart != "monday" && weekStart != "sunday" && weekStart != "saturday" {
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "invalid week_start '%s'", req.WeekStart)
	}

	userId := auth.UserId(r.Context())
	settings := database.UserSettings{
		UserId:    userId,
		Locale:    req.Locale,
		Timezone:  req.Timezone,
		WeekStart: weekStart,
	}

	err = s.db.WithContext(r.Context()).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"locale", "timezone", "week_start"}),
	}).Create(&settings).Error
	if err != nil {
		slog.Error("error updating user settings", "user_id", userId, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to update user settings")
	}

	return api.UserSettings{
		Locale:    settings.Locale,
		Timezone:  settings.Timezone,
		WeekStart: settings.WeekStart,
	}, nil
}
