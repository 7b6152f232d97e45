package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"upkeep-backend/internal/auth"
	"upkeep-backend/internal/database"
	"upkeep-backend/internal/locale"
	"upkeep-backend/pkg/api"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func validPriority(priority string) bool {
	switch priority {
	case database.PriorityLow, database.PriorityMedium, database.PriorityHigh:
		return true
	}
	return false
}

func validStatus(status string) bool {
	switch status {
	case database.TaskPending, database.TaskCompleted, database.TaskSnoozed, database.TaskDismissed:
		return true
	}
	return false
}

// checkLocationOwnership verifies the location exists, belongs to the user,
// and is not deleted.
func (s *BackendService) checkLocationOwnership(r *http.Request, userId, locationId uuid.UUID) error {
	var location database.Location
	err := s.db.WithContext(r.Context()).
		First(&location, "id = ? AND user_id = ? AND deleted = ?", locationId, userId, false).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CodedErrorf(http.StatusUnprocessableEntity, "location not found")
		}
		slog.Error("error checking location", "location_id", locationId, "error", err)
		return CodedErrorf(http.StatusInternalServerError, "error checking location")
	}
	return nil
}

func (s *BackendService) ListTasks(r *http.Request) (any, error) {
	params, err := ParseRequestQueryParams[api.ListTasksQuery](r)
	if err != nil {
		return nil, err
	}

	userId := auth.UserId(r.Context())
	now := time.Now().UTC()

	query := s.db.WithContext(r.Context()).
		Where("user_id = ? AND deleted = ?", userId, false)

	if params.Status != "" {
		status := strings.ToUpper(params.Status)
		if !validStatus(status) {
			return nil, CodedErrorf(http.StatusUnprocessableEntity, "invalid status filter '%s'", params.Status)
		}
		switch status {
		case database.TaskPending:
			// Snoozed tasks past their window, or stuck without one, count
			// as pending again.
			query = query.Where("status = ? OR (status = ? AND (snoozed_until IS NULL OR snoozed_until <= ?))", database.TaskPending, database.TaskSnoozed, now)
		case database.TaskSnoozed:
			query = query.Where("status = ? AND snoozed_until > ?", database.TaskSnoozed, now)
		default:
			query = query.Where("status = ?", status)
		}
	} else if !params.IncludeSnoozed {
		query = query.Where("status != ? OR snoozed_until IS NULL OR snoozed_until <= ?", database.TaskSnoozed, now)
	}

	if params.Source != "" {
		source := strings.ToUpper(params.Source)
		if source != database.SourceManual && source != database.SourceAiGenerated {
			return nil, CodedErrorf(http.StatusUnprocessableEntity, "invalid source filter '%s'", params.Source)
		}
		query = query.Where("source = ?", source)
	}

	if params.LocationId != "" {
		locationId, err := uuid.Parse(params.LocationId)
		if err != nil {
			return nil, CodedErrorf(http.StatusBadRequest, "invalid location_id filter: %v", err)
		}
		query = query.Where("location_id = ?", locationId)
	}

	if params.DueBefore != "" {
		dueBefore, err := time.Parse(time.RFC3339, params.DueBefore)
		if err != nil {
			return nil, CodedErrorf(http.StatusBadRequest, "invalid due_before filter, expected RFC3339 timestamp: %v", err)
		}
		query = query.Where("due_date IS NOT NULL AND due_date < ?", dueBefore)
	}

	if params.Limit > 0 {
		query = query.Limit(params.Limit)
	}
	if params.Offset > 0 {
		query = query.Offset(params.Offset)
	}

	var tasks []database.Task
	if err := query.Order("creation_time DESC").Find(&tasks).Error; err != nil {
		slog.Error("error listing tasks", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving tasks")
	}

	out := make([]api.Task, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, toApiTask(task, now))
	}
	return out, nil
}

func (s *BackendService) CreateTask(r *http.Request) (any, error) {
	req, err := ParseRequest[api.CreateTaskRequest](r)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.Title) == "" {
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "title is required")
	}

	priority := strings.ToUpper(req.Priority)
	if priority == "" {
		priority = database.PriorityMedium
	}
	if !validPriority(priority) {
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "invalid priority '%s'", req.Priority)
	}

	userId := auth.UserId(r.Context())

	task := database.Task{
		Id:           uuid.New(),
		UserId:       userId,
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		Status:       database.TaskPending,
		Priority:     priority,
		Source:       database.SourceManual,
		CreationTime: time.Now().UTC(),
		UpdateTime:   time.Now().UTC(),
	}

	if req.LocationId != nil {
		if err := s.checkLocationOwnership(r, userId, *req.LocationId); err != nil {
			return nil, err
		}
		task.LocationId = uuid.NullUUID{UUID: *req.LocationId, Valid: true}
	}

	if req.DueDate != nil {
		task.DueDate = sql.NullTime{Time: req.DueDate.UTC(), Valid: true}
	}

	if err := s.db.WithContext(r.Context()).Create(&task).Error; err != nil {
		slog.Error("error creating task", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to create task")
	}

	slog.Info("created task", "task_id", task.Id, "user_id", userId)
	return api.CreateTaskResponse{TaskId: task.Id}, nil
}

func (s *BackendService) getOwnedTask(r *http.Request, taskId uuid.UUID) (database.Task, error) {
	var task database.Task
	err := s.db.WithContext(r.Context()).
		First(&task, "id = ? AND user_id = ? AND deleted = ?", taskId, auth.UserId(r.Context()), false).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return task, CodedErrorf(http.StatusNotFound, "task not found")
		}
		slog.Error("error getting task", "task_id", taskId, "error", err)
		return task, CodedErrorf(http.StatusInternalServerError, "error retrieving task record")
	}
	return task, nil
}

func (s *BackendService) GetTask(r *http.Request) (any, error) {
	taskId, err := URLParamUUID(r, "task_id")
	if err != nil {
		return nil, err
	}

	task, err := s.getOwnedTask(r, taskId)
	if err != nil {
		return nil, err
	}

	return toApiTask(task, time.Now().UTC()), nil
}

func (s *BackendService) UpdateTask(r *http.Request) (any, error) {
	taskId, err := URLParamUUID(r, "task_id")
	if err != nil {
		return nil, err
	}

	req, err := ParseRequest[api.UpdateTaskRequest](r)
	if err != nil {
		return nil, err
	}

	task, err := s.getOwnedTask(r, taskId)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{"update_time": time.Now().UTC()}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, CodedErrorf(http.StatusUnprocessableEntity, "title cannot be empty")
		}
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Priority != nil {
		priority := strings.ToUpper(*req.Priority)
		if !validPriority(priority) {
			return nil, CodedErrorf(http.StatusUnprocessableEntity, "invalid priority '%s'", *req.Priority)
		}
		updates["priority"] = priority
	}
	if req.Status != nil {
		status := strings.ToUpper(*req.Status)
		if !validStatus(status) {
			return nil, CodedErrorf(http.StatusUnprocessableEntity, "invalid status '%s'", *req.Status)
		}
		// Snoozing must go through the snooze endpoint so the task always
		// carries a snoozed-until time.
		if status == database.TaskSnoozed {
			return nil, CodedErrorf(http.StatusUnprocessableEntity, "use the snooze endpoint to snooze a task")
		}
		updates["status"] = status
		switch status {
		case database.TaskCompleted:
			updates["completion_time"] = sql.NullTime{Time: time.Now().UTC(), Valid: true}
		case database.TaskPending:
			updates["snoozed_until"] = sql.NullTime{}
			updates["completion_time"] = sql.NullTime{}
		}
	}
	if req.LocationId != nil {
		if *req.LocationId == uuid.Nil {
			updates["location_id"] = uuid.NullUUID{}
		} else {
			if err := s.checkLocationOwnership(r, auth.UserId(r.Context()), *req.LocationId); err != nil {
				return nil, err
			}
			updates["location_id"] = uuid.NullUUID{UUID: *req.LocationId, Valid: true}
		}
	}
	if req.DueDate != nil {
		updates["due_date"] = sql.NullTime{Time: req.DueDate.UTC(), Valid: true}
	}

	if err := s.db.WithContext(r.Context()).Model(&task).Updates(updates).Error; err != nil {
		slog.Error("error updating task", "task_id", taskId, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to update task")
	}

	task, err = s.getOwnedTask(r, taskId)
	if err != nil {
		return nil, err
	}
	return toApiTask(task, time.Now().UTC()), nil
}

func (s *BackendService) DeleteTask(r *http.Request) (any, error) {
	taskId, err := URLParamUUID(r, "task_id")
	if err != nil {
		return nil, err
	}

	task, err := s.getOwnedTask(r, taskId)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(r.Context()).Model(&task).Updates(map[string]any{
		"deleted":     true,
		"update_time": time.Now().UTC(),
	}).Error; err != nil {
		slog.Error("error deleting task", "task_id", taskId, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to delete task")
	}

	return nil, nil
}

func (s *BackendService) CompleteTask(r *http.Request) (any, error) {
	taskId, err := URLParamUUID(r, "task_id")
	if err != nil {
		return nil, err
	}

	task, err := s.getOwnedTask(r, taskId)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(r.Context()).Model(&task).Updates(map[string]any{
		"status":          database.TaskCompleted,
		"completion_time": sql.NullTime{Time: now, Valid: true},
		"snoozed_until":   sql.NullTime{},
		"update_time":     now,
	}).Error; err != nil {
		slog.Error("error completing task", "task_id", taskId, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to complete task")
	}

	task, err = s.getOwnedTask(r, taskId)
	if err != nil {
		return nil, err
	}
	return toApiTask(task, now), nil
}

// snoozeSettings assembles the locale context for snooze computations from
// the user's stored settings, with defaults for anything unset.
func (s *BackendService) snoozeSettings(r *http.Request) locale.SnoozeSettings {
	settings := locale.DefaultSnoozeSettings()

	var stored database.UserSettings
	err := s.db.WithContext(r.Context()).First(&stored, "user_id = ?", auth.UserId(r.Context())).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			slog.Error("error loading user settings", "error", err)
		}
		settings.Locale = locale.Negotiate("", r.Header.Get("Accept-Language"))
		return settings
	}

	settings.Locale = locale.Negotiate(stored.Locale, r.Header.Get("Accept-Language"))
	settings.WeekStart = locale.ParseWeekStart(stored.WeekStart)
	if stored.Timezone != "" {
		if loc, err := time.LoadLocation(stored.Timezone); err == nil {
			settings.Location = loc
		}
	}

	return settings
}

func (s *BackendService) GetSnoozeOptions(r *http.Request) (any, error) {
	settings := s.snoozeSettings(r)

	options := locale.SnoozeOptions(time.Now(), settings)
	out := make([]api.SnoozeOption, 0, len(options))
	for _, option := range options {
		out = append(out, api.SnoozeOption{Key: option.Key, Label: option.Label, Until: option.Until})
	}

	return api.SnoozeOptionsResponse{Locale: settings.Locale, Options: out}, nil
}

func (s *BackendService) SnoozeTask(r *http.Request) (any, error) {
	taskId, err := URLParamUUID(r, "task_id")
	if err != nil {
		return nil, err
	}

	req, err := ParseRequest[api.SnoozeRequest](r)
	if err != nil {
		return nil, err
	}

	task, err := s.getOwnedTask(r, taskId)
	if err != nil {
		return nil, err
	}
	if task.Status == database.TaskCompleted || task.Status == database.TaskDismissed {
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "cannot snooze a task with status %s", task.Status)
	}

	now := time.Now()
	var until time.Time
	switch {
	case req.Until != nil:
		until = req.Until.UTC()
	case req.Option != "":
		until, err = locale.ResolveSnoozeOption(now, s.snoozeSettings(r), req.Option)
		if err != nil {
			return nil, CodedErrorf(http.StatusUnprocessableEntity, "%v", err)
		}
	default:
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "either option or until is required")
	}

	if !until.After(now) {
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "snooze time must be in the future")
	}

	if err := s.db.WithContext(r.Context()).Model(&task).Updates(map[string]any{
		"status":        database.TaskSnoozed,
		"snoozed_until": sql.NullTime{Time: until.UTC(), Valid: true},
		"update_time":   now.UTC(),
	}).Error; err != nil {
		slog.Error("error snoozing task", "task_id", taskId, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to snooze task")
	}

	task, err = s.getOwnedTask(r, taskId)
	if err != nil {
		return nil, err
	}
	return toApiTask(task, now.UTC()), nil
}
