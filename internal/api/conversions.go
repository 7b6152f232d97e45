package api

import (
	"time"

	"upkeep-backend/internal/database"
	"upkeep-backend/pkg/api"

	"github.com/google/uuid"
)

func nullUUIDPtr(id uuid.NullUUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	value := id.UUID
	return &value
}

func toApiTask(task database.Task, now time.Time) api.Task {
	out := api.Task{
		Id:           task.Id,
		LocationId:   nullUUIDPtr(task.LocationId),
		Title:        task.Title,
		Description:  task.Description,
		Status:       task.Status,
		Priority:     task.Priority,
		Source:       task.Source,
		CreationTime: task.CreationTime,
	}

	// A snoozed task whose snooze window has passed, or that has no window
	// at all, is surfaced as pending again; resurfacing is computed here
	// rather than flipped by a background job.
	if task.Status == database.TaskSnoozed && (!task.SnoozedUntil.Valid || !task.SnoozedUntil.Time.After(now)) {
		out.Status = database.TaskPending
	}

	if task.DueDate.Valid {
		due := task.DueDate.Time
		out.DueDate = &due
	}
	if task.SnoozedUntil.Valid && out.Status == database.TaskSnoozed {
		until := task.SnoozedUntil.Time
		out.SnoozedUntil = &until
	}
	if task.CompletionTime.Valid {
		completed := task.CompletionTime.Time
		out.CompletionTime = &completed
	}
	if task.AiConfidence.Valid {
		confidence := task.AiConfidence.Float64
		out.AiConfidence = &confidence
	}
	if task.AiProvider.Valid {
		out.AiProvider = task.AiProvider.String
	}
	out.SourceImageId = nullUUIDPtr(task.SourceImageId)

	return out
}

func toApiLocation(location database.Location, taskCount int) api.Location {
	return api.Location{
		Id:           location.Id,
		Name:         location.Name,
		Kind:         location.Kind,
		Icon:         location.Icon,
		TaskCount:    taskCount,
		CreationTime: location.CreationTime,
	}
}

func toApiImage(image database.Image) api.Image {
	out := api.Image{
		Id:            image.Id,
		LocationId:    nullUUIDPtr(image.LocationId),
		Status:        image.Status,
		Error:         image.Error,
		Provider:      image.Provider,
		TaskCount:     image.TaskCount,
		ContentType:   image.ContentType,
		OriginalBytes: image.OriginalBytes,
		Width:         image.Width,
		Height:        image.Height,
		CreationTime:  image.CreationTime,
	}

	if image.Confidence.Valid {
		confidence := image.Confidence.Float64
		out.Confidence = &confidence
	}
	if image.CompletionTime.Valid {
		completed := image.CompletionTime.Time
		out.CompletionTime = &completed
	}

	return out
}
