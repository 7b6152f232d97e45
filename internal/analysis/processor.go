package analysis

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"upkeep-backend/internal/ai"
	"upkeep-backend/internal/database"
	"upkeep-backend/internal/messaging"
	"upkeep-backend/internal/notify"
	"upkeep-backend/internal/storage"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// analysisTimeout bounds one full analysis attempt cycle, including provider
// retries.
var analysisTimeout = 5 * time.Minute

type Processor struct {
	db        *gorm.DB
	storage   storage.ObjectStore
	publisher messaging.Publisher
	reciever  messaging.Reciever

	provider ai.Provider
	notifier notify.Notifier

	imageBucket string
	retry       ai.RetryConfig
}

func NewProcessor(db *gorm.DB, storage storage.ObjectStore, publisher messaging.Publisher, reciever messaging.Reciever, provider ai.Provider, notifier notify.Notifier, imageBucket string, retry ai.RetryConfig) *Processor {
	return &Processor{
		db:          db,
		storage:     storage,
		publisher:   publisher,
		reciever:    reciever,
		provider:    provider,
		notifier:    notifier,
		imageBucket: imageBucket,
		retry:       retry,
	}
}

func (proc *Processor) Start() {
	slog.Info("starting analysis processor", "provider", proc.provider.Name())

	for task := range proc.reciever.Tasks() {
		proc.ProcessTask(task)
	}
}

func (proc *Processor) Stop() {
	slog.Info("stopping analysis processor")

	proc.publisher.Close()
	proc.reciever.Close()
}

func (proc *Processor) ProcessTask(task messaging.Task) {
	ctx := context.Background()

	var err error
	switch task.Type() {

	case messaging.AnalyzeImageQueue:
		var payload messaging.AnalyzeImagePayload
		if err = json.Unmarshal(task.Payload(), &payload); err != nil {
			slog.Error("error unmarshalling analyze image task", "error", err)
			if err := task.Reject(); err != nil { // Discard malformed message
				slog.Error("error rejecting message from queue", "error", err)
			}
			return
		}
		err = proc.processAnalyzeImageTask(ctx, payload)

	case messaging.NotifyQueue:
		var payload messaging.NotifyPayload
		if err = json.Unmarshal(task.Payload(), &payload); err != nil {
			slog.Error("error unmarshalling notify task", "error", err)
			if err := task.Reject(); err != nil { // Discard malformed message
				slog.Error("error rejecting message from queue", "error", err)
			}
			return
		}
		err = proc.processNotifyTask(ctx, payload)

	default:
		slog.Error("received unknown task type", "queue", task.Type())
		if err := task.Reject(); err != nil { // reject unknown message type
			slog.Error("error rejecting message from queue", "error", err)
		}
		return
	}

	if err != nil {
		slog.Error("error processing task", "queue", task.Type(), "error", err)
		if err := task.Nack(); err != nil {
			slog.Error("error reporting processing failure on message from queue", "error", err)
		}
	} else {
		slog.Info("successfully processed task", "queue", task.Type())
		if err := task.Ack(); err != nil {
			slog.Error("error acknowledging message from queue", "error", err)
		}
	}
}

func (proc *Processor) processAnalyzeImageTask(ctx context.Context, payload messaging.AnalyzeImagePayload) error {
	imageId := payload.ImageId

	slog.Info("processing image analysis", "image_id", imageId)

	var image database.Image
	if err := proc.db.WithContext(ctx).Preload("Location").First(&image, "id = ?", imageId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			slog.Error("image not found, dropping analysis task", "image_id", imageId)
			return nil
		}
		return fmt.Errorf("error fetching image %s: %w", imageId, err)
	}

	// Redelivered messages for an image that already finished are dropped.
	if image.Status == database.AnalysisCompleted || image.Status == database.AnalysisFailed {
		slog.Info("image already in terminal state, skipping", "image_id", imageId, "status", image.Status)
		return nil
	}

	if err := database.UpdateImageStatus(ctx, proc.db, imageId, database.AnalysisRunning); err != nil {
		slog.Error("error marking image as running", "image_id", imageId, "error", err)
	}

	// Only the analysis itself runs under the deadline. The terminal status
	// writes below must still go through when the deadline has fired.
	analysisCtx, cancel := context.WithTimeout(ctx, analysisTimeout)
	analysis, analysisErr := proc.analyzeImage(analysisCtx, image)
	cancel()

	if analysisErr != nil {
		slog.Error("image analysis failed", "image_id", imageId, "error", analysisErr)
		if err := database.MarkImageFailed(ctx, proc.db, imageId, analysisErr); err != nil {
			return err
		}
		proc.publishNotify(ctx, image, database.AnalysisFailed, 0)
		// The failure is recorded on the image row, the message itself is
		// done.
		return nil
	}

	taskCount, err := proc.saveAnalysis(ctx, image, analysis)
	if err != nil {
		if markErr := database.MarkImageFailed(ctx, proc.db, imageId, fmt.Errorf("error saving analysis results")); markErr != nil {
			slog.Error("error marking image failed", "image_id", imageId, "error", markErr)
		}
		return err
	}

	proc.publishNotify(ctx, image, database.AnalysisCompleted, taskCount)

	slog.Info("image analysis completed", "image_id", imageId, "provider", analysis.Provider, "task_count", taskCount, "confidence", analysis.Confidence)

	return nil
}

func (proc *Processor) analyzeImage(ctx context.Context, image database.Image) (*ai.Analysis, error) {
	data, err := proc.storage.GetObject(ctx, proc.imageBucket, image.ProcessedKey)
	if err != nil {
		return nil, fmt.Errorf("error loading processed image: %w", err)
	}

	opts := ai.PromptOptions{
		Locale: proc.userLocale(ctx, image),
		Notes:  image.Notes,
	}
	if image.Location != nil {
		opts.LocationName = image.Location.Name
	}

	return ai.Analyze(ctx, proc.provider, ai.ImageInput{Data: data, MIMEType: "image/jpeg"}, opts, proc.retry)
}

func (proc *Processor) userLocale(ctx context.Context, image database.Image) string {
	var settings database.UserSettings
	if err := proc.db.WithContext(ctx).First(&settings, "user_id = ?", image.UserId).Error; err != nil {
		return ""
	}
	return settings.Locale
}

// saveAnalysis inserts the suggested tasks and records the outcome on the
// image row in a single transaction, so a crash mid-save never leaves a
// COMPLETED image with half its tasks.
func (proc *Processor) saveAnalysis(ctx context.Context, image database.Image, analysis *ai.Analysis) (int, error) {
	now := time.Now().UTC()

	tasks := make([]database.Task, 0, len(analysis.Suggestions))
	for _, suggestion := range analysis.Suggestions {
		task := database.Task{
			Id:            uuid.New(),
			UserId:        image.UserId,
			LocationId:    image.LocationId,
			Title:         suggestion.Title,
			Description:   suggestion.Description,
			Status:        database.TaskPending,
			Priority:      suggestion.Priority,
			Source:        database.SourceAiGenerated,
			AiConfidence:  sql.NullFloat64{Float64: analysis.Confidence, Valid: true},
			AiProvider:    sql.NullString{String: analysis.Provider, Valid: true},
			SourceImageId: uuid.NullUUID{UUID: image.Id, Valid: true},
			CreationTime:  now,
			UpdateTime:    now,
		}
		if suggestion.DueInDays > 0 {
			task.DueDate = sql.NullTime{Time: now.AddDate(0, 0, suggestion.DueInDays), Valid: true}
		}
		tasks = append(tasks, task)
	}

	rawSuggestions, err := json.Marshal(analysis.Suggestions)
	if err != nil {
		return 0, fmt.Errorf("error serializing suggestions for image %s: %w", image.Id, err)
	}

	err = proc.db.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		if len(tasks) > 0 {
			if err := txn.CreateInBatches(&tasks, 100).Error; err != nil {
				return err
			}
		}
		return txn.Model(&database.Image{}).Where("id = ?", image.Id).Updates(map[string]any{
			"status":          database.AnalysisCompleted,
			"provider":        analysis.Provider,
			"confidence":      sql.NullFloat64{Float64: analysis.Confidence, Valid: true},
			"task_count":      len(tasks),
			"suggestions":     datatypes.JSON(rawSuggestions),
			"completion_time": sql.NullTime{Time: now, Valid: true},
		}).Error
	})
	if err != nil {
		return 0, fmt.Errorf("error saving analysis results for image %s: %w", image.Id, err)
	}

	return len(tasks), nil
}

func (proc *Processor) publishNotify(ctx context.Context, image database.Image, status string, taskCount int) {
	payload := messaging.NotifyPayload{
		ImageId:   image.Id,
		UserId:    image.UserId,
		Status:    status,
		TaskCount: taskCount,
	}
	if err := proc.publisher.PublishNotifyTask(ctx, payload); err != nil {
		slog.Error("error publishing notify task", "image_id", image.Id, "error", err)
	}
}

func (proc *Processor) processNotifyTask(ctx context.Context, payload messaging.NotifyPayload) error {
	if err := proc.notifier.NotifyAnalysisDone(ctx, payload); err != nil {
		// Notification delivery is best effort.
		slog.Error("error delivering analysis notification", "image_id", payload.ImageId, "error", err)
	}
	return nil
}
