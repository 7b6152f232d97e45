package analysis_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"upkeep-backend/internal/ai"
	"upkeep-backend/internal/analysis"
	"upkeep-backend/internal/database"
	"upkeep-backend/internal/messaging"
	"upkeep-backend/internal/notify"
	"upkeep-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func createDB(t *testing.T, create ...any) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, database.GetMigrator(db).Migrate())

	for _, c := range create {
		require.NoError(t, db.Create(c).Error)
	}

	return db
}

type recordingNotifier struct {
	payloads []messaging.NotifyPayload
}

func (n *recordingNotifier) NotifyAnalysisDone(ctx context.Context, payload messaging.NotifyPayload) error {
	n.payloads = append(n.payloads, payload)
	return nil
}

type failingProvider struct {
	retryable bool
	calls     int
}

func (p *failingProvider) Name() string { return "failing" }

func (p *failingProvider) AnalyzeImage(ctx context.Context, image ai.ImageInput, opts ai.PromptOptions) (*ai.Analysis, error) {
	p.calls++
	return nil, &ai.ProviderError{Provider: "failing", Retryable: p.retryable, Err: errors.New("model exploded")}
}

type stallingProvider struct {
	calls int
}

func (p *stallingProvider) Name() string { return "stalling" }

func (p *stallingProvider) AnalyzeImage(ctx context.Context, image ai.ImageInput, opts ai.PromptOptions) (*ai.Analysis, error) {
	p.calls++
	<-ctx.Done()
	return nil, ctx.Err()
}

type capturingProvider struct {
	inner ai.Provider
	image ai.ImageInput
	opts  ai.PromptOptions
}

func (p *capturingProvider) Name() string { return p.inner.Name() }

func (p *capturingProvider) AnalyzeImage(ctx context.Context, image ai.ImageInput, opts ai.PromptOptions) (*ai.Analysis, error) {
	p.image = image
	p.opts = opts
	return p.inner.AnalyzeImage(ctx, image, opts)
}

func setupImage(t *testing.T, db *gorm.DB, store storage.ObjectStore, user *database.User, locationId uuid.NullUUID) database.Image {
	image := database.Image{
		Id:           uuid.New(),
		UserId:       user.Id,
		LocationId:   locationId,
		OriginalKey:  "users/" + user.Id.String() + "/images/original.png",
		ProcessedKey: "users/" + user.Id.String() + "/images/processed.jpg",
		ContentType:  "image/png",
		Notes:        "rust on the hinge",
		Status:       database.AnalysisQueued,
		CreationTime: time.Now().UTC(),
	}
	require.NoError(t, db.Create(&image).Error)
	require.NoError(t, store.PutObject(context.Background(), "images", image.ProcessedKey, bytes.NewReader([]byte("jpeg-bytes"))))
	return image
}

func receiveTask(t *testing.T, queue *messaging.InMemoryQueue) messaging.Task {
	select {
	case task := <-queue.Tasks():
		return task
	case <-time.After(time.Second):
		t.Fatal("no task on queue")
		return nil
	}
}

func TestProcessAnalyzeImageTask(t *testing.T) {
	user := &database.User{Id: uuid.New(), CreationTime: time.Now().UTC()}
	locationId := uuid.New()
	db := createDB(t, user,
		&database.UserSettings{UserId: user.Id, Locale: "de", Timezone: "Europe/Berlin", WeekStart: "monday"},
		&database.Location{Id: locationId, UserId: user.Id, Name: "Garage", CreationTime: time.Now().UTC()},
	)

	store, err := storage.NewLocalObjectStore(t.TempDir())
	require.NoError(t, err)

	image := setupImage(t, db, store, user, uuid.NullUUID{UUID: locationId, Valid: true})

	queue := messaging.NewInMemoryQueue()
	require.NoError(t, queue.PublishAnalyzeImageTask(context.Background(), messaging.AnalyzeImagePayload{ImageId: image.Id}))

	provider := &capturingProvider{inner: ai.NewMockProvider()}
	notifier := &recordingNotifier{}
	proc := analysis.NewProcessor(db, store, queue, queue, provider, notifier, "images", ai.DefaultRetryConfig())

	proc.ProcessTask(receiveTask(t, queue))

	var record database.Image
	require.NoError(t, db.First(&record, "id = ?", image.Id).Error)
	assert.Equal(t, database.AnalysisCompleted, record.Status)
	assert.Equal(t, ai.MockProviderName, record.Provider)
	assert.Equal(t, 2, record.TaskCount)
	assert.True(t, record.Confidence.Valid)
	assert.Greater(t, record.Confidence.Float64, 0.0)
	assert.True(t, record.CompletionTime.Valid)

	var snapshot []ai.Suggestion
	require.NoError(t, json.Unmarshal(record.Suggestions, &snapshot))
	assert.Len(t, snapshot, 2)

	var tasks []database.Task
	require.NoError(t, db.Where("source_image_id = ?", image.Id).Find(&tasks).Error)
	require.Len(t, tasks, 2)
	for _, task := range tasks {
		assert.Equal(t, database.SourceAiGenerated, task.Source)
		assert.Equal(t, database.TaskPending, task.Status)
		assert.Equal(t, user.Id, task.UserId)
		assert.Equal(t, locationId, task.LocationId.UUID)
		assert.True(t, task.AiConfidence.Valid)
		assert.Equal(t, ai.MockProviderName, task.AiProvider.String)
		assert.True(t, task.DueDate.Valid)
	}

	// The prompt context is assembled from the image row and user settings.
	assert.Equal(t, []byte("jpeg-bytes"), provider.image.Data)
	assert.Equal(t, "image/jpeg", provider.image.MIMEType)
	assert.Equal(t, "de", provider.opts.Locale)
	assert.Equal(t, "Garage", provider.opts.LocationName)
	assert.Equal(t, "rust on the hinge", provider.opts.Notes)

	// Completion is announced on the notify queue.
	notifyTask := receiveTask(t, queue)
	assert.Equal(t, messaging.NotifyQueue, notifyTask.Type())
	proc.ProcessTask(notifyTask)

	require.Len(t, notifier.payloads, 1)
	assert.Equal(t, image.Id, notifier.payloads[0].ImageId)
	assert.Equal(t, database.AnalysisCompleted, notifier.payloads[0].Status)
	assert.Equal(t, 2, notifier.payloads[0].TaskCount)
}

func TestProcessAnalyzeImageTaskFailure(t *testing.T) {
	user := &database.User{Id: uuid.New(), CreationTime: time.Now().UTC()}
	db := createDB(t, user)

	store, err := storage.NewLocalObjectStore(t.TempDir())
	require.NoError(t, err)

	image := setupImage(t, db, store, user, uuid.NullUUID{})

	queue := messaging.NewInMemoryQueue()
	require.NoError(t, queue.PublishAnalyzeImageTask(context.Background(), messaging.AnalyzeImagePayload{ImageId: image.Id}))

	provider := &failingProvider{retryable: false}
	proc := analysis.NewProcessor(db, store, queue, queue, provider, notify.NoopNotifier{}, "images", ai.DefaultRetryConfig())

	proc.ProcessTask(receiveTask(t, queue))

	assert.Equal(t, 1, provider.calls, "non retryable errors should not be retried")

	var record database.Image
	require.NoError(t, db.First(&record, "id = ?", image.Id).Error)
	assert.Equal(t, database.AnalysisFailed, record.Status)
	assert.NotEmpty(t, record.Error)
	assert.Equal(t, 0, record.TaskCount)

	var count int64
	require.NoError(t, db.Model(&database.Task{}).Where("source_image_id = ?", image.Id).Count(&count).Error)
	assert.Zero(t, count)

	// The failure is announced too.
	notifyTask := receiveTask(t, queue)
	assert.Equal(t, messaging.NotifyQueue, notifyTask.Type())
	var payload messaging.NotifyPayload
	require.NoError(t, json.Unmarshal(notifyTask.Payload(), &payload))
	assert.Equal(t, database.AnalysisFailed, payload.Status)
}

func TestProcessRetriesTransientErrors(t *testing.T) {
	user := &database.User{Id: uuid.New(), CreationTime: time.Now().UTC()}
	db := createDB(t, user)

	store, err := storage.NewLocalObjectStore(t.TempDir())
	require.NoError(t, err)

	image := setupImage(t, db, store, user, uuid.NullUUID{})

	queue := messaging.NewInMemoryQueue()
	require.NoError(t, queue.PublishAnalyzeImageTask(context.Background(), messaging.AnalyzeImagePayload{ImageId: image.Id}))

	provider := &failingProvider{retryable: true}
	retry := ai.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}
	proc := analysis.NewProcessor(db, store, queue, queue, provider, notify.NoopNotifier{}, "images", retry)

	proc.ProcessTask(receiveTask(t, queue))

	assert.Equal(t, 3, provider.calls)

	var record database.Image
	require.NoError(t, db.First(&record, "id = ?", image.Id).Error)
	assert.Equal(t, database.AnalysisFailed, record.Status)
}

func TestHungAnalysisMarksImageFailed(t *testing.T) {
	restore := analysis.SetAnalysisTimeout(10 * time.Millisecond)
	defer restore()

	user := &database.User{Id: uuid.New(), CreationTime: time.Now().UTC()}
	db := createDB(t, user)

	store, err := storage.NewLocalObjectStore(t.TempDir())
	require.NoError(t, err)

	image := setupImage(t, db, store, user, uuid.NullUUID{})

	queue := messaging.NewInMemoryQueue()
	require.NoError(t, queue.PublishAnalyzeImageTask(context.Background(), messaging.AnalyzeImagePayload{ImageId: image.Id}))

	provider := &stallingProvider{}
	proc := analysis.NewProcessor(db, store, queue, queue, provider, notify.NoopNotifier{}, "images", ai.DefaultRetryConfig())

	proc.ProcessTask(receiveTask(t, queue))

	assert.Equal(t, 1, provider.calls)

	// The deadline expiring must not keep the failure from being recorded.
	var record database.Image
	require.NoError(t, db.First(&record, "id = ?", image.Id).Error)
	assert.Equal(t, database.AnalysisFailed, record.Status)
	assert.NotEmpty(t, record.Error)

	notifyTask := receiveTask(t, queue)
	assert.Equal(t, messaging.NotifyQueue, notifyTask.Type())
	var payload messaging.NotifyPayload
	require.NoError(t, json.Unmarshal(notifyTask.Payload(), &payload))
	assert.Equal(t, database.AnalysisFailed, payload.Status)
}

func TestTerminalImagesAreSkipped(t *testing.T) {
	user := &database.User{Id: uuid.New(), CreationTime: time.Now().UTC()}
	db := createDB(t, user)

	store, err := storage.NewLocalObjectStore(t.TempDir())
	require.NoError(t, err)

	image := setupImage(t, db, store, user, uuid.NullUUID{})
	require.NoError(t, db.Model(&database.Image{}).Where("id = ?", image.Id).Update("status", database.AnalysisCompleted).Error)

	queue := messaging.NewInMemoryQueue()
	require.NoError(t, queue.PublishAnalyzeImageTask(context.Background(), messaging.AnalyzeImagePayload{ImageId: image.Id}))

	provider := &failingProvider{retryable: false}
	proc := analysis.NewProcessor(db, store, queue, queue, provider, notify.NoopNotifier{}, "images", ai.DefaultRetryConfig())

	proc.ProcessTask(receiveTask(t, queue))

	assert.Zero(t, provider.calls, "redelivered terminal images should not be re-analyzed")
}
