package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"upkeep-backend/internal/auth"
	"upkeep-backend/internal/database"
	"upkeep-backend/internal/images"
	"upkeep-backend/internal/messaging"
	"upkeep-backend/pkg/api"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// maxMultipartOverhead covers the multipart boundaries, part headers, and
// the small text fields that accompany the image part.
const maxMultipartOverhead = 64 << 10

// extensions for the stored original object, keyed by decoded format.
var originalExtensions = map[string]string{
	"jpeg": "jpg",
	"png":  "png",
	"webp": "webp",
}

func originalKey(userId, imageId uuid.UUID, format string) string {
	ext, ok := originalExtensions[format]
	if !ok {
		ext = "bin"
	}
	return fmt.Sprintf("users/%s/images/%s/original.%s", userId, imageId, ext)
}

func processedKey(userId, imageId uuid.UUID) string {
	return fmt.Sprintf("users/%s/images/%s/processed.jpg", userId, imageId)
}

// AnalyzeImage accepts a multipart upload, stores the original and the
// preprocessed copy, and queues the analysis job. The response carries the
// image id so the client can poll for results.
func (s *BackendService) AnalyzeImage(r *http.Request) (any, error) {
	maxBytes := s.imageOpts.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = images.DefaultOptions().MaxUploadBytes
	}
	// The body cap leaves headroom for the multipart framing; the per-file
	// check below enforces the actual image limit.
	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes+maxMultipartOverhead)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, CodedErrorf(http.StatusRequestEntityTooLarge, "image exceeds the %d byte upload limit", maxBytes)
		}
		return nil, CodedErrorf(http.StatusBadRequest, "unable to parse multipart form: %v", err)
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "missing 'image' form field")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		slog.Error("error reading image upload", "error", err)
		return nil, CodedErrorf(http.StatusBadRequest, "unable to read image upload")
	}
	if int64(len(data)) > maxBytes {
		return nil, CodedErrorf(http.StatusRequestEntityTooLarge, "image exceeds the %d byte upload limit", maxBytes)
	}

	result, err := images.Preprocess(data, s.imageOpts)
	if err != nil {
		var verr *images.ValidationError
		if errors.As(err, &verr) {
			if verr.Unsupported {
				return nil, CodedErrorf(http.StatusUnsupportedMediaType, "%s", verr.Reason)
			}
			return nil, CodedErrorf(http.StatusBadRequest, "%s", verr.Reason)
		}
		slog.Error("error preprocessing image", "filename", header.Filename, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error preprocessing image")
	}

	userId := auth.UserId(r.Context())

	image := database.Image{
		Id:             uuid.New(),
		UserId:         userId,
		ContentType:    result.SourceContentType,
		OriginalBytes:  int64(len(data)),
		ProcessedBytes: int64(len(result.Data)),
		Width:          result.Width,
		Height:         result.Height,
		Notes:          strings.TrimSpace(r.FormValue("notes")),
		Status:         database.AnalysisQueued,
		CreationTime:   time.Now().UTC(),
	}

	if raw := r.FormValue("location_id"); raw != "" {
		locationId, err := uuid.Parse(raw)
		if err != nil {
			return nil, CodedErrorf(http.StatusBadRequest, "invalid location_id: %v", err)
		}
		if err := s.checkLocationOwnership(r, userId, locationId); err != nil {
			return nil, err
		}
		image.LocationId = uuid.NullUUID{UUID: locationId, Valid: true}
	}

	image.OriginalKey = originalKey(userId, image.Id, result.SourceFormat)
	image.ProcessedKey = processedKey(userId, image.Id)

	if err := s.store.PutObject(r.Context(), s.imageBucket, image.OriginalKey, bytes.NewReader(data)); err != nil {
		slog.Error("error storing original image", "image_id", image.Id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error storing image")
	}
	if err := s.store.PutObject(r.Context(), s.imageBucket, image.ProcessedKey, bytes.NewReader(result.Data)); err != nil {
		slog.Error("error storing processed image", "image_id", image.Id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error storing image")
	}

	if err := s.db.WithContext(r.Context()).Create(&image).Error; err != nil {
		slog.Error("error creating image record", "image_id", image.Id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error creating image record")
	}

	if err := s.publisher.PublishAnalyzeImageTask(r.Context(), messaging.AnalyzeImagePayload{ImageId: image.Id}); err != nil {
		slog.Error("error publishing analysis task", "image_id", image.Id, "error", err)
		if err := database.MarkImageFailed(r.Context(), s.db, image.Id, fmt.Errorf("could not queue analysis")); err != nil {
			slog.Error("error marking image failed", "image_id", image.Id, "error", err)
		}
		return nil, CodedErrorf(http.StatusInternalServerError, "error queueing image analysis")
	}

	slog.Info("queued image analysis", "image_id", image.Id, "user_id", userId, "bytes", len(result.Data))
	return api.AnalyzeImageResponse{ImageId: image.Id, Status: database.AnalysisQueued}, nil
}

func (s *BackendService) getOwnedImage(r *http.Request, imageId uuid.UUID) (database.Image, error) {
	var image database.Image
	err := s.db.WithContext(r.Context()).
		First(&image, "id = ? AND user_id = ?", imageId, auth.UserId(r.Context())).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return image, CodedErrorf(http.StatusNotFound, "image not found")
		}
		slog.Error("error getting image", "image_id", imageId, "error", err)
		return image, CodedErrorf(http.StatusInternalServerError, "error retrieving image record")
	}
	return image, nil
}

func (s *BackendService) GetImage(r *http.Request) (any, error) {
	imageId, err := URLParamUUID(r, "image_id")
	if err != nil {
		return nil, err
	}

	image, err := s.getOwnedImage(r, imageId)
	if err != nil {
		return nil, err
	}

	return toApiImage(image), nil
}

func (s *BackendService) GetImageTasks(r *http.Request) (any, error) {
	imageId, err := URLParamUUID(r, "image_id")
	if err != nil {
		return nil, err
	}

	if _, err := s.getOwnedImage(r, imageId); err != nil {
		return nil, err
	}

	var tasks []database.Task
	err = s.db.WithContext(r.Context()).
		Where("source_image_id = ? AND deleted = ?", imageId, false).
		Order("creation_time ASC").
		Find(&tasks).Error
	if err != nil {
		slog.Error("error listing image tasks", "image_id", imageId, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving image tasks")
	}

	now := time.Now().UTC()
	out := make([]api.Task, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, toApiTask(task, now))
	}
	return out, nil
}
