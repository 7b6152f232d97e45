package api

import (
	"net/http"

	"upkeep-backend/internal/images"
	"upkeep-backend/internal/messaging"
	"upkeep-backend/internal/storage"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

type BackendService struct {
	db        *gorm.DB
	store     storage.ObjectStore
	publisher messaging.Publisher
	auth      func(http.Handler) http.Handler

	imageBucket string
	imageOpts   images.Options
}

func NewBackendService(db *gorm.DB, store storage.ObjectStore, publisher messaging.Publisher, auth func(http.Handler) http.Handler, imageBucket string, imageOpts images.Options) *BackendService {
	return &BackendService{
		db:          db,
		store:       store,
		publisher:   publisher,
		auth:        auth,
		imageBucket: imageBucket,
		imageOpts:   imageOpts,
	}
}

func (s *BackendService) AddRoutes(r chi.Router) {
	r.Get("/health", RestHandler(func(r *http.Request) (any, error) { return nil, nil }))

	r.Group(func(r chi.Router) {
		r.Use(s.auth)

		r.Route("/api/tasks", func(r chi.Router) {
			r.Get("/", RestHandler(s.ListTasks))
			r.Post("/", RestHandler(s.CreateTask))
			r.Get("/snooze-options", RestHandler(s.GetSnoozeOptions))
			r.Get("/{task_id}", RestHandler(s.GetTask))
			r.Put("/{task_id}", RestHandler(s.UpdateTask))
			r.Delete("/{task_id}", RestHandler(s.DeleteTask))
			r.Post("/{task_id}/complete", RestHandler(s.CompleteTask))
			r.Post("/{task_id}/snooze", RestHandler(s.SnoozeTask))
		})

		r.Route("/locations", func(r chi.Router) {
			r.Get("/", RestHandler(s.ListLocations))
			r.Post("/", RestHandler(s.CreateLocation))
			r.Get("/{location_id}", RestHandler(s.GetLocation))
			r.Put("/{location_id}", RestHandler(s.UpdateLocation))
			r.Delete("/{location_id}", RestHandler(s.DeleteLocation))
		})

		r.Route("/api/user-settings", func(r chi.Router) {
			r.Get("/", RestHandler(s.GetUserSettings))
			r.Put("/", RestHandler(s.UpdateUserSettings))
		})

		r.Route("/api/images", func(r chi.Router) {
			r.Post("/analyze", RestHandler(s.AnalyzeImage))
			r.Get("/{image_id}", RestHandler(s.GetImage))
			r.Get("/{image_id}/tasks", RestHandler(s.GetImageTasks))
		})
	})
}
