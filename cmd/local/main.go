package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"upkeep-backend/cmd"
	"upkeep-backend/internal/ai"
	"upkeep-backend/internal/analysis"
	"upkeep-backend/internal/api"
	"upkeep-backend/internal/auth"
	"upkeep-backend/internal/database"
	"upkeep-backend/internal/images"
	"upkeep-backend/internal/messaging"
	"upkeep-backend/internal/notify"
	"upkeep-backend/internal/storage"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type Config struct {
	Root       string `env:"ROOT" envDefault:"./upkeep"`
	Port       int    `env:"PORT" envDefault:"3001"`
	JWTSecret  string `env:"JWT_SECRET" envDefault:"local-dev-secret"`
	AIProvider string `env:"AI_PROVIDER" envDefault:""`
	AIAPIKey   string `env:"AI_API_KEY" envDefault:""`
	AIModel    string `env:"AI_MODEL" envDefault:""`
	SeedDemo   bool   `env:"SEED_DEMO_DATA" envDefault:"true"`
}

const imageBucket = "images"

func createDatabase(root string) *gorm.DB {
	path := filepath.Join(root, "db", "upkeep.db")
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.GetMigrator(db).Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	return db
}

// createQueue republishes analysis jobs that were queued when the process
// last stopped, since the in memory queue does not survive restarts.
func createQueue(db *gorm.DB) *messaging.InMemoryQueue {
	var pending []database.Image
	if err := db.Where("status IN ?", []string{database.AnalysisQueued, database.AnalysisRunning}).Find(&pending).Error; err != nil {
		log.Fatalf("Failed to fetch pending analyses from database: %v", err)
	}

	queue := messaging.NewInMemoryQueue()

	for _, image := range pending {
		if err := queue.PublishAnalyzeImageTask(context.Background(), messaging.AnalyzeImagePayload{
			ImageId: image.Id,
		}); err != nil {
			log.Fatalf("Failed to republish analysis task: %v", err)
		}
	}

	return queue
}

func createServer(db *gorm.DB, store storage.ObjectStore, queue messaging.Publisher, secret []byte, port int) *http.Server {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	authMiddleware := auth.Middleware(secret, db)

	apiHandler := api.NewBackendService(db, store, queue, authMiddleware, imageBucket, images.DefaultOptions())
	apiHandler.AddRoutes(r)

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
	}
}

func main() {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if err := os.MkdirAll(cfg.Root, os.ModePerm); err != nil {
		log.Fatalf("error creating root directory: %v", err)
	}

	f, err := os.OpenFile(filepath.Join(cfg.Root, "backend.log"), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	log.SetOutput(io.MultiWriter(f, os.Stderr))

	slog.Info("starting backend", "root", cfg.Root, "port", cfg.Port)

	db := createDatabase(cfg.Root)

	store, err := storage.NewLocalObjectStore(filepath.Join(cfg.Root, "storage"))
	if err != nil {
		log.Fatalf("Failed to create local object store: %v", err)
	}

	if err := store.CreateBucket(context.Background(), imageBucket); err != nil {
		log.Fatalf("Failed to create image bucket: %v", err)
	}

	queue := createQueue(db)

	provider, err := cmd.CreateAIProvider(context.Background(), cfg.AIProvider, cfg.AIAPIKey, cfg.AIModel)
	if err != nil {
		log.Fatalf("Failed to create AI provider: %v", err)
	}

	worker := analysis.NewProcessor(db, store, queue, queue, provider, notify.NoopNotifier{}, imageBucket, ai.DefaultRetryConfig())

	if cfg.SeedDemo {
		userId, err := cmd.SeedDemoData(db)
		if err != nil {
			log.Fatalf("Failed to seed demo data: %v", err)
		}

		token, err := auth.GenerateToken([]byte(cfg.JWTSecret), userId)
		if err != nil {
			log.Fatalf("Failed to generate demo token: %v", err)
		}
		slog.Info("demo user ready", "user_id", userId, "token", token)
	}

	server := createServer(db, store, queue, []byte(cfg.JWTSecret), cfg.Port)

	slog.Info("starting worker")
	go worker.Start()

	// Goroutine for graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		slog.Info("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}

		slog.Info("shutting down worker")
		worker.Stop()
	}()

	slog.Info("server started", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %d: %v\n", cfg.Port, err)
	}

	slog.Info("server stopped")
}
