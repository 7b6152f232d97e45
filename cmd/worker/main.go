package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"upkeep-backend/cmd"
	"upkeep-backend/internal/ai"
	"upkeep-backend/internal/analysis"
	"upkeep-backend/internal/database"
	"upkeep-backend/internal/messaging"
	"upkeep-backend/internal/storage"

	"github.com/caarlos0/env/v11"
)

type WorkerConfig struct {
	DatabaseURL       string `env:"DATABASE_URL,notEmpty,required"`
	RabbitMQURL       string `env:"RABBITMQ_URL,notEmpty,required"`
	S3EndpointURL     string `env:"S3_ENDPOINT_URL,notEmpty,required"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID,notEmpty,required"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY,notEmpty,required"`
	S3Region          string `env:"AWS_REGION,notEmpty,required"`
	ImageBucketName   string `env:"IMAGE_BUCKET_NAME" envDefault:"images"`
	AIProvider        string `env:"AI_PROVIDER" envDefault:""`
	AIAPIKey          string `env:"AI_API_KEY" envDefault:""`
	AIModel           string `env:"AI_MODEL" envDefault:""`
	NotifyWebhookURL  string `env:"NOTIFY_WEBHOOK_URL" envDefault:""`
}

func main() {
	log.Println("Starting Worker Process...")

	cmd.LoadEnvFile()

	var cfg WorkerConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	store, err := storage.NewS3ObjectStore(storage.S3ClientConfig{
		Endpoint:        cfg.S3EndpointURL,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
	})
	if err != nil {
		log.Fatalf("Worker: Failed to create object store: %v", err)
	}

	publisher, err := messaging.NewRabbitMQPublisher(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}

	reciever, err := messaging.NewRabbitMQReceiver(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("Failed to create RabbitMQ receiver: %v", err)
	}

	provider, err := cmd.CreateAIProvider(context.Background(), cfg.AIProvider, cfg.AIAPIKey, cfg.AIModel)
	if err != nil {
		log.Fatalf("Failed to create AI provider: %v", err)
	}

	notifier := cmd.CreateNotifier(cfg.NotifyWebhookURL)

	processor := analysis.NewProcessor(db, store, publisher, reciever, provider, notifier, cfg.ImageBucketName, ai.DefaultRetryConfig())

	go processor.Start()

	log.Println("Worker started. Waiting for tasks. Press Ctrl+C to exit.")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutdown signal received, stopping worker...")
	processor.Stop()

	log.Println("Worker process stopped.")
}
