package cmd

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"time"

	"upkeep-backend/internal/ai"
	"upkeep-backend/internal/database"
	"upkeep-backend/internal/notify"

	"github.com/google/uuid"
	"github.com/jaswdr/faker/v2"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func LoadEnvFile() {
	var configPath string

	flag.StringVar(&configPath, "env", "", "path to load env from")
	flag.Parse()

	if configPath == "" {
		log.Printf("no env file specified, using os.Environ only")
		return
	}

	log.Printf("loading env from file %s", configPath)
	err := godotenv.Load(configPath)
	if err != nil {
		log.Fatalf("error loading .env file '%s': %v", configPath, err)
	}
}

// CreateAIProvider builds the vision provider named in the config. With no
// provider configured the mock provider is used, which keeps local setups
// working without any API keys.
func CreateAIProvider(ctx context.Context, provider, apiKey, model string) (ai.Provider, error) {
	switch provider {
	case ai.GeminiProviderName:
		if apiKey == "" {
			return nil, fmt.Errorf("gemini provider requires an api key")
		}
		return ai.NewGeminiProvider(ctx, apiKey, model)
	case ai.OpenAIProviderName:
		if apiKey == "" {
			return nil, fmt.Errorf("openai provider requires an api key")
		}
		return ai.NewOpenAIProvider(apiKey, model), nil
	case "", ai.MockProviderName:
		slog.Warn("no vision provider configured, using mock provider")
		return ai.NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", provider)
	}
}

func CreateNotifier(webhookURL string) notify.Notifier {
	if webhookURL == "" {
		return notify.NoopNotifier{}
	}
	return notify.NewWebhookNotifier(webhookURL)
}

// SeedDemoData fills an empty local database with a demo user, a few
// locations, and some plausible tasks so the app has something to show on
// first launch. Returns the demo user id.
func SeedDemoData(db *gorm.DB) (uuid.UUID, error) {
	var count int64
	if err := db.Model(&database.User{}).Count(&count).Error; err != nil {
		return uuid.Nil, fmt.Errorf("error checking for existing users: %w", err)
	}
	if count > 0 {
		var user database.User
		if err := db.Order("creation_time ASC").First(&user).Error; err != nil {
			return uuid.Nil, fmt.Errorf("error loading existing user: %w", err)
		}
		return user.Id, nil
	}

	fake := faker.New()
	now := time.Now().UTC()

	user := database.User{
		Id:           uuid.New(),
		Email:        fake.Internet().Email(),
		Name:         fake.Person().Name(),
		CreationTime: now,
	}
	if err := db.Create(&user).Error; err != nil {
		return uuid.Nil, fmt.Errorf("error creating demo user: %w", err)
	}

	locationNames := []struct {
		name string
		kind string
	}{
		{"Kitchen", "room"},
		{"Garage", "room"},
		{"Backyard", "outdoor"},
	}

	var locations []database.Location
	for _, l := range locationNames {
		locations = append(locations, database.Location{
			Id:           uuid.New(),
			UserId:       user.Id,
			Name:         l.name,
			Kind:         l.kind,
			CreationTime: now,
		})
	}
	if err := db.Create(&locations).Error; err != nil {
		return uuid.Nil, fmt.Errorf("error creating demo locations: %w", err)
	}

	taskTitles := []string{
		"Replace HVAC filter",
		"Test smoke detectors",
		"Clean range hood filter",
		"Lubricate garage door tracks",
		"Check water heater for leaks",
	}
	priorities := []string{database.PriorityLow, database.PriorityMedium, database.PriorityHigh}

	var tasks []database.Task
	for i, title := range taskTitles {
		task := database.Task{
			Id:           uuid.New(),
			UserId:       user.Id,
			LocationId:   uuid.NullUUID{UUID: locations[i%len(locations)].Id, Valid: true},
			Title:        title,
			Description:  fake.Lorem().Sentence(8),
			Status:       database.TaskPending,
			Priority:     priorities[i%len(priorities)],
			Source:       database.SourceManual,
			DueDate:      sql.NullTime{Time: now.AddDate(0, 0, 7+7*i), Valid: true},
			CreationTime: now,
			UpdateTime:   now,
		}
		tasks = append(tasks, task)
	}
	if err := db.Create(&tasks).Error; err != nil {
		return uuid.Nil, fmt.Errorf("error creating demo tasks: %w", err)
	}

	slog.Info("seeded demo data", "user_id", user.Id, "locations", len(locations), "tasks", len(tasks))
	return user.Id, nil
}
