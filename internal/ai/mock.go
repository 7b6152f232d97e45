package ai

import (
	"context"
)

const MockProviderName = "mock"

// MockProvider returns a fixed set of suggestions. It is the default when no
// provider API key is configured, and what the tests run against.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (p *MockProvider) Name() string {
	return MockProviderName
}

func (p *MockProvider) AnalyzeImage(ctx context.Context, image ImageInput, opts PromptOptions) (*Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ProviderError{Provider: MockProviderName, Retryable: true, Err: err}
	}

	suggestions := []Suggestion{
		{
			Title:       "Clean gutters",
			Description: "Leaves and debris are building up in the gutters and should be cleared before the next heavy rain.",
			Priority:    "MEDIUM",
			Category:    "cleaning",
			DueInDays:   14,
		},
		{
			Title:       "Inspect caulking around window frame",
			Description: "The caulk line shows gaps that can let moisture in.",
			Priority:    "LOW",
			Category:    "inspection",
			DueInDays:   30,
		},
	}

	return &Analysis{
		Suggestions: suggestions,
		Confidence:  ScoreConfidence(suggestions),
		Provider:    MockProviderName,
		RawResponse: "",
	}, nil
}
