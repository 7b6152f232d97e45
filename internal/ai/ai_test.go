package ai_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"upkeep-backend/internal/ai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSuggestions(t *testing.T) {
	raw := `[
		{"title": "Clean gutters", "description": "Debris buildup", "priority": "medium", "category": "Cleaning", "due_in_days": 14},
		{"title": "  ", "description": "no title, dropped"},
		{"title": "Repaint trim", "priority": "URGENT", "due_in_days": -5}
	]`

	suggestions, err := ai.ParseSuggestions(raw)
	require.NoError(t, err)
	require.Len(t, suggestions, 2)

	assert.Equal(t, "Clean gutters", suggestions[0].Title)
	assert.Equal(t, "MEDIUM", suggestions[0].Priority)
	assert.Equal(t, "cleaning", suggestions[0].Category)
	assert.Equal(t, 14, suggestions[0].DueInDays)

	// Unknown priorities normalize to MEDIUM, negative due days clamp to zero.
	assert.Equal(t, "MEDIUM", suggestions[1].Priority)
	assert.Equal(t, 0, suggestions[1].DueInDays)
}

func TestParseSuggestionsMarkdownFence(t *testing.T) {
	raw := "```json\n[{\"title\": \"Fix leak\", \"priority\": \"HIGH\"}]\n```"

	suggestions, err := ai.ParseSuggestions(raw)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "Fix leak", suggestions[0].Title)
	assert.Equal(t, "HIGH", suggestions[0].Priority)
}

func TestParseSuggestionsSurroundingProse(t *testing.T) {
	raw := `Here are the tasks I found: [{"title": "Oil hinges"}] Let me know if you need more.`

	suggestions, err := ai.ParseSuggestions(raw)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "Oil hinges", suggestions[0].Title)
}

func TestParseSuggestionsEmptyAndInvalid(t *testing.T) {
	suggestions, err := ai.ParseSuggestions("[]")
	require.NoError(t, err)
	assert.Empty(t, suggestions)

	_, err = ai.ParseSuggestions("the photo shows a nice kitchen")
	assert.Error(t, err)

	_, err = ai.ParseSuggestions(`[{"title": 42}]`)
	assert.Error(t, err)
}

func TestScoreConfidence(t *testing.T) {
	assert.Zero(t, ai.ScoreConfidence(nil))

	// A single bare title gets the base score plus the count bonus only.
	bare := []ai.Suggestion{{Title: "t"}}
	assert.InDelta(t, 0.4, ai.ScoreConfidence(bare), 1e-9)

	full := []ai.Suggestion{
		{Title: "a", Description: "d", Priority: "HIGH", Category: "repair", DueInDays: 7},
		{Title: "b", Description: "d", Priority: "LOW", Category: "cleaning", DueInDays: 3},
		{Title: "c", Description: "d", Priority: "MEDIUM", Category: "seasonal", DueInDays: 30},
	}
	assert.InDelta(t, 1.0, ai.ScoreConfidence(full), 1e-9)

	// The count bonus saturates at three suggestions.
	many := append(full, ai.Suggestion{Title: "d"}, ai.Suggestion{Title: "e"})
	assert.Less(t, ai.ScoreConfidence(many), 1.0)
}

func TestBuildPrompt(t *testing.T) {
	system, user := ai.BuildPrompt(ai.PromptOptions{})
	assert.Contains(t, system, "JSON array")
	assert.Contains(t, user, "Analyze this photo")
	assert.NotContains(t, user, "taken in")

	_, user = ai.BuildPrompt(ai.PromptOptions{Locale: "de", LocationName: "Garage", Notes: "squeaky door"})
	assert.Contains(t, user, "Garage")
	assert.Contains(t, user, "squeaky door")
	assert.Contains(t, user, "German")

	// English locales add no language instruction.
	_, user = ai.BuildPrompt(ai.PromptOptions{Locale: "en-GB"})
	assert.False(t, strings.Contains(user, "Keep the JSON keys"))
}

type scriptedProvider struct {
	errs  []error
	calls int
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) AnalyzeImage(ctx context.Context, image ai.ImageInput, opts ai.PromptOptions) (*ai.Analysis, error) {
	idx := p.calls
	p.calls++
	if idx < len(p.errs) && p.errs[idx] != nil {
		return nil, p.errs[idx]
	}
	return &ai.Analysis{Provider: "scripted"}, nil
}

func retryableErr() error {
	return &ai.ProviderError{Provider: "scripted", Retryable: true, Err: errors.New("503 unavailable")}
}

func TestAnalyzeRetriesUntilSuccess(t *testing.T) {
	provider := &scriptedProvider{errs: []error{retryableErr(), retryableErr(), nil}}
	retry := ai.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}

	analysis, err := ai.Analyze(context.Background(), provider, ai.ImageInput{}, ai.PromptOptions{}, retry)
	require.NoError(t, err)
	assert.Equal(t, "scripted", analysis.Provider)
	assert.Equal(t, 3, provider.calls)
}

func TestAnalyzeGivesUpAfterMaxAttempts(t *testing.T) {
	provider := &scriptedProvider{errs: []error{retryableErr(), retryableErr(), retryableErr(), retryableErr()}}
	retry := ai.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}

	_, err := ai.Analyze(context.Background(), provider, ai.ImageInput{}, ai.PromptOptions{}, retry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, provider.calls)
}

func TestAnalyzeDoesNotRetryPermanentErrors(t *testing.T) {
	permanent := &ai.ProviderError{Provider: "scripted", Retryable: false, Err: errors.New("invalid api key")}
	provider := &scriptedProvider{errs: []error{permanent}}
	retry := ai.RetryConfig{MaxAttempts: 5, BaseDelay: time.Millisecond}

	_, err := ai.Analyze(context.Background(), provider, ai.ImageInput{}, ai.PromptOptions{}, retry)
	require.Error(t, err)
	assert.Equal(t, 1, provider.calls)
}

func TestAnalyzeStopsOnContextCancel(t *testing.T) {
	provider := &scriptedProvider{errs: []error{retryableErr(), retryableErr(), retryableErr()}}
	retry := ai.RetryConfig{MaxAttempts: 3, BaseDelay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := ai.Analyze(ctx, provider, ai.ImageInput{}, ai.PromptOptions{}, retry)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, provider.calls)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, ai.IsRetryable(retryableErr()))
	assert.False(t, ai.IsRetryable(&ai.ProviderError{Retryable: false, Err: errors.New("bad request")}))
	assert.False(t, ai.IsRetryable(errors.New("plain error")))
}
