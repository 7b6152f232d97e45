package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

const GeminiProviderName = "gemini"

type GeminiProvider struct {
	llm   *googleai.GoogleAI
	model string
}

func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if model == "" {
		model = "gemini-1.5-flash"
	}

	llm, err := googleai.New(ctx, googleai.WithAPIKey(apiKey), googleai.WithDefaultModel(model))
	if err != nil {
		return nil, fmt.Errorf("could not create Gemini client: %w", err)
	}

	return &GeminiProvider{llm: llm, model: model}, nil
}

func (p *GeminiProvider) Name() string {
	return GeminiProviderName
}

func (p *GeminiProvider) AnalyzeImage(ctx context.Context, image ImageInput, opts PromptOptions) (*Analysis, error) {
	ctx, cancel := context.WithTimeout(ctx, 50*time.Second)
	defer cancel()

	system, user := BuildPrompt(opts)

	// Gemini handles instructions best inline with the image, so the system
	// prompt is folded into the single human message.
	messages := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.BinaryPart(image.MIMEType, image.Data),
				llms.TextPart(system + "\n\n" + user),
			},
		},
	}

	resp, err := p.llm.GenerateContent(ctx, messages, llms.WithTemperature(0.2))
	if err != nil {
		return nil, wrapProviderError(GeminiProviderName, err)
	}
	if len(resp.Choices) == 0 {
		return nil, wrapProviderError(GeminiProviderName, fmt.Errorf("empty response from model"))
	}

	raw := resp.Choices[0].Content
	suggestions, err := ParseSuggestions(raw)
	if err != nil {
		// Malformed output is not transient; retrying the same image tends to
		// produce the same shape.
		return nil, &ProviderError{Provider: GeminiProviderName, Retryable: false, Err: err}
	}

	return &Analysis{
		Suggestions: suggestions,
		Confidence:  ScoreConfidence(suggestions),
		Provider:    GeminiProviderName,
		RawResponse: raw,
	}, nil
}
