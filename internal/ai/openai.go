package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const OpenAIProviderName = "openai"

type OpenAIProvider struct {
	client openai.Client
	model  string
}

func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}

	return &OpenAIProvider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string {
	return OpenAIProviderName
}

func (p *OpenAIProvider) AnalyzeImage(ctx context.Context, image ImageInput, opts PromptOptions) (*Analysis, error) {
	ctx, cancel := context.WithTimeout(ctx, 50*time.Second)
	defer cancel()

	system, user := BuildPrompt(opts)

	dataURL := fmt.Sprintf("data:%s;base64,%s", image.MIMEType, base64.StdEncoding.EncodeToString(image.Data))

	chatOpts := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(user),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}),
		},
		Model:       p.model,
		Temperature: openai.Float(0.2),
	}

	res, err := p.client.Chat.Completions.New(ctx, chatOpts)
	if err != nil {
		return nil, wrapProviderError(OpenAIProviderName, err)
	}
	if len(res.Choices) == 0 {
		return nil, wrapProviderError(OpenAIProviderName, fmt.Errorf("empty response from model"))
	}

	raw := res.Choices[0].Message.Content
	suggestions, err := ParseSuggestions(raw)
	if err != nil {
		return nil, &ProviderError{Provider: OpenAIProviderName, Retryable: false, Err: err}
	}

	return &Analysis{
		Suggestions: suggestions,
		Confidence:  ScoreConfidence(suggestions),
		Provider:    OpenAIProviderName,
		RawResponse: raw,
	}, nil
}
