package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Suggestion is one maintenance task proposed by the vision model.
type Suggestion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Category    string `json:"category"`
	DueInDays   int    `json:"due_in_days"`
}

type Analysis struct {
	Suggestions []Suggestion
	Confidence  float64
	Provider    string
	RawResponse string
}

type ImageInput struct {
	Data     []byte
	MIMEType string
}

type PromptOptions struct {
	Locale       string
	LocationName string
	Notes        string
}

type Provider interface {
	Name() string

	AnalyzeImage(ctx context.Context, image ImageInput, opts PromptOptions) (*Analysis, error)
}

// ProviderError wraps failures from the remote model. Retryable errors are
// rate limits and transient upstream failures, everything else fails the
// analysis immediately.
type ProviderError struct {
	Provider  string
	Retryable bool
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider error: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func IsRetryable(err error) bool {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Retryable
	}
	return false
}

// wrapProviderError classifies an upstream failure. The SDKs surface HTTP
// status and transport failures as opaque errors, so classification is by
// message inspection, which both the Gemini and OpenAI clients keep stable
// enough to match on.
func wrapProviderError(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Provider: provider, Retryable: true, Err: err}
	}

	msg := strings.ToLower(err.Error())
	retryableMarkers := []string{
		"429", "rate limit", "quota", "resource exhausted", "resource_exhausted",
		"500", "502", "503", "unavailable", "overloaded",
		"timeout", "deadline exceeded", "connection reset", "connection refused", "eof",
	}
	for _, marker := range retryableMarkers {
		if strings.Contains(msg, marker) {
			return &ProviderError{Provider: provider, Retryable: true, Err: err}
		}
	}

	return &ProviderError{Provider: provider, Retryable: false, Err: err}
}
