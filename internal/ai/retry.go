package ai

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
	}
}

// Analyze calls the provider with bounded exponential backoff. Only
// retryable provider errors (rate limits, transient upstream failures) are
// retried; anything else, including context cancellation, ends the loop
// immediately.
func Analyze(ctx context.Context, provider Provider, image ImageInput, opts PromptOptions, retry RetryConfig) (*Analysis, error) {
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 1
	}

	var lastErr error
	delay := retry.BaseDelay

	for attempt := 1; attempt <= retry.MaxAttempts; attempt++ {
		analysis, err := provider.AnalyzeImage(ctx, image, opts)
		if err == nil {
			return analysis, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, fmt.Errorf("analysis cancelled: %w", ctx.Err())
		}
		if !IsRetryable(err) {
			return nil, err
		}
		if attempt == retry.MaxAttempts {
			break
		}

		slog.Warn("retryable provider error, backing off", "provider", provider.Name(), "attempt", attempt, "delay", delay, "error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("analysis cancelled: %w", ctx.Err())
		}

		delay *= 2
		if retry.MaxDelay > 0 && delay > retry.MaxDelay {
			delay = retry.MaxDelay
		}
	}

	return nil, fmt.Errorf("analysis failed after %d attempts: %w", retry.MaxAttempts, lastErr)
}
