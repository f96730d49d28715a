package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	maxRetries     = 3
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     maxRetries,
		InitialBackoff: initialBackoff,
		MaxBackoff:     maxBackoff,
	}
}

// shouldRetry determines if a status code is retryable
func shouldRetry(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// retryable reports whether err is worth another attempt. Provider errors are
// retried by status code; transport errors always, cancellation never.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return shouldRetry(apiErr.HTTPStatusCode)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return shouldRetry(reqErr.HTTPStatusCode)
	}

	return true
}

// calculateBackoff calculates exponential backoff duration
func calculateBackoff(attempt int, config RetryConfig) time.Duration {
	// initialBackoff * 2^attempt
	backoff := float64(config.InitialBackoff) * math.Pow(2, float64(attempt))

	if backoff > float64(config.MaxBackoff) {
		backoff = float64(config.MaxBackoff)
	}

	return time.Duration(backoff)
}

// retryWithBackoff runs fn until it succeeds, fails with a non-retryable
// error or the retry budget is spent.
func (p *OpenAIProvider) retryWithBackoff(ctx context.Context, fn func() error) error {
	config := p.config.Retry
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(err) {
			return err
		}

		// Don't wait after last attempt
		if attempt == config.MaxRetries {
			break
		}

		backoff := calculateBackoff(attempt, config)
		p.logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_retries", config.MaxRetries).
			Dur("backoff", backoff).
			Msg("Completion request failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("request failed after %d retries: %w", config.MaxRetries, lastErr)
}
