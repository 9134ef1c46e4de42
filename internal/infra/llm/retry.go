package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/yanqian/ai-supportdesk/internal/domain/chat"
	"github.com/yanqian/ai-supportdesk/internal/infra/llm/chatgpt"
)

// RetryConfig configures retry behavior for LLM calls.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Timeout bounds a single attempt.
	Timeout time.Duration
}

// DefaultRetryConfig mirrors three attempts with a one second initial backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
		Timeout:     30 * time.Second,
	}
}

// RetryLLM wraps an LLM with per-attempt timeouts and exponential backoff.
type RetryLLM struct {
	inner  chat.LLM
	cfg    RetryConfig
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRetryLLM wraps inner. Zero config fields fall back to DefaultRetryConfig.
func NewRetryLLM(inner chat.LLM, cfg RetryConfig, logger *slog.Logger) *RetryLLM {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryLLM{inner: inner, cfg: cfg, logger: logger.With("component", "llm.retry"), sleep: sleepContext}
}

// Chat calls the inner LLM until it succeeds, fails permanently or attempts run out.
func (r *RetryLLM) Chat(ctx context.Context, messages []chat.LLMMessage) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := r.backoff(attempt)
			r.logger.Warn("retrying llm call", "attempt", attempt, "delay", delay, "error", lastErr)
			if err := r.sleep(ctx, delay); err != nil {
				return "", err
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
		reply, err := r.inner.Chat(attemptCtx, messages)
		cancel()
		if err == nil {
			return reply, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !isRetryable(err) {
			return "", fmt.Errorf("non-retryable llm error: %w", err)
		}
	}
	return "", fmt.Errorf("llm failed after %d attempts: %w", r.cfg.MaxAttempts, lastErr)
}

// backoff returns BaseDelay * 2^(attempt-2), capped at MaxDelay.
func (r *RetryLLM) backoff(attempt int) time.Duration {
	delay := r.cfg.BaseDelay
	for i := 2; i < attempt; i++ {
		delay *= 2
		if delay >= r.cfg.MaxDelay {
			return r.cfg.MaxDelay
		}
	}
	return delay
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var statusErr *chatgpt.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	// transport failures and unknown errors are worth another attempt
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ chat.LLM = (*RetryLLM)(nil)
