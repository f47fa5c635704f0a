// Package retry provides per-run retry tracking with configurable
// exponential backoff and error-kind classification.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/maestro-agents/maestro/internal/cancels"
)

// ErrMaxRetries is returned once a run's retry budget is exhausted.
var ErrMaxRetries = errors.New("retry: max retries exceeded")

// Kinder is implemented by errors that carry a machine-readable kind tag.
type Kinder interface {
	ErrorKind() string
}

// Config configures retry behavior.
type Config struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps the exponential backoff.
	MaxDelay time.Duration
	// Multiplier is the exponential backoff factor.
	Multiplier float64
	// RetryableKinds are substring patterns matched against error kinds.
	RetryableKinds []string
}

// DefaultConfig returns a default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		InitialDelay:   time.Second,
		MaxDelay:       30 * time.Second,
		Multiplier:     2.0,
		RetryableKinds: []string{"rate_limit", "overloaded", "timeout", "unavailable"},
	}
}

func sanitize(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = defaults.InitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaults.MaxDelay
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = defaults.Multiplier
	}
	return cfg
}

// Engine tracks attempt counts per run and executes operations with
// cancel-respecting backoff.
type Engine struct {
	config Config
	logger *slog.Logger

	mu       sync.Mutex
	attempts map[string]int
}

// NewEngine creates a retry engine.
func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		config:   sanitize(cfg),
		logger:   logger.With("component", "retry"),
		attempts: make(map[string]int),
	}
}

// IsRetryable reports whether err matches the configured retryable kinds.
// Errors wrapped with Permanent are never retryable.
func (e *Engine) IsRetryable(err error) bool {
	if err == nil || IsPermanent(err) {
		return false
	}
	kind := errorKind(err)
	for _, pattern := range e.config.RetryableKinds {
		if pattern != "" && strings.Contains(kind, pattern) {
			return true
		}
	}
	return false
}

// Attempts returns the recorded attempt count for runID.
func (e *Engine) Attempts(runID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attempts[runID]
}

// Delay returns the backoff before the next retry for runID:
// min(maxDelay, initialDelay * multiplier^attempts).
func (e *Engine) Delay(runID string) time.Duration {
	attempts := e.Attempts(runID)
	d := float64(e.config.InitialDelay) * math.Pow(e.config.Multiplier, float64(attempts))
	if d > float64(e.config.MaxDelay) {
		return e.config.MaxDelay
	}
	return time.Duration(d)
}

// Execute runs op, retrying retryable failures with backoff until the
// budget is exhausted. The cancel handle is observed before each attempt
// and during backoff sleeps.
func (e *Engine) Execute(ctx context.Context, runID string, cancel *cancels.Handle, op func(ctx context.Context) error) error {
	for {
		if cancel != nil {
			if err := cancel.Err(); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, cancels.ErrCancelled) || errors.Is(err, context.Canceled) {
			return err
		}
		if !e.IsRetryable(err) {
			return err
		}

		e.mu.Lock()
		attempts := e.attempts[runID]
		if attempts >= e.config.MaxRetries {
			e.mu.Unlock()
			return fmt.Errorf("%w after %d attempts: %v", ErrMaxRetries, attempts+1, err)
		}
		e.attempts[runID] = attempts + 1
		e.mu.Unlock()

		delay := e.Delay(runID)
		e.logger.Debug("retrying after transient error",
			"run_id", runID,
			"attempt", attempts+1,
			"delay", delay,
			"error", err)

		if serr := e.sleep(ctx, cancel, delay); serr != nil {
			return serr
		}
	}
}

// sleep waits for d, returning early on context or cancel-signal firing.
func (e *Engine) sleep(ctx context.Context, cancel *cancels.Handle, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	var done <-chan struct{}
	if cancel != nil {
		done = cancel.Done()
	}

	select {
	case <-timer.C:
		return nil
	case <-done:
		return cancel.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reset clears the attempt count for runID. Called on run completion.
func (e *Engine) Reset(runID string) {
	e.mu.Lock()
	delete(e.attempts, runID)
	e.mu.Unlock()
}

func errorKind(err error) string {
	var k Kinder
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	return err.Error()
}

// PermanentError marks an error as non-retryable regardless of its kind.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps an error to indicate it must not be retried.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent checks whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var permanent *PermanentError
	return errors.As(err, &permanent)
}
