package runner

import (
	"time"

	"github.com/maestro-agents/maestro/internal/retry"
)

// ConcurrencyConfig caps global and per-run parallelism.
type ConcurrencyConfig struct {
	MaxConcurrentRuns      int `yaml:"max_concurrent_runs" json:"maxConcurrentRuns"`
	MaxConcurrentToolCalls int `yaml:"max_concurrent_tool_calls" json:"maxConcurrentToolCalls"`
}

// LimitsConfig bounds a single run.
type LimitsConfig struct {
	MaxTurns             int           `yaml:"max_turns" json:"maxTurns"`
	MaxToolRounds        int           `yaml:"max_tool_rounds" json:"maxToolRounds"`
	MaxToolCallsPerRound int           `yaml:"max_tool_calls_per_round" json:"maxToolCallsPerRound"`
	QueueTimeout         time.Duration `yaml:"queue_timeout" json:"queueTimeout"`
}

// ExecutionConfig toggles run-side behavior.
type ExecutionConfig struct {
	StreamEvents  bool `yaml:"stream_events" json:"streamEvents"`
	SaveToSession bool `yaml:"save_to_session" json:"saveToSession"`
}

// RetryConfig mirrors the retry engine's knobs.
type RetryConfig struct {
	MaxRetries          int           `yaml:"max_retries" json:"maxRetries"`
	InitialDelay        time.Duration `yaml:"initial_delay" json:"initialDelay"`
	MaxDelay            time.Duration `yaml:"max_delay" json:"maxDelay"`
	BackoffMultiplier   float64       `yaml:"backoff_multiplier" json:"backoffMultiplier"`
	RetryableErrorKinds []string      `yaml:"retryable_error_kinds" json:"retryableErrorKinds"`
}

// StreamingConfig tunes the per-run event stream.
type StreamingConfig struct {
	BufferSize         int  `yaml:"buffer_size" json:"bufferSize"`
	EnableBackpressure bool `yaml:"enable_backpressure" json:"enableBackpressure"`
}

// Config is the orchestrator configuration.
type Config struct {
	Concurrency ConcurrencyConfig `yaml:"concurrency" json:"concurrency"`
	Limits      LimitsConfig      `yaml:"limits" json:"limits"`
	Execution   ExecutionConfig   `yaml:"execution" json:"execution"`
	Retry       RetryConfig       `yaml:"retry" json:"retry"`
	Streaming   StreamingConfig   `yaml:"streaming" json:"streaming"`
}

// DefaultConfig returns the standard orchestrator configuration.
func DefaultConfig() Config {
	rc := retry.DefaultConfig()
	return Config{
		Concurrency: ConcurrencyConfig{
			MaxConcurrentRuns:      10,
			MaxConcurrentToolCalls: 1,
		},
		Limits: LimitsConfig{
			MaxTurns:             25,
			MaxToolRounds:        25,
			MaxToolCallsPerRound: 10,
			QueueTimeout:         30 * time.Second,
		},
		Execution: ExecutionConfig{
			StreamEvents:  true,
			SaveToSession: true,
		},
		Retry: RetryConfig{
			MaxRetries:          rc.MaxRetries,
			InitialDelay:        rc.InitialDelay,
			MaxDelay:            rc.MaxDelay,
			BackoffMultiplier:   rc.Multiplier,
			RetryableErrorKinds: rc.RetryableKinds,
		},
		Streaming: StreamingConfig{
			BufferSize:         100,
			EnableBackpressure: true,
		},
	}
}

// retryConfig converts to the retry engine's config type.
func (c Config) retryConfig() retry.Config {
	return retry.Config{
		MaxRetries:     c.Retry.MaxRetries,
		InitialDelay:   c.Retry.InitialDelay,
		MaxDelay:       c.Retry.MaxDelay,
		Multiplier:     c.Retry.BackoffMultiplier,
		RetryableKinds: c.Retry.RetryableErrorKinds,
	}
}

// Overrides is a partial configuration; nil fields keep the current value.
type Overrides struct {
	MaxConcurrentRuns      *int
	MaxConcurrentToolCalls *int

	MaxTurns             *int
	MaxToolRounds        *int
	MaxToolCallsPerRound *int
	QueueTimeout         *time.Duration

	StreamEvents  *bool
	SaveToSession *bool

	MaxRetries          *int
	InitialDelay        *time.Duration
	MaxDelay            *time.Duration
	BackoffMultiplier   *float64
	RetryableErrorKinds []string

	BufferSize         *int
	EnableBackpressure *bool
}

// Apply merges the overrides into a copy of c and returns it.
func (o Overrides) Apply(c Config) Config {
	if o.MaxConcurrentRuns != nil {
		c.Concurrency.MaxConcurrentRuns = *o.MaxConcurrentRuns
	}
	if o.MaxConcurrentToolCalls != nil {
		c.Concurrency.MaxConcurrentToolCalls = *o.MaxConcurrentToolCalls
	}
	if o.MaxTurns != nil {
		c.Limits.MaxTurns = *o.MaxTurns
	}
	if o.MaxToolRounds != nil {
		c.Limits.MaxToolRounds = *o.MaxToolRounds
	}
	if o.MaxToolCallsPerRound != nil {
		c.Limits.MaxToolCallsPerRound = *o.MaxToolCallsPerRound
	}
	if o.QueueTimeout != nil {
		c.Limits.QueueTimeout = *o.QueueTimeout
	}
	if o.StreamEvents != nil {
		c.Execution.StreamEvents = *o.StreamEvents
	}
	if o.SaveToSession != nil {
		c.Execution.SaveToSession = *o.SaveToSession
	}
	if o.MaxRetries != nil {
		c.Retry.MaxRetries = *o.MaxRetries
	}
	if o.InitialDelay != nil {
		c.Retry.InitialDelay = *o.InitialDelay
	}
	if o.MaxDelay != nil {
		c.Retry.MaxDelay = *o.MaxDelay
	}
	if o.BackoffMultiplier != nil {
		c.Retry.BackoffMultiplier = *o.BackoffMultiplier
	}
	if o.RetryableErrorKinds != nil {
		c.Retry.RetryableErrorKinds = append([]string(nil), o.RetryableErrorKinds...)
	}
	if o.BufferSize != nil {
		c.Streaming.BufferSize = *o.BufferSize
	}
	if o.EnableBackpressure != nil {
		c.Streaming.EnableBackpressure = *o.EnableBackpressure
	}
	return c
}
