// Package config loads orchestrator configuration files. YAML and JSON5
// are supported, selected by file extension, with ${VAR} environment
// expansion applied before parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
	"gopkg.in/yaml.v3"

	"github.com/maestro-agents/maestro/internal/runner"
)

// File is the on-disk configuration shape. All fields are optional;
// durations are milliseconds.
type File struct {
	Concurrency struct {
		MaxConcurrentRuns      *int `yaml:"max_concurrent_runs" json:"maxConcurrentRuns"`
		MaxConcurrentToolCalls *int `yaml:"max_concurrent_tool_calls" json:"maxConcurrentToolCalls"`
	} `yaml:"concurrency" json:"concurrency"`

	Limits struct {
		MaxTurns             *int   `yaml:"max_turns" json:"maxTurns"`
		MaxToolRounds        *int   `yaml:"max_tool_rounds" json:"maxToolRounds"`
		MaxToolCallsPerRound *int   `yaml:"max_tool_calls_per_round" json:"maxToolCallsPerRound"`
		QueueTimeoutMs       *int64 `yaml:"queue_timeout_ms" json:"queueTimeout"`
	} `yaml:"limits" json:"limits"`

	Execution struct {
		StreamEvents  *bool `yaml:"stream_events" json:"streamEvents"`
		SaveToSession *bool `yaml:"save_to_session" json:"saveToSession"`
	} `yaml:"execution" json:"execution"`

	Retry struct {
		MaxRetries          *int     `yaml:"max_retries" json:"maxRetries"`
		InitialDelayMs      *int64   `yaml:"initial_delay_ms" json:"initialDelay"`
		MaxDelayMs          *int64   `yaml:"max_delay_ms" json:"maxDelay"`
		BackoffMultiplier   *float64 `yaml:"backoff_multiplier" json:"backoffMultiplier"`
		RetryableErrorKinds []string `yaml:"retryable_error_kinds" json:"retryableErrorKinds"`
	} `yaml:"retry" json:"retry"`

	Streaming struct {
		BufferSize         *int  `yaml:"buffer_size" json:"bufferSize"`
		EnableBackpressure *bool `yaml:"enable_backpressure" json:"enableBackpressure"`
	} `yaml:"streaming" json:"streaming"`
}

// Load reads and parses a configuration file. ${VAR} references are
// expanded from the environment before parsing; unset variables expand to
// the empty string.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	expanded := os.Expand(string(raw), func(key string) string {
		return os.Getenv(key)
	})

	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal([]byte(expanded), &f); err != nil {
			return nil, fmt.Errorf("parse yaml config %s: %w", path, err)
		}
	case ".json", ".json5":
		if err := json5.Unmarshal([]byte(expanded), &f); err != nil {
			return nil, fmt.Errorf("parse json config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config extension %q", filepath.Ext(path))
	}
	return &f, nil
}

// Overrides converts the file into runner overrides; unset fields keep
// the runner defaults.
func (f *File) Overrides() runner.Overrides {
	o := runner.Overrides{
		MaxConcurrentRuns:      f.Concurrency.MaxConcurrentRuns,
		MaxConcurrentToolCalls: f.Concurrency.MaxConcurrentToolCalls,
		MaxTurns:               f.Limits.MaxTurns,
		MaxToolRounds:          f.Limits.MaxToolRounds,
		MaxToolCallsPerRound:   f.Limits.MaxToolCallsPerRound,
		StreamEvents:           f.Execution.StreamEvents,
		SaveToSession:          f.Execution.SaveToSession,
		MaxRetries:             f.Retry.MaxRetries,
		BackoffMultiplier:      f.Retry.BackoffMultiplier,
		RetryableErrorKinds:    f.Retry.RetryableErrorKinds,
		BufferSize:             f.Streaming.BufferSize,
		EnableBackpressure:     f.Streaming.EnableBackpressure,
	}
	o.QueueTimeout = msDuration(f.Limits.QueueTimeoutMs)
	o.InitialDelay = msDuration(f.Retry.InitialDelayMs)
	o.MaxDelay = msDuration(f.Retry.MaxDelayMs)
	return o
}

func msDuration(ms *int64) *time.Duration {
	if ms == nil {
		return nil
	}
	d := time.Duration(*ms) * time.Millisecond
	return &d
}
