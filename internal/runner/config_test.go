package runner

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Concurrency.MaxConcurrentRuns != 10 {
		t.Errorf("maxConcurrentRuns = %d", cfg.Concurrency.MaxConcurrentRuns)
	}
	if cfg.Limits.QueueTimeout != 30*time.Second {
		t.Errorf("queueTimeout = %v", cfg.Limits.QueueTimeout)
	}
	if !cfg.Execution.SaveToSession || !cfg.Execution.StreamEvents {
		t.Errorf("execution defaults = %+v", cfg.Execution)
	}
	if cfg.Streaming.BufferSize != 100 || !cfg.Streaming.EnableBackpressure {
		t.Errorf("streaming defaults = %+v", cfg.Streaming)
	}
	if len(cfg.Retry.RetryableErrorKinds) == 0 {
		t.Error("no retryable kinds by default")
	}
}

func TestOverridesApply(t *testing.T) {
	base := DefaultConfig()

	maxRuns := 3
	timeout := 5 * time.Second
	stream := false
	o := Overrides{
		MaxConcurrentRuns:   &maxRuns,
		QueueTimeout:        &timeout,
		StreamEvents:        &stream,
		RetryableErrorKinds: []string{"custom_kind"},
	}
	merged := o.Apply(base)

	if merged.Concurrency.MaxConcurrentRuns != 3 {
		t.Errorf("maxConcurrentRuns = %d", merged.Concurrency.MaxConcurrentRuns)
	}
	if merged.Limits.QueueTimeout != timeout {
		t.Errorf("queueTimeout = %v", merged.Limits.QueueTimeout)
	}
	if merged.Execution.StreamEvents {
		t.Error("streamEvents override ignored")
	}
	if len(merged.Retry.RetryableErrorKinds) != 1 || merged.Retry.RetryableErrorKinds[0] != "custom_kind" {
		t.Errorf("retryable kinds = %v", merged.Retry.RetryableErrorKinds)
	}

	// Unset fields keep their values.
	if merged.Limits.MaxTurns != base.Limits.MaxTurns {
		t.Error("unset override changed maxTurns")
	}
	// The input config is not mutated.
	if base.Concurrency.MaxConcurrentRuns != 10 {
		t.Error("Apply mutated its input")
	}
}

func TestRetryConfigConversion(t *testing.T) {
	cfg := DefaultConfig()
	rc := cfg.retryConfig()
	if rc.MaxRetries != cfg.Retry.MaxRetries ||
		rc.InitialDelay != cfg.Retry.InitialDelay ||
		rc.Multiplier != cfg.Retry.BackoffMultiplier {
		t.Errorf("retryConfig = %+v", rc)
	}
}
