package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/maestro-agents/maestro/internal/runner"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "maestro.yaml", `
concurrency:
  max_concurrent_runs: 4
limits:
  max_turns: 12
  queue_timeout_ms: 5000
execution:
  save_to_session: false
retry:
  max_retries: 5
  initial_delay_ms: 250
  retryable_error_kinds: [rate_limit, overloaded]
streaming:
  buffer_size: 64
`)
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Concurrency.MaxConcurrentRuns == nil || *f.Concurrency.MaxConcurrentRuns != 4 {
		t.Errorf("maxConcurrentRuns = %v", f.Concurrency.MaxConcurrentRuns)
	}
	if f.Limits.MaxTurns == nil || *f.Limits.MaxTurns != 12 {
		t.Errorf("maxTurns = %v", f.Limits.MaxTurns)
	}
	if f.Execution.SaveToSession == nil || *f.Execution.SaveToSession {
		t.Errorf("saveToSession = %v", f.Execution.SaveToSession)
	}
	if len(f.Retry.RetryableErrorKinds) != 2 {
		t.Errorf("retryable kinds = %v", f.Retry.RetryableErrorKinds)
	}
	// Fields absent from the file stay nil.
	if f.Limits.MaxToolRounds != nil {
		t.Errorf("maxToolRounds = %v, want nil", f.Limits.MaxToolRounds)
	}
}

func TestLoadJSON5(t *testing.T) {
	path := writeFile(t, "maestro.json5", `{
  // trailing commas and comments are fine
  concurrency: {maxConcurrentRuns: 2,},
  limits: {queueTimeout: 1500},
  streaming: {enableBackpressure: false},
}`)
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Concurrency.MaxConcurrentRuns == nil || *f.Concurrency.MaxConcurrentRuns != 2 {
		t.Errorf("maxConcurrentRuns = %v", f.Concurrency.MaxConcurrentRuns)
	}
	if f.Limits.QueueTimeoutMs == nil || *f.Limits.QueueTimeoutMs != 1500 {
		t.Errorf("queueTimeoutMs = %v", f.Limits.QueueTimeoutMs)
	}
	if f.Streaming.EnableBackpressure == nil || *f.Streaming.EnableBackpressure {
		t.Errorf("enableBackpressure = %v", f.Streaming.EnableBackpressure)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("MAESTRO_MAX_RUNS", "7")
	path := writeFile(t, "maestro.yml", `
concurrency:
  max_concurrent_runs: ${MAESTRO_MAX_RUNS}
`)
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Concurrency.MaxConcurrentRuns == nil || *f.Concurrency.MaxConcurrentRuns != 7 {
		t.Errorf("maxConcurrentRuns = %v", f.Concurrency.MaxConcurrentRuns)
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := writeFile(t, "maestro.toml", "max_turns = 3\n")
	if _, err := Load(path); err == nil {
		t.Error("toml config accepted")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestOverridesConversion(t *testing.T) {
	path := writeFile(t, "maestro.yaml", `
limits:
  max_turns: 9
  queue_timeout_ms: 2000
retry:
  initial_delay_ms: 100
  max_delay_ms: 800
`)
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	o := f.Overrides()
	if o.MaxTurns == nil || *o.MaxTurns != 9 {
		t.Errorf("maxTurns = %v", o.MaxTurns)
	}
	if o.QueueTimeout == nil || *o.QueueTimeout != 2*time.Second {
		t.Errorf("queueTimeout = %v", o.QueueTimeout)
	}
	if o.InitialDelay == nil || *o.InitialDelay != 100*time.Millisecond {
		t.Errorf("initialDelay = %v", o.InitialDelay)
	}
	if o.MaxDelay == nil || *o.MaxDelay != 800*time.Millisecond {
		t.Errorf("maxDelay = %v", o.MaxDelay)
	}
	// Unset sections convert to nil pointers, keeping runner defaults.
	if o.MaxConcurrentRuns != nil || o.BufferSize != nil {
		t.Errorf("unset fields should be nil: %+v", o)
	}

	merged := o.Apply(runner.DefaultConfig())
	if merged.Limits.MaxTurns != 9 || merged.Limits.QueueTimeout != 2*time.Second {
		t.Errorf("merged limits = %+v", merged.Limits)
	}
	if merged.Concurrency.MaxConcurrentRuns != 10 {
		t.Errorf("merged concurrency = %+v", merged.Concurrency)
	}
}
