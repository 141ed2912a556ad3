package logger

import (
	"os"
	"sync/atomic"
	"testing"
)

func TestWithComponent(t *testing.T) {
	log := Logger()
	entry := log.WithComponent("test")
	if v, ok := entry.Entry.Data["component"]; !ok || v != "test" {
		t.Fatalf("component field missing: %v", entry.Entry.Data)
	}
}

func TestConfigureInvalidLevel(t *testing.T) {
	// Ensure environment variables do not override the provided level
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("invalid", "json", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestWithEnv(t *testing.T) {
	os.Setenv("FOO", "bar")
	log := Logger()
	entry := log.WithEnv("FOO")
	if v, ok := entry.Entry.Data["FOO"]; !ok || v != "bar" {
		t.Fatalf("env field not set: %v", entry.Entry.Data)
	}
}

func TestFetchAttemptCounters(t *testing.T) {
	attemptsBefore := atomic.LoadInt64(&fetchAttempts)
	successesBefore := atomic.LoadInt64(&fetchSuccesses)

	RecordFetchAttempt(false)
	RecordFetchAttempt(true)

	if got := atomic.LoadInt64(&fetchAttempts) - attemptsBefore; got != 2 {
		t.Errorf("fetch attempts delta: got %d, want 2", got)
	}
	if got := atomic.LoadInt64(&fetchSuccesses) - successesBefore; got != 1 {
		t.Errorf("fetch successes delta: got %d, want 1", got)
	}
}

func TestInstrumentMatchCounters(t *testing.T) {
	before := snapshot(&matchesByMethod)["market_code"]

	RecordInstrumentMatch("market_code")
	RecordInstrumentMatch("market_code")

	if got := snapshot(&matchesByMethod)["market_code"] - before; got != 2 {
		t.Errorf("match counter delta: got %d, want 2", got)
	}
}
