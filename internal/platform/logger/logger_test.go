package logger

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func observed(redact bool) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return &Logger{
		SugaredLogger: zap.New(core).Sugar(),
		scrub:         &scrubber{enabled: redact, salt: "pepper"},
	}, logs
}

func TestScrubHashesSessionAndDropsSecrets(t *testing.T) {
	log, logs := observed(true)
	log.Info("submitted", "session_id", "abc-123", "api_key", "k", "submitted_text", "hello", "modality", "text")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries=%d", len(entries))
	}
	fields := entries[0].ContextMap()
	sid, _ := fields["session_id"].(string)
	if !strings.HasPrefix(sid, "hash:") || strings.Contains(sid, "abc-123") {
		t.Fatalf("session_id=%q", sid)
	}
	if fields["api_key"] != "[REDACTED]" || fields["submitted_text"] != "[REDACTED]" {
		t.Fatalf("fields=%v", fields)
	}
	if fields["modality"] != "text" {
		t.Fatalf("modality=%v", fields["modality"])
	}
}

func TestScrubIsStable(t *testing.T) {
	s := &scrubber{enabled: true, salt: "pepper"}
	if s.hash("abc") != s.hash("abc") {
		t.Fatalf("hash not deterministic")
	}
	if s.hash("abc") == (&scrubber{enabled: true, salt: "other"}).hash("abc") {
		t.Fatalf("salt ignored")
	}
}

func TestWithKeepsScrubbing(t *testing.T) {
	log, logs := observed(true)
	log.With("session_id", "s-1").Warn("x")
	if v, _ := logs.All()[0].ContextMap()["session_id"].(string); !strings.HasPrefix(v, "hash:") {
		t.Fatalf("session_id=%q", v)
	}
}

func TestRedactionDisabled(t *testing.T) {
	log, logs := observed(false)
	log.Info("x", "session_id", "s-1", "token", "t")
	fields := logs.All()[0].ContextMap()
	if fields["session_id"] != "s-1" || fields["token"] != "t" {
		t.Fatalf("fields=%v", fields)
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := NewWithOptions("development", Options{Level: "loud"}); err == nil {
		t.Fatalf("expected level error")
	}
	if _, err := NewWithOptions("production", Options{Level: "warn"}); err != nil {
		t.Fatalf("NewWithOptions: %v", err)
	}
}
