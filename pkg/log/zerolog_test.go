package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestZerologProvider_ComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProviderTo(&buf, LevelInfo)

	logger := p.GetLoggerWithName("Pipeline").With(RunIDKey, "run-1")
	logger.Info("stage finished", StageKey, "split", SamplesKey, 80)
	logger.Debug("hidden")

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e["message"] != "stage finished" {
		t.Errorf("message = %v", e["message"])
	}
	if e["level"] != "info" {
		t.Errorf("level = %v", e["level"])
	}
	if e[ComponentKey] != "Pipeline" {
		t.Errorf("component = %v", e[ComponentKey])
	}
	if e[RunIDKey] != "run-1" {
		t.Errorf("run id = %v", e[RunIDKey])
	}
	if e[StageKey] != "split" {
		t.Errorf("stage = %v", e[StageKey])
	}
	if e[SamplesKey] != float64(80) {
		t.Errorf("samples = %v", e[SamplesKey])
	}
}

func TestZerologProvider_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProviderTo(&buf, LevelWarn)
	logger := p.GetLogger()

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %s", buf.String())
	}

	// 既存のロガーにもレベル変更が反映される
	p.SetLevel(LevelDebug)
	logger.Debug("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Errorf("debug should be emitted after SetLevel, got %s", buf.String())
	}
	if !logger.Enabled(context.Background(), LevelDebug) {
		t.Error("Enabled(debug) should be true")
	}
}

func TestZerologLogger_ErrorCategory(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProviderTo(&buf, LevelInfo)

	err := errors.NewColumnNotFoundError("split", "price", []string{"age"})
	p.GetLogger().Error("stage failed", err, StageKey, "split")

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e[ErrorCategoryKey] != "validation" {
		t.Errorf("error.category = %v, want validation", e[ErrorCategoryKey])
	}
	if !strings.Contains(e["error"].(string), "column not found") {
		t.Errorf("error = %v", e["error"])
	}
	detail, ok := e["error_detail"].(map[string]interface{})
	if !ok {
		t.Fatalf("error_detail missing: %v", e)
	}
	if detail["column"] != "price" {
		t.Errorf("error_detail.column = %v", detail["column"])
	}
}

func TestGlobalProvider_WarningHook(t *testing.T) {
	var buf bytes.Buffer
	prev := Provider()
	SetProvider(NewZerologProviderTo(&buf, LevelDebug))
	defer SetProvider(prev)

	errors.Warn(errors.NewUndefinedMetricWarning("precision", "no predicted samples", 0))

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 warning entry, got %d", len(entries))
	}
	if entries[0]["level"] != "warn" {
		t.Errorf("level = %v", entries[0]["level"])
	}
	if entries[0][ComponentKey] != "warnings" {
		t.Errorf("component = %v", entries[0][ComponentKey])
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
