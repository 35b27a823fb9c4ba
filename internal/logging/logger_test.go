package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestPrettyHandlerOutput(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, levelVar, false))

	logger.Info("stage started", String(FieldComponent, "translate"), String("target", "fr"))

	line := buf.String()
	if !strings.Contains(line, "INFO") {
		t.Errorf("missing level: %q", line)
	}
	if !strings.Contains(line, "translate: stage started") {
		t.Errorf("component prefix missing: %q", line)
	}
	if !strings.Contains(line, "target=fr") {
		t.Errorf("attr missing: %q", line)
	}
}

func TestPrettyHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newPrettyHandler(&buf, new(slog.LevelVar), false))
	logger.Info("msg", String("stage", "Burning subtitles"))
	if !strings.Contains(buf.String(), `stage="Burning subtitles"`) {
		t.Errorf("expected quoted value, got %q", buf.String())
	}
}

func TestWithContextAddsOperationFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newPrettyHandler(&buf, new(slog.LevelVar), false))

	ctx := context.Background()
	ctx = withTestOperation(ctx, "op-42", "scrub")
	WithContext(ctx, logger).Info("checkpoint")

	line := buf.String()
	if !strings.Contains(line, "operation_id=op-42") {
		t.Errorf("operation id missing: %q", line)
	}
	if !strings.Contains(line, "stage=scrub") {
		t.Errorf("stage missing: %q", line)
	}
}

func TestWithContextNilLogger(t *testing.T) {
	logger := WithContext(context.Background(), nil)
	if logger == nil {
		t.Fatal("expected non-nil fallback logger")
	}
	logger.Info("should not panic")
}
