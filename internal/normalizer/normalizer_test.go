package normalizer_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"subforge/internal/normalizer"
	"subforge/internal/queue"
	"subforge/internal/segment"
	"subforge/internal/stage"
	"subforge/internal/testsupport"
)

func newStageAndJob(t *testing.T) (*normalizer.Stage, *queue.Store, *queue.Job) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "/media/episode 01.mkv")
	return normalizer.NewStage(cfg, store, nil), store, job
}

func TestExecuteWritesSubtitleFile(t *testing.T) {
	stg, store, job := newStageAndJob(t)

	segments := []segment.Segment{
		{Index: 2, Start: 4.0, End: 4.5, Original: "second", Translation: "segundo"},
		{Index: 1, Start: 0.0, End: 1.0, Original: "first", Translation: "primero"},
	}
	raw, err := stage.EncodeSegments(segments)
	if err != nil {
		t.Fatalf("EncodeSegments: %v", err)
	}
	job.SegmentsJSON = raw
	if err := store.Update(context.Background(), job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := stg.Prepare(context.Background(), job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := stg.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if job.SubtitleFile == "" {
		t.Fatal("subtitle file path not set on job")
	}
	if !strings.HasSuffix(job.SubtitleFile, "episode 01.es.srt") {
		t.Fatalf("unexpected subtitle path: %s", job.SubtitleFile)
	}
	data, err := os.ReadFile(job.SubtitleFile)
	if err != nil {
		t.Fatalf("read subtitle: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "first") || !strings.Contains(content, "segundo") {
		t.Fatalf("subtitle content missing cues:\n%s", content)
	}
	// Normalization sorts and reindexes; the first block must be cue 1.
	if !strings.HasPrefix(content, "1\n") {
		t.Fatalf("subtitle should start with cue index 1:\n%s", content)
	}

	// The normalized payload is stored back for the render stage.
	stored, err := stage.ParseSegments(job.SegmentsJSON)
	if err != nil {
		t.Fatalf("ParseSegments: %v", err)
	}
	if stored[0].Index != 1 || stored[0].Original != "first" {
		t.Fatalf("stored payload not normalized: %+v", stored[0])
	}
}

func TestPrepareRejectsMissingPayload(t *testing.T) {
	stg, _, job := newStageAndJob(t)
	if err := stg.Prepare(context.Background(), job); err == nil {
		t.Fatal("expected error for empty segment payload")
	}
}

func TestHealthCheck(t *testing.T) {
	stg, _, _ := newStageAndJob(t)
	health := stg.HealthCheck(context.Background())
	if !health.Ready {
		t.Fatalf("expected healthy stage: %+v", health)
	}
}
