package translate

import (
	"context"
	"testing"

	"subforge/internal/segment"
	"subforge/internal/services/llm"
	"subforge/internal/stage"
	"subforge/internal/testsupport"
)

func TestStageExecuteTranslatesAndProjectsWords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "episode.srt")

	segments := []segment.Segment{{
		Index:    1,
		Start:    0,
		End:      2,
		Original: "hello there",
		Words: []segment.WordTiming{
			{Start: 0, End: 1, Word: "hello"},
			{Start: 1, End: 2, Word: "there"},
		},
	}}
	encoded, err := stage.EncodeSegments(segments)
	if err != nil {
		t.Fatalf("EncodeSegments failed: %v", err)
	}
	job.SegmentsJSON = encoded
	if err := store.Update(context.Background(), job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	chat := &fakeChat{respond: func(int, []llm.Message) (string, error) {
		return "Line 1: hola ahí", nil
	}}
	st := NewStage(store, chat, nil, false)

	if err := st.Prepare(context.Background(), job); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if err := st.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	stored, err := stage.ParseSegments(job.SegmentsJSON)
	if err != nil {
		t.Fatalf("ParseSegments failed: %v", err)
	}
	if stored[0].Translation != "hola ahí" {
		t.Fatalf("unexpected translation %q", stored[0].Translation)
	}
	if len(stored[0].TranslatedWords) != 2 {
		t.Fatalf("expected 2 projected words, got %+v", stored[0].TranslatedWords)
	}
	if last := stored[0].TranslatedWords[1]; last.End != 2 {
		t.Fatalf("expected projection to cover the cue, got end %.2f", last.End)
	}
}

func TestStagePrepareRequiresTargetLanguage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "episode.srt")

	segments := []segment.Segment{{Index: 1, Start: 0, End: 1, Original: "hi"}}
	encoded, err := stage.EncodeSegments(segments)
	if err != nil {
		t.Fatalf("EncodeSegments failed: %v", err)
	}
	job.SegmentsJSON = encoded
	job.TargetLanguage = ""

	chat := &fakeChat{respond: func(int, []llm.Message) (string, error) { return "", nil }}
	st := NewStage(store, chat, nil, false)
	if err := st.Prepare(context.Background(), job); err == nil {
		t.Fatal("expected prepare to reject a job without target language")
	}
}
