package stageexec_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"subforge/internal/logging"
	"subforge/internal/queue"
	"subforge/internal/stage"
	"subforge/internal/stageexec"
)

type fakeHandler struct {
	prepareErr error
	executeErr error
	onExecute  func(*queue.Job)
	prepared   int
	executed   int
}

func (h *fakeHandler) Prepare(_ context.Context, _ *queue.Job) error {
	h.prepared++
	return h.prepareErr
}

func (h *fakeHandler) Execute(_ context.Context, job *queue.Job) error {
	h.executed++
	if h.onExecute != nil {
		h.onExecute(job)
	}
	return h.executeErr
}

func (h *fakeHandler) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("fake")
}

func newStore(t *testing.T) *queue.Store {
	t.Helper()
	store, err := queue.OpenPath(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newJob(t *testing.T, store *queue.Store) *queue.Job {
	t.Helper()
	job, err := store.NewJob(context.Background(), "op-1", "/tmp/in.srt", "es", "dual")
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	return job
}

func TestRunTransitionsToDoneStatus(t *testing.T) {
	store := newStore(t)
	job := newJob(t, store)
	handler := &fakeHandler{}

	err := stageexec.Run(context.Background(), stageexec.Options{
		Logger:     logging.NewNop(),
		Store:      store,
		Handler:    handler,
		StageName:  "scrub",
		Processing: queue.StatusScrubbing,
		Done:       queue.StatusScrubbed,
		Job:        job,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if handler.prepared != 1 || handler.executed != 1 {
		t.Fatalf("handler calls = (%d, %d), want (1, 1)", handler.prepared, handler.executed)
	}
	if job.Status != queue.StatusScrubbed {
		t.Fatalf("job status = %s, want %s", job.Status, queue.StatusScrubbed)
	}
	if job.LastHeartbeat != nil {
		t.Fatal("expected heartbeat cleared after completion")
	}

	persisted, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if persisted.Status != queue.StatusScrubbed {
		t.Fatalf("persisted status = %s, want %s", persisted.Status, queue.StatusScrubbed)
	}
}

func TestRunKeepsHandlerStatusOverride(t *testing.T) {
	store := newStore(t)
	job := newJob(t, store)
	handler := &fakeHandler{onExecute: func(job *queue.Job) {
		job.Status = queue.StatusCompleted
	}}

	err := stageexec.Run(context.Background(), stageexec.Options{
		Logger:     logging.NewNop(),
		Store:      store,
		Handler:    handler,
		StageName:  "render",
		Processing: queue.StatusRendering,
		Done:       queue.StatusCompleted,
		Job:        job,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if job.Status != queue.StatusCompleted {
		t.Fatalf("job status = %s, want %s", job.Status, queue.StatusCompleted)
	}
}

func TestRunPrepareFailureMarksJobFailed(t *testing.T) {
	store := newStore(t)
	job := newJob(t, store)
	wantErr := errors.New("missing subtitle track")
	handler := &fakeHandler{prepareErr: wantErr}

	err := stageexec.Run(context.Background(), stageexec.Options{
		Logger:     logging.NewNop(),
		Store:      store,
		Handler:    handler,
		StageName:  "scrub",
		Processing: queue.StatusScrubbing,
		Done:       queue.StatusScrubbed,
		Job:        job,
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Run error = %v, want %v", err, wantErr)
	}
	if handler.executed != 0 {
		t.Fatal("execute must not run after prepare failure")
	}

	persisted, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if persisted.Status != queue.StatusFailed {
		t.Fatalf("persisted status = %s, want %s", persisted.Status, queue.StatusFailed)
	}
	if persisted.ErrorMessage != "missing subtitle track" {
		t.Fatalf("error message = %q", persisted.ErrorMessage)
	}
}

func TestRunExecuteFailurePersistsMessage(t *testing.T) {
	store := newStore(t)
	job := newJob(t, store)
	handler := &fakeHandler{executeErr: errors.New("provider unavailable")}

	err := stageexec.Run(context.Background(), stageexec.Options{
		Logger:     logging.NewNop(),
		Store:      store,
		Handler:    handler,
		StageName:  "translate",
		Processing: queue.StatusTranslating,
		Done:       queue.StatusTranslated,
		Job:        job,
	})
	if err == nil {
		t.Fatal("expected execute error")
	}

	persisted, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if persisted.Status != queue.StatusFailed {
		t.Fatalf("persisted status = %s, want %s", persisted.Status, queue.StatusFailed)
	}
	if persisted.ErrorMessage != "provider unavailable" {
		t.Fatalf("error message = %q", persisted.ErrorMessage)
	}
}

func TestRunSetsProcessingStateBeforePrepare(t *testing.T) {
	store := newStore(t)
	job := newJob(t, store)
	job.ErrorMessage = "stale failure"

	var observed queue.Status
	handler := &fakeHandler{}
	handler.onExecute = func(job *queue.Job) { observed = job.Status }

	err := stageexec.Run(context.Background(), stageexec.Options{
		Logger:     logging.NewNop(),
		Store:      store,
		Handler:    handler,
		StageName:  "normalize",
		Processing: queue.StatusNormalizing,
		Done:       queue.StatusNormalized,
		Job:        job,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if observed != queue.StatusNormalizing {
		t.Fatalf("status during execute = %s, want %s", observed, queue.StatusNormalizing)
	}
	if job.ErrorMessage != "" {
		t.Fatalf("error message not cleared: %q", job.ErrorMessage)
	}
	if job.ProgressStage != "Normalizing" {
		t.Fatalf("progress stage = %q, want %q", job.ProgressStage, "Normalizing")
	}
}

func TestRunRejectsMissingHandler(t *testing.T) {
	store := newStore(t)
	job := newJob(t, store)

	err := stageexec.Run(context.Background(), stageexec.Options{
		Logger:    logging.NewNop(),
		Store:     store,
		StageName: "scrub",
		Job:       job,
	})
	if err == nil {
		t.Fatal("expected error for nil handler")
	}
}
