package render

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"subforge/internal/media/ffmpeg"
	"subforge/internal/progress"
	"subforge/internal/segment"
	"subforge/internal/services"
)

type fakePage struct {
	mu          sync.Mutex
	texts       []string
	screenshots int
	failAfter   int
	onCapture   func(captured int)
	closed      bool
}

func (p *fakePage) SetText(ctx context.Context, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.texts = append(p.texts, text)
	return nil
}

func (p *fakePage) Screenshot(ctx context.Context, dest string) error {
	p.mu.Lock()
	captured := p.screenshots + 1
	onCapture := p.onCapture
	p.mu.Unlock()
	if p.failAfter > 0 && captured > p.failAfter {
		return errors.New("page gone")
	}
	if err := os.WriteFile(dest, []byte("png"), 0o644); err != nil {
		return err
	}
	p.mu.Lock()
	p.screenshots = captured
	p.mu.Unlock()
	if onCapture != nil {
		onCapture(captured)
	}
	return nil
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

type fakeEncoder struct {
	encodeErr  error
	mergeErr   error
	encoded    bool
	merged     bool
	concatPath string
	mergeOpts  ffmpeg.MergeOptions
}

func (e *fakeEncoder) EncodeOverlay(ctx context.Context, concatPath string, frameRate float64, dest string, totalSeconds float64, onProgress func(float64)) error {
	e.encoded = true
	e.concatPath = concatPath
	if e.encodeErr != nil {
		return e.encodeErr
	}
	if onProgress != nil {
		onProgress(50)
		onProgress(100)
	}
	return os.WriteFile(dest, []byte("mov"), 0o644)
}

func (e *fakeEncoder) Merge(ctx context.Context, overlayPath string, opts ffmpeg.MergeOptions, dest string, onProgress func(float64)) error {
	e.merged = true
	e.mergeOpts = opts
	if e.mergeErr != nil {
		return e.mergeErr
	}
	if onProgress != nil {
		onProgress(100)
	}
	return os.WriteFile(dest, []byte("mp4"), 0o644)
}

type recordingReporter struct {
	mu      sync.Mutex
	updates []progress.Update
}

func (r *recordingReporter) Report(update progress.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, update)
}

func (r *recordingReporter) all() []progress.Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]progress.Update, len(r.updates))
	copy(out, r.updates)
	return out
}

func testEvents(n int) []segment.Event {
	events := make([]segment.Event, n)
	for i := range events {
		events[i] = segment.Event{TimeMs: int64(i) * 2000, Text: "line"}
	}
	return events
}

func testJob(t *testing.T, n int) Job {
	t.Helper()
	workDir := t.TempDir()
	return Job{
		OperationID:     "op-test",
		Events:          testEvents(n),
		DurationSeconds: float64(n * 2),
		FrameRate:       30,
		OutputPath:      filepath.Join(workDir, "out.mp4"),
		WorkDir:         workDir,
	}
}

func opWorkDir(job Job) string {
	return filepath.Join(job.WorkDir, "render-"+job.OperationID)
}

func pngCount(t *testing.T, dir string) int {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.png"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	return len(matches)
}

func TestRunCompletesAndCleansUp(t *testing.T) {
	job := testJob(t, 4)
	page := &fakePage{}
	encoder := &fakeEncoder{}
	reporter := &recordingReporter{}
	renderer := NewRenderer(encoder, nil, WithHeartbeat(time.Hour))

	if err := renderer.Run(context.Background(), job, page, reporter); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !encoder.encoded || !encoder.merged {
		t.Fatal("encode/merge not invoked")
	}
	if _, err := os.Stat(job.OutputPath); err != nil {
		t.Errorf("output missing: %v", err)
	}
	if _, err := os.Stat(opWorkDir(job)); !os.IsNotExist(err) {
		t.Errorf("workdir not removed: %v", err)
	}

	updates := reporter.all()
	last := updates[len(updates)-1]
	if last.Percent != 100 || last.Stage != string(StateComplete) {
		t.Errorf("final update = %+v", last)
	}
	for _, u := range updates[:len(updates)-1] {
		if u.Percent >= 100 {
			t.Errorf("intermediate update reached 100: %+v", u)
		}
	}
}

func TestRunStagesProgressMonotonically(t *testing.T) {
	job := testJob(t, 3)
	reporter := &recordingReporter{}
	renderer := NewRenderer(&fakeEncoder{}, nil, WithHeartbeat(time.Hour))
	if err := renderer.Run(context.Background(), job, &fakePage{}, reporter); err != nil {
		t.Fatalf("Run: %v", err)
	}
	prev := 0.0
	for _, u := range reporter.all() {
		if u.Percent < prev {
			t.Fatalf("progress went backwards: %v after %v", u.Percent, prev)
		}
		prev = u.Percent
	}
}

func TestRunSerializesReporterAgainstHeartbeat(t *testing.T) {
	page := &fakePage{onCapture: func(int) {
		time.Sleep(3 * time.Millisecond)
	}}
	renderer := NewRenderer(&fakeEncoder{}, nil, WithHeartbeat(time.Millisecond))

	var inFlight atomic.Int32
	var overlapped atomic.Bool
	reporter := progress.Func(func(progress.Update) {
		if inFlight.Add(1) > 1 {
			overlapped.Store(true)
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
	})

	if err := renderer.Run(context.Background(), testJob(t, 8), page, reporter); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if overlapped.Load() {
		t.Error("reporter saw concurrent calls")
	}
}

func TestCancellationCleansUpCapturedFrames(t *testing.T) {
	job := testJob(t, 10)
	ctx, cancel := context.WithCancel(context.Background())
	page := &fakePage{onCapture: func(captured int) {
		if captured == 3 {
			cancel()
		}
	}}
	reporter := &recordingReporter{}
	renderer := NewRenderer(&fakeEncoder{}, nil, WithHeartbeat(time.Hour))

	err := renderer.Run(ctx, job, page, reporter)
	if !services.IsCancelled(err) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if page.screenshots != 3 {
		t.Fatalf("expected capture to stop after 3, got %d", page.screenshots)
	}
	if _, statErr := os.Stat(opWorkDir(job)); !os.IsNotExist(statErr) {
		t.Errorf("operation workdir must be removed on cancel")
	}
	if got := pngCount(t, opWorkDir(job)); got != 0 {
		t.Errorf("expected zero PNGs after cancel, found %d", got)
	}

	updates := reporter.all()
	last := updates[len(updates)-1]
	if last.Stage != string(StateCancelled) || last.Percent != 100 {
		t.Errorf("final update = %+v, want Cancelled at 100", last)
	}
}

func TestEncodeFailureCleansUp(t *testing.T) {
	job := testJob(t, 2)
	encoder := &fakeEncoder{encodeErr: errors.New("encoder crashed")}
	renderer := NewRenderer(encoder, nil, WithHeartbeat(time.Hour))
	err := renderer.Run(context.Background(), job, &fakePage{}, &recordingReporter{})
	if err == nil {
		t.Fatal("expected encode error")
	}
	if _, statErr := os.Stat(opWorkDir(job)); !os.IsNotExist(statErr) {
		t.Errorf("workdir not removed on failure")
	}
}

func TestMergeBlackCanvasWhenNoBaseVideo(t *testing.T) {
	job := testJob(t, 2)
	job.Width = 1280
	job.Height = 720
	encoder := &fakeEncoder{}
	renderer := NewRenderer(encoder, nil, WithHeartbeat(time.Hour))
	if err := renderer.Run(context.Background(), job, &fakePage{}, &recordingReporter{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if encoder.mergeOpts.BaseVideo != "" {
		t.Errorf("expected empty base video, got %q", encoder.mergeOpts.BaseVideo)
	}
	if encoder.mergeOpts.Width != 1280 || encoder.mergeOpts.Height != 720 {
		t.Errorf("canvas geometry not forwarded: %+v", encoder.mergeOpts)
	}
}

func TestFrameDurationRoundsToFrameGrid(t *testing.T) {
	renderer := NewRenderer(&fakeEncoder{}, nil)
	job := Job{
		Events: []segment.Event{
			{TimeMs: 0, Text: "a"},
			{TimeMs: 1016, Text: "b"},
		},
		DurationSeconds: 2,
		FrameRate:       30,
	}
	got := renderer.frameDuration(job, 0)
	want := math.Round(1.016*30) / 30
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("frameDuration = %v, want %v", got, want)
	}

	// Last event runs to the job end.
	got = renderer.frameDuration(job, 1)
	want = math.Round((2-1.016)*30) / 30
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("last frameDuration = %v, want %v", got, want)
	}
}

func TestFrameDurationNeverZero(t *testing.T) {
	renderer := NewRenderer(&fakeEncoder{}, nil)
	job := Job{
		Events: []segment.Event{
			{TimeMs: 1000, Text: "a"},
			{TimeMs: 1001, Text: "b"},
		},
		DurationSeconds: 2,
		FrameRate:       30,
	}
	if got := renderer.frameDuration(job, 0); got < 1.0/30-1e-9 {
		t.Errorf("frameDuration = %v, want at least one frame", got)
	}
}

func TestValidateJob(t *testing.T) {
	renderer := NewRenderer(&fakeEncoder{}, nil)
	job := testJob(t, 1)
	job.Events = nil
	err := renderer.Run(context.Background(), job, &fakePage{}, nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
