package workflow

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"subforge/internal/config"
	"subforge/internal/logging"
	"subforge/internal/ops"
	"subforge/internal/queue"
	"subforge/internal/stage"
)

// Manager coordinates queue processing using registered stage handlers.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	logger       *slog.Logger
	registry     *ops.Registry
	pollInterval time.Duration
	heartbeat    *heartbeatMonitor
	lock         *flock.Flock

	stages       []pipelineStage
	stageByStart map[queue.Status]pipelineStage

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
	lastJob *queue.Job
}

// StageSet bundles the concrete workflow handlers the manager orchestrates.
// A nil handler skips that stage; the remaining stages chain directly.
type StageSet struct {
	Scrubber   stage.Handler
	Translator stage.Handler
	Normalizer stage.Handler
	Renderer   stage.Handler
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      queue.Status
	processingStatus queue.Status
	doneStatus       queue.Status
}

// NewManager constructs a workflow manager. The registry may be nil when
// cancellation-from-outside is not needed (one-shot CLI runs).
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger, registry *ops.Registry) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logger.With(logging.String(logging.FieldComponent, "workflow-manager")),
		registry:     registry,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		heartbeat: newHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
		),
		lock: flock.New(filepath.Join(cfg.Paths.WorkDir, "subforge.lock")),
	}
}

// ConfigureStages registers the concrete stage handlers the workflow will run.
// Stages chain in pipeline order; omitting one hands its start status to the
// next configured stage.
func (m *Manager) ConfigureStages(set StageSet) {
	var stages []pipelineStage

	start := queue.StatusPending
	if set.Scrubber != nil {
		stages = append(stages, pipelineStage{
			name:             "scrub",
			handler:          set.Scrubber,
			startStatus:      start,
			processingStatus: queue.StatusScrubbing,
			doneStatus:       queue.StatusScrubbed,
		})
		start = queue.StatusScrubbed
	}
	if set.Translator != nil {
		stages = append(stages, pipelineStage{
			name:             "translate",
			handler:          set.Translator,
			startStatus:      start,
			processingStatus: queue.StatusTranslating,
			doneStatus:       queue.StatusTranslated,
		})
		start = queue.StatusTranslated
	}
	if set.Normalizer != nil {
		done := queue.StatusNormalized
		if set.Renderer == nil {
			done = queue.StatusCompleted
		}
		stages = append(stages, pipelineStage{
			name:             "normalize",
			handler:          set.Normalizer,
			startStatus:      start,
			processingStatus: queue.StatusNormalizing,
			doneStatus:       done,
		})
		start = done
	}
	if set.Renderer != nil {
		stages = append(stages, pipelineStage{
			name:             "render",
			handler:          set.Renderer,
			startStatus:      start,
			processingStatus: queue.StatusRendering,
			doneStatus:       queue.StatusCompleted,
		})
	}

	byStart := make(map[queue.Status]pipelineStage, len(stages))
	for _, stg := range stages {
		byStart[stg.startStatus] = stg
	}

	m.mu.Lock()
	m.stages = stages
	m.stageByStart = byStart
	m.mu.Unlock()
}

func (m *Manager) stageForStatus(status queue.Status) (pipelineStage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stg, ok := m.stageByStart[status]
	return stg, ok
}
