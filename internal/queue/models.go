package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a subtitle job.
type Status string

const (
	StatusPending     Status = "pending"
	StatusScrubbing   Status = "scrubbing"
	StatusScrubbed    Status = "scrubbed"
	StatusTranslating Status = "translating"
	StatusTranslated  Status = "translated"
	StatusNormalizing Status = "normalizing"
	StatusNormalized  Status = "normalized"
	StatusRendering   Status = "rendering"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

// UserStopReason is the error message set when a user explicitly stops a job.
const UserStopReason = "Stop requested by user"

var allStatuses = []Status{
	StatusPending,
	StatusScrubbing,
	StatusScrubbed,
	StatusTranslating,
	StatusTranslated,
	StatusNormalizing,
	StatusNormalized,
	StatusRendering,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusScrubbing:   {},
	StatusTranslating: {},
	StatusNormalizing: {},
	StatusRendering:   {},
}

type statusTransition struct {
	from Status
	to   Status
}

// Jobs found mid-stage on startup roll back to the stage's input status so
// the stage reruns from scratch.
var stageRollbackTransitions = []statusTransition{
	{from: StatusScrubbing, to: StatusPending},
	{from: StatusTranslating, to: StatusScrubbed},
	{from: StatusNormalizing, to: StatusTranslated},
	{from: StatusRendering, to: StatusNormalized},
}

// Job represents a subtitle operation persisted in SQLite.
type Job struct {
	ID              int64
	OperationID     string
	SourcePath      string
	Status          Status
	TargetLanguage  string
	DisplayMode     string
	SegmentsJSON    string
	SubtitleFile    string
	RenderedFile    string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	LastHeartbeat   *time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight stage.
func (j Job) IsProcessing() bool {
	return IsProcessingStatus(j.Status)
}

// IsProcessingStatus reports whether a status reflects an in-flight stage.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminal reports whether the job has finished, successfully or not.
func (j Job) IsTerminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// SetProgress updates all three progress fields together.
func (j *Job) SetProgress(stage, message string, percent float64) {
	j.ProgressStage = stage
	j.ProgressMessage = message
	j.ProgressPercent = percent
}

// SetFailed marks the job as failed with the given error message.
func (j *Job) SetFailed(message string) {
	j.Status = StatusFailed
	j.ErrorMessage = message
	j.ProgressPercent = 0
	j.ProgressMessage = message
	j.ProgressStage = "Failed"
	j.LastHeartbeat = nil
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Completed  int
}
