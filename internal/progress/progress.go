package progress

import (
	"log/slog"

	"subforge/internal/logging"
)

// Update is the one-way notification emitted to the UI layer. It is transient
// and never persisted; no acknowledgement is expected.
type Update struct {
	Percent       float64
	Stage         string
	Error         string
	PartialResult string
	Current       int
	Total         int
	OperationID   string
}

// Reporter receives progress updates. Pipelines deliver updates one at a
// time, serializing any internal fan-out, so implementations never see
// concurrent calls. Report must not block the pipeline.
type Reporter interface {
	Report(Update)
}

// Func adapts a function to the Reporter interface.
type Func func(Update)

// Report implements Reporter.
func (f Func) Report(update Update) {
	if f != nil {
		f(update)
	}
}

// Discard is a Reporter that drops every update.
var Discard Reporter = Func(nil)

// Scale maps a stage's local 0-100 progress into its global percentage band.
// The result is clamped to [stageStart, stageEnd].
func Scale(localPercent, stageStart, stageEnd float64) float64 {
	global := stageStart + localPercent/100*(stageEnd-stageStart)
	if global < stageStart {
		return stageStart
	}
	if global > stageEnd {
		return stageEnd
	}
	return global
}

// NewLogReporter returns a Reporter that writes sampled progress lines to the
// logger. Coarse sampling keeps long stages from flooding the log.
func NewLogReporter(logger *slog.Logger) Reporter {
	sampler := logging.NewProgressSampler(5)
	return Func(func(update Update) {
		if logger == nil {
			return
		}
		if update.Error != "" {
			logger.Error("operation progress",
				logging.String("stage", update.Stage),
				logging.Float64("percent", update.Percent),
				logging.String("operation_id", update.OperationID),
				logging.String("error_message", update.Error),
			)
			return
		}
		if !sampler.ShouldLog(update.Percent, update.Stage, "") {
			return
		}
		logger.Info("operation progress",
			logging.String("stage", update.Stage),
			logging.Float64("percent", update.Percent),
			logging.String("operation_id", update.OperationID),
			logging.Int("current", update.Current),
			logging.Int("total", update.Total),
		)
	})
}
