package ops

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"subforge/internal/logging"
	"subforge/internal/services"
)

// Kind identifies what an operation entry holds.
type Kind string

const (
	// KindGeneric is a placeholder entry holding only a cancel function,
	// registered before the concrete handle exists.
	KindGeneric Kind = "generic"
	// KindDownload holds an external downloader process.
	KindDownload Kind = "download"
	// KindSubtitle holds a cancellable subtitle pipeline job.
	KindSubtitle Kind = "subtitle"
	// KindRender holds a render job's spawned processes plus an optional
	// browser page closer.
	KindRender Kind = "render"
)

type entry struct {
	kind      Kind
	cancel    context.CancelFunc
	processes []*os.Process
	closePage func() error
}

// Registry tracks every in-flight operation by id so any of them can be
// cancelled from outside its own goroutine. An id has at most one entry; a
// generic placeholder may later be promoted to a concrete kind once the real
// handle is known.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	logger  *slog.Logger
}

// NewRegistry constructs an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		logger:  logging.NewComponentLogger(logger, "ops"),
	}
}

// RegisterGeneric records a placeholder cancel for an operation whose concrete
// handle is not known yet. Registering over an existing entry of any kind is
// rejected.
func (r *Registry) RegisterGeneric(id string, cancel context.CancelFunc) error {
	return r.register(id, &entry{kind: KindGeneric, cancel: cancel}, false)
}

// RegisterSubtitle records a cancellable subtitle pipeline job. Promotes a
// generic placeholder in place.
func (r *Registry) RegisterSubtitle(id string, cancel context.CancelFunc) error {
	return r.register(id, &entry{kind: KindSubtitle, cancel: cancel}, true)
}

// RegisterRender records a render job. Promotes a generic placeholder in
// place; spawned processes and the browser page attach later as they start.
func (r *Registry) RegisterRender(id string, cancel context.CancelFunc) error {
	return r.register(id, &entry{kind: KindRender, cancel: cancel}, true)
}

// RegisterDownload records an external downloader process. Promotes a generic
// placeholder in place.
func (r *Registry) RegisterDownload(id string, cancel context.CancelFunc, process *os.Process) error {
	e := &entry{kind: KindDownload, cancel: cancel}
	if process != nil {
		e.processes = append(e.processes, process)
	}
	return r.register(id, e, true)
}

func (r *Registry) register(id string, e *entry, promote bool) error {
	if id == "" {
		return services.Wrap(services.ErrValidation, "ops", "register", "operation id required", nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.entries[id]
	if ok {
		if !promote || existing.kind != KindGeneric {
			return services.Wrap(services.ErrValidation, "ops", "register", "operation already registered: "+id, nil)
		}
		// Promotion keeps the placeholder cancel so the original context is
		// still torn down.
		if e.cancel == nil {
			e.cancel = existing.cancel
		}
	}
	r.entries[id] = e
	return nil
}

// AttachProcess adds a spawned process to an operation's kill list. Callers
// attach the process immediately after Start, before waiting on it, so a
// cancellation arriving mid-spawn can never miss it.
func (r *Registry) AttachProcess(id string, process *os.Process) {
	if process == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		e.processes = append(e.processes, process)
	}
}

// DetachProcess removes a finished process from an operation's kill list.
func (r *Registry) DetachProcess(id string, process *os.Process) {
	if process == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return
	}
	for i, p := range e.processes {
		if p == process {
			e.processes = append(e.processes[:i], e.processes[i+1:]...)
			return
		}
	}
}

// AttachPage records how to force-close the operation's browser page on
// cancellation.
func (r *Registry) AttachPage(id string, closePage func() error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		e.closePage = closePage
	}
}

// Unregister removes an operation. Removing an unknown id is a no-op.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Cancel tears down the operation registered under id and removes it. The
// entry's cancel function fires first so cooperative checkpoints observe the
// abort, then any spawned processes are terminated and the browser page is
// force-closed. Returns false when the id is unknown.
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}

	r.logger.Info("cancelling operation",
		logging.String(logging.FieldOperationID, id),
		logging.String("kind", string(e.kind)),
	)
	if e.cancel != nil {
		e.cancel()
	}
	for _, process := range e.processes {
		if err := terminateProcess(process); err != nil {
			r.logger.Warn("failed to terminate process",
				logging.String(logging.FieldOperationID, id),
				logging.Int("pid", process.Pid),
				logging.Error(err),
			)
		}
	}
	if e.closePage != nil {
		if err := e.closePage(); err != nil {
			r.logger.Warn("failed to close browser page",
				logging.String(logging.FieldOperationID, id),
				logging.Error(err),
			)
		}
	}
	return true
}

// Active returns the ids of all registered operations.
func (r *Registry) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}
