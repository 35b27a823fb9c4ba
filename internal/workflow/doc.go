// Package workflow advances queue jobs through the configured pipeline
// stages.
//
// The Manager polls the queue, rolls back work orphaned by a previous crash,
// and feeds jobs into registered stage handlers (scrubber, translator,
// normalizer, renderer) while capturing progress and failure metadata. Each
// in-flight job is registered with the operation registry so it can be
// cancelled from outside its own goroutine. A flock on the work directory
// keeps the pipeline single-writer per machine.
package workflow
