package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const jobColumns = `id, operation_id, source_path, status, target_language, display_mode,
	segments_json, subtitle_file, rendered_file, error_message,
	created_at, updated_at, progress_stage, progress_percent, progress_message, last_heartbeat`

// readyStatuses are the stable statuses a workflow poll may pick up.
var readyStatuses = []Status{
	StatusPending,
	StatusScrubbed,
	StatusTranslated,
	StatusNormalized,
}

// NewJob inserts a new pending job for a source media file. An operation id
// is minted when the caller does not supply one.
func (s *Store) NewJob(ctx context.Context, operationID, sourcePath, targetLanguage, displayMode string) (*Job, error) {
	if strings.TrimSpace(operationID) == "" {
		operationID = uuid.New().String()
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ensureContext(ctx),
		`INSERT INTO jobs (
			operation_id, source_path, status, target_language, display_mode,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		operationID,
		sourcePath,
		StatusPending,
		targetLanguage,
		displayMode,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("job id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches one job, or nil when it does not exist.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	return scanJob(row)
}

// GetByOperationID fetches one job by its operation id, or nil when it does
// not exist.
func (s *Store) GetByOperationID(ctx context.Context, operationID string) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+jobColumns+` FROM jobs WHERE operation_id = ?`, operationID)
	return scanJob(row)
}

// Update persists every mutable field of the job and bumps updated_at.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("update: nil job")
	}
	job.UpdatedAt = time.Now().UTC()
	var heartbeat any
	if job.LastHeartbeat != nil {
		heartbeat = job.LastHeartbeat.UTC().Format(time.RFC3339Nano)
	}
	_, err := s.execWithRetry(
		ensureContext(ctx),
		`UPDATE jobs SET
			source_path = ?, status = ?, target_language = ?, display_mode = ?,
			segments_json = ?, subtitle_file = ?, rendered_file = ?, error_message = ?,
			updated_at = ?, progress_stage = ?, progress_percent = ?, progress_message = ?,
			last_heartbeat = ?
		WHERE id = ?`,
		job.SourcePath,
		job.Status,
		job.TargetLanguage,
		job.DisplayMode,
		job.SegmentsJSON,
		job.SubtitleFile,
		job.RenderedFile,
		job.ErrorMessage,
		job.UpdatedAt.Format(time.RFC3339Nano),
		job.ProgressStage,
		job.ProgressPercent,
		job.ProgressMessage,
		heartbeat,
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job %d: %w", job.ID, err)
	}
	return nil
}

// UpdateProgress persists only the progress fields plus a fresh heartbeat.
// Stages call it frequently, so it avoids rewriting the segment payload.
func (s *Store) UpdateProgress(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("update progress: nil job")
	}
	now := time.Now().UTC()
	job.UpdatedAt = now
	job.LastHeartbeat = &now
	_, err := s.execWithRetry(
		ensureContext(ctx),
		`UPDATE jobs SET
			progress_stage = ?, progress_percent = ?, progress_message = ?,
			updated_at = ?, last_heartbeat = ?
		WHERE id = ?`,
		job.ProgressStage,
		job.ProgressPercent,
		job.ProgressMessage,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job %d progress: %w", job.ID, err)
	}
	return nil
}

// Heartbeat records stage liveness for a job.
func (s *Store) Heartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(ensureContext(ctx),
		`UPDATE jobs SET last_heartbeat = ? WHERE id = ?`, now, id)
	if err != nil {
		return fmt.Errorf("heartbeat job %d: %w", id, err)
	}
	return nil
}

// NextReady returns the oldest job awaiting its next stage, or nil when the
// queue has no runnable work.
func (s *Store) NextReady(ctx context.Context) (*Job, error) {
	placeholders := make([]string, len(readyStatuses))
	args := make([]any, len(readyStatuses))
	for i, status := range readyStatuses {
		placeholders[i] = "?"
		args[i] = status
	}
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+jobColumns+` FROM jobs WHERE status IN (`+strings.Join(placeholders, ",")+`)
		 ORDER BY created_at ASC, id ASC LIMIT 1`, args...)
	return scanJob(row)
}

// List returns jobs filtered to the given statuses, or all jobs when none are
// given, newest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	var args []any
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ",") + `)`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJobRow(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Delete removes one job.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if _, err := s.execWithRetry(ensureContext(ctx), `DELETE FROM jobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete job %d: %w", id, err)
	}
	return nil
}

// Clear removes jobs in the given statuses and reports how many went away.
// With no statuses it clears terminal jobs only.
func (s *Store) Clear(ctx context.Context, statuses ...Status) (int64, error) {
	if len(statuses) == 0 {
		statuses = []Status{StatusCompleted, StatusFailed}
	}
	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		placeholders[i] = "?"
		args[i] = status
	}
	res, err := s.execWithRetry(ensureContext(ctx),
		`DELETE FROM jobs WHERE status IN (`+strings.Join(placeholders, ",")+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed returns failed jobs to pending so the pipeline reruns them.
// With no ids it retries every failed job.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	query := `UPDATE jobs SET status = ?, error_message = '', progress_stage = '',
		progress_percent = 0, progress_message = '', last_heartbeat = NULL, updated_at = ?
		WHERE status = ?`
	args := []any{StatusPending, time.Now().UTC().Format(time.RFC3339Nano), StatusFailed}
	if len(ids) > 0 {
		placeholders := make([]string, len(ids))
		for i, id := range ids {
			placeholders[i] = "?"
			args = append(args, id)
		}
		query += ` AND id IN (` + strings.Join(placeholders, ",") + `)`
	}
	res, err := s.execWithRetry(ensureContext(ctx), query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry failed jobs: %w", err)
	}
	return res.RowsAffected()
}

// ResetStuck rolls every in-flight job back to its stage's input status.
// Called on startup so a crash mid-stage reruns the stage instead of leaving
// the job wedged.
func (s *Store) ResetStuck(ctx context.Context) (int64, error) {
	var total int64
	for _, transition := range stageRollbackTransitions {
		res, err := s.execWithRetry(ensureContext(ctx),
			`UPDATE jobs SET status = ?, last_heartbeat = NULL WHERE status = ?`,
			transition.to, transition.from)
		if err != nil {
			return total, fmt.Errorf("reset %s jobs: %w", transition.from, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += affected
	}
	return total, nil
}

// Health aggregates queue counts per lifecycle state.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("queue health: %w", err)
	}
	defer rows.Close()

	var summary HealthSummary
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return HealthSummary{}, err
		}
		summary.Total += count
		switch {
		case status == StatusPending:
			summary.Pending += count
		case IsProcessingStatus(status):
			summary.Processing += count
		case status == StatusFailed:
			summary.Failed += count
		case status == StatusCompleted:
			summary.Completed += count
		}
	}
	return summary, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row *sql.Row) (*Job, error) {
	job, err := scanJobRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return job, err
}

func scanJobRow(scanner rowScanner) (*Job, error) {
	var (
		job       Job
		createdAt string
		updatedAt string
		heartbeat sql.NullString
	)
	err := scanner.Scan(
		&job.ID,
		&job.OperationID,
		&job.SourcePath,
		&job.Status,
		&job.TargetLanguage,
		&job.DisplayMode,
		&job.SegmentsJSON,
		&job.SubtitleFile,
		&job.RenderedFile,
		&job.ErrorMessage,
		&createdAt,
		&updatedAt,
		&job.ProgressStage,
		&job.ProgressPercent,
		&job.ProgressMessage,
		&heartbeat,
	)
	if err != nil {
		return nil, err
	}
	if job.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if job.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if heartbeat.Valid && strings.TrimSpace(heartbeat.String) != "" {
		parsed, err := time.Parse(time.RFC3339Nano, heartbeat.String)
		if err != nil {
			return nil, fmt.Errorf("parse last_heartbeat: %w", err)
		}
		job.LastHeartbeat = &parsed
	}
	return &job, nil
}
