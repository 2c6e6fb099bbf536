package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"spacehub/internal/models"
)

const syncTaskColumns = `id, task_type, booking_id, payload, status, retry_count, last_error, created_at, processed_at, next_retry_at`

func (db *DB) CreateSyncTask(ctx context.Context, task *models.SyncTask) error {
	if task.Status == "" {
		task.Status = models.SyncStatusPending
	}
	query := `INSERT INTO sync_queue (task_type, booking_id, payload, status, retry_count, last_error, created_at, next_retry_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, query,
		task.TaskType,
		task.BookingID,
		task.Payload,
		task.Status,
		task.RetryCount,
		task.LastError,
		formatTime(now),
		formatTimePtr(task.NextRetryAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create sync task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	task.ID = id
	task.CreatedAt = now

	return nil
}

func (db *DB) GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error) {
	query := `SELECT ` + syncTaskColumns + `
              FROM sync_queue
              WHERE status IN (?, ?) AND (next_retry_at IS NULL OR next_retry_at <= ?)
              ORDER BY created_at ASC, id ASC LIMIT ?`
	return db.querySyncTasks(ctx, query, models.SyncStatusPending, models.SyncStatusRetry, formatTime(time.Now()), limit)
}

func (db *DB) querySyncTasks(ctx context.Context, query string, args ...interface{}) ([]models.SyncTask, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.SyncTask
	for rows.Next() {
		var (
			t                    models.SyncTask
			created              string
			processed, nextRetry sql.NullString
		)
		err := rows.Scan(
			&t.ID, &t.TaskType, &t.BookingID, &t.Payload, &t.Status, &t.RetryCount, &t.LastError, &created, &processed, &nextRetry,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync task: %w", err)
		}
		if t.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		if t.ProcessedAt, err = parseNullTime(processed); err != nil {
			return nil, err
		}
		if t.NextRetryAt, err = parseNullTime(nextRetry); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateSyncTaskStatus records the outcome of one attempt. A retry bumps
// retry_count; completed and failed tasks get processed_at stamped.
func (db *DB) UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error {
	var (
		lastErr   *string
		processed *time.Time
		bump      int
	)
	if errMsg != "" {
		lastErr = &errMsg
	}
	switch status {
	case models.SyncStatusRetry:
		bump = 1
	case models.SyncStatusCompleted, models.SyncStatusFailed:
		now := time.Now().UTC()
		processed = &now
	}

	_, err := db.ExecContext(ctx, `
		UPDATE sync_queue
		SET status = ?, last_error = ?, next_retry_at = ?,
		    retry_count = retry_count + ?,
		    processed_at = COALESCE(?, processed_at)
		WHERE id = ?`,
		status, lastErr, formatTimePtr(nextRetryAt), bump, formatTimePtr(processed), id,
	)
	if err != nil {
		return fmt.Errorf("update sync task %d: %w", id, err)
	}
	return nil
}
