// Package deletion is the persistent retry queue that guarantees a canonical
// key is eventually removed from the search index, even when the delete was
// requested before the engine ever learned the document exists. Queue rows
// are independent of document rows: the document row is removed synchronously
// while index cleanup may still be outstanding.
package deletion

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"document-api/internal/models"
)

const DefaultMaxAttempts = 10

type Queue struct {
	db          *pgxpool.Pool
	maxAttempts int
}

func NewQueue(db *pgxpool.Pool, maxAttempts int) *Queue {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Queue{db: db, maxAttempts: maxAttempts}
}

const entryColumns = `id, canonical_key, user_id, original_filename, attempt_count,
	max_attempts, next_retry_at, last_error, status, created_at`

// Enqueue records the obligation to delete canonicalKey from the search
// index. A key with a live pending entry is left alone; the partial unique
// index makes the dedupe atomic under concurrent deletes.
func (q *Queue) Enqueue(ctx context.Context, canonicalKey, userID string, originalFilename *string, cause error) error {
	var lastError *string
	if cause != nil {
		msg := cause.Error()
		lastError = &msg
	}

	_, err := q.db.Exec(ctx, `
		INSERT INTO deletion_queue (canonical_key, user_id, original_filename, max_attempts, last_error)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (canonical_key) WHERE status = 'pending' DO NOTHING`,
		canonicalKey, userID, originalFilename, q.maxAttempts, lastError,
	)
	if err != nil {
		return fmt.Errorf("enqueue deletion for %s: %w", canonicalKey, err)
	}
	return nil
}

// Due returns pending entries whose retry time has passed, oldest first.
func (q *Queue) Due(ctx context.Context, now time.Time, limit int) ([]models.DeletionEntry, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+entryColumns+` FROM deletion_queue
		WHERE status = 'pending' AND next_retry_at <= $1
		ORDER BY next_retry_at LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch due deletions: %w", err)
	}
	defer rows.Close()

	var entries []models.DeletionEntry
	for rows.Next() {
		var e models.DeletionEntry
		if err := rows.Scan(&e.ID, &e.CanonicalKey, &e.UserID, &e.OriginalFilename,
			&e.AttemptCount, &e.MaxAttempts, &e.NextRetryAt, &e.LastError, &e.Status, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan deletion entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkSuccess removes the entry; the obligation is discharged.
func (q *Queue) MarkSuccess(ctx context.Context, e models.DeletionEntry) error {
	_, err := q.db.Exec(ctx, `DELETE FROM deletion_queue WHERE id = $1`, e.ID)
	if err != nil {
		return fmt.Errorf("remove deletion entry %s: %w", e.ID, err)
	}
	return nil
}

// MarkRetry advances the attempt count and either schedules the next retry or
// flips the entry to failed once the budget is exhausted. Failed entries are
// never removed automatically; they wait for an operator. The update is
// conditional on the attempt count seen at claim time, so two racing workers
// cannot both advance the same entry. Returns whether the entry is now
// permanently failed.
func (q *Queue) MarkRetry(ctx context.Context, e models.DeletionEntry, attemptErr error) (bool, error) {
	attempt := e.AttemptCount + 1
	msg := ""
	if attemptErr != nil {
		msg = attemptErr.Error()
	}

	if attempt >= e.MaxAttempts {
		_, err := q.db.Exec(ctx, `
			UPDATE deletion_queue
			SET status = 'failed', attempt_count = $1, last_error = $2
			WHERE id = $3 AND status = 'pending' AND attempt_count = $4`,
			attempt, msg, e.ID, e.AttemptCount,
		)
		if err != nil {
			return false, fmt.Errorf("mark deletion failed %s: %w", e.ID, err)
		}
		return true, nil
	}

	_, err := q.db.Exec(ctx, `
		UPDATE deletion_queue
		SET attempt_count = $1, next_retry_at = $2, last_error = $3
		WHERE id = $4 AND status = 'pending' AND attempt_count = $5`,
		attempt, time.Now().Add(NextDelay(attempt)), msg, e.ID, e.AttemptCount,
	)
	if err != nil {
		return false, fmt.Errorf("schedule deletion retry %s: %w", e.ID, err)
	}
	return false, nil
}

func (q *Queue) Stats(ctx context.Context) (*models.DeletionQueueStats, error) {
	var s models.DeletionQueueStats
	err := q.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COUNT(*)
		FROM deletion_queue`,
	).Scan(&s.Pending, &s.Failed, &s.Total)
	if err != nil {
		return nil, fmt.Errorf("deletion queue stats: %w", err)
	}
	return &s, nil
}
