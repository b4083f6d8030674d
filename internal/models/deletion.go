package models

import (
	"time"

	"github.com/google/uuid"
)

// DeletionEntry is an outstanding obligation to remove a canonical key from
// the search index. Entries outlive the document row: the row is deleted
// synchronously while index cleanup may still be pending.
type DeletionEntry struct {
	ID               uuid.UUID `json:"id" db:"id"`
	CanonicalKey     string    `json:"canonical_key" db:"canonical_key"`
	UserID           string    `json:"user_id" db:"user_id"`
	OriginalFilename *string   `json:"original_filename,omitempty" db:"original_filename"`
	AttemptCount     int       `json:"attempt_count" db:"attempt_count"`
	MaxAttempts      int       `json:"max_attempts" db:"max_attempts"`
	NextRetryAt      time.Time `json:"next_retry_at" db:"next_retry_at"`
	LastError        *string   `json:"last_error,omitempty" db:"last_error"`
	Status           string    `json:"status" db:"status"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

const (
	DeletionStatusPending = "pending"
	DeletionStatusFailed  = "failed"
)

// DeletionQueueStats is surfaced on the admin stats endpoint. Failed entries
// stay counted until an operator removes them.
type DeletionQueueStats struct {
	Pending int64 `json:"pending"`
	Failed  int64 `json:"failed"`
	Total   int64 `json:"total"`
}
