package models

import (
	"time"

	"github.com/google/uuid"
)

// Document is one ingested file. CanonicalKey is the identifier shared
// verbatim by the object store, the search index and this row; it never
// changes after insert.
type Document struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	UserID             string     `json:"user_id" db:"user_id"`
	CollectionID       uuid.UUID  `json:"collection_id" db:"collection_id"`
	OriginalFilename   string     `json:"original_filename" db:"original_filename"`
	CanonicalKey       string     `json:"canonical_key" db:"canonical_key"`
	ObjectURI          string     `json:"object_uri" db:"object_uri"`
	FileSizeBytes      int64      `json:"file_size_bytes" db:"file_size_bytes"`
	ContentType        string     `json:"content_type" db:"content_type"`
	IndexStatus        string     `json:"index_status" db:"index_status"`
	ImportOperationRef *string    `json:"import_operation_ref,omitempty" db:"import_operation_ref"`
	IndexCompletedAt   *time.Time `json:"index_completed_at,omitempty" db:"index_completed_at"`
	UploadedAt         time.Time  `json:"uploaded_at" db:"uploaded_at"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
}

const (
	IndexStatusPending  = "pending"
	IndexStatusIndexing = "indexing"
	IndexStatusIndexed  = "indexed"
	IndexStatusFailed   = "failed"
)

type Collection struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        string    `json:"user_id" db:"user_id"`
	Name          string    `json:"name" db:"name"`
	Description   *string   `json:"description,omitempty" db:"description"`
	DocumentCount int64     `json:"document_count" db:"document_count"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
