// Package indexstatus promotes documents from "indexing" to "indexed" or
// "failed" by polling the search engine's long-running import operations.
// The status is advisory for callers; the deletion path never depends on it,
// so a tracker outage cannot block deletions.
package indexstatus

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"document-api/internal/models"
	"document-api/internal/searchindex"
)

// DefaultStaleAfter is how long a document may sit in "indexing" with no
// operation ref before it is assumed indexed. Refs can be lost when the
// create succeeded but the response was dropped.
const DefaultStaleAfter = 10 * time.Minute

type DocumentStore interface {
	ListIndexing(ctx context.Context) ([]models.Document, error)
	UpdateIndexStatus(ctx context.Context, id uuid.UUID, status string, completedAt *time.Time) error
}

type OperationPoller interface {
	PollOperation(ctx context.Context, ref string) (*searchindex.Operation, error)
}

type Tracker struct {
	docs       DocumentStore
	poller     OperationPoller
	staleAfter time.Duration
	now        func() time.Time
}

type Result struct {
	Completed     int
	Failed        int
	StillIndexing int
}

func NewTracker(docs DocumentStore, poller OperationPoller, staleAfter time.Duration) *Tracker {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Tracker{docs: docs, poller: poller, staleAfter: staleAfter, now: time.Now}
}

// ProcessIndexing runs one pass over every document still tracked as
// indexing.
func (t *Tracker) ProcessIndexing(ctx context.Context) (Result, error) {
	docs, err := t.docs.ListIndexing(ctx)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, doc := range docs {
		switch t.check(ctx, doc) {
		case models.IndexStatusIndexed:
			res.Completed++
		case models.IndexStatusFailed:
			res.Failed++
		default:
			res.StillIndexing++
		}
	}

	if res.Completed > 0 || res.Failed > 0 {
		slog.Info("index status pass",
			"completed", res.Completed, "failed", res.Failed, "still_indexing", res.StillIndexing)
	}
	return res, nil
}

func (t *Tracker) check(ctx context.Context, doc models.Document) string {
	if doc.ImportOperationRef == nil || *doc.ImportOperationRef == "" {
		if t.now().Sub(doc.UploadedAt) > t.staleAfter {
			slog.Warn("document has no operation ref and is stale, assuming indexed",
				"document_id", doc.ID, "canonical_key", doc.CanonicalKey)
			t.promote(ctx, doc, models.IndexStatusIndexed)
			return models.IndexStatusIndexed
		}
		return models.IndexStatusIndexing
	}

	op, err := t.poller.PollOperation(ctx, *doc.ImportOperationRef)
	if errors.Is(err, searchindex.ErrNotFound) {
		// Operations expire; a missing one completed long ago.
		t.promote(ctx, doc, models.IndexStatusIndexed)
		return models.IndexStatusIndexed
	}
	if err != nil {
		slog.Error("poll import operation", "document_id", doc.ID, "error", err)
		return models.IndexStatusIndexing
	}

	switch {
	case !op.Done:
		return models.IndexStatusIndexing
	case op.Error != "":
		slog.Error("document indexing failed",
			"document_id", doc.ID, "canonical_key", doc.CanonicalKey, "error", op.Error)
		t.promote(ctx, doc, models.IndexStatusFailed)
		return models.IndexStatusFailed
	default:
		slog.Info("document indexed",
			"document_id", doc.ID, "canonical_key", doc.CanonicalKey)
		t.promote(ctx, doc, models.IndexStatusIndexed)
		return models.IndexStatusIndexed
	}
}

func (t *Tracker) promote(ctx context.Context, doc models.Document, status string) {
	var completedAt *time.Time
	if status == models.IndexStatusIndexed {
		now := t.now()
		completedAt = &now
	}
	if err := t.docs.UpdateIndexStatus(ctx, doc.ID, status, completedAt); err != nil {
		slog.Error("update index status", "document_id", doc.ID, "status", status, "error", err)
	}
}
