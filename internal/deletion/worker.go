package deletion

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"document-api/internal/models"
	"document-api/internal/searchindex"
)

// Store is the slice of Queue the worker needs; tests supply fakes.
type Store interface {
	Due(ctx context.Context, now time.Time, limit int) ([]models.DeletionEntry, error)
	MarkSuccess(ctx context.Context, e models.DeletionEntry) error
	MarkRetry(ctx context.Context, e models.DeletionEntry, attemptErr error) (bool, error)
}

// Deleter is the one search-index call the worker makes.
type Deleter interface {
	DeleteDocument(ctx context.Context, id string) error
}

type Worker struct {
	queue     Store
	index     Deleter
	batchSize int
	now       func() time.Time
}

type Result struct {
	Succeeded   int
	Failed      int
	Rescheduled int
}

func NewWorker(queue Store, index Deleter, batchSize int) *Worker {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Worker{queue: queue, index: index, batchSize: batchSize, now: time.Now}
}

// ProcessDue runs one pass over the entries whose retry time has come.
// Not-found is not an error here: the usual reason an entry exists is that
// the document was not indexed yet when the delete was requested, so
// not-found means "try again inside the indexing window" until the budget
// runs out.
func (w *Worker) ProcessDue(ctx context.Context) (Result, error) {
	entries, err := w.queue.Due(ctx, w.now(), w.batchSize)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, e := range entries {
		switch outcome := w.attempt(ctx, e); outcome {
		case attemptSucceeded:
			res.Succeeded++
		case attemptExhausted:
			res.Failed++
		default:
			res.Rescheduled++
		}
	}

	if res.Succeeded > 0 || res.Failed > 0 {
		slog.Info("deletion queue pass",
			"succeeded", res.Succeeded, "failed", res.Failed, "rescheduled", res.Rescheduled)
	}
	return res, nil
}

type attemptOutcome int

const (
	attemptSucceeded attemptOutcome = iota
	attemptRescheduled
	attemptExhausted
)

func (w *Worker) attempt(ctx context.Context, e models.DeletionEntry) attemptOutcome {
	err := w.index.DeleteDocument(ctx, e.CanonicalKey)
	if err == nil {
		if err := w.queue.MarkSuccess(ctx, e); err != nil {
			slog.Error("mark deletion success", "canonical_key", e.CanonicalKey, "error", err)
		}
		slog.Info("deleted from search index",
			"canonical_key", e.CanonicalKey, "attempt", e.AttemptCount+1)
		return attemptSucceeded
	}

	// Timeouts follow the same path as not-found and transient failures:
	// reschedule until the budget is exhausted.
	if errors.Is(err, searchindex.ErrNotFound) {
		err = errors.New("document not found in search index (not indexed yet?)")
	}

	exhausted, markErr := w.queue.MarkRetry(ctx, e, err)
	if markErr != nil {
		slog.Error("mark deletion retry", "canonical_key", e.CanonicalKey, "error", markErr)
		return attemptRescheduled
	}
	if exhausted {
		slog.Warn("deletion retries exhausted, entry needs operator attention",
			"canonical_key", e.CanonicalKey, "attempts", e.AttemptCount+1, "error", err)
		return attemptExhausted
	}
	return attemptRescheduled
}
