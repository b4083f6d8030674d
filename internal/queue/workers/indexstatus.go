package workers

import (
	"context"

	"github.com/hibiken/asynq"

	"document-api/internal/indexstatus"
)

// IndexStatusWorker runs one index-status pass per task tick.
type IndexStatusWorker struct {
	tracker *indexstatus.Tracker
}

func NewIndexStatusWorker(t *indexstatus.Tracker) *IndexStatusWorker {
	return &IndexStatusWorker{tracker: t}
}

func (w *IndexStatusWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	_, err := w.tracker.ProcessIndexing(ctx)
	return err
}
