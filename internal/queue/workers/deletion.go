package workers

import (
	"context"

	"github.com/hibiken/asynq"

	"document-api/internal/deletion"
)

// DeletionWorker runs one deletion-queue pass per task tick.
type DeletionWorker struct {
	worker *deletion.Worker
}

func NewDeletionWorker(w *deletion.Worker) *DeletionWorker {
	return &DeletionWorker{worker: w}
}

func (w *DeletionWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	_, err := w.worker.ProcessDue(ctx)
	return err
}
