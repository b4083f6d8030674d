package deletion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-api/internal/models"
	"document-api/internal/searchindex"
)

type fakeStore struct {
	due        []models.DeletionEntry
	succeeded  []string
	retried    []string
	lastErrors []string
}

func (f *fakeStore) Due(ctx context.Context, now time.Time, limit int) ([]models.DeletionEntry, error) {
	if limit < len(f.due) {
		return f.due[:limit], nil
	}
	return f.due, nil
}

func (f *fakeStore) MarkSuccess(ctx context.Context, e models.DeletionEntry) error {
	f.succeeded = append(f.succeeded, e.CanonicalKey)
	return nil
}

func (f *fakeStore) MarkRetry(ctx context.Context, e models.DeletionEntry, attemptErr error) (bool, error) {
	f.retried = append(f.retried, e.CanonicalKey)
	f.lastErrors = append(f.lastErrors, attemptErr.Error())
	return e.AttemptCount+1 >= e.MaxAttempts, nil
}

type fakeDeleter struct {
	errs  map[string]error
	calls []string
}

func (f *fakeDeleter) DeleteDocument(ctx context.Context, id string) error {
	f.calls = append(f.calls, id)
	return f.errs[id]
}

func entry(key string, attempts, max int) models.DeletionEntry {
	return models.DeletionEntry{
		CanonicalKey: key,
		AttemptCount: attempts,
		MaxAttempts:  max,
		Status:       models.DeletionStatusPending,
	}
}

func TestProcessDueRemovesEntryOnSuccess(t *testing.T) {
	store := &fakeStore{due: []models.DeletionEntry{entry("k1", 2, 10)}}
	index := &fakeDeleter{}
	w := NewWorker(store, index, 100)

	res, err := w.ProcessDue(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Result{Succeeded: 1}, res)
	assert.Equal(t, []string{"k1"}, store.succeeded)
	assert.Empty(t, store.retried)
}

func TestProcessDueReschedulesNotFoundInsideBudget(t *testing.T) {
	store := &fakeStore{due: []models.DeletionEntry{entry("k1", 0, 10)}}
	index := &fakeDeleter{errs: map[string]error{"k1": searchindex.ErrNotFound}}
	w := NewWorker(store, index, 100)

	res, err := w.ProcessDue(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Result{Rescheduled: 1}, res)
	assert.Equal(t, []string{"k1"}, store.retried)
	assert.Contains(t, store.lastErrors[0], "not found")
}

func TestProcessDueExhaustsBudget(t *testing.T) {
	store := &fakeStore{due: []models.DeletionEntry{entry("never_indexed", 9, 10)}}
	index := &fakeDeleter{errs: map[string]error{"never_indexed": searchindex.ErrNotFound}}
	w := NewWorker(store, index, 100)

	res, err := w.ProcessDue(context.Background())
	require.NoError(t, err)

	// Exhausted entries are surfaced, never silently dropped.
	assert.Equal(t, Result{Failed: 1}, res)
	assert.Empty(t, store.succeeded)
	assert.Equal(t, []string{"never_indexed"}, store.retried)
}

func TestProcessDueTreatsTimeoutLikeTransientFailure(t *testing.T) {
	store := &fakeStore{due: []models.DeletionEntry{entry("slow", 1, 10)}}
	index := &fakeDeleter{errs: map[string]error{"slow": context.DeadlineExceeded}}
	w := NewWorker(store, index, 100)

	res, err := w.ProcessDue(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Result{Rescheduled: 1}, res)
}

func TestProcessDueMixedBatch(t *testing.T) {
	store := &fakeStore{due: []models.DeletionEntry{
		entry("ok", 3, 10),
		entry("pending_index", 1, 10),
		entry("gone_for_good", 9, 10),
	}}
	index := &fakeDeleter{errs: map[string]error{
		"pending_index": searchindex.ErrNotFound,
		"gone_for_good": errors.New("503 backend unavailable"),
	}}
	w := NewWorker(store, index, 100)

	res, err := w.ProcessDue(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Result{Succeeded: 1, Rescheduled: 1, Failed: 1}, res)
	assert.Equal(t, []string{"ok", "pending_index", "gone_for_good"}, index.calls)
}

func TestProcessDueRespectsBatchSize(t *testing.T) {
	store := &fakeStore{due: []models.DeletionEntry{
		entry("a", 0, 10), entry("b", 0, 10), entry("c", 0, 10),
	}}
	index := &fakeDeleter{}
	w := NewWorker(store, index, 2)

	res, err := w.ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)
}
