package indexstatus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-api/internal/models"
	"document-api/internal/searchindex"
)

type statusUpdate struct {
	id          uuid.UUID
	status      string
	completedAt *time.Time
}

type fakeDocs struct {
	indexing []models.Document
	updates  []statusUpdate
}

func (f *fakeDocs) ListIndexing(ctx context.Context) ([]models.Document, error) {
	return f.indexing, nil
}

func (f *fakeDocs) UpdateIndexStatus(ctx context.Context, id uuid.UUID, status string, completedAt *time.Time) error {
	f.updates = append(f.updates, statusUpdate{id: id, status: status, completedAt: completedAt})
	return nil
}

type fakePoller struct {
	ops  map[string]*searchindex.Operation
	errs map[string]error
}

func (f *fakePoller) PollOperation(ctx context.Context, ref string) (*searchindex.Operation, error) {
	if err := f.errs[ref]; err != nil {
		return nil, err
	}
	return f.ops[ref], nil
}

func indexingDoc(ref string, uploadedAt time.Time) models.Document {
	doc := models.Document{
		ID:           uuid.New(),
		CanonicalKey: "key_" + uuid.NewString()[:8],
		IndexStatus:  models.IndexStatusIndexing,
		UploadedAt:   uploadedAt,
	}
	if ref != "" {
		doc.ImportOperationRef = &ref
	}
	return doc
}

func TestTrackerPromotesCompletedOperation(t *testing.T) {
	doc := indexingDoc("operations/1", time.Now())
	docs := &fakeDocs{indexing: []models.Document{doc}}
	poller := &fakePoller{ops: map[string]*searchindex.Operation{
		"operations/1": {Ref: "operations/1", Done: true},
	}}
	tr := NewTracker(docs, poller, 0)

	res, err := tr.ProcessIndexing(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Result{Completed: 1}, res)
	require.Len(t, docs.updates, 1)
	assert.Equal(t, models.IndexStatusIndexed, docs.updates[0].status)
	require.NotNil(t, docs.updates[0].completedAt, "completion timestamp written with the status")
}

func TestTrackerMarksFailedOperation(t *testing.T) {
	doc := indexingDoc("operations/2", time.Now())
	docs := &fakeDocs{indexing: []models.Document{doc}}
	poller := &fakePoller{ops: map[string]*searchindex.Operation{
		"operations/2": {Ref: "operations/2", Done: true, Error: "parse error"},
	}}
	tr := NewTracker(docs, poller, 0)

	res, err := tr.ProcessIndexing(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Result{Failed: 1}, res)
	require.Len(t, docs.updates, 1)
	assert.Equal(t, models.IndexStatusFailed, docs.updates[0].status)
}

func TestTrackerLeavesRunningOperationAlone(t *testing.T) {
	doc := indexingDoc("operations/3", time.Now())
	docs := &fakeDocs{indexing: []models.Document{doc}}
	poller := &fakePoller{ops: map[string]*searchindex.Operation{
		"operations/3": {Ref: "operations/3", Done: false},
	}}
	tr := NewTracker(docs, poller, 0)

	res, err := tr.ProcessIndexing(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Result{StillIndexing: 1}, res)
	assert.Empty(t, docs.updates)
}

func TestTrackerAssumesIndexedWhenOperationExpired(t *testing.T) {
	doc := indexingDoc("operations/old", time.Now())
	docs := &fakeDocs{indexing: []models.Document{doc}}
	poller := &fakePoller{errs: map[string]error{"operations/old": searchindex.ErrNotFound}}
	tr := NewTracker(docs, poller, 0)

	res, err := tr.ProcessIndexing(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Result{Completed: 1}, res)
	require.Len(t, docs.updates, 1)
	assert.Equal(t, models.IndexStatusIndexed, docs.updates[0].status)
}

func TestTrackerKeepsIndexingOnPollError(t *testing.T) {
	doc := indexingDoc("operations/flaky", time.Now())
	docs := &fakeDocs{indexing: []models.Document{doc}}
	poller := &fakePoller{errs: map[string]error{"operations/flaky": errors.New("503")}}
	tr := NewTracker(docs, poller, 0)

	res, err := tr.ProcessIndexing(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Result{StillIndexing: 1}, res)
	assert.Empty(t, docs.updates)
}

func TestTrackerPromotesStaleDocWithoutOperationRef(t *testing.T) {
	fresh := indexingDoc("", time.Now())
	stale := indexingDoc("", time.Now().Add(-time.Hour))
	docs := &fakeDocs{indexing: []models.Document{fresh, stale}}
	tr := NewTracker(docs, &fakePoller{}, DefaultStaleAfter)

	res, err := tr.ProcessIndexing(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Result{Completed: 1, StillIndexing: 1}, res)
	require.Len(t, docs.updates, 1)
	assert.Equal(t, stale.ID, docs.updates[0].id)
}
