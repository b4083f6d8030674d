package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-api/internal/searchindex"
)

type fakeOpPoller struct {
	op  *searchindex.Operation
	err error
}

func (f *fakeOpPoller) PollOperation(ctx context.Context, ref string) (*searchindex.Operation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.op, nil
}

func TestOperationStatusRunning(t *testing.T) {
	h := NewOperationHandler(&fakeOpPoller{op: &searchindex.Operation{Ref: "operations/import-1", Done: false}})

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/operations/status?ref=operations/import-1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, false, got["done"])
}

func TestOperationStatusExpiredRefReportsDone(t *testing.T) {
	h := NewOperationHandler(&fakeOpPoller{err: searchindex.ErrNotFound})

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/operations/status?ref=operations/import-old", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, true, got["done"])
	assert.Equal(t, true, got["expired"])
}

func TestOperationStatusRequiresRef(t *testing.T) {
	h := NewOperationHandler(&fakeOpPoller{})

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/operations/status", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
