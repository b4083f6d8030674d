package handlers

import (
	"context"
	"errors"
	"net/http"

	"document-api/internal/searchindex"
)

type OperationPoller interface {
	PollOperation(ctx context.Context, ref string) (*searchindex.Operation, error)
}

type OperationHandler struct {
	poller OperationPoller
}

func NewOperationHandler(poller OperationPoller) *OperationHandler {
	return &OperationHandler{poller: poller}
}

// Status reads a long-running import operation by ref. A 404 from the index
// means the engine already reaped the record, which only happens after
// completion.
func (h *OperationHandler) Status(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("ref")
	if ref == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ref required"})
		return
	}

	op, err := h.poller.PollOperation(r.Context(), ref)
	if errors.Is(err, searchindex.ErrNotFound) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ref":     ref,
			"done":    true,
			"expired": true,
		})
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ref":   op.Ref,
		"done":  op.Done,
		"error": op.Error,
	})
}
