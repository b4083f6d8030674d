package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"document-api/internal/ingest"
	"document-api/internal/metadata"
)

func decodeJSON(r *http.Request, dest interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dest)
}

// pageParams reads limit/offset, clamping both so nothing out of range ever
// reaches a query.
func pageParams(r *http.Request, defaultLimit int) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 200 {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// writeServiceError maps service errors onto HTTP statuses. Queued
// search-index cleanups never reach this path; they are not errors.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ingest.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, metadata.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, metadata.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "already exists"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
