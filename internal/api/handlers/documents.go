package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"document-api/internal/auth"
	"document-api/internal/ingest"
	"document-api/internal/models"
)

const maxUploadBytes = 64 << 20

type DocumentService interface {
	Upload(ctx context.Context, userID string, req ingest.UploadRequest) (*models.Document, error)
	Delete(ctx context.Context, userID string, docID uuid.UUID) (*ingest.DeleteResult, error)
}

type DocumentStore interface {
	GetDocument(ctx context.Context, id uuid.UUID, userID string) (*models.Document, error)
	ListDocuments(ctx context.Context, userID string, limit, offset int) ([]models.Document, error)
	CountDocuments(ctx context.Context, userID string) (int64, error)
}

type DocumentHandler struct {
	svc       DocumentService
	store     DocumentStore
	maxUpload int64
}

func NewDocumentHandler(svc DocumentService, store DocumentStore) *DocumentHandler {
	return &DocumentHandler{svc: svc, store: store, maxUpload: maxUploadBytes}
}

// Upload accepts a multipart file plus a collection id and answers 202: the
// blob and the metadata row exist when the response goes out, the search
// index catches up asynchronously. Oversize requests are cut off at the body
// reader, before anything reaches a backend.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	collectionID, err := uuid.Parse(r.FormValue("collection_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "valid collection_id required"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file required"})
		return
	}
	defer file.Close()

	if header.Size > h.maxUpload {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file too large"})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	doc, err := h.svc.Upload(r.Context(), auth.PrincipalFromContext(r.Context()), ingest.UploadRequest{
		CollectionID: collectionID,
		Filename:     header.Filename,
		ContentType:  contentType,
		Size:         header.Size,
		Data:         file,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r, 20)
	userID := auth.PrincipalFromContext(r.Context())
	docs, err := h.store.ListDocuments(r.Context(), userID, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	total, err := h.store.CountDocuments(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"count":     len(docs),
		"total":     total,
	})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid document ID"})
		return
	}

	doc, err := h.store.GetDocument(r.Context(), id, auth.PrincipalFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// Status is the polling endpoint for clients waiting on indexing; it exposes
// the tracked status, not a live search-index probe.
func (h *DocumentHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid document ID"})
		return
	}

	doc, err := h.store.GetDocument(r.Context(), id, auth.PrincipalFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":                   doc.ID,
		"canonical_key":        doc.CanonicalKey,
		"index_status":         doc.IndexStatus,
		"import_operation_ref": doc.ImportOperationRef,
		"index_completed_at":   doc.IndexCompletedAt,
	})
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid document ID"})
		return
	}

	res, err := h.svc.Delete(r.Context(), auth.PrincipalFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}
