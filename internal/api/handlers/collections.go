package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"document-api/internal/auth"
	"document-api/internal/ingest"
	"document-api/internal/models"
)

type CollectionStore interface {
	CreateCollection(ctx context.Context, userID, name string, description *string) (*models.Collection, error)
	GetCollection(ctx context.Context, id uuid.UUID, userID string) (*models.Collection, error)
	ListCollections(ctx context.Context, userID string, limit, offset int) ([]models.Collection, error)
	ListDocumentsByCollection(ctx context.Context, collectionID uuid.UUID, userID string, limit, offset int) ([]models.Document, error)
}

type CollectionService interface {
	DeleteCollection(ctx context.Context, userID string, collectionID uuid.UUID) (*ingest.CollectionDeleteResult, error)
}

type CollectionHandler struct {
	store CollectionStore
	svc   CollectionService
}

func NewCollectionHandler(store CollectionStore, svc CollectionService) *CollectionHandler {
	return &CollectionHandler{store: store, svc: svc}
}

type createCollectionRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func (h *CollectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCollectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required"})
		return
	}

	col, err := h.store.CreateCollection(r.Context(), auth.PrincipalFromContext(r.Context()), req.Name, req.Description)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, col)
}

func (h *CollectionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r, 50)
	cols, err := h.store.ListCollections(r.Context(), auth.PrincipalFromContext(r.Context()), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"collections": cols, "count": len(cols)})
}

func (h *CollectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid collection ID"})
		return
	}

	col, err := h.store.GetCollection(r.Context(), id, auth.PrincipalFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, col)
}

func (h *CollectionHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid collection ID"})
		return
	}

	limit, offset := pageParams(r, 20)
	userID := auth.PrincipalFromContext(r.Context())
	if _, err := h.store.GetCollection(r.Context(), id, userID); err != nil {
		writeServiceError(w, err)
		return
	}

	docs, err := h.store.ListDocumentsByCollection(r.Context(), id, userID, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs, "count": len(docs)})
}

// Delete removes the collection and fans the document delete path out over
// its contents; the response reports how much cleanup ran inline versus
// queued.
func (h *CollectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid collection ID"})
		return
	}

	res, err := h.svc.DeleteCollection(r.Context(), auth.PrincipalFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}
