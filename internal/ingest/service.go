// Package ingest sequences creates and deletes across the object store, the
// metadata store and the search index. The synchronous part of each
// operation finishes inside the request; anything the search index cannot
// confirm immediately is handed to the deletion queue instead of blocking.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"document-api/internal/identity"
	"document-api/internal/metadata"
	"document-api/internal/models"
	"document-api/internal/searchindex"
	"document-api/internal/storage"
)

// ErrValidation marks synchronous request errors: bad collection, empty
// file, a canonical key that fails the character-set check. These are never
// queued.
var ErrValidation = errors.New("validation error")

type MetadataStore interface {
	GetCollection(ctx context.Context, id uuid.UUID, userID string) (*models.Collection, error)
	InsertDocument(ctx context.Context, p metadata.InsertDocumentParams) (*models.Document, error)
	GetDocument(ctx context.Context, id uuid.UUID, userID string) (*models.Document, error)
	GetDocumentByKey(ctx context.Context, canonicalKey string) (*models.Document, error)
	DeleteDocument(ctx context.Context, id uuid.UUID, userID string) error
	ListDocumentsByCollection(ctx context.Context, collectionID uuid.UUID, userID string, limit, offset int) ([]models.Document, error)
	DeleteCollection(ctx context.Context, id uuid.UUID, userID string) (int64, error)
}

type DeletionEnqueuer interface {
	Enqueue(ctx context.Context, canonicalKey, userID string, originalFilename *string, cause error) error
}

type Service struct {
	meta    MetadataStore
	objects storage.ObjectStore
	index   searchindex.Index
	queue   DeletionEnqueuer
}

func NewService(meta MetadataStore, objects storage.ObjectStore, index searchindex.Index, queue DeletionEnqueuer) *Service {
	return &Service{meta: meta, objects: objects, index: index, queue: queue}
}

type UploadRequest struct {
	CollectionID uuid.UUID
	Filename     string
	ContentType  string
	Size         int64
	Data         io.Reader
}

// Upload runs the create path: assign the canonical key, put the blob under
// it, create the search document under the same key, insert the metadata row
// holding that key. A failed search create leaves the row in "pending" (the
// object write is not rolled back; re-upload is cheaper than distributed
// rollback) and never claims "indexed".
func (s *Service) Upload(ctx context.Context, userID string, req UploadRequest) (*models.Document, error) {
	if req.Filename == "" {
		return nil, fmt.Errorf("%w: filename required", ErrValidation)
	}
	if req.Size <= 0 {
		return nil, fmt.Errorf("%w: empty file", ErrValidation)
	}

	col, err := s.meta.GetCollection(ctx, req.CollectionID, userID)
	if errors.Is(err, metadata.ErrNotFound) {
		return nil, fmt.Errorf("%w: collection %s not found", ErrValidation, req.CollectionID)
	}
	if err != nil {
		return nil, err
	}

	key := identity.NewKey(req.Filename)
	if !identity.Valid(key) {
		return nil, fmt.Errorf("%w: cannot derive canonical key from %q", ErrValidation, req.Filename)
	}

	objectURI, err := s.objects.Put(ctx, key, req.Data, req.ContentType)
	if err != nil {
		return nil, fmt.Errorf("store object: %w", err)
	}

	indexStatus := models.IndexStatusPending
	var opRef *string
	ref, err := s.index.CreateDocument(ctx, key, objectURI, req.ContentType, searchindex.Metadata{
		CollectionID:     col.ID.String(),
		CollectionName:   col.Name,
		UserID:           userID,
		OriginalFilename: req.Filename,
	})
	if err != nil {
		slog.Error("search index create failed, document stays pending",
			"canonical_key", key, "error", err)
	} else {
		indexStatus = models.IndexStatusIndexing
		if ref != "" {
			opRef = &ref
		}
	}

	doc, err := s.meta.InsertDocument(ctx, metadata.InsertDocumentParams{
		UserID:             userID,
		CollectionID:       col.ID,
		OriginalFilename:   req.Filename,
		CanonicalKey:       key,
		ObjectURI:          objectURI,
		FileSizeBytes:      req.Size,
		ContentType:        req.ContentType,
		IndexStatus:        indexStatus,
		ImportOperationRef: opRef,
	})
	if errors.Is(err, metadata.ErrConflict) {
		return nil, fmt.Errorf("%w: canonical key %q already in use", ErrValidation, key)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("document ingested",
		"document_id", doc.ID, "canonical_key", key, "index_status", indexStatus)
	return doc, nil
}

// DeleteResult reports, per backend, what the delete could confirm before
// returning. SearchIndex=false with a nil error means the cleanup is queued,
// not abandoned.
type DeleteResult struct {
	Document     models.Document `json:"document"`
	Status       map[string]bool `json:"deletion_status"`
	Verification *Verification   `json:"search_index_verification,omitempty"`
}

type Verification struct {
	Deleted bool   `json:"deleted"`
	Message string `json:"message"`
}

// Delete removes the metadata row and the blob synchronously and attempts
// one inline search-index delete. Not-found and timeouts on that call hand
// the key to the deletion queue; the caller still gets an immediate answer.
func (s *Service) Delete(ctx context.Context, userID string, docID uuid.UUID) (*DeleteResult, error) {
	doc, err := s.meta.GetDocument(ctx, docID, userID)
	if err != nil {
		return nil, err
	}

	objectDeleted := true
	if err := s.objects.Delete(ctx, doc.CanonicalKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
		// The blob may already be gone; anything else is logged and the
		// delete continues.
		slog.Error("object store delete failed", "canonical_key", doc.CanonicalKey, "error", err)
		objectDeleted = false
	}

	searchDeleted := false
	var verification *Verification
	switch err := s.index.DeleteDocument(ctx, doc.CanonicalKey); {
	case err == nil:
		searchDeleted = true
		verification = s.verifyIndexDeletion(ctx, doc.CanonicalKey)
	default:
		if errors.Is(err, searchindex.ErrNotFound) {
			slog.Warn("document not yet indexed, queueing search index delete",
				"canonical_key", doc.CanonicalKey)
		} else {
			slog.Error("inline search index delete failed, queueing retry",
				"canonical_key", doc.CanonicalKey, "error", err)
		}
		if qErr := s.queue.Enqueue(ctx, doc.CanonicalKey, userID, &doc.OriginalFilename, err); qErr != nil {
			return nil, fmt.Errorf("queue search index delete: %w", qErr)
		}
	}

	if err := s.meta.DeleteDocument(ctx, docID, userID); err != nil {
		return nil, err
	}

	return &DeleteResult{
		Document: *doc,
		Status: map[string]bool{
			"postgresql":   true,
			"object_store": objectDeleted,
			"search_index": searchDeleted,
		},
		Verification: verification,
	}, nil
}

func (s *Service) verifyIndexDeletion(ctx context.Context, key string) *Verification {
	_, err := s.index.GetDocument(ctx, key)
	switch {
	case errors.Is(err, searchindex.ErrNotFound):
		return &Verification{Deleted: true, Message: "document no longer present in search index"}
	case err != nil:
		return &Verification{Deleted: false, Message: fmt.Sprintf("verification inconclusive: %v", err)}
	default:
		return &Verification{Deleted: false, Message: "document still present in search index"}
	}
}

type CollectionDeleteResult struct {
	CollectionID        uuid.UUID `json:"collection_id"`
	CollectionName      string    `json:"collection_name"`
	DocumentsDeleted    int64     `json:"documents_deleted"`
	ObjectsDeleted      int       `json:"objects_deleted"`
	SearchDeletedNow    int       `json:"search_index_deleted"`
	SearchDeletesQueued int       `json:"search_index_deletes_queued"`
}

// collectionPageSize bounds one listing query during a collection delete;
// the fan-out pages until the listing is exhausted.
const collectionPageSize = 1000

// DeleteCollection fans the delete path out over every document in the
// collection, then drops the collection row; the documents cascade with it.
// Document rows stay in place until the final cascade, so paging by offset
// sees each document exactly once.
func (s *Service) DeleteCollection(ctx context.Context, userID string, collectionID uuid.UUID) (*CollectionDeleteResult, error) {
	col, err := s.meta.GetCollection(ctx, collectionID, userID)
	if err != nil {
		return nil, err
	}

	res := &CollectionDeleteResult{CollectionID: col.ID, CollectionName: col.Name}
	for offset := 0; ; offset += collectionPageSize {
		docs, err := s.meta.ListDocumentsByCollection(ctx, collectionID, userID, collectionPageSize, offset)
		if err != nil {
			return nil, err
		}

		for _, doc := range docs {
			if err := s.objects.Delete(ctx, doc.CanonicalKey); err == nil || errors.Is(err, storage.ErrNotFound) {
				res.ObjectsDeleted++
			} else {
				slog.Error("object store delete failed", "canonical_key", doc.CanonicalKey, "error", err)
			}

			if err := s.index.DeleteDocument(ctx, doc.CanonicalKey); err == nil {
				res.SearchDeletedNow++
				continue
			} else if qErr := s.queue.Enqueue(ctx, doc.CanonicalKey, userID, &doc.OriginalFilename, err); qErr != nil {
				return nil, fmt.Errorf("queue search index delete: %w", qErr)
			}
			res.SearchDeletesQueued++
		}

		if len(docs) < collectionPageSize {
			break
		}
	}

	deleted, err := s.meta.DeleteCollection(ctx, collectionID, userID)
	if err != nil {
		return nil, err
	}
	res.DocumentsDeleted = deleted

	slog.Info("collection deleted",
		"collection_id", col.ID, "documents", deleted,
		"search_deleted", res.SearchDeletedNow, "search_queued", res.SearchDeletesQueued)
	return res, nil
}

// VerifyReport is the read-only per-backend existence report used by
// operators and tests after create/delete operations.
type VerifyReport struct {
	CanonicalKey  string    `json:"canonical_key"`
	InMetadata    bool      `json:"exists_in_metadata"`
	InObjectStore bool      `json:"exists_in_object_store"`
	InSearchIndex bool      `json:"exists_in_search_index"`
	IndexStatus   string    `json:"index_status,omitempty"`
	CheckedAt     time.Time `json:"checked_at"`
}

// Verify reports which backends currently hold the canonical key. Side
// effect free.
func (s *Service) Verify(ctx context.Context, canonicalKey string) (*VerifyReport, error) {
	if !identity.Valid(canonicalKey) {
		return nil, fmt.Errorf("%w: invalid canonical key %q", ErrValidation, canonicalKey)
	}

	report := &VerifyReport{CanonicalKey: canonicalKey, CheckedAt: time.Now()}

	doc, err := s.meta.GetDocumentByKey(ctx, canonicalKey)
	switch {
	case err == nil:
		report.InMetadata = true
		report.IndexStatus = doc.IndexStatus
	case !errors.Is(err, metadata.ErrNotFound):
		return nil, err
	}

	inStore, err := s.objects.Exists(ctx, canonicalKey)
	if err != nil {
		return nil, err
	}
	report.InObjectStore = inStore

	_, err = s.index.GetDocument(ctx, canonicalKey)
	switch {
	case err == nil:
		report.InSearchIndex = true
	case !errors.Is(err, searchindex.ErrNotFound):
		return nil, err
	}

	return report, nil
}

// ListIndexDocuments pages through everything the search index holds. This
// is the O(n) reconciliation tool for entries that predate the shared-key
// scheme or exhausted their retry budget; it is not on any hot path.
func (s *Service) ListIndexDocuments(ctx context.Context, pageToken string) (*searchindex.DocumentPage, error) {
	return s.index.ListDocuments(ctx, pageToken)
}
