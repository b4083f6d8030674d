// Package metadata is the relational store for document and collection rows.
// Every row is scoped by the opaque principal id supplied by the auth layer.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"document-api/internal/models"
)

var (
	ErrNotFound = errors.New("metadata row not found")
	ErrConflict = errors.New("metadata row already exists")
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const documentColumns = `id, user_id, collection_id, original_filename, canonical_key,
	object_uri, file_size_bytes, content_type, index_status,
	import_operation_ref, index_completed_at, uploaded_at, created_at`

type InsertDocumentParams struct {
	UserID             string
	CollectionID       uuid.UUID
	OriginalFilename   string
	CanonicalKey       string
	ObjectURI          string
	FileSizeBytes      int64
	ContentType        string
	IndexStatus        string
	ImportOperationRef *string
}

func (s *Store) InsertDocument(ctx context.Context, p InsertDocumentParams) (*models.Document, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO documents (user_id, collection_id, original_filename, canonical_key,
			object_uri, file_size_bytes, content_type, index_status, import_operation_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+documentColumns,
		p.UserID, p.CollectionID, p.OriginalFilename, p.CanonicalKey,
		p.ObjectURI, p.FileSizeBytes, p.ContentType, p.IndexStatus, p.ImportOperationRef,
	)
	doc, err := scanDocument(row)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("canonical key %s: %w", p.CanonicalKey, ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	return doc, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *Store) GetDocument(ctx context.Context, id uuid.UUID, userID string) (*models.Document, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	doc, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// GetDocumentByKey looks a document up by canonical key, unscoped. Used by
// the verification interface, which takes the key itself as proof of access.
func (s *Store) GetDocumentByKey(ctx context.Context, canonicalKey string) (*models.Document, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE canonical_key = $1`,
		canonicalKey,
	)
	doc, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document by key: %w", err)
	}
	return doc, nil
}

func (s *Store) ListDocuments(ctx context.Context, userID string, limit, offset int) ([]models.Document, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+documentColumns+` FROM documents
		 WHERE user_id = $1 ORDER BY uploaded_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func (s *Store) CountDocuments(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM documents WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

func (s *Store) ListDocumentsByCollection(ctx context.Context, collectionID uuid.UUID, userID string, limit, offset int) ([]models.Document, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+documentColumns+` FROM documents
		 WHERE collection_id = $1 AND user_id = $2
		 ORDER BY uploaded_at DESC LIMIT $3 OFFSET $4`,
		collectionID, userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list collection documents: %w", err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func (s *Store) DeleteDocument(ctx context.Context, id uuid.UUID, userID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM documents WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListIndexing returns documents whose import operation is still being
// tracked. Only the Index Status Tracker reads this.
func (s *Store) ListIndexing(ctx context.Context) ([]models.Document, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE index_status = $1 ORDER BY uploaded_at`,
		models.IndexStatusIndexing,
	)
	if err != nil {
		return nil, fmt.Errorf("list indexing documents: %w", err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// UpdateIndexStatus writes the status and completion timestamp in one
// statement so a half-promoted row is never observable.
func (s *Store) UpdateIndexStatus(ctx context.Context, id uuid.UUID, status string, completedAt *time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE documents SET index_status = $1, index_completed_at = $2 WHERE id = $3`,
		status, completedAt, id,
	)
	if err != nil {
		return fmt.Errorf("update index status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const collectionColumns = `c.id, c.user_id, c.name, c.description,
	(SELECT COUNT(*) FROM documents d WHERE d.collection_id = c.id) AS document_count,
	c.created_at, c.updated_at`

func (s *Store) CreateCollection(ctx context.Context, userID, name string, description *string) (*models.Collection, error) {
	var id uuid.UUID
	err := s.db.QueryRow(ctx,
		`INSERT INTO collections (user_id, name, description) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, name) DO NOTHING RETURNING id`,
		userID, name, description,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return s.GetCollection(ctx, id, userID)
}

func (s *Store) GetCollection(ctx context.Context, id uuid.UUID, userID string) (*models.Collection, error) {
	var c models.Collection
	err := s.db.QueryRow(ctx,
		`SELECT `+collectionColumns+` FROM collections c WHERE c.id = $1 AND c.user_id = $2`,
		id, userID,
	).Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &c.DocumentCount, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}
	return &c, nil
}

func (s *Store) ListCollections(ctx context.Context, userID string, limit, offset int) ([]models.Collection, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+collectionColumns+` FROM collections c
		 WHERE c.user_id = $1 ORDER BY c.created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var cols []models.Collection
	for rows.Next() {
		var c models.Collection
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &c.DocumentCount, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// DeleteCollection removes the collection row; the documents FK cascades.
// Returns the number of document rows that went with it.
func (s *Store) DeleteCollection(ctx context.Context, id uuid.UUID, userID string) (int64, error) {
	var docCount int64
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM documents WHERE collection_id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&docCount)
	if err != nil {
		return 0, fmt.Errorf("count collection documents: %w", err)
	}

	tag, err := s.db.Exec(ctx, `DELETE FROM collections WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return 0, fmt.Errorf("delete collection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrNotFound
	}
	return docCount, nil
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var d models.Document
	err := row.Scan(&d.ID, &d.UserID, &d.CollectionID, &d.OriginalFilename, &d.CanonicalKey,
		&d.ObjectURI, &d.FileSizeBytes, &d.ContentType, &d.IndexStatus,
		&d.ImportOperationRef, &d.IndexCompletedAt, &d.UploadedAt, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanDocuments(rows pgx.Rows) ([]models.Document, error) {
	var docs []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}
