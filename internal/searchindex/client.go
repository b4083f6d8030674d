// Package searchindex is the adapter for the asynchronously-indexing search
// engine. Documents are always created with an explicit id (the canonical
// key); the engine's own id assignment is never used, because a row that
// holds an id the engine never saw cannot be deleted later.
package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"document-api/internal/config"
)

// ErrNotFound covers both "never indexed yet" and "already deleted". The
// deletion path treats it as retry-or-success, verification as a clean
// negative.
var ErrNotFound = errors.New("search index document not found")

// Metadata is the fixed struct attached to every indexed document. Kept
// explicitly typed rather than an open map so the identity invariants stay
// checkable at compile time.
type Metadata struct {
	CollectionID     string `json:"collection_id"`
	CollectionName   string `json:"collection_name"`
	UserID           string `json:"user_id"`
	OriginalFilename string `json:"original_filename"`
}

type Document struct {
	ID        string   `json:"id"`
	Name      string   `json:"name,omitempty"`
	SourceURI string   `json:"source_uri,omitempty"`
	Metadata  Metadata `json:"metadata"`
}

// Operation is the state of a long-running import operation.
type Operation struct {
	Ref   string
	Done  bool
	Error string
}

type DocumentPage struct {
	Documents     []Document
	NextPageToken string
}

type Index interface {
	// CreateDocument registers id with the engine and returns the handle of
	// the asynchronous indexing operation it queued.
	CreateDocument(ctx context.Context, id, sourceURI, contentType string, meta Metadata) (string, error)
	DeleteDocument(ctx context.Context, id string) error
	GetDocument(ctx context.Context, id string) (*Document, error)
	ListDocuments(ctx context.Context, pageToken string) (*DocumentPage, error)
	PollOperation(ctx context.Context, ref string) (*Operation, error)
}

// Client talks to a Discovery-Engine-style datastore branch over REST.
type Client struct {
	baseURL    string
	branchPath string
	authToken  string
	httpClient *http.Client
}

func NewClient(cfg config.SearchConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		branchPath: fmt.Sprintf(
			"projects/%s/locations/%s/dataStores/%s/branches/default_branch",
			cfg.ProjectID, cfg.Location, cfg.DataStoreID,
		),
		authToken:  cfg.AuthToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type createRequest struct {
	ID       string   `json:"id"`
	Content  content  `json:"content"`
	Metadata Metadata `json:"metadata"`
}

type content struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
}

type createResponse struct {
	ID        string `json:"id"`
	Operation string `json:"operation"`
}

func (c *Client) CreateDocument(ctx context.Context, id, sourceURI, contentType string, meta Metadata) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/documents?documentId=%s", c.baseURL, c.branchPath, url.QueryEscape(id))

	body, err := json.Marshal(createRequest{
		ID:       id,
		Content:  content{URI: sourceURI, MimeType: contentType},
		Metadata: meta,
	})
	if err != nil {
		return "", fmt.Errorf("marshal create request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", c.apiError("create document", resp)
	}

	var created createResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode create response: %w", err)
	}
	return created.Operation, nil
}

func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	endpoint := fmt.Sprintf("%s/%s/documents/%s", c.baseURL, c.branchPath, url.PathEscape(id))

	resp, err := c.do(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return c.apiError("delete document", resp)
	}
	return nil
}

func (c *Client) GetDocument(ctx context.Context, id string) (*Document, error) {
	endpoint := fmt.Sprintf("%s/%s/documents/%s", c.baseURL, c.branchPath, url.PathEscape(id))

	resp, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return nil, c.apiError("get document", resp)
	}

	var doc struct {
		ID       string   `json:"id"`
		Name     string   `json:"name"`
		Content  content  `json:"content"`
		Metadata Metadata `json:"metadata"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &Document{ID: doc.ID, Name: doc.Name, SourceURI: doc.Content.URI, Metadata: doc.Metadata}, nil
}

func (c *Client) ListDocuments(ctx context.Context, pageToken string) (*DocumentPage, error) {
	endpoint := fmt.Sprintf("%s/%s/documents?pageSize=100", c.baseURL, c.branchPath)
	if pageToken != "" {
		endpoint += "&pageToken=" + url.QueryEscape(pageToken)
	}

	resp, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, c.apiError("list documents", resp)
	}

	var page struct {
		Documents []struct {
			ID       string   `json:"id"`
			Name     string   `json:"name"`
			Content  content  `json:"content"`
			Metadata Metadata `json:"metadata"`
		} `json:"documents"`
		NextPageToken string `json:"nextPageToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode document list: %w", err)
	}

	out := &DocumentPage{NextPageToken: page.NextPageToken}
	for _, d := range page.Documents {
		out.Documents = append(out.Documents, Document{
			ID: d.ID, Name: d.Name, SourceURI: d.Content.URI, Metadata: d.Metadata,
		})
	}
	return out, nil
}

func (c *Client) PollOperation(ctx context.Context, ref string) (*Operation, error) {
	endpoint := fmt.Sprintf("%s/%s", c.baseURL, ref)

	resp, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return nil, c.apiError("poll operation", resp)
	}

	var op struct {
		Done  bool `json:"done"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return nil, fmt.Errorf("decode operation: %w", err)
	}

	result := &Operation{Ref: ref, Done: op.Done}
	if op.Error != nil {
		result.Error = op.Error.Message
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", method, err)
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search index request: %w", err)
	}
	return resp, nil
}

func (c *Client) apiError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("%s failed (%d): %s", op, resp.StatusCode, bytes.TrimSpace(body))
}
