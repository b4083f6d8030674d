// Package storage is the object-store adapter. Blobs are named by the
// document's canonical key, never by a store-assigned name.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"document-api/internal/config"
)

// ErrNotFound is returned when the named blob does not exist. Callers treat
// it as a clean negative, not a failure.
var ErrNotFound = errors.New("object not found")

type ObjectStore interface {
	// Put uploads the blob under key and returns its location URI.
	Put(ctx context.Context, key string, data io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// URI returns the location the blob would have under key, without
	// touching the store.
	URI(key string) string
}

// Client talks to a Supabase-Storage-compatible object API over HTTP.
type Client struct {
	baseURL    string
	serviceKey string
	bucket     string
	httpClient *http.Client
}

func NewClient(cfg config.StorageConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		baseURL:    cfg.BaseURL + "/storage/v1",
		serviceKey: cfg.ServiceKey,
		bucket:     cfg.Bucket,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Put(ctx context.Context, key string, data io.Reader, contentType string) (string, error) {
	url := fmt.Sprintf("%s/object/%s/%s", c.baseURL, c.bucket, key)

	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, data); err != nil {
		return "", fmt.Errorf("read upload data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, buf)
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload failed (%d): %s", resp.StatusCode, string(body))
	}

	return c.URI(key), nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	url := fmt.Sprintf("%s/object/%s/%s", c.baseURL, c.bucket, key)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("create delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("delete failed (%d)", resp.StatusCode)
	}
	return nil
}

func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	url := fmt.Sprintf("%s/object/info/%s/%s", c.baseURL, c.bucket, key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("create info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("stat object: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= 400:
		return false, fmt.Errorf("stat failed (%d)", resp.StatusCode)
	}
	return true, nil
}

func (c *Client) URI(key string) string {
	return fmt.Sprintf("%s/object/%s/%s", c.baseURL, c.bucket, key)
}
