package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-api/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.StorageConfig{
		BaseURL:    srv.URL,
		ServiceKey: "service-key",
		Bucket:     "docs",
	})
}

func TestPutReturnsLocationURI(t *testing.T) {
	var gotPath, gotAuth, gotBody string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	})

	uri, err := c.Put(context.Background(), "abc123_report", strings.NewReader("content"), "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, "/storage/v1/object/docs/abc123_report", gotPath)
	assert.Equal(t, "Bearer service-key", gotAuth)
	assert.Equal(t, "content", gotBody)
	assert.True(t, strings.HasSuffix(uri, "/object/docs/abc123_report"))
	assert.Equal(t, c.URI("abc123_report"), uri)
}

func TestPutSurfacesBackendError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bucket missing", http.StatusBadRequest)
	})

	_, err := c.Put(context.Background(), "k", strings.NewReader("x"), "text/plain")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestDeleteMapsNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	err := c.Delete(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteOK(t *testing.T) {
	var method string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.Delete(context.Background(), "k"))
	assert.Equal(t, http.MethodDelete, method)
}

func TestExists(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/present") {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	ok, err := c.Exists(context.Background(), "present")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Exists(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}
