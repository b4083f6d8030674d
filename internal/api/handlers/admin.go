package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"document-api/internal/cache"
	"document-api/internal/ingest"
	"document-api/internal/models"
	"document-api/internal/searchindex"
)

const (
	statsCacheKey = "deletion_queue:stats"
	statsCacheTTL = 30 * time.Second
)

type DeletionQueueStats interface {
	Stats(ctx context.Context) (*models.DeletionQueueStats, error)
}

type DeletionKicker interface {
	KickDeletionQueue() error
}

type VerifyService interface {
	Verify(ctx context.Context, canonicalKey string) (*ingest.VerifyReport, error)
	ListIndexDocuments(ctx context.Context, pageToken string) (*searchindex.DocumentPage, error)
}

type StatsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// AdminHandler serves the operator surface: queue visibility, manual kicks,
// per-backend verification and the raw search-index listing.
type AdminHandler struct {
	queue  DeletionQueueStats
	kicker DeletionKicker
	svc    VerifyService
	cache  StatsCache
}

func NewAdminHandler(queue DeletionQueueStats, kicker DeletionKicker, svc VerifyService, c StatsCache) *AdminHandler {
	return &AdminHandler{queue: queue, kicker: kicker, svc: svc, cache: c}
}

func (h *AdminHandler) QueueStats(w http.ResponseWriter, r *http.Request) {
	if h.cache != nil {
		var cached models.DeletionQueueStats
		if err := h.cache.Get(r.Context(), statsCacheKey, &cached); err == nil {
			writeJSON(w, http.StatusOK, cached)
			return
		} else if !errors.Is(err, cache.ErrMiss) {
			slog.Warn("stats cache read failed", "error", err)
		}
	}

	stats, err := h.queue.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(r.Context(), statsCacheKey, stats, statsCacheTTL); err != nil {
			slog.Warn("stats cache write failed", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, stats)
}

// KickQueue schedules an immediate deletion-queue pass ahead of the next
// periodic tick.
func (h *AdminHandler) KickQueue(w http.ResponseWriter, r *http.Request) {
	if err := h.kicker.KickDeletionQueue(); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

func (h *AdminHandler) Verify(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Verify(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *AdminHandler) IndexDocuments(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.ListIndexDocuments(r.Context(), r.URL.Query().Get("page_token"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"documents":       page.Documents,
		"count":           len(page.Documents),
		"next_page_token": page.NextPageToken,
	})
}
