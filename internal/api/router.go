package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"document-api/internal/api/handlers"
	"document-api/internal/api/middleware"
	"document-api/internal/auth"
	"document-api/internal/cache"
	"document-api/internal/config"
	"document-api/internal/deletion"
	"document-api/internal/ingest"
	"document-api/internal/metadata"
	"document-api/internal/queue"
	"document-api/internal/searchindex"
	"document-api/internal/storage"
)

type Router struct {
	mux   *chi.Mux
	db    *pgxpool.Pool
	redis *redis.Client
	cfg   *config.Config
	jwt   *auth.JWTMiddleware
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config) *Router {
	return &Router{
		mux:   chi.NewRouter(),
		db:    db,
		redis: rdb,
		cfg:   cfg,
		jwt:   auth.NewJWTMiddleware(cfg.Auth.JWTSecret),
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	// Health endpoints (no auth)
	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	// Initialize services
	meta := metadata.NewStore(rt.db)
	objects := storage.NewClient(rt.cfg.Storage)
	index := searchindex.NewClient(rt.cfg.Search)
	dq := deletion.NewQueue(rt.db, rt.cfg.Workers.MaxDeleteAttempts)
	svc := ingest.NewService(meta, objects, index, dq)
	queueClient := queue.NewClient(rt.cfg.Redis)
	statsCache := cache.New(rt.redis)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.jwt.Authenticate)

		docH := handlers.NewDocumentHandler(svc, meta)
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", docH.Upload)
			r.Get("/", docH.List)
			r.Get("/{id}", docH.Get)
			r.Get("/{id}/status", docH.Status)
			r.Delete("/{id}", docH.Delete)
		})

		colH := handlers.NewCollectionHandler(meta, svc)
		r.Route("/collections", func(r chi.Router) {
			r.Post("/", colH.Create)
			r.Get("/", colH.List)
			r.Get("/{id}", colH.Get)
			r.Get("/{id}/documents", colH.ListDocuments)
			r.Delete("/{id}", colH.Delete)
		})

		opH := handlers.NewOperationHandler(index)
		r.Route("/operations", func(r chi.Router) {
			r.Get("/status", opH.Status)
		})

		adminH := handlers.NewAdminHandler(dq, queueClient, svc, statsCache)
		r.Route("/admin", func(r chi.Router) {
			r.Get("/deletion-queue/stats", adminH.QueueStats)
			r.Post("/deletion-queue/process", adminH.KickQueue)
			r.Get("/verify/{key}", adminH.Verify)
			r.Get("/index-documents", adminH.IndexDocuments)
		})
	})

	return r
}
