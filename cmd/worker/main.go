package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"document-api/internal/config"
	"document-api/internal/database"
	"document-api/internal/deletion"
	"document-api/internal/indexstatus"
	"document-api/internal/metadata"
	"document-api/internal/queue"
	"document-api/internal/queue/workers"
	"document-api/internal/searchindex"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	index := searchindex.NewClient(cfg.Search)
	meta := metadata.NewStore(db)

	dq := deletion.NewQueue(db, cfg.Workers.MaxDeleteAttempts)
	deletionWorker := workers.NewDeletionWorker(
		deletion.NewWorker(dq, index, cfg.Workers.DeletionBatchSize))
	statusWorker := workers.NewIndexStatusWorker(
		indexstatus.NewTracker(meta, index, indexstatus.DefaultStaleAfter))

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	mux := asynq.NewServeMux()
	mux.Handle(queue.TypeDeletionProcess, asynq.HandlerFunc(deletionWorker.ProcessTask))
	mux.Handle(queue.TypeIndexStatusPoll, asynq.HandlerFunc(statusWorker.ProcessTask))

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Workers.Concurrency,
		Queues: map[string]int{
			"default": 1,
		},
	})

	scheduler := asynq.NewScheduler(redisOpt, nil)
	if _, err := scheduler.Register(
		fmt.Sprintf("@every %s", cfg.Workers.DeletionInterval),
		asynq.NewTask(queue.TypeDeletionProcess, nil),
	); err != nil {
		slog.Error("failed to schedule deletion pass", "error", err)
		os.Exit(1)
	}
	if _, err := scheduler.Register(
		fmt.Sprintf("@every %s", cfg.Workers.IndexStatusInterval),
		asynq.NewTask(queue.TypeIndexStatusPoll, nil),
	); err != nil {
		slog.Error("failed to schedule index status pass", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := scheduler.Run(); err != nil {
			slog.Error("scheduler error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("starting worker",
		"concurrency", cfg.Workers.Concurrency,
		"deletion_interval", cfg.Workers.DeletionInterval,
		"index_status_interval", cfg.Workers.IndexStatusInterval,
	)
	if err := srv.Run(mux); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
