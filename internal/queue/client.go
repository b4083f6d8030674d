package queue

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"document-api/internal/config"
)

type Client struct {
	client *asynq.Client
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// KickDeletionQueue schedules an immediate deletion-queue pass, ahead of the
// next periodic tick. Used by operators after clearing a backend incident.
func (c *Client) KickDeletionQueue() error {
	return c.enqueue(TypeDeletionProcess, asynq.MaxRetry(1), asynq.Timeout(5*time.Minute))
}

func (c *Client) enqueue(taskType string, opts ...asynq.Option) error {
	task := asynq.NewTask(taskType, nil)
	if _, err := c.client.Enqueue(task, opts...); err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
