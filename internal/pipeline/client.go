package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"autolead_backend/platform/config"
)

// Processing stays bounded: two AI calls at 30s each plus storage leaves
// headroom inside two minutes.
const processTimeout = 2 * time.Minute

// Client enqueues pipeline tasks from the API process.
type Client struct {
	client *asynq.Client
}

// NewClient creates the task queue client.
func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}
	return &Client{client: asynq.NewClient(opt)}, nil
}

// Close releases the underlying redis connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueProcess schedules the async stages for a stored inquiry.
func (c *Client) EnqueueProcess(ctx context.Context, inquiryID uuid.UUID) error {
	task, err := NewProcessTask(ProcessPayload{InquiryID: inquiryID.String()})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(5),
		asynq.Timeout(processTimeout),
	)
	return err
}

// EnqueueReprocess schedules re-classification of a stored inquiry.
func (c *Client) EnqueueReprocess(ctx context.Context, inquiryID uuid.UUID) error {
	task, err := NewReprocessTask(ProcessPayload{InquiryID: inquiryID.String()})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(2),
		asynq.Timeout(processTimeout),
	)
	return err
}

// EnqueueNotify requests the downstream notification for a committed lead.
func (c *Client) EnqueueNotify(ctx context.Context, leadID, inquiryID uuid.UUID) error {
	task, err := NewNotifyTask(NotifyPayload{
		LeadID:    leadID.String(),
		InquiryID: inquiryID.String(),
	})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(3),
		asynq.Timeout(processTimeout),
	)
	return err
}

func redisClientOpt(redisURL string) (asynq.RedisClientOpt, error) {
	if redisURL == "" {
		return asynq.RedisClientOpt{}, fmt.Errorf("redis url not configured")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}
