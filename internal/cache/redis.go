// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/circle/internal/models"
	"github.com/redis/go-redis/v9"
)

// ErrDisabled is returned by operations that cannot be skipped when Redis is not configured.
var ErrDisabled = errors.New("redis is not configured")

// Default queue names, overridable through Options.
const (
	DefaultActivityQueue = "circle_activity"
	DefaultMailQueue     = "circle_mail"
)

// Options configures a Client.
type Options struct {
	Addr          string
	DB            int
	ActivityQueue string
	MailQueue     string
	SuggestionTTL time.Duration
}

// Client wraps Redis for the suggestion cache, the activity queue and the mail
// outbox. A nil *Client is valid and behaves as a disabled cache.
type Client struct {
	rdb           *redis.Client
	activityQueue string
	mailQueue     string
	suggestionTTL time.Duration
}

// Connect creates a client for opts.Addr and pings it.
func Connect(ctx context.Context, opts Options) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: opts.Addr,
		DB:   opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}
	return New(rdb, opts), nil
}

// New wraps an existing go-redis client.
func New(rdb *redis.Client, opts Options) *Client {
	c := &Client{
		rdb:           rdb,
		activityQueue: opts.ActivityQueue,
		mailQueue:     opts.MailQueue,
		suggestionTTL: opts.SuggestionTTL,
	}
	if c.activityQueue == "" {
		c.activityQueue = DefaultActivityQueue
	}
	if c.mailQueue == "" {
		c.mailQueue = DefaultMailQueue
	}
	if c.suggestionTTL <= 0 {
		c.suggestionTTL = time.Minute
	}
	return c
}

// Redis exposes the underlying client, e.g. for the historian consumer.
func (c *Client) Redis() *redis.Client {
	if c == nil {
		return nil
	}
	return c.rdb
}

func (c *Client) ActivityQueue() string {
	if c == nil {
		return DefaultActivityQueue
	}
	return c.activityQueue
}

func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}

// PublishActivity serializes the record to JSON and pushes it onto the activity queue.
// It is a no-op when Redis is disabled.
func (c *Client) PublishActivity(ctx context.Context, record models.ActivityRecord) error {
	if c == nil {
		return nil
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Timestamp == 0 {
		record.Timestamp = time.Now().UnixMilli()
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal ActivityRecord: %w", err)
	}
	if err := c.rdb.RPush(ctx, c.activityQueue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", c.activityQueue, err)
	}
	return nil
}

// QueueMail pushes a job onto the mail outbox for the external mail sender.
func (c *Client) QueueMail(ctx context.Context, job models.MailJob) error {
	if c == nil {
		return ErrDisabled
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal MailJob: %w", err)
	}
	if err := c.rdb.RPush(ctx, c.mailQueue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", c.mailQueue, err)
	}
	return nil
}

func suggestionKey(userID uuid.UUID) string {
	return "suggestions:" + userID.String()
}

// GetSuggestions returns the cached suggestion ids for userID. ok is false on a miss.
func (c *Client) GetSuggestions(ctx context.Context, userID uuid.UUID) (ids []uuid.UUID, ok bool, err error) {
	if c == nil {
		return nil, false, nil
	}
	data, err := c.rdb.Get(ctx, suggestionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, false, fmt.Errorf("corrupt suggestion cache for %v: %w", userID, err)
	}
	return ids, true, nil
}

// SetSuggestions caches ids for userID for the suggestion TTL.
func (c *Client) SetSuggestions(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	if c == nil {
		return nil
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, suggestionKey(userID), data, c.suggestionTTL).Err()
}

// InvalidateSuggestions drops the cached suggestions of every given user.
func (c *Client) InvalidateSuggestions(ctx context.Context, userIDs ...uuid.UUID) error {
	if c == nil || len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = suggestionKey(id)
	}
	return c.rdb.Del(ctx, keys...).Err()
}
