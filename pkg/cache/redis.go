package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seacliff-digital/reportpilot/pkg/config"
)

// NewRedis returns a configured Redis client.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}

// SeenStore records message IDs that have already been ingested so a
// crashed run that never managed to label a message does not re-process it.
type SeenStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSeenStore wraps a Redis client as a processed-message cache.
func NewSeenStore(client *redis.Client, ttl time.Duration) *SeenStore {
	if ttl <= 0 {
		ttl = 90 * 24 * time.Hour
	}
	return &SeenStore{client: client, ttl: ttl}
}

// Seen reports whether the message ID has been recorded.
func (s *SeenStore) Seen(ctx context.Context, messageID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(messageID)).Result()
	if err != nil {
		return false, fmt.Errorf("check seen message: %w", err)
	}
	return n > 0, nil
}

// Mark records the message ID with the configured TTL.
func (s *SeenStore) Mark(ctx context.Context, messageID string) error {
	if err := s.client.Set(ctx, s.key(messageID), "1", s.ttl).Err(); err != nil {
		return fmt.Errorf("mark seen message: %w", err)
	}
	return nil
}

func (s *SeenStore) key(messageID string) string {
	return "reportpilot:seen:" + messageID
}
