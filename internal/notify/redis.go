package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/miadabdi/streamy/internal/lifecycle"
)

// DefaultChannel is the pub/sub channel status events are published on.
const DefaultChannel = "video-status"

// statusEvent is the wire shape subscribers receive.
type statusEvent struct {
	VideoID  int64  `json:"videoId"`
	PublicID string `json:"publicVideoId"`
	Status   string `json:"status"`
}

// RedisNotifier publishes status events to a redis channel.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

// NewRedisNotifier connects to redis and verifies the connection before
// returning.
func NewRedisNotifier(ctx context.Context, addr, password, channel string) (*RedisNotifier, error) {
	if channel == "" {
		channel = DefaultChannel
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &RedisNotifier{client: client, channel: channel}, nil
}

func (n *RedisNotifier) StatusChanged(ctx context.Context, assetID int64, publicID string, status lifecycle.Status) error {
	payload, err := json.Marshal(statusEvent{
		VideoID:  assetID,
		PublicID: publicID,
		Status:   string(status),
	})
	if err != nil {
		return fmt.Errorf("encode status event: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish status event: %w", err)
	}
	return nil
}

func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
