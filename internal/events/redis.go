// Package events publishes catalog analytics events on a Redis pub/sub
// channel. Delivery is best-effort: failures are logged and dropped.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"jobmate/catalog-service/internal/catalog"
)

// DefaultChannel is the channel consumed by the gateway's SSE bridge.
const DefaultChannel = "EVENT_CATALOG"

const publishTimeout = 2 * time.Second

// redisPublisher is the subset of *redis.Client used here.
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisPublisher implements catalog.Publisher.
type RedisPublisher struct {
	rdb     redisPublisher
	channel string
	logger  *slog.Logger
}

// NewRedisPublisher returns a publisher writing to channel, or to
// DefaultChannel when channel is empty.
func NewRedisPublisher(rdb redisPublisher, channel string, logger *slog.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisPublisher{rdb: rdb, channel: channel, logger: logger}
}

// Publish sends ev. The request context's cancellation is ignored so an
// event survives a client disconnecting right after its write succeeded.
func (p *RedisPublisher) Publish(ctx context.Context, ev catalog.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.logger.Warn("encode event failed", "type", ev.Type, "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.logger.Warn("publish event failed", "channel", p.channel, "type", ev.Type, "err", err)
	}
}
