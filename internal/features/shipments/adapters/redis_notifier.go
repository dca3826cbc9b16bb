package adapters

import (
	"context"
	"encoding/json"
	"time"

	"shipsync/internal/core/logger"
	"shipsync/internal/features/shipments/domain"
	"shipsync/internal/features/shipments/ports"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// transitionMessage is the published notification payload. Downstream
// email/SMS workers subscribe to the channel and handle delivery.
type transitionMessage struct {
	OrderKey   string `json:"order_key"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
	OccurredAt string `json:"occurred_at"`
}

// RedisNotifier implements ports.TransitionNotifier via redis pub/sub.
// Publishing is fire-and-forget: a failed publish is logged, never
// surfaced, so notification problems cannot stall reconciliation.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	log     *zap.Logger
}

// NewRedisNotifier creates a notifier publishing on the given channel.
func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{
		client:  client,
		channel: channel,
		log:     logger.Get(),
	}
}

// NewRedisNotifierFromURL creates a notifier with its own connection.
func NewRedisNotifierFromURL(redisURL, channel string) (*RedisNotifier, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return NewRedisNotifier(redis.NewClient(opts), channel), nil
}

// StatusChanged publishes one transition notification.
func (n *RedisNotifier) StatusChanged(ctx context.Context, orderKey string, from, to domain.CanonicalStatus) {
	msg := transitionMessage{
		OrderKey:   orderKey,
		FromStatus: from.String(),
		ToStatus:   to.String(),
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		n.log.Error("Failed to marshal transition notification", zap.Error(err))
		return
	}

	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		n.log.Warn("Failed to publish transition notification",
			zap.String("order_key", orderKey),
			zap.String("to_status", to.String()),
			zap.Error(err),
		)
	}
}

var _ ports.TransitionNotifier = (*RedisNotifier)(nil)
