package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisNotifier publishes reward events as JSON on a pub/sub channel so the
// realtime gateway can push toasts to connected clients.
type RedisNotifier struct {
	log     *Logger
	rdb     *goredis.Client
	channel string
}

type rewardMessage struct {
	UserID  string      `json:"user_id"`
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
	SentAt  time.Time   `json:"sent_at"`
}

func NewRedisNotifier(ctx context.Context, log *Logger, addr, channel string) (*RedisNotifier, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	if channel == "" {
		channel = "rewards"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisNotifier{
		log:     log.With("service", "RedisNotifier"),
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (n *RedisNotifier) Notify(ctx context.Context, userID, event string, payload interface{}) error {
	raw, err := json.Marshal(rewardMessage{
		UserID:  userID,
		Event:   event,
		Payload: payload,
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if err := n.rdb.Publish(ctx, n.channel, raw).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	n.log.Debug("reward event published", "user_id", userID, "event", event)
	return nil
}

func (n *RedisNotifier) Close() error {
	return n.rdb.Close()
}
