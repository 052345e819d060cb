package events

import (
	"context"
	"encoding/json"

	"github.com/freightbid/internal/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisRelay 通过 Redis Pub/Sub 在多实例之间转发事件
type RedisRelay struct {
	client   *redis.Client
	channel  string
	instance string
	local    Publisher
}

// NewRedisRelay 创建跨实例转发器，local 接收其他实例发来的事件
func NewRedisRelay(client *redis.Client, channel string, local Publisher) *RedisRelay {
	return &RedisRelay{
		client:   client,
		channel:  channel,
		instance: uuid.NewString(),
		local:    local,
	}
}

// Instance 当前实例标识
func (r *RedisRelay) Instance() string {
	return r.instance
}

// Publish 实现 Publisher，将事件广播给其他实例
func (r *RedisRelay) Publish(ctx context.Context, events ...Event) {
	if r == nil || r.client == nil {
		return
	}
	for _, e := range events {
		e.Origin = r.instance
		payload, err := json.Marshal(e)
		if err != nil {
			logger.Warnw("event_relay_marshal_failed", "event_type", e.Type, "error", err)
			continue
		}
		if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
			logger.Warnw("event_relay_publish_failed", "event_type", e.Type, "shipment_id", e.ShipmentID, "error", err)
		}
	}
}

// Run 订阅频道直到 ctx 结束，跳过本实例发出的事件
func (r *RedisRelay) Run(ctx context.Context) error {
	if r == nil || r.client == nil {
		return nil
	}
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle(ctx, msg.Payload)
		}
	}
}

func (r *RedisRelay) handle(ctx context.Context, payload string) {
	var e Event
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		logger.Warnw("event_relay_decode_failed", "error", err)
		return
	}
	if e.Origin == r.instance || r.local == nil {
		return
	}
	r.local.Publish(ctx, e)
}
