package events

import (
	"context"
	"sync"

	"github.com/freightbid/internal/constants"
	"github.com/freightbid/internal/logger"
)

const defaultSubscriberBuffer = 64

// Bus 进程内事件总线，按运单主题分发
// 订阅者消费过慢时丢弃事件而不阻塞发布方
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscription]struct{}
	buffer int
}

type subscription struct {
	ch     chan Event
	closed bool
}

// NewBus 创建事件总线
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &Bus{
		subs:   make(map[string]map[*subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe 订阅主题，topic 为 constants.EventTopicAll 时接收全部事件
func (b *Bus) Subscribe(topic string) (<-chan Event, func()) {
	sub := &subscription{ch: make(chan Event, b.buffer)}

	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[*subscription]struct{})
	}
	b.subs[topic][sub] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if set, ok := b.subs[topic]; ok {
				delete(set, sub)
				if len(set) == 0 {
					delete(b.subs, topic)
				}
			}
			sub.closed = true
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Publish 实现 Publisher
func (b *Bus) Publish(_ context.Context, events ...Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, e := range events {
		b.deliver(e.Topic(), e)
		b.deliver(constants.EventTopicAll, e)
	}
}

func (b *Bus) deliver(topic string, e Event) {
	for sub := range b.subs[topic] {
		if sub.closed {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			logger.Warnw("event_bus_subscriber_full", "topic", topic, "event_type", e.Type, "event_id", e.ID)
		}
	}
}

// SubscriberCount 主题当前订阅数
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
