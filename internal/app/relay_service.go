package app

import (
	"context"
	"errors"

	"github.com/freightbid/internal/events"
	"github.com/freightbid/internal/logger"
)

// RelayService 订阅跨实例事件并投递到本地总线
type RelayService struct {
	relay *events.RedisRelay
	done  chan struct{}
}

// NewRelayService 创建事件转发服务
func NewRelayService(relay *events.RedisRelay) *RelayService {
	return &RelayService{relay: relay, done: make(chan struct{})}
}

// Name 服务名称
func (s *RelayService) Name() string {
	return "event-relay"
}

// Start 阻塞订阅直到 ctx 结束，订阅失败时退化为仅本地推送
func (s *RelayService) Start(ctx context.Context) error {
	if s == nil || s.relay == nil {
		return errors.New("event relay not initialized")
	}
	defer close(s.done)
	if err := s.relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warnw("app_event_relay_failed", "instance", s.relay.Instance(), "error", err)
		<-ctx.Done()
	}
	return nil
}

// Stop 等待订阅退出
func (s *RelayService) Stop(ctx context.Context) error {
	if s == nil || s.relay == nil {
		return nil
	}
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
