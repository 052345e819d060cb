package worker

import (
	"context"
	"errors"
	"time"
)

// SweepService 队列关闭时在进程内运行过期扫描
type SweepService struct {
	consumer *Consumer
	interval time.Duration
	done     chan struct{}
}

// NewSweepService 创建进程内扫描服务
func NewSweepService(consumer *Consumer, interval time.Duration) *SweepService {
	return &SweepService{consumer: consumer, interval: interval, done: make(chan struct{})}
}

// Name 服务名称
func (s *SweepService) Name() string {
	return "expiry-sweep"
}

// Start 阻塞运行扫描循环直到 ctx 结束
func (s *SweepService) Start(ctx context.Context) error {
	if s == nil || s.consumer == nil || s.consumer.AuctionService == nil {
		return errors.New("sweep service not initialized")
	}
	defer close(s.done)
	RunExpirySweepLoop(ctx, s.consumer, s.interval)
	return nil
}

// Stop 等待当前一轮扫描结束
func (s *SweepService) Stop(ctx context.Context) error {
	if s == nil || s.consumer == nil || s.consumer.AuctionService == nil {
		return nil
	}
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
