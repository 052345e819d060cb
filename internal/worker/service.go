package worker

import (
	"context"
	"errors"
	"time"

	"github.com/freightbid/internal/config"
	"github.com/freightbid/internal/logger"
	"github.com/freightbid/internal/queue"

	"github.com/hibiken/asynq"
)

// Service 异步队列服务
type Service struct {
	name          string
	server        *asynq.Server
	mux           *asynq.ServeMux
	consumer      *Consumer
	sweepInterval time.Duration
}

// NewService 创建异步队列服务
func NewService(cfg *config.Config, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Queue.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(&cfg.Queue)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:          "worker",
		server:        server,
		mux:           mux,
		consumer:      consumer,
		sweepInterval: cfg.Auction.SweepInterval(),
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.AuctionService != nil {
		go RunExpirySweepLoop(ctx, s.consumer, s.sweepInterval)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	s.server.Shutdown()
	return nil
}

// RunExpirySweepLoop 周期扫描到期竞价，兜底延时任务丢失或队列未启用的情况
func RunExpirySweepLoop(ctx context.Context, consumer *Consumer, interval time.Duration) {
	if consumer == nil || consumer.AuctionService == nil {
		return
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	runOnce := func() {
		count, err := consumer.AuctionService.SweepExpired(ctx, consumer.now())
		if err != nil {
			logger.Warnw("worker_auction_sweep_failed", "error", err)
			return
		}
		if count > 0 {
			logger.Infow("worker_auction_sweep_expired", "count", count)
		}
	}
	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
