package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/freightbid/internal/logger"
	"github.com/freightbid/internal/provider"
	"github.com/freightbid/internal/queue"
	"github.com/freightbid/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
	now func() time.Time
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
		now:       time.Now,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskAuctionExpire, c.handleAuctionExpire)
	mux.HandleFunc(queue.TaskAuctionSettle, c.handleAuctionSettle)
	mux.HandleFunc(queue.TaskAuctionNotify, c.handleAuctionNotify)
}

func (c *Consumer) handleAuctionExpire(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.AuctionService == nil {
		logger.Debugw("worker_auction_expire_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.AuctionExpirePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_auction_expire_unmarshal_failed", "error", err)
		return err
	}
	if payload.ShipmentID == 0 {
		logger.Debugw("worker_auction_expire_skip_invalid_payload", "shipment_id", payload.ShipmentID)
		return nil
	}
	expired, err := c.AuctionService.ExpireIfDue(ctx, payload.ShipmentID, c.now())
	if err != nil {
		if errors.Is(err, service.ErrShipmentNotFound) {
			logger.Debugw("worker_auction_expire_skip_not_found", "shipment_id", payload.ShipmentID)
			return nil
		}
		logger.Warnw("worker_auction_expire_failed", "shipment_id", payload.ShipmentID, "error", err)
		return err
	}
	logger.Debugw("worker_auction_expire_checked", "shipment_id", payload.ShipmentID, "expired", expired)
	return nil
}

func (c *Consumer) handleAuctionSettle(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.SettlementService == nil {
		logger.Debugw("worker_auction_settle_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.AuctionSettlePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_auction_settle_unmarshal_failed", "error", err)
		return err
	}
	if payload.ShipmentID == 0 || payload.BidID == 0 {
		logger.Debugw("worker_auction_settle_skip_invalid_payload", "shipment_id", payload.ShipmentID, "bid_id", payload.BidID)
		return nil
	}
	if err := c.SettlementService.Settle(ctx, payload.ShipmentID, payload.BidID); err != nil {
		switch {
		case errors.Is(err, service.ErrShipmentNotFound), errors.Is(err, service.ErrBidNotFound):
			logger.Warnw("worker_auction_settle_skip_not_found", "shipment_id", payload.ShipmentID, "bid_id", payload.BidID)
			return nil
		default:
			// 交给 asynq 重试
			logger.Warnw("worker_auction_settle_failed", "shipment_id", payload.ShipmentID, "bid_id", payload.BidID, "error", err)
			return err
		}
	}
	return nil
}

func (c *Consumer) handleAuctionNotify(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.NotificationService == nil {
		logger.Debugw("worker_auction_notify_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.AuctionNotifyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_auction_notify_unmarshal_failed", "error", err)
		return err
	}
	if payload.Event.Type == "" {
		logger.Debugw("worker_auction_notify_skip_invalid_payload", "event_id", payload.Event.ID)
		return nil
	}
	if err := c.NotificationService.Deliver(ctx, payload.Event); err != nil {
		logger.Warnw("worker_auction_notify_failed",
			"event_id", payload.Event.ID,
			"event_type", payload.Event.Type,
			"error", err,
		)
		return err
	}
	return nil
}
