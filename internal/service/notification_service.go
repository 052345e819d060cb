package service

import (
	"context"

	"github.com/freightbid/internal/constants"
	"github.com/freightbid/internal/events"
	"github.com/freightbid/internal/logger"
	"github.com/freightbid/internal/queue"
)

// Notifier 事件对外投递渠道（短信、邮件、推送等由实现方决定）
type Notifier interface {
	Notify(ctx context.Context, event events.Event) error
}

// LogNotifier 只记录日志的投递渠道
type LogNotifier struct{}

// Notify 实现 Notifier
func (LogNotifier) Notify(_ context.Context, event events.Event) error {
	logger.Infow("auction_notification",
		"event_id", event.ID,
		"event_type", event.Type,
		"shipment_id", event.ShipmentID,
		"bid_id", event.BidID,
		"carrier_id", event.CarrierID,
		"broker_id", event.BrokerID,
	)
	return nil
}

// 需要通知到具体参与方的事件
var notifiableEvents = map[string]bool{
	constants.EventOutbid:         true,
	constants.EventBidAwarded:     true,
	constants.EventAuctionExpired: true,
	constants.EventBidRejected:    true,
	constants.EventBrokerNotified: true,
	constants.EventMatchSuggested: true,
}

// NotificationService 通知分发，作为事件发布者挂在事件链路上
type NotificationService struct {
	queueClient *queue.Client
	notifier    Notifier
}

// NewNotificationService 创建通知服务
func NewNotificationService(queueClient *queue.Client, notifier Notifier) *NotificationService {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &NotificationService{
		queueClient: queueClient,
		notifier:    notifier,
	}
}

// Publish 实现 events.Publisher，队列可用时异步投递
func (s *NotificationService) Publish(ctx context.Context, batch ...events.Event) {
	for _, event := range batch {
		if !notifiableEvents[event.Type] {
			continue
		}
		if s.queueClient.Enabled() {
			err := s.queueClient.EnqueueAuctionNotify(queue.AuctionNotifyPayload{Event: event})
			if err == nil {
				continue
			}
			logger.Warnw("notification_enqueue_failed",
				"event_id", event.ID,
				"event_type", event.Type,
				"error", err,
			)
		}
		if err := s.Deliver(ctx, event); err != nil {
			logger.Warnw("notification_deliver_failed",
				"event_id", event.ID,
				"event_type", event.Type,
				"error", err,
			)
		}
	}
}

// Deliver 投递单个事件
func (s *NotificationService) Deliver(ctx context.Context, event events.Event) error {
	return s.notifier.Notify(ctx, event)
}
