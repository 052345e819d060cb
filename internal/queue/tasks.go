package queue

import (
	"encoding/json"
	"fmt"

	"github.com/freightbid/internal/constants"
	"github.com/freightbid/internal/events"

	"github.com/hibiken/asynq"
)

const (
	// TaskAuctionExpire 截标到期检查任务
	TaskAuctionExpire = constants.TaskAuctionExpire
	// TaskAuctionSettle 授标后结算任务
	TaskAuctionSettle = constants.TaskAuctionSettle
	// TaskAuctionNotify 竞价事件通知投递任务
	TaskAuctionNotify = constants.TaskAuctionNotify
)

// AuctionExpirePayload 截标到期任务载荷
type AuctionExpirePayload struct {
	ShipmentID uint  `json:"shipment_id"`
	ExpiresAt  int64 `json:"expires_at"` // Unix 秒，用于任务去重
}

// AuctionSettlePayload 结算任务载荷
type AuctionSettlePayload struct {
	ShipmentID uint   `json:"shipment_id"`
	BidID      uint   `json:"bid_id"`
	Amount     string `json:"amount"`
}

// AuctionNotifyPayload 事件通知任务载荷
type AuctionNotifyPayload struct {
	Event events.Event `json:"event"`
}

// NewAuctionExpireTask 创建截标到期任务
func NewAuctionExpireTask(payload AuctionExpirePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuctionExpire, body), nil
}

// NewAuctionSettleTask 创建结算任务
func NewAuctionSettleTask(payload AuctionSettlePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuctionSettle, body), nil
}

// NewAuctionNotifyTask 创建事件通知任务
func NewAuctionNotifyTask(payload AuctionNotifyPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuctionNotify, body), nil
}

func expireTaskID(payload AuctionExpirePayload) string {
	return fmt.Sprintf("expire:%d:%d", payload.ShipmentID, payload.ExpiresAt)
}

func settleTaskID(payload AuctionSettlePayload) string {
	return fmt.Sprintf("settle:%d:%d", payload.ShipmentID, payload.BidID)
}
