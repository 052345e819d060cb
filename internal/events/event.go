package events

import (
	"context"
	"strconv"
	"time"

	"github.com/freightbid/internal/constants"
	"github.com/freightbid/internal/models"

	"github.com/google/uuid"
)

// Event 竞价领域事件，只在事务提交后发布
type Event struct {
	ID         string        `json:"id"`
	Type       string        `json:"type"`
	ShipmentID uint          `json:"shipment_id"`
	BidID      uint          `json:"bid_id,omitempty"`
	CarrierID  uint          `json:"carrier_id,omitempty"`
	BrokerID   uint          `json:"broker_id,omitempty"`
	RuleID     uint          `json:"rule_id,omitempty"`
	Amount     *models.Money `json:"amount,omitempty"`
	Trigger    string        `json:"trigger,omitempty"`
	OldExpiry  *time.Time    `json:"old_expiry,omitempty"`
	NewExpiry  *time.Time    `json:"new_expiry,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
	Origin     string        `json:"origin,omitempty"`
}

// Topic 事件所属的运单主题
func (e Event) Topic() string {
	return ShipmentTopic(e.ShipmentID)
}

// ShipmentTopic 运单主题名
func ShipmentTopic(shipmentID uint) string {
	return "shipment:" + strconv.FormatUint(uint64(shipmentID), 10)
}

// Publisher 事件发布接口
type Publisher interface {
	Publish(ctx context.Context, events ...Event)
}

// PublisherFunc 函数适配器
type PublisherFunc func(ctx context.Context, events ...Event)

// Publish 实现 Publisher
func (f PublisherFunc) Publish(ctx context.Context, events ...Event) {
	f(ctx, events...)
}

// Nop 丢弃全部事件
var Nop Publisher = PublisherFunc(func(context.Context, ...Event) {})

// Multi 依次转发给多个发布者
func Multi(publishers ...Publisher) Publisher {
	list := make([]Publisher, 0, len(publishers))
	for _, p := range publishers {
		if p != nil {
			list = append(list, p)
		}
	}
	return PublisherFunc(func(ctx context.Context, events ...Event) {
		for _, p := range list {
			p.Publish(ctx, events...)
		}
	})
}

func newEvent(eventType string, shipmentID uint, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		ShipmentID: shipmentID,
		OccurredAt: at,
	}
}

// BidPlaced 出价成功
func BidPlaced(bid *models.Bid, at time.Time) Event {
	e := newEvent(constants.EventBidPlaced, bid.ShipmentID, at)
	e.BidID = bid.ID
	e.CarrierID = bid.CarrierID
	amount := bid.Amount
	e.Amount = &amount
	return e
}

// Outbid 报价被取代
func Outbid(bid *models.Bid, reason string, at time.Time) Event {
	e := newEvent(constants.EventOutbid, bid.ShipmentID, at)
	e.BidID = bid.ID
	e.CarrierID = bid.CarrierID
	e.Reason = reason
	return e
}

// AuctionExtended 截标时间被顺延
func AuctionExtended(shipmentID uint, oldExpiry, newExpiry time.Time, at time.Time) Event {
	e := newEvent(constants.EventAuctionExtended, shipmentID, at)
	e.OldExpiry = &oldExpiry
	e.NewExpiry = &newExpiry
	return e
}

// BidAwarded 授标完成
func BidAwarded(bid *models.Bid, trigger string, at time.Time) Event {
	e := newEvent(constants.EventBidAwarded, bid.ShipmentID, at)
	e.BidID = bid.ID
	e.CarrierID = bid.CarrierID
	amount := bid.Amount
	e.Amount = &amount
	e.Trigger = trigger
	return e
}

// AuctionExpired 流拍或授标超时
func AuctionExpired(shipmentID uint, reason string, at time.Time) Event {
	e := newEvent(constants.EventAuctionExpired, shipmentID, at)
	e.Reason = reason
	return e
}

// BidRejected 运单取消导致报价被拒
func BidRejected(bid *models.Bid, reason string, at time.Time) Event {
	e := newEvent(constants.EventBidRejected, bid.ShipmentID, at)
	e.BidID = bid.ID
	e.CarrierID = bid.CarrierID
	e.Reason = reason
	return e
}

// BidWithdrawn 承运商撤回报价
func BidWithdrawn(bid *models.Bid, at time.Time) Event {
	e := newEvent(constants.EventBidWithdrawn, bid.ShipmentID, at)
	e.BidID = bid.ID
	e.CarrierID = bid.CarrierID
	return e
}

// ShipmentCancelled 运单取消
func ShipmentCancelled(shipmentID uint, at time.Time) Event {
	return newEvent(constants.EventShipmentCancelled, shipmentID, at)
}

// RuleMatched 匹配规则命中后的通知或建议
func RuleMatched(eventType string, bid *models.Bid, brokerID, ruleID uint, at time.Time) Event {
	e := newEvent(eventType, bid.ShipmentID, at)
	e.BidID = bid.ID
	e.CarrierID = bid.CarrierID
	e.BrokerID = brokerID
	e.RuleID = ruleID
	amount := bid.Amount
	e.Amount = &amount
	return e
}
