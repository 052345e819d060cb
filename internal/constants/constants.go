package constants

// 运单状态常量
const (
	ShipmentStatusDraft          = "draft"
	ShipmentStatusOpenForBidding = "open_for_bidding"
	ShipmentStatusBidAwarded     = "bid_awarded"
	ShipmentStatusInTransit      = "in_transit"
	ShipmentStatusDelivered      = "delivered"
	ShipmentStatusCancelled      = "cancelled"
	ShipmentStatusExpired        = "expired"
)

// 竞价方式常量
const (
	AuctionTypeStandard  = "standard"
	AuctionTypeBuyItNow  = "buy_it_now"
	AuctionTypeBestOffer = "best_offer"
)

// 报价状态常量
const (
	BidStatusActive    = "active"
	BidStatusOutbid    = "outbid"
	BidStatusAwarded   = "awarded"
	BidStatusRejected  = "rejected"
	BidStatusWithdrawn = "withdrawn"
	BidStatusExpired   = "expired"
)

// 授标触发方式常量
const (
	AwardTriggerManual       = "manual"
	AwardTriggerAutoAccept   = "auto_accept"
	AwardTriggerBuyItNow     = "buy_it_now"
	AwardTriggerMatchingRule = "matching_rule"
)

// 匹配规则动作常量
const (
	RuleActionAutoAssign   = "auto_assign"
	RuleActionNotifyBroker = "notify_broker"
	RuleActionSuggestOnly  = "suggest_only"
)

// 紧急程度常量
const (
	UrgencyStandard = "standard"
	UrgencyExpress  = "express"
	UrgencyUrgent   = "urgent"
)

// 用户角色常量
const (
	RoleShipper = "shipper"
	RoleCarrier = "carrier"
	RoleBroker  = "broker"
	RoleAdmin   = "admin"
)

// 领域事件类型常量
const (
	EventBidPlaced         = "bid_placed"
	EventOutbid            = "outbid"
	EventAuctionExtended   = "auction_extended"
	EventBidAwarded        = "bid_awarded"
	EventAuctionExpired    = "auction_expired"
	EventBidRejected       = "bid_rejected"
	EventBidWithdrawn      = "bid_withdrawn"
	EventShipmentCancelled = "shipment_cancelled"
	EventBrokerNotified    = "broker_notified"
	EventMatchSuggested    = "match_suggested"
)

// 通配主题，订阅全部运单事件
const EventTopicAll = "*"

// 队列名称常量
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// 异步任务类型常量
const (
	TaskAuctionExpire = "auction:expire"
	TaskAuctionSettle = "auction:settle"
	TaskAuctionNotify = "auction:notify"
)
