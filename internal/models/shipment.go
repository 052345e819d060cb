package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Shipment 运单表（竞价标的）
type Shipment struct {
	ID         uint   `gorm:"primarykey" json:"id"`
	ShipmentNo string `gorm:"uniqueIndex;not null" json:"shipment_no"`
	ShipperID  uint   `gorm:"index;not null" json:"shipper_id"`
	BrokerID   *uint  `gorm:"index" json:"broker_id,omitempty"`
	Status     string `gorm:"index;not null" json:"status"`
	Title      string `gorm:"type:varchar(200)" json:"title"`
	Notes      string `gorm:"type:text" json:"notes,omitempty"`

	// 路线与货物属性，供匹配规则使用
	OriginCity      string     `gorm:"index;type:varchar(120)" json:"origin_city"`
	DestinationCity string     `gorm:"index;type:varchar(120)" json:"destination_city"`
	FreightType     string     `gorm:"type:varchar(60)" json:"freight_type"`
	Urgency         string     `gorm:"type:varchar(20)" json:"urgency"`
	DistanceKm      int        `gorm:"not null;default:0" json:"distance_km"`
	PickupAt        *time.Time `json:"pickup_at,omitempty"`

	// 竞价配置；BidExpiresAt 可被防狙击延时推后，但不超过 BidHardCloseAt
	AuctionType            string             `gorm:"type:varchar(20);not null;default:'standard'" json:"auction_type"`
	BiddingDurationMinutes int                `gorm:"not null;default:0" json:"bidding_duration_minutes"`
	BidWindowStartAt       *time.Time         `json:"bid_window_start_at"`
	BidExpiresAt           *time.Time         `gorm:"index" json:"bid_expires_at"`
	BidHardCloseAt         *time.Time         `json:"bid_hard_close_at"`
	ExtensionCount         int                `gorm:"not null;default:0" json:"extension_count"`
	PostedRate             *Money             `gorm:"type:decimal(20,2)" json:"posted_rate,omitempty"`
	ReservePrice           *Money             `gorm:"type:decimal(20,2)" json:"-"`
	BuyItNowPrice          *Money             `gorm:"type:decimal(20,2)" json:"buy_it_now_price,omitempty"`
	AutoAccept             AutoAcceptCriteria `gorm:"embedded;embeddedPrefix:auto_accept_" json:"auto_accept"`
	MarketplaceVisible     bool               `gorm:"not null" json:"marketplace_visible"`

	// 授标结果，只由授标协调器写入一次
	AwardedBidID  *uint      `gorm:"index" json:"awarded_bid_id,omitempty"`
	AwardedAmount *Money     `gorm:"type:decimal(20,2)" json:"awarded_amount,omitempty"`
	AwardTrigger  string     `gorm:"type:varchar(20)" json:"award_trigger,omitempty"`
	AwardedAt     *time.Time `json:"awarded_at,omitempty"`
	SettlementRef string     `gorm:"type:varchar(120)" json:"settlement_ref,omitempty"`

	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	ExpiredAt   *time.Time `json:"expired_at,omitempty"`
	InTransitAt *time.Time `json:"in_transit_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (Shipment) TableName() string {
	return "shipments"
}

// AutoAcceptCriteria 自动接受条件，各项为空表示不限制
type AutoAcceptCriteria struct {
	Enabled         bool             `gorm:"not null;default:false" json:"enabled"`
	MaxPrice        *Money           `gorm:"type:decimal(20,2)" json:"max_price,omitempty"`
	MinRating       *decimal.Decimal `gorm:"type:decimal(4,2)" json:"min_rating,omitempty"`
	MaxDeliveryDays *int             `json:"max_delivery_days,omitempty"`
}
