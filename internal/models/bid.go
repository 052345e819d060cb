package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bid 报价表，CreatedAt 即提交时间
type Bid struct {
	ID                    uint       `gorm:"primarykey" json:"id"`
	ShipmentID            uint       `gorm:"index:idx_bids_shipment_status,priority:1;not null" json:"shipment_id"`
	CarrierID             uint       `gorm:"index;not null" json:"carrier_id"`
	Amount                Money      `gorm:"type:decimal(20,2);not null" json:"amount"`
	Status                string     `gorm:"index:idx_bids_shipment_status,priority:2;not null" json:"status"`
	EstimatedDeliveryDays *int       `json:"estimated_delivery_days,omitempty"`
	Note                  string     `gorm:"type:varchar(500)" json:"note,omitempty"`
	ResolvedAt            *time.Time `json:"resolved_at,omitempty"`
	CreatedAt             time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`

	// 出价时的承运商快照
	CarrierRating         decimal.Decimal `gorm:"type:decimal(4,2);not null;default:0" json:"carrier_rating"`
	CarrierCompletedLoads int             `gorm:"not null;default:0" json:"carrier_completed_loads"`
}

// TableName 指定表名
func (Bid) TableName() string {
	return "bids"
}

// IsActive 是否仍在竞争中
func (b *Bid) IsActive() bool {
	return b != nil && b.Status == "active"
}
