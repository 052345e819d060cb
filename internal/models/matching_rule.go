package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// MatchingRule 经纪人匹配规则表
type MatchingRule struct {
	ID                   uint                               `gorm:"primarykey" json:"id"`
	BrokerID             uint                               `gorm:"index;not null" json:"broker_id"`
	Name                 string                             `gorm:"type:varchar(120);not null" json:"name"`
	Priority             int                                `gorm:"index;not null;default:0" json:"priority"`
	IsActive             bool                               `gorm:"index;not null" json:"is_active"`
	Conditions           datatypes.JSONType[RuleConditions] `gorm:"type:json" json:"conditions"`
	Action               string                             `gorm:"type:varchar(20);not null" json:"action"`
	RequiresConfirmation bool                               `gorm:"not null;default:false" json:"requires_confirmation"`
	TimesTriggered       int64                              `gorm:"not null;default:0" json:"times_triggered"`
	SuccessfulMatches    int64                              `gorm:"not null;default:0" json:"successful_matches"`
	CreatedAt            time.Time                          `gorm:"index" json:"created_at"`
	UpdatedAt            time.Time                          `json:"updated_at"`

	// ConditionsErr 读取时条件无法解析，该规则在评估时被跳过
	ConditionsErr error `gorm:"-" json:"-"`
}

// TableName 指定表名
func (MatchingRule) TableName() string {
	return "matching_rules"
}

// RuleConditions 匹配条件，零值字段为通配
type RuleConditions struct {
	OriginCity          string           `json:"origin_city,omitempty"`
	DestinationCity     string           `json:"destination_city,omitempty"`
	MinCarrierRating    *decimal.Decimal `json:"min_carrier_rating,omitempty"`
	MaxCarrierRating    *decimal.Decimal `json:"max_carrier_rating,omitempty"`
	PreferredCarrierIDs []uint           `json:"preferred_carrier_ids,omitempty"`
	MinMarginPercent    *decimal.Decimal `json:"min_margin_percent,omitempty"`
	MaxBidAmount        *Money           `json:"max_bid_amount,omitempty"`
	FreightTypes        []string         `json:"freight_types,omitempty"`
	Urgency             string           `json:"urgency,omitempty"`
	MaxDistanceKm       *int             `json:"max_distance_km,omitempty"`
}
