package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CarrierProfile 承运商档案（外部档案服务的只读投影）
type CarrierProfile struct {
	CarrierID      uint            `gorm:"primarykey;autoIncrement:false" json:"carrier_id"`
	DisplayName    string          `gorm:"type:varchar(120)" json:"display_name"`
	Rating         decimal.Decimal `gorm:"type:decimal(4,2);not null;default:0" json:"rating"`
	CompletedLoads int             `gorm:"not null;default:0" json:"completed_loads"`
	OnTimeRate     decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"on_time_rate"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TableName 指定表名
func (CarrierProfile) TableName() string {
	return "carrier_profiles"
}
