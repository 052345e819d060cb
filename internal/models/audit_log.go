package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog 管理操作审计日志
// 说明：记录角色策略变更、承运商档案维护、手动扫描等后台操作，支持按操作者与时间范围检索。
type AuditLog struct {
	ID             uint              `gorm:"primarykey" json:"id"`
	OperatorUserID uint              `gorm:"index;not null" json:"operator_user_id"`
	OperatorRole   string            `gorm:"type:varchar(32);index;not null;default:''" json:"operator_role"`
	TargetUserID   *uint             `gorm:"index" json:"target_user_id,omitempty"`
	Action         string            `gorm:"type:varchar(100);index;not null" json:"action"`
	Role           string            `gorm:"type:varchar(120);index;not null;default:''" json:"role"`
	Object         string            `gorm:"type:varchar(255);index;not null;default:''" json:"object"`
	Method         string            `gorm:"type:varchar(20);index;not null;default:''" json:"method"`
	RequestID      string            `gorm:"type:varchar(64);index;not null;default:''" json:"request_id"`
	Detail         datatypes.JSONMap `gorm:"type:json" json:"detail"`
	CreatedAt      time.Time         `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (AuditLog) TableName() string {
	return "audit_logs"
}
