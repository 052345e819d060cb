package repository

import (
	"time"

	"gorm.io/gorm"
)

// ShipmentListFilter 查询运单列表的过滤条件
type ShipmentListFilter struct {
	Page            int
	PageSize        int
	ShipperID       uint
	BrokerID        uint
	Status          string
	Search          string
	OnlyMarketplace bool
}

// BidListFilter 查询报价列表的过滤条件
type BidListFilter struct {
	Page       int
	PageSize   int
	CarrierID  uint
	ShipmentID uint
	Status     string
}

// MatchingRuleListFilter 查询匹配规则的过滤条件
type MatchingRuleListFilter struct {
	Page       int
	PageSize   int
	BrokerID   uint
	OnlyActive bool
	OriginCity string
}

// ExpiryCandidateFilter 过期扫描条件
type ExpiryCandidateFilter struct {
	// 截标早于该时间且无有效报价
	ClosedBefore time.Time
	// 截标早于该时间，无论是否有报价（授标超时），为空时不启用
	StaleBefore *time.Time
	Limit       int
}

// AuditLogListFilter 审计日志查询条件
type AuditLogListFilter struct {
	Page           int
	PageSize       int
	OperatorUserID uint
	TargetUserID   uint
	Action         string
	Role           string
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
}

// applyPagination 分页为空时返回全部，调用方负责归一化页码
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if page < 1 {
		page = 1
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}
