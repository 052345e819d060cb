package repository

import (
	"github.com/freightbid/internal/models"

	"gorm.io/gorm"
)

// AuditLogRepository 审计日志数据访问接口
type AuditLogRepository interface {
	Create(log *models.AuditLog) error
	List(filter AuditLogListFilter) ([]models.AuditLog, int64, error)
}

// GormAuditLogRepository GORM 实现
type GormAuditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository 创建审计日志仓库
func NewAuditLogRepository(db *gorm.DB) *GormAuditLogRepository {
	return &GormAuditLogRepository{db: db}
}

// Create 写入审计日志
func (r *GormAuditLogRepository) Create(log *models.AuditLog) error {
	if log == nil {
		return nil
	}
	return r.db.Create(log).Error
}

// List 按条件查询审计日志，新记录在前
func (r *GormAuditLogRepository) List(filter AuditLogListFilter) ([]models.AuditLog, int64, error) {
	query := r.db.Model(&models.AuditLog{})
	if filter.OperatorUserID != 0 {
		query = query.Where("operator_user_id = ?", filter.OperatorUserID)
	}
	if filter.TargetUserID != 0 {
		query = query.Where("target_user_id = ?", filter.TargetUserID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	logs := make([]models.AuditLog, 0)
	if err := query.Order("id DESC").Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
