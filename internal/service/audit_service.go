package service

import (
	"strings"
	"time"

	"github.com/freightbid/internal/models"
	"github.com/freightbid/internal/repository"

	"gorm.io/datatypes"
)

// AuditRecordInput 审计记录输入
type AuditRecordInput struct {
	OperatorUserID uint
	OperatorRole   string
	TargetUserID   *uint
	Action         string
	Role           string
	Object         string
	Method         string
	RequestID      string
	Detail         map[string]interface{}
}

// AuditService 管理操作审计服务
type AuditService struct {
	repo repository.AuditLogRepository
	now  func() time.Time
}

// NewAuditService 创建审计服务
func NewAuditService(repo repository.AuditLogRepository) *AuditService {
	return &AuditService{repo: repo, now: time.Now}
}

// Record 写入审计日志，缺少操作者或动作时忽略
func (s *AuditService) Record(input AuditRecordInput) error {
	if s == nil || s.repo == nil {
		return nil
	}
	if input.OperatorUserID == 0 || strings.TrimSpace(input.Action) == "" {
		return nil
	}

	item := &models.AuditLog{
		OperatorUserID: input.OperatorUserID,
		OperatorRole:   strings.TrimSpace(input.OperatorRole),
		TargetUserID:   input.TargetUserID,
		Action:         strings.TrimSpace(input.Action),
		Role:           strings.TrimSpace(input.Role),
		Object:         strings.TrimSpace(input.Object),
		Method:         strings.ToUpper(strings.TrimSpace(input.Method)),
		RequestID:      strings.TrimSpace(input.RequestID),
		Detail:         datatypes.JSONMap(input.Detail),
		CreatedAt:      s.now(),
	}
	return s.repo.Create(item)
}

// List 查询审计日志
func (s *AuditService) List(filter repository.AuditLogListFilter) ([]models.AuditLog, int64, error) {
	if s == nil || s.repo == nil {
		return []models.AuditLog{}, 0, nil
	}
	filter.Page, filter.PageSize = NormalizePagination(filter.Page, filter.PageSize)
	return s.repo.List(filter)
}
