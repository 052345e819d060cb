package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/freightbid/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MatchingRuleRepository 匹配规则数据访问接口
type MatchingRuleRepository interface {
	Create(rule *models.MatchingRule) error
	Update(rule *models.MatchingRule) error
	Delete(id, brokerID uint) (int64, error)
	GetByID(id uint) (*models.MatchingRule, error)
	List(filter MatchingRuleListFilter) ([]models.MatchingRule, int64, error)
	ListActiveByBroker(brokerID uint) ([]models.MatchingRule, error)
	IncrementTriggered(id uint) error
	IncrementSuccessful(id uint) error
	WithTx(tx *gorm.DB) *GormMatchingRuleRepository
}

// GormMatchingRuleRepository GORM 匹配规则仓储实现
type GormMatchingRuleRepository struct {
	db *gorm.DB
}

// NewMatchingRuleRepository 创建匹配规则仓储
func NewMatchingRuleRepository(db *gorm.DB) *GormMatchingRuleRepository {
	return &GormMatchingRuleRepository{db: db}
}

// WithTx 绑定事务
func (r *GormMatchingRuleRepository) WithTx(tx *gorm.DB) *GormMatchingRuleRepository {
	if tx == nil {
		return r
	}
	return &GormMatchingRuleRepository{db: tx}
}

// Create 创建规则
func (r *GormMatchingRuleRepository) Create(rule *models.MatchingRule) error {
	return r.db.Create(rule).Error
}

// Update 保存规则
func (r *GormMatchingRuleRepository) Update(rule *models.MatchingRule) error {
	return r.db.Save(rule).Error
}

// Delete 删除经纪人自己的规则
func (r *GormMatchingRuleRepository) Delete(id, brokerID uint) (int64, error) {
	result := r.db.Where("id = ? AND broker_id = ?", id, brokerID).Delete(&models.MatchingRule{})
	return result.RowsAffected, result.Error
}

// GetByID 按ID获取规则
func (r *GormMatchingRuleRepository) GetByID(id uint) (*models.MatchingRule, error) {
	if id == 0 {
		return nil, nil
	}
	rules, err := scanMatchingRules(r.db.Model(&models.MatchingRule{}).Where("id = ?", id).Limit(1))
	if err != nil || len(rules) == 0 {
		return nil, err
	}
	return &rules[0], nil
}

// List 分页查询规则，按评估顺序返回
func (r *GormMatchingRuleRepository) List(filter MatchingRuleListFilter) ([]models.MatchingRule, int64, error) {
	query := r.db.Model(&models.MatchingRule{})
	if filter.BrokerID != 0 {
		query = query.Where("broker_id = ?", filter.BrokerID)
	}
	if filter.OnlyActive {
		query = query.Where("is_active = ?", true)
	}
	if city := strings.TrimSpace(filter.OriginCity); city != "" {
		query = query.Where("LOWER("+jsonTextExpr(r.db, "conditions", "origin_city")+") = ?", strings.ToLower(city))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	rules, err := scanMatchingRules(query.Order("priority desc, created_at asc, id asc"))
	if err != nil {
		return nil, 0, err
	}
	return rules, total, nil
}

// ListActiveByBroker 经纪人的全部启用规则
func (r *GormMatchingRuleRepository) ListActiveByBroker(brokerID uint) ([]models.MatchingRule, error) {
	if brokerID == 0 {
		return nil, nil
	}
	rules, _, err := r.List(MatchingRuleListFilter{BrokerID: brokerID, OnlyActive: true})
	return rules, err
}

// IncrementTriggered 命中次数 +1
func (r *GormMatchingRuleRepository) IncrementTriggered(id uint) error {
	return r.increment(id, "times_triggered")
}

// IncrementSuccessful 成功授标次数 +1
func (r *GormMatchingRuleRepository) IncrementSuccessful(id uint) error {
	return r.increment(id, "successful_matches")
}

func (r *GormMatchingRuleRepository) increment(id uint, column string) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.MatchingRule{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1)).Error
}

// matchingRuleRow 条件列按原始字节读取，单条规则损坏不影响整批查询
type matchingRuleRow struct {
	ID                   uint
	BrokerID             uint
	Name                 string
	Priority             int
	IsActive             bool
	Conditions           []byte
	Action               string
	RequiresConfirmation bool
	TimesTriggered       int64
	SuccessfulMatches    int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func scanMatchingRules(query *gorm.DB) ([]models.MatchingRule, error) {
	var rows []matchingRuleRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	rules := make([]models.MatchingRule, 0, len(rows))
	for _, row := range rows {
		rules = append(rules, row.toModel())
	}
	return rules, nil
}

func (row matchingRuleRow) toModel() models.MatchingRule {
	rule := models.MatchingRule{
		ID:                   row.ID,
		BrokerID:             row.BrokerID,
		Name:                 row.Name,
		Priority:             row.Priority,
		IsActive:             row.IsActive,
		Action:               row.Action,
		RequiresConfirmation: row.RequiresConfirmation,
		TimesTriggered:       row.TimesTriggered,
		SuccessfulMatches:    row.SuccessfulMatches,
		CreatedAt:            row.CreatedAt,
		UpdatedAt:            row.UpdatedAt,
	}
	var conditions models.RuleConditions
	raw := bytes.TrimSpace(row.Conditions)
	if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		if err := json.Unmarshal(raw, &conditions); err != nil {
			rule.ConditionsErr = fmt.Errorf("decode conditions of rule %d: %w", row.ID, err)
			conditions = models.RuleConditions{}
		}
	}
	rule.Conditions = datatypes.NewJSONType(conditions)
	return rule
}
