package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/freightbid/internal/auction"
	"github.com/freightbid/internal/logger"
	"github.com/freightbid/internal/models"
	"github.com/freightbid/internal/repository"

	"gorm.io/datatypes"
)

// MatchingService 经纪人匹配规则服务
type MatchingService struct {
	ruleRepo repository.MatchingRuleRepository
}

// MatchingRuleInput 规则写入参数
type MatchingRuleInput struct {
	Name                 string
	Priority             int
	IsActive             *bool
	Conditions           models.RuleConditions
	Action               string
	RequiresConfirmation bool
}

// NewMatchingService 创建匹配规则服务
func NewMatchingService(ruleRepo repository.MatchingRuleRepository) *MatchingService {
	return &MatchingService{ruleRepo: ruleRepo}
}

// CreateRule 创建规则
func (s *MatchingService) CreateRule(brokerID uint, input MatchingRuleInput) (*models.MatchingRule, error) {
	if brokerID == 0 {
		return nil, fmt.Errorf("%w: broker required", ErrMatchingRuleInvalid)
	}
	rule := &models.MatchingRule{
		BrokerID: brokerID,
		IsActive: true,
	}
	if err := applyRuleInput(rule, input); err != nil {
		return nil, err
	}
	if err := s.ruleRepo.Create(rule); err != nil {
		return nil, err
	}
	logger.Infow("matching_rule_created",
		"rule_id", rule.ID,
		"broker_id", brokerID,
		"action", rule.Action,
		"priority", rule.Priority,
	)
	return rule, nil
}

// UpdateRule 更新经纪人自己的规则
func (s *MatchingService) UpdateRule(brokerID, ruleID uint, input MatchingRuleInput) (*models.MatchingRule, error) {
	rule, err := s.GetRule(brokerID, ruleID)
	if err != nil {
		return nil, err
	}
	if err := applyRuleInput(rule, input); err != nil {
		return nil, err
	}
	if err := s.ruleRepo.Update(rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// DeleteRule 删除经纪人自己的规则
func (s *MatchingService) DeleteRule(brokerID, ruleID uint) error {
	affected, err := s.ruleRepo.Delete(ruleID, brokerID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrMatchingRuleNotFound
	}
	return nil
}

// GetRule 获取经纪人自己的规则
func (s *MatchingService) GetRule(brokerID, ruleID uint) (*models.MatchingRule, error) {
	rule, err := s.ruleRepo.GetByID(ruleID)
	if err != nil {
		return nil, err
	}
	if rule == nil || rule.BrokerID != brokerID {
		return nil, ErrMatchingRuleNotFound
	}
	return rule, nil
}

// ListRules 分页查询规则
func (s *MatchingService) ListRules(filter repository.MatchingRuleListFilter) ([]models.MatchingRule, int64, error) {
	filter.Page, filter.PageSize = NormalizePagination(filter.Page, filter.PageSize)
	return s.ruleRepo.List(filter)
}

func applyRuleInput(rule *models.MatchingRule, input MatchingRuleInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return fmt.Errorf("%w: name required", ErrMatchingRuleInvalid)
	}
	rule.Name = name
	rule.Priority = input.Priority
	if input.IsActive != nil {
		rule.IsActive = *input.IsActive
	}
	rule.Action = strings.TrimSpace(input.Action)
	rule.RequiresConfirmation = input.RequiresConfirmation
	rule.Conditions = datatypes.NewJSONType(input.Conditions)
	rule.ConditionsErr = nil
	if err := auction.ValidateRule(rule); err != nil {
		if errors.Is(err, auction.ErrRuleMalformed) {
			return fmt.Errorf("%w: %v", ErrMatchingRuleInvalid, err)
		}
		return err
	}
	return nil
}

// Evaluate 按运单所属经纪人的启用规则评估报价
func (s *MatchingService) Evaluate(ctx context.Context, shipment *models.Shipment, bid *models.Bid) (*auction.MatchDecision, error) {
	if shipment == nil || bid == nil || shipment.BrokerID == nil {
		return nil, nil
	}
	rules, err := s.ruleRepo.ListActiveByBroker(*shipment.BrokerID)
	if err != nil {
		return nil, err
	}
	decision, skips := auction.EvaluateRules(shipment, bid, rules)
	for _, skip := range skips {
		logger.Warnw("matching_rule_skipped",
			"rule_id", skip.RuleID,
			"shipment_id", shipment.ID,
			"error", skip.Err,
		)
	}
	return decision, nil
}

// RecordTriggered 记录规则命中，失败只记日志
func (s *MatchingService) RecordTriggered(ruleID uint) {
	if err := s.ruleRepo.IncrementTriggered(ruleID); err != nil {
		logger.Warnw("matching_rule_counter_failed", "rule_id", ruleID, "counter", "times_triggered", "error", err)
	}
}

// RecordSuccess 记录规则促成的授标
func (s *MatchingService) RecordSuccess(ruleID uint) {
	if err := s.ruleRepo.IncrementSuccessful(ruleID); err != nil {
		logger.Warnw("matching_rule_counter_failed", "rule_id", ruleID, "counter", "successful_matches", "error", err)
	}
}
