package public

import (
	"strings"

	handlershared "github.com/freightbid/internal/http/handlers/shared"
	"github.com/freightbid/internal/http/response"
	"github.com/freightbid/internal/models"
	"github.com/freightbid/internal/repository"
	"github.com/freightbid/internal/service"

	"github.com/gin-gonic/gin"
)

// MatchingRuleRequest 匹配规则写入请求
type MatchingRuleRequest struct {
	Name                 string                `json:"name" binding:"required"`
	Priority             int                   `json:"priority"`
	IsActive             *bool                 `json:"is_active"`
	Conditions           models.RuleConditions `json:"conditions"`
	Action               string                `json:"action" binding:"required"`
	RequiresConfirmation bool                  `json:"requires_confirmation"`
}

func (r MatchingRuleRequest) toInput() service.MatchingRuleInput {
	return service.MatchingRuleInput{
		Name:                 strings.TrimSpace(r.Name),
		Priority:             r.Priority,
		IsActive:             r.IsActive,
		Conditions:           r.Conditions,
		Action:               strings.TrimSpace(r.Action),
		RequiresConfirmation: r.RequiresConfirmation,
	}
}

// ListMatchingRules 经纪人的匹配规则列表
func (h *Handler) ListMatchingRules(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePage(c)
	rules, total, err := h.MatchingService.ListRules(repository.MatchingRuleListFilter{
		Page:       page,
		PageSize:   pageSize,
		BrokerID:   actor.UserID,
		OnlyActive: c.Query("active") == "true",
		OriginCity: strings.TrimSpace(c.Query("origin_city")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.matching_rule_failed", err)
		return
	}
	response.SuccessWithPage(c, rules, response.BuildPagination(page, pageSize, total))
}

// CreateMatchingRule 新建匹配规则
func (h *Handler) CreateMatchingRule(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	var req MatchingRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	rule, err := h.MatchingService.CreateRule(actor.UserID, req.toInput())
	if err != nil {
		respondMatchingRuleError(c, err)
		return
	}
	response.Success(c, rule)
}

// GetMatchingRule 规则详情
func (h *Handler) GetMatchingRule(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	ruleID, ok := parseIDParam(c)
	if !ok {
		return
	}
	rule, err := h.MatchingService.GetRule(actor.UserID, ruleID)
	if err != nil {
		respondMatchingRuleError(c, err)
		return
	}
	response.Success(c, rule)
}

// UpdateMatchingRule 更新匹配规则
func (h *Handler) UpdateMatchingRule(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	ruleID, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req MatchingRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	rule, err := h.MatchingService.UpdateRule(actor.UserID, ruleID, req.toInput())
	if err != nil {
		respondMatchingRuleError(c, err)
		return
	}
	response.Success(c, rule)
}

// DeleteMatchingRule 删除匹配规则
func (h *Handler) DeleteMatchingRule(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	ruleID, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.MatchingService.DeleteRule(actor.UserID, ruleID); err != nil {
		respondMatchingRuleError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}
