package auction

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/freightbid/internal/constants"
	"github.com/freightbid/internal/models"

	"github.com/shopspring/decimal"
)

// ErrRuleMalformed 匹配规则配置不合法
var ErrRuleMalformed = errors.New("matching rule malformed")

var (
	ratingFloor   = decimal.Zero
	ratingCeiling = decimal.NewFromInt(5)
	hundred       = decimal.NewFromInt(100)
)

// MatchDecision 规则命中结果
type MatchDecision struct {
	Rule *models.MatchingRule
	// Action 实际执行的动作，需要确认的 auto_assign 降级为 notify_broker
	Action string
}

// RuleSkip 评估时被跳过的规则
type RuleSkip struct {
	RuleID uint
	Err    error
}

// ValidateRule 校验规则配置
func ValidateRule(rule *models.MatchingRule) error {
	if rule == nil {
		return fmt.Errorf("%w: nil rule", ErrRuleMalformed)
	}
	if rule.ConditionsErr != nil {
		return fmt.Errorf("%w: %v", ErrRuleMalformed, rule.ConditionsErr)
	}
	switch rule.Action {
	case constants.RuleActionAutoAssign, constants.RuleActionNotifyBroker, constants.RuleActionSuggestOnly:
	default:
		return fmt.Errorf("%w: unknown action %q", ErrRuleMalformed, rule.Action)
	}
	c := rule.Conditions.Data()
	if c.MinCarrierRating != nil && !inRatingRange(*c.MinCarrierRating) {
		return fmt.Errorf("%w: min_carrier_rating out of range", ErrRuleMalformed)
	}
	if c.MaxCarrierRating != nil && !inRatingRange(*c.MaxCarrierRating) {
		return fmt.Errorf("%w: max_carrier_rating out of range", ErrRuleMalformed)
	}
	if c.MinCarrierRating != nil && c.MaxCarrierRating != nil && c.MinCarrierRating.GreaterThan(*c.MaxCarrierRating) {
		return fmt.Errorf("%w: min_carrier_rating greater than max_carrier_rating", ErrRuleMalformed)
	}
	if c.MinMarginPercent != nil && (c.MinMarginPercent.LessThan(hundred.Neg()) || c.MinMarginPercent.GreaterThan(hundred)) {
		return fmt.Errorf("%w: min_margin_percent out of range", ErrRuleMalformed)
	}
	if c.MaxBidAmount != nil && !c.MaxBidAmount.IsPositive() {
		return fmt.Errorf("%w: max_bid_amount must be positive", ErrRuleMalformed)
	}
	if c.MaxDistanceKm != nil && *c.MaxDistanceKm <= 0 {
		return fmt.Errorf("%w: max_distance_km must be positive", ErrRuleMalformed)
	}
	for _, id := range c.PreferredCarrierIDs {
		if id == 0 {
			return fmt.Errorf("%w: preferred_carrier_ids contains zero", ErrRuleMalformed)
		}
	}
	switch strings.ToLower(strings.TrimSpace(c.Urgency)) {
	case "", constants.UrgencyStandard, constants.UrgencyExpress, constants.UrgencyUrgent:
	default:
		return fmt.Errorf("%w: unknown urgency %q", ErrRuleMalformed, c.Urgency)
	}
	return nil
}

// SortRules 评估顺序：优先级降序，创建时间升序，ID 升序
func SortRules(rules []models.MatchingRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		a, b := &rules[i], &rules[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// EvaluateRules 按顺序评估规则，返回第一条命中的规则
// 不合法的规则会被跳过并在 skipped 中返回
func EvaluateRules(shipment *models.Shipment, bid *models.Bid, rules []models.MatchingRule) (*MatchDecision, []RuleSkip) {
	if shipment == nil || bid == nil || len(rules) == 0 {
		return nil, nil
	}
	ordered := make([]models.MatchingRule, len(rules))
	copy(ordered, rules)
	SortRules(ordered)

	var skipped []RuleSkip
	for i := range ordered {
		rule := &ordered[i]
		if !rule.IsActive {
			continue
		}
		if err := ValidateRule(rule); err != nil {
			skipped = append(skipped, RuleSkip{RuleID: rule.ID, Err: err})
			continue
		}
		if !ConditionsMatch(rule.Conditions.Data(), shipment, bid) {
			continue
		}
		return &MatchDecision{Rule: rule, Action: effectiveAction(rule)}, skipped
	}
	return nil, skipped
}

// ConditionsMatch 所有已设置的条件均满足
func ConditionsMatch(c models.RuleConditions, shipment *models.Shipment, bid *models.Bid) bool {
	if c.OriginCity != "" && !sameText(c.OriginCity, shipment.OriginCity) {
		return false
	}
	if c.DestinationCity != "" && !sameText(c.DestinationCity, shipment.DestinationCity) {
		return false
	}
	if c.MinCarrierRating != nil && bid.CarrierRating.LessThan(*c.MinCarrierRating) {
		return false
	}
	if c.MaxCarrierRating != nil && bid.CarrierRating.GreaterThan(*c.MaxCarrierRating) {
		return false
	}
	if len(c.PreferredCarrierIDs) > 0 && !containsID(c.PreferredCarrierIDs, bid.CarrierID) {
		return false
	}
	if c.MinMarginPercent != nil {
		margin, ok := MarginPercent(shipment, bid.Amount)
		if !ok || margin.LessThan(*c.MinMarginPercent) {
			return false
		}
	}
	if c.MaxBidAmount != nil && bid.Amount.GreaterThan(c.MaxBidAmount.Decimal) {
		return false
	}
	if len(c.FreightTypes) > 0 && !containsText(c.FreightTypes, shipment.FreightType) {
		return false
	}
	if c.Urgency != "" && !sameText(c.Urgency, shipment.Urgency) {
		return false
	}
	if c.MaxDistanceKm != nil && shipment.DistanceKm > *c.MaxDistanceKm {
		return false
	}
	return true
}

// MarginPercent 经纪人毛利率 (挂牌运价 - 报价) / 挂牌运价 * 100
func MarginPercent(shipment *models.Shipment, amount models.Money) (decimal.Decimal, bool) {
	if shipment == nil || shipment.PostedRate == nil || !shipment.PostedRate.IsPositive() {
		return decimal.Zero, false
	}
	posted := shipment.PostedRate.Decimal
	return posted.Sub(amount.Decimal).Div(posted).Mul(hundred), true
}

func effectiveAction(rule *models.MatchingRule) string {
	if rule.Action == constants.RuleActionAutoAssign && rule.RequiresConfirmation {
		return constants.RuleActionNotifyBroker
	}
	return rule.Action
}

func inRatingRange(v decimal.Decimal) bool {
	return !v.LessThan(ratingFloor) && !v.GreaterThan(ratingCeiling)
}

func sameText(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func containsText(list []string, target string) bool {
	for _, item := range list {
		if sameText(item, target) {
			return true
		}
	}
	return false
}

func containsID(list []uint, target uint) bool {
	for _, id := range list {
		if id == target {
			return true
		}
	}
	return false
}
