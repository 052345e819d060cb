package auction

import (
	"errors"
	"testing"
	"time"

	"github.com/freightbid/internal/constants"
	"github.com/freightbid/internal/models"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

func decPtr(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func intPtr(v int) *int {
	return &v
}

func ruleShipment() *models.Shipment {
	return &models.Shipment{
		ID:              10,
		Status:          constants.ShipmentStatusOpenForBidding,
		OriginCity:      "Chicago",
		DestinationCity: "Dallas",
		FreightType:     "reefer",
		Urgency:         constants.UrgencyExpress,
		DistanceKm:      1500,
		PostedRate:      models.MoneyPtr(models.MustMoney("2000")),
	}
}

func ruleBid(amount string, rating string) *models.Bid {
	return &models.Bid{
		ID:            20,
		ShipmentID:    10,
		CarrierID:     77,
		Amount:        models.MustMoney(amount),
		Status:        constants.BidStatusActive,
		CarrierRating: decimal.RequireFromString(rating),
	}
}

func newRule(id uint, priority int, action string, c models.RuleConditions) models.MatchingRule {
	return models.MatchingRule{
		ID:         id,
		BrokerID:   3,
		Name:       "rule",
		Priority:   priority,
		IsActive:   true,
		Action:     action,
		Conditions: datatypes.NewJSONType(c),
		CreatedAt:  clockBase.Add(time.Duration(id) * time.Second),
	}
}

func TestEvaluateRulesFirstMatchByPriority(t *testing.T) {
	rules := []models.MatchingRule{
		newRule(1, 1, constants.RuleActionSuggestOnly, models.RuleConditions{}),
		newRule(2, 10, constants.RuleActionAutoAssign, models.RuleConditions{OriginCity: "chicago", MinCarrierRating: decPtr("4.5")}),
		newRule(3, 5, constants.RuleActionNotifyBroker, models.RuleConditions{DestinationCity: "Dallas"}),
	}

	decision, skipped := EvaluateRules(ruleShipment(), ruleBid("1800", "4.8"), rules)
	assert.True(t, decision != nil)
	check.Equal(t, uint(2), decision.Rule.ID)
	check.Equal(t, constants.RuleActionAutoAssign, decision.Action)
	check.Equal(t, 0, len(skipped))

	// 评分不够时落到下一条
	decision, _ = EvaluateRules(ruleShipment(), ruleBid("1800", "4.2"), rules)
	assert.True(t, decision != nil)
	check.Equal(t, uint(3), decision.Rule.ID)
}

func TestEvaluateRulesTieBreakByCreatedAt(t *testing.T) {
	older := newRule(9, 5, constants.RuleActionNotifyBroker, models.RuleConditions{})
	newer := newRule(4, 5, constants.RuleActionSuggestOnly, models.RuleConditions{})
	newer.CreatedAt = older.CreatedAt.Add(time.Hour)

	decision, _ := EvaluateRules(ruleShipment(), ruleBid("1000", "3"), []models.MatchingRule{newer, older})
	assert.True(t, decision != nil)
	check.Equal(t, uint(9), decision.Rule.ID)
}

func TestEvaluateRulesSkipsMalformedAndInactive(t *testing.T) {
	broken := newRule(1, 100, constants.RuleActionAutoAssign, models.RuleConditions{
		MinCarrierRating: decPtr("4.9"),
		MaxCarrierRating: decPtr("3.0"),
	})
	inactive := newRule(2, 90, constants.RuleActionAutoAssign, models.RuleConditions{})
	inactive.IsActive = false
	fallback := newRule(3, 1, constants.RuleActionSuggestOnly, models.RuleConditions{})

	decision, skipped := EvaluateRules(ruleShipment(), ruleBid("1000", "4"), []models.MatchingRule{broken, inactive, fallback})
	assert.True(t, decision != nil)
	check.Equal(t, uint(3), decision.Rule.ID)
	assert.Equal(t, 1, len(skipped))
	check.Equal(t, uint(1), skipped[0].RuleID)
	check.True(t, errors.Is(skipped[0].Err, ErrRuleMalformed))
}

func TestEvaluateRulesRequiresConfirmationDowngrades(t *testing.T) {
	rule := newRule(1, 1, constants.RuleActionAutoAssign, models.RuleConditions{})
	rule.RequiresConfirmation = true

	decision, _ := EvaluateRules(ruleShipment(), ruleBid("1000", "4"), []models.MatchingRule{rule})
	assert.True(t, decision != nil)
	check.Equal(t, constants.RuleActionNotifyBroker, decision.Action)
}

func TestEvaluateRulesNoMatch(t *testing.T) {
	rules := []models.MatchingRule{
		newRule(1, 1, constants.RuleActionAutoAssign, models.RuleConditions{PreferredCarrierIDs: []uint{5, 6}}),
	}
	decision, skipped := EvaluateRules(ruleShipment(), ruleBid("1000", "4"), rules)
	check.True(t, decision == nil)
	check.Equal(t, 0, len(skipped))
}

func TestConditionsMatch(t *testing.T) {
	shipment := ruleShipment()

	testCases := []struct {
		name  string
		c     models.RuleConditions
		bid   *models.Bid
		match bool
	}{
		{"wildcard", models.RuleConditions{}, ruleBid("1900", "1"), true},
		{"origin mismatch", models.RuleConditions{OriginCity: "Denver"}, ruleBid("1000", "4"), false},
		{"max rating", models.RuleConditions{MaxCarrierRating: decPtr("3.5")}, ruleBid("1000", "4"), false},
		{"preferred carrier", models.RuleConditions{PreferredCarrierIDs: []uint{77}}, ruleBid("1000", "4"), true},
		{"margin satisfied", models.RuleConditions{MinMarginPercent: decPtr("10")}, ruleBid("1800", "4"), true},
		{"margin too thin", models.RuleConditions{MinMarginPercent: decPtr("10")}, ruleBid("1850", "4"), false},
		{"max bid amount", models.RuleConditions{MaxBidAmount: models.MoneyPtr(models.MustMoney("999.99"))}, ruleBid("1000", "4"), false},
		{"freight type", models.RuleConditions{FreightTypes: []string{"dry_van", "REEFER"}}, ruleBid("1000", "4"), true},
		{"urgency", models.RuleConditions{Urgency: constants.UrgencyUrgent}, ruleBid("1000", "4"), false},
		{"distance", models.RuleConditions{MaxDistanceKm: intPtr(1200)}, ruleBid("1000", "4"), false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			check.Equal(t, tc.match, ConditionsMatch(tc.c, shipment, tc.bid))
		})
	}
}

func TestMarginRequiresPostedRate(t *testing.T) {
	shipment := ruleShipment()
	shipment.PostedRate = nil
	c := models.RuleConditions{MinMarginPercent: decPtr("0")}
	check.False(t, ConditionsMatch(c, shipment, ruleBid("1", "4")))
}

func TestValidateRule(t *testing.T) {
	valid := newRule(1, 1, constants.RuleActionNotifyBroker, models.RuleConditions{Urgency: "Express"})
	check.NoError(t, ValidateRule(&valid))

	badAction := newRule(2, 1, "escalate", models.RuleConditions{})
	check.True(t, errors.Is(ValidateRule(&badAction), ErrRuleMalformed))

	badDistance := newRule(3, 1, constants.RuleActionSuggestOnly, models.RuleConditions{MaxDistanceKm: intPtr(0)})
	check.Error(t, ValidateRule(&badDistance))

	badRating := newRule(4, 1, constants.RuleActionSuggestOnly, models.RuleConditions{MinCarrierRating: decPtr("7")})
	check.Error(t, ValidateRule(&badRating))

	undecodable := newRule(5, 1, constants.RuleActionNotifyBroker, models.RuleConditions{})
	undecodable.ConditionsErr = errors.New("invalid character 'n'")
	check.True(t, errors.Is(ValidateRule(&undecodable), ErrRuleMalformed))
}

func TestEvaluateRulesSkipsUndecodableConditions(t *testing.T) {
	broken := newRule(1, 9, constants.RuleActionAutoAssign, models.RuleConditions{})
	broken.ConditionsErr = errors.New("unexpected end of JSON input")
	fallback := newRule(2, 1, constants.RuleActionSuggestOnly, models.RuleConditions{})

	decision, skipped := EvaluateRules(ruleShipment(), ruleBid("900", "4.5"), []models.MatchingRule{broken, fallback})
	assert.True(t, decision != nil)
	check.Equal(t, uint(2), decision.Rule.ID)
	check.Equal(t, 1, len(skipped))
	check.Equal(t, uint(1), skipped[0].RuleID)
}
