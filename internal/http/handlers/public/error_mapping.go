package public

import (
	"errors"

	"github.com/freightbid/internal/http/response"
	"github.com/freightbid/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

func concatMappedHandlerErrors(groups ...[]mappedHandlerError) []mappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]mappedHandlerError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

var shipmentCommonErrorRules = []mappedHandlerError{
	{target: service.ErrShipmentNotFound, code: response.CodeNotFound, key: "error.shipment_not_found"},
	{target: service.ErrShipmentForbidden, code: response.CodeForbidden, key: "error.shipment_forbidden"},
	{target: service.ErrInvalidStateTransition, code: response.CodeConflict, key: "error.state_transition"},
}

var shipmentCreateErrorRules = []mappedHandlerError{
	{target: service.ErrShipmentInvalid, code: response.CodeBadRequest, key: "error.shipment_invalid"},
	{target: service.ErrAuctionConfigInvalid, code: response.CodeBadRequest, key: "error.auction_config_invalid"},
}

var bidPlaceErrorRules = []mappedHandlerError{
	{target: service.ErrShipmentNotFound, code: response.CodeNotFound, key: "error.shipment_not_found"},
	{target: service.ErrAuctionClosed, code: response.CodeConflict, key: "error.auction_closed"},
	{target: service.ErrInvalidAmount, code: response.CodeBadRequest, key: "error.invalid_amount"},
	{target: service.ErrBidInvalid, code: response.CodeBadRequest, key: "error.bid_invalid"},
	{target: service.ErrBidForbidden, code: response.CodeForbidden, key: "error.bid_forbidden"},
}

var bidWithdrawErrorRules = []mappedHandlerError{
	{target: service.ErrBidNotFound, code: response.CodeNotFound, key: "error.bid_not_found"},
	{target: service.ErrBidNotActive, code: response.CodeConflict, key: "error.bid_not_active"},
	{target: service.ErrInvalidStateTransition, code: response.CodeConflict, key: "error.auction_closed"},
}

var awardErrorRules = []mappedHandlerError{
	{target: service.ErrAlreadyAwarded, code: response.CodeConflict, key: "error.already_awarded"},
	{target: service.ErrBidNotActive, code: response.CodeConflict, key: "error.bid_not_active"},
	{target: service.ErrBidNotFound, code: response.CodeNotFound, key: "error.bid_not_found"},
	{target: service.ErrAwardTriggerInvalid, code: response.CodeBadRequest, key: "error.award_trigger_invalid"},
}

var matchingRuleErrorRules = []mappedHandlerError{
	{target: service.ErrMatchingRuleInvalid, code: response.CodeBadRequest, key: "error.matching_rule_invalid"},
	{target: service.ErrMatchingRuleNotFound, code: response.CodeNotFound, key: "error.matching_rule_not_found"},
}

func respondShipmentCreateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, shipmentCreateErrorRules, response.CodeInternal, "error.shipment_create_failed")
}

func respondShipmentUpdateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, shipmentCommonErrorRules, response.CodeInternal, "error.shipment_update_failed")
}

func respondBidPlaceError(c *gin.Context, err error) {
	respondWithMappedError(c, err, bidPlaceErrorRules, response.CodeInternal, "error.bid_create_failed")
}

func respondBidWithdrawError(c *gin.Context, err error) {
	respondWithMappedError(c, err, bidWithdrawErrorRules, response.CodeInternal, "error.bid_create_failed")
}

func respondAwardError(c *gin.Context, err error) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(awardErrorRules, shipmentCommonErrorRules), response.CodeInternal, "error.award_failed")
}

func respondMatchingRuleError(c *gin.Context, err error) {
	respondWithMappedError(c, err, matchingRuleErrorRules, response.CodeInternal, "error.matching_rule_failed")
}
