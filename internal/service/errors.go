package service

import "errors"

// 竞价领域错误
var (
	ErrAuctionClosed          = errors.New("auction closed")
	ErrInvalidAmount          = errors.New("invalid bid amount")
	ErrShipmentNotFound       = errors.New("shipment not found")
	ErrBidNotFound            = errors.New("bid not found")
	ErrBidNotActive           = errors.New("bid not active")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrAlreadyAwarded         = errors.New("shipment already awarded")
)

// 权限与输入校验错误
var (
	ErrShipmentForbidden    = errors.New("shipment forbidden")
	ErrBidForbidden         = errors.New("bid forbidden")
	ErrBidInvalid           = errors.New("bid invalid")
	ErrShipmentInvalid      = errors.New("shipment invalid")
	ErrAuctionConfigInvalid = errors.New("auction config invalid")
	ErrAwardTriggerInvalid  = errors.New("award trigger invalid")
	ErrMatchingRuleInvalid  = errors.New("matching rule invalid")
	ErrMatchingRuleNotFound = errors.New("matching rule not found")
	ErrSettlementFailed     = errors.New("settlement failed")
)
