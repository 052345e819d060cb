package auction

import (
	"time"

	"github.com/freightbid/internal/constants"
	"github.com/freightbid/internal/models"
)

// Policy 防狙击延时参数
type Policy struct {
	TrailingWindow time.Duration // 截标前多长时间内的出价会触发延时
	Extension      time.Duration // 单次延时长度
	MaxExtension   time.Duration // 相对原始截标时间的累计延时上限
}

// DefaultPolicy 默认延时参数
func DefaultPolicy() Policy {
	return Policy{
		TrailingWindow: 5 * time.Minute,
		Extension:      5 * time.Minute,
		MaxExtension:   30 * time.Minute,
	}
}

// Window 由开标时间和时长推导出的竞价窗口
type Window struct {
	StartAt     time.Time
	ExpiresAt   time.Time
	HardCloseAt time.Time
}

// NewWindow 计算开标后的窗口与延时封顶时间
func NewWindow(startAt time.Time, duration time.Duration, policy Policy) Window {
	expiresAt := startAt.Add(duration)
	hardClose := expiresAt
	if policy.MaxExtension > 0 {
		hardClose = expiresAt.Add(policy.MaxExtension)
	}
	return Window{StartAt: startAt, ExpiresAt: expiresAt, HardCloseAt: hardClose}
}

// IsOpen 运单当前是否可出价
func IsOpen(shipment *models.Shipment, now time.Time) bool {
	if shipment == nil || shipment.Status != constants.ShipmentStatusOpenForBidding {
		return false
	}
	if shipment.BidExpiresAt == nil {
		return true
	}
	return now.Before(*shipment.BidExpiresAt)
}

// WindowClosed 截标时间已过（没有截标时间的竞价方式永远不会因时间关闭）
func WindowClosed(shipment *models.Shipment, now time.Time) bool {
	if shipment == nil || shipment.BidExpiresAt == nil {
		return false
	}
	return !now.Before(*shipment.BidExpiresAt)
}

// MaybeExtend 计算出价后的截标时间
// 出价落在截标前的尾段窗口内时顺延 Extension，但不超过 hardCloseAt；
// 截标后、尾段之外或已到封顶时返回原值和 false
func MaybeExtend(expiresAt, hardCloseAt, bidAt time.Time, policy Policy) (time.Time, bool) {
	if policy.Extension <= 0 || policy.TrailingWindow <= 0 {
		return expiresAt, false
	}
	if !bidAt.Before(expiresAt) {
		return expiresAt, false
	}
	if expiresAt.Sub(bidAt) > policy.TrailingWindow {
		return expiresAt, false
	}
	next := expiresAt.Add(policy.Extension)
	if !hardCloseAt.IsZero() && next.After(hardCloseAt) {
		next = hardCloseAt
	}
	if !next.After(expiresAt) {
		return expiresAt, false
	}
	return next, true
}

// ExtendShipment 对运单应用延时，返回旧截标时间与是否发生延时
func ExtendShipment(shipment *models.Shipment, bidAt time.Time, policy Policy) (time.Time, bool) {
	if shipment == nil || shipment.BidExpiresAt == nil {
		return time.Time{}, false
	}
	old := *shipment.BidExpiresAt
	var hardClose time.Time
	if shipment.BidHardCloseAt != nil {
		hardClose = *shipment.BidHardCloseAt
	}
	next, extended := MaybeExtend(old, hardClose, bidAt, policy)
	if !extended {
		return old, false
	}
	shipment.BidExpiresAt = &next
	shipment.ExtensionCount++
	return old, true
}
