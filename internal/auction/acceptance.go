package auction

import (
	"github.com/freightbid/internal/constants"
	"github.com/freightbid/internal/models"
)

// WithinReserve 自动授标时金额不得高于保留价
func WithinReserve(shipment *models.Shipment, amount models.Money) bool {
	if shipment == nil || shipment.ReservePrice == nil {
		return true
	}
	return amount.LessThanOrEqual(shipment.ReservePrice.Decimal)
}

// MatchesBuyItNow 一口价运单只接受与一口价相等的报价
func MatchesBuyItNow(shipment *models.Shipment, amount models.Money) bool {
	if shipment == nil || shipment.AuctionType != constants.AuctionTypeBuyItNow || shipment.BuyItNowPrice == nil {
		return false
	}
	return amount.Equal(shipment.BuyItNowPrice.Decimal)
}

// AutoAcceptSatisfied 报价满足货主设置的全部自动接受条件
func AutoAcceptSatisfied(shipment *models.Shipment, bid *models.Bid) bool {
	if shipment == nil || bid == nil || !shipment.AutoAccept.Enabled {
		return false
	}
	criteria := shipment.AutoAccept
	if criteria.MaxPrice == nil && criteria.MinRating == nil && criteria.MaxDeliveryDays == nil {
		// 没有任何条件时不自动接受
		return false
	}
	if criteria.MaxPrice != nil && bid.Amount.GreaterThan(criteria.MaxPrice.Decimal) {
		return false
	}
	if criteria.MinRating != nil && bid.CarrierRating.LessThan(*criteria.MinRating) {
		return false
	}
	if criteria.MaxDeliveryDays != nil {
		if bid.EstimatedDeliveryDays == nil || *bid.EstimatedDeliveryDays > *criteria.MaxDeliveryDays {
			return false
		}
	}
	return WithinReserve(shipment, bid.Amount)
}
