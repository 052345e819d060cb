package service

import (
	"context"
	"fmt"

	"github.com/freightbid/internal/logger"
	"github.com/freightbid/internal/models"
	"github.com/freightbid/internal/payment"
	"github.com/freightbid/internal/queue"
	"github.com/freightbid/internal/repository"
)

// SettlementService 授标后调用结算协作方，失败不影响授标结果
type SettlementService struct {
	shipmentRepo repository.ShipmentRepository
	bidRepo      repository.BidRepository
	gateway      payment.Gateway
	queueClient  *queue.Client
}

// NewSettlementService 创建结算服务
func NewSettlementService(
	shipmentRepo repository.ShipmentRepository,
	bidRepo repository.BidRepository,
	gateway payment.Gateway,
	queueClient *queue.Client,
) *SettlementService {
	if gateway == nil {
		gateway = payment.LocalGateway{}
	}
	return &SettlementService{
		shipmentRepo: shipmentRepo,
		bidRepo:      bidRepo,
		gateway:      gateway,
		queueClient:  queueClient,
	}
}

// Dispatch 队列可用时异步结算，否则同步调用
func (s *SettlementService) Dispatch(ctx context.Context, shipment *models.Shipment, bid *models.Bid) {
	if shipment == nil || bid == nil {
		return
	}
	if s.queueClient.Enabled() {
		err := s.queueClient.EnqueueAuctionSettle(queue.AuctionSettlePayload{
			ShipmentID: shipment.ID,
			BidID:      bid.ID,
			Amount:     bid.Amount.String(),
		})
		if err == nil {
			return
		}
		logger.Warnw("settlement_enqueue_failed",
			"shipment_id", shipment.ID,
			"bid_id", bid.ID,
			"error", err,
		)
	}
	if err := s.Settle(ctx, shipment.ID, bid.ID); err != nil {
		logger.Errorw("settlement_inline_failed",
			"shipment_id", shipment.ID,
			"bid_id", bid.ID,
			"error", err,
		)
	}
}

// Settle 对已授标运单调用结算协作方并写入流水号，已结算或授标已变化时跳过
func (s *SettlementService) Settle(ctx context.Context, shipmentID, bidID uint) error {
	shipment, err := s.shipmentRepo.GetByID(shipmentID)
	if err != nil {
		return err
	}
	if shipment == nil {
		return ErrShipmentNotFound
	}
	if shipment.AwardedBidID == nil || *shipment.AwardedBidID != bidID {
		logger.Warnw("settlement_award_mismatch",
			"shipment_id", shipmentID,
			"bid_id", bidID,
			"awarded_bid_id", shipment.AwardedBidID,
		)
		return nil
	}
	if shipment.SettlementRef != "" {
		return nil
	}
	bid, err := s.bidRepo.GetByID(bidID)
	if err != nil {
		return err
	}
	if bid == nil {
		return ErrBidNotFound
	}

	result, err := s.gateway.OnAward(ctx, payment.AwardInput{
		ShipmentID: shipment.ID,
		ShipmentNo: shipment.ShipmentNo,
		BidID:      bid.ID,
		CarrierID:  bid.CarrierID,
		Amount:     bid.Amount,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSettlementFailed, err)
	}
	written, err := s.shipmentRepo.SetSettlementRef(shipment.ID, result.TransactionID)
	if err != nil {
		return err
	}
	logger.Infow("settlement_recorded",
		"shipment_id", shipment.ID,
		"bid_id", bid.ID,
		"settlement_ref", result.TransactionID,
		"written", written,
	)
	return nil
}
