package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/freightbid/internal/auction"
	"github.com/freightbid/internal/config"
	"github.com/freightbid/internal/constants"
	"github.com/freightbid/internal/events"
	"github.com/freightbid/internal/logger"
	"github.com/freightbid/internal/metrics"
	"github.com/freightbid/internal/models"
	"github.com/freightbid/internal/queue"
	"github.com/freightbid/internal/repository"

	"gorm.io/gorm"
)

// BidService 报价账本服务
type BidService struct {
	shipmentRepo repository.ShipmentRepository
	bidRepo      repository.BidRepository
	profiles     ProfileLookup
	auctionSvc   *AuctionService
	queueClient  *queue.Client
	publisher    events.Publisher
	cfg          config.AuctionConfig
	now          func() time.Time
}

// PlaceBidInput 出价输入
type PlaceBidInput struct {
	ShipmentID            uint
	CarrierID             uint
	Amount                models.Money
	EstimatedDeliveryDays *int
	Note                  string
}

// PlaceBidResult 出价结果
type PlaceBidResult struct {
	Bid *models.Bid
	// Superseded 同一承运商被新报价取代的旧报价
	Superseded []models.Bid
	Extended   bool
	NewExpiry  *time.Time
	// Award 出价直接触发的授标（一口价、规则、自动接受）
	Award *AwardResult
}

// NewBidService 创建报价服务
func NewBidService(
	shipmentRepo repository.ShipmentRepository,
	bidRepo repository.BidRepository,
	profiles ProfileLookup,
	auctionSvc *AuctionService,
	queueClient *queue.Client,
	publisher events.Publisher,
	cfg config.AuctionConfig,
) *BidService {
	if publisher == nil {
		publisher = events.Nop
	}
	return &BidService{
		shipmentRepo: shipmentRepo,
		bidRepo:      bidRepo,
		profiles:     profiles,
		auctionSvc:   auctionSvc,
		queueClient:  queueClient,
		publisher:    publisher,
		cfg:          cfg,
		now:          time.Now,
	}
}

// PlaceBid 提交报价
func (s *BidService) PlaceBid(ctx context.Context, input PlaceBidInput) (*PlaceBidResult, error) {
	result, err := s.placeBid(ctx, input)
	if err != nil {
		metrics.BidsRejectedTotal.WithLabelValues(bidRejectReason(err)).Inc()
		logger.Infow("bid_place_failed",
			"shipment_id", input.ShipmentID,
			"carrier_id", input.CarrierID,
			"amount", input.Amount.String(),
			"error", err,
		)
		return nil, err
	}
	return result, nil
}

func (s *BidService) placeBid(ctx context.Context, input PlaceBidInput) (*PlaceBidResult, error) {
	if !input.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if input.CarrierID == 0 {
		return nil, ErrBidForbidden
	}
	if input.EstimatedDeliveryDays != nil && *input.EstimatedDeliveryDays <= 0 {
		return nil, fmt.Errorf("%w: estimated_delivery_days must be positive", ErrBidInvalid)
	}
	now := s.now().UTC()

	shipment, err := s.shipmentRepo.GetByID(input.ShipmentID)
	if err != nil {
		return nil, err
	}
	if shipment == nil {
		return nil, ErrShipmentNotFound
	}
	if !auction.IsOpen(shipment, now) {
		return nil, ErrAuctionClosed
	}
	if shipment.ShipperID == input.CarrierID {
		return nil, ErrBidForbidden
	}
	if shipment.AuctionType == constants.AuctionTypeBuyItNow && !auction.MatchesBuyItNow(shipment, input.Amount) {
		return nil, fmt.Errorf("%w: buy it now price required", ErrInvalidAmount)
	}

	bid := &models.Bid{
		ShipmentID:            shipment.ID,
		CarrierID:             input.CarrierID,
		Amount:                input.Amount,
		Status:                constants.BidStatusActive,
		EstimatedDeliveryDays: input.EstimatedDeliveryDays,
		Note:                  strings.TrimSpace(input.Note),
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if s.profiles != nil {
		profile, err := s.profiles.GetCarrierProfile(ctx, input.CarrierID)
		if err != nil {
			logger.Warnw("carrier_profile_lookup_failed", "carrier_id", input.CarrierID, "error", err)
		} else if profile != nil {
			bid.CarrierRating = profile.Rating
			bid.CarrierCompletedLoads = profile.CompletedLoads
		}
	}

	result := &PlaceBidResult{Bid: bid}
	awardSvc := s.awardService()
	started := time.Now()
	var (
		locked    *models.Shipment
		oldExpiry time.Time
	)
	err = s.shipmentRepo.Transaction(ctx, func(tx *gorm.DB) error {
		shipmentRepo := s.shipmentRepo.WithTx(tx)
		bidRepo := s.bidRepo.WithTx(tx)

		current, err := shipmentRepo.GetByIDForUpdate(shipment.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrShipmentNotFound
		}
		if !auction.IsOpen(current, now) {
			return ErrAuctionClosed
		}

		own, err := bidRepo.ListActiveByCarrier(current.ID, input.CarrierID)
		if err != nil {
			return err
		}
		if _, err := bidRepo.TransitionActive(current.ID, bidIDs(own), constants.BidStatusOutbid, now); err != nil {
			return err
		}
		if err := bidRepo.Create(bid); err != nil {
			return err
		}

		if awardSvc != nil && auction.MatchesBuyItNow(current, bid.Amount) {
			// 一口价在同一事务内成交，并发的同价报价拿到行锁后只会看到已授标
			award := &AwardResult{}
			if err := awardLocked(shipmentRepo, bidRepo, current, bid, constants.AwardTriggerBuyItNow, now, award); err != nil {
				if isAwardConflict(err) {
					return ErrAuctionClosed
				}
				return err
			}
			result.Award = award
		} else {
			updates := map[string]interface{}{"updated_at": now}
			old, extended := auction.ExtendShipment(current, now, policyFromConfig(s.cfg))
			if extended {
				updates["bid_expires_at"] = *current.BidExpiresAt
				updates["extension_count"] = current.ExtensionCount
			}
			affected, err := shipmentRepo.UpdateWhileOpen(current.ID, updates)
			if err != nil {
				return err
			}
			if affected == 0 {
				return ErrAuctionClosed
			}
			oldExpiry = old
			result.Extended = extended
			if extended {
				result.NewExpiry = current.BidExpiresAt
			}
		}

		for i := range own {
			own[i].Status = constants.BidStatusOutbid
			own[i].ResolvedAt = &now
		}
		locked = current
		result.Superseded = own
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.BidsPlacedTotal.WithLabelValues(locked.AuctionType).Inc()
	batch := make([]events.Event, 0, len(result.Superseded)+2)
	batch = append(batch, events.BidPlaced(bid, now))
	for i := range result.Superseded {
		batch = append(batch, events.Outbid(&result.Superseded[i], "superseded", now))
	}
	if result.Extended {
		metrics.AuctionExtensionsTotal.Inc()
		batch = append(batch, events.AuctionExtended(locked.ID, oldExpiry, *result.NewExpiry, now))
		scheduleExpiry(s.queueClient, locked.ID, *result.NewExpiry, now)
	}
	s.publisher.Publish(ctx, batch...)
	logger.Infow("bid_placed",
		"shipment_id", locked.ID,
		"bid_id", bid.ID,
		"carrier_id", bid.CarrierID,
		"amount", bid.Amount.String(),
		"superseded", len(result.Superseded),
		"extended", result.Extended,
	)

	if result.Award != nil {
		awardSvc.afterCommit(ctx, AwardInput{
			ShipmentID: locked.ID,
			BidID:      bid.ID,
			Trigger:    constants.AwardTriggerBuyItNow,
		}, result.Award, started, now)
		return result, nil
	}

	if s.auctionSvc != nil {
		award, err := s.auctionSvc.AfterBidPlaced(ctx, locked, bid)
		if err != nil {
			logger.Errorw("bid_post_evaluation_failed",
				"shipment_id", locked.ID,
				"bid_id", bid.ID,
				"error", err,
			)
		}
		if award != nil {
			result.Award = award
			if award.Bid != nil && award.Bid.ID == bid.ID {
				result.Bid = award.Bid
			}
		} else {
			s.refreshBidStatus(bid)
		}
	}
	return result, nil
}

func (s *BidService) awardService() *AwardService {
	if s.auctionSvc == nil {
		return nil
	}
	return s.auctionSvc.awardSvc
}

// refreshBidStatus 自动授标与并发授标冲突时，报价可能已被出局，按库内状态返回
func (s *BidService) refreshBidStatus(bid *models.Bid) {
	stored, err := s.bidRepo.GetByID(bid.ID)
	if err != nil || stored == nil {
		return
	}
	bid.Status = stored.Status
	bid.ResolvedAt = stored.ResolvedAt
}

// ListActiveBids 按排名查询运单的有效报价
func (s *BidService) ListActiveBids(shipmentID uint, page, pageSize int) ([]models.Bid, int64, error) {
	shipment, err := s.shipmentRepo.GetByID(shipmentID)
	if err != nil {
		return nil, 0, err
	}
	if shipment == nil {
		return nil, 0, ErrShipmentNotFound
	}
	page, pageSize = NormalizePagination(page, pageSize)
	return s.bidRepo.ListActiveByShipment(shipmentID, page, pageSize)
}

// ListCarrierBids 承运商自己的报价
func (s *BidService) ListCarrierBids(carrierID uint, filter repository.BidListFilter) ([]models.Bid, int64, error) {
	if carrierID == 0 {
		return nil, 0, ErrBidForbidden
	}
	filter.CarrierID = carrierID
	filter.Page, filter.PageSize = NormalizePagination(filter.Page, filter.PageSize)
	return s.bidRepo.List(filter)
}

// WithdrawBid 承运商撤回报价，已撤回时直接返回
func (s *BidService) WithdrawBid(ctx context.Context, carrierID, bidID uint) (*models.Bid, error) {
	now := s.now().UTC()
	var (
		withdrawn *models.Bid
		changed   bool
	)
	err := s.shipmentRepo.Transaction(ctx, func(tx *gorm.DB) error {
		shipmentRepo := s.shipmentRepo.WithTx(tx)
		bidRepo := s.bidRepo.WithTx(tx)

		bid, err := bidRepo.GetByID(bidID)
		if err != nil {
			return err
		}
		if bid == nil || bid.CarrierID != carrierID {
			return ErrBidNotFound
		}
		if bid.Status == constants.BidStatusWithdrawn {
			withdrawn = bid
			return nil
		}
		if bid.Status != constants.BidStatusActive {
			return ErrBidNotActive
		}

		shipment, err := shipmentRepo.GetByIDForUpdate(bid.ShipmentID)
		if err != nil {
			return err
		}
		if shipment == nil {
			return ErrShipmentNotFound
		}
		if shipment.Status != constants.ShipmentStatusOpenForBidding {
			return ErrInvalidStateTransition
		}
		affected, err := bidRepo.CompareAndSetStatus(bid.ID, shipment.ID, constants.BidStatusActive, constants.BidStatusWithdrawn, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrBidNotActive
		}
		bid.Status = constants.BidStatusWithdrawn
		bid.ResolvedAt = &now
		withdrawn = bid
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.publisher.Publish(ctx, events.BidWithdrawn(withdrawn, now))
		logger.Infow("bid_withdrawn",
			"shipment_id", withdrawn.ShipmentID,
			"bid_id", withdrawn.ID,
			"carrier_id", carrierID,
		)
	}
	return withdrawn, nil
}

func bidRejectReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrAuctionClosed):
		return "auction_closed"
	case errors.Is(err, ErrShipmentNotFound):
		return "not_found"
	case errors.Is(err, ErrBidForbidden):
		return "forbidden"
	case errors.Is(err, ErrBidInvalid):
		return "invalid"
	default:
		return "error"
	}
}
