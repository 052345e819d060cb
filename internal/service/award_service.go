package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/freightbid/internal/constants"
	"github.com/freightbid/internal/events"
	"github.com/freightbid/internal/logger"
	"github.com/freightbid/internal/metrics"
	"github.com/freightbid/internal/models"
	"github.com/freightbid/internal/repository"

	"gorm.io/gorm"
)

// AwardService 授标协调器，保证每个运单至多一个中标报价
type AwardService struct {
	shipmentRepo  repository.ShipmentRepository
	bidRepo       repository.BidRepository
	settlementSvc *SettlementService
	publisher     events.Publisher
	now           func() time.Time
}

// AwardInput 授标输入
type AwardInput struct {
	ShipmentID uint
	BidID      uint
	Trigger    string
	RuleID     uint
}

// AwardResult 授标结果
type AwardResult struct {
	Shipment *models.Shipment
	Bid      *models.Bid
	Outbid   []models.Bid
	Trigger  string
	// Replayed 同一报价重复授标，未产生新的副作用
	Replayed bool
}

// NewAwardService 创建授标服务
func NewAwardService(
	shipmentRepo repository.ShipmentRepository,
	bidRepo repository.BidRepository,
	settlementSvc *SettlementService,
	publisher events.Publisher,
) *AwardService {
	if publisher == nil {
		publisher = events.Nop
	}
	return &AwardService{
		shipmentRepo:  shipmentRepo,
		bidRepo:       bidRepo,
		settlementSvc: settlementSvc,
		publisher:     publisher,
		now:           time.Now,
	}
}

func isAwardTriggerValid(trigger string) bool {
	switch trigger {
	case constants.AwardTriggerManual,
		constants.AwardTriggerAutoAccept,
		constants.AwardTriggerBuyItNow,
		constants.AwardTriggerMatchingRule:
		return true
	}
	return false
}

// ManualAward 货主手动选择中标报价
func (s *AwardService) ManualAward(ctx context.Context, actor Actor, shipmentID, bidID uint) (*AwardResult, error) {
	shipment, err := s.shipmentRepo.GetByID(shipmentID)
	if err != nil {
		return nil, err
	}
	if shipment == nil {
		return nil, ErrShipmentNotFound
	}
	if !actor.ownsShipment(shipment) {
		return nil, ErrShipmentForbidden
	}
	return s.Award(ctx, AwardInput{
		ShipmentID: shipmentID,
		BidID:      bidID,
		Trigger:    constants.AwardTriggerManual,
	})
}

// Award 在单个事务内完成授标：运单 CAS、报价复核、其余报价出局
func (s *AwardService) Award(ctx context.Context, input AwardInput) (*AwardResult, error) {
	if !isAwardTriggerValid(input.Trigger) {
		return nil, fmt.Errorf("%w: %q", ErrAwardTriggerInvalid, input.Trigger)
	}
	started := time.Now()
	now := s.now().UTC()
	result := &AwardResult{Trigger: input.Trigger}

	err := s.shipmentRepo.Transaction(ctx, func(tx *gorm.DB) error {
		shipmentRepo := s.shipmentRepo.WithTx(tx)
		bidRepo := s.bidRepo.WithTx(tx)

		shipment, err := shipmentRepo.GetByIDForUpdate(input.ShipmentID)
		if err != nil {
			return err
		}
		if shipment == nil {
			return ErrShipmentNotFound
		}
		bid, err := bidRepo.GetByID(input.BidID)
		if err != nil {
			return err
		}
		if bid == nil || bid.ShipmentID != shipment.ID {
			return ErrBidNotFound
		}
		return awardLocked(shipmentRepo, bidRepo, shipment, bid, input.Trigger, now, result)
	})
	if err != nil {
		metrics.AwardsTotal.WithLabelValues(input.Trigger, awardOutcome(err)).Inc()
		logger.Infow("auction_award_rejected",
			"shipment_id", input.ShipmentID,
			"bid_id", input.BidID,
			"trigger", input.Trigger,
			"error", err,
		)
		return nil, err
	}
	s.afterCommit(ctx, input, result, started, now)
	return result, nil
}

// awardLocked 在调用方事务内授标，shipment 须已加行锁
func awardLocked(
	shipmentRepo *repository.GormShipmentRepository,
	bidRepo *repository.GormBidRepository,
	shipment *models.Shipment,
	bid *models.Bid,
	trigger string,
	now time.Time,
	result *AwardResult,
) error {
	result.Trigger = trigger
	if replayed, err := classifyAwardState(shipment, bid.ID); replayed || err != nil {
		result.Shipment = shipment
		result.Bid = bid
		result.Replayed = replayed
		return err
	}

	amount := bid.Amount
	affected, err := shipmentRepo.CompareAndSetStatus(shipment.ID, []string{constants.ShipmentStatusOpenForBidding}, map[string]interface{}{
		"status":         constants.ShipmentStatusBidAwarded,
		"awarded_bid_id": bid.ID,
		"awarded_amount": amount,
		"award_trigger":  trigger,
		"awarded_at":     now,
		"updated_at":     now,
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		current, err := shipmentRepo.GetByID(shipment.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrShipmentNotFound
		}
		replayed, err := classifyAwardState(current, bid.ID)
		if err == nil && !replayed {
			err = ErrInvalidStateTransition
		}
		result.Shipment = current
		result.Bid = bid
		result.Replayed = replayed
		return err
	}

	affected, err = bidRepo.CompareAndSetStatus(bid.ID, shipment.ID, constants.BidStatusActive, constants.BidStatusAwarded, now)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrBidNotActive
	}

	others, err := bidRepo.ListActiveExcept(shipment.ID, bid.ID)
	if err != nil {
		return err
	}
	if _, err := bidRepo.TransitionActive(shipment.ID, bidIDs(others), constants.BidStatusOutbid, now); err != nil {
		return err
	}

	shipment.Status = constants.ShipmentStatusBidAwarded
	shipment.AwardedBidID = &bid.ID
	shipment.AwardedAmount = &amount
	shipment.AwardTrigger = trigger
	shipment.AwardedAt = &now
	bid.Status = constants.BidStatusAwarded
	bid.ResolvedAt = &now
	for i := range others {
		others[i].Status = constants.BidStatusOutbid
		others[i].ResolvedAt = &now
	}
	result.Shipment = shipment
	result.Bid = bid
	result.Outbid = others
	return nil
}

// afterCommit 授标提交后的事件、指标与结算
func (s *AwardService) afterCommit(ctx context.Context, input AwardInput, result *AwardResult, started, now time.Time) {
	if result.Replayed {
		metrics.AwardsTotal.WithLabelValues(input.Trigger, "replayed").Inc()
		return
	}

	metrics.AwardsTotal.WithLabelValues(input.Trigger, "awarded").Inc()
	metrics.AwardDuration.Observe(time.Since(started).Seconds())

	batch := make([]events.Event, 0, len(result.Outbid)+1)
	batch = append(batch, events.BidAwarded(result.Bid, input.Trigger, now))
	for i := range result.Outbid {
		batch = append(batch, events.Outbid(&result.Outbid[i], "awarded_to_other", now))
	}
	s.publisher.Publish(ctx, batch...)
	logger.Infow("auction_award_committed",
		"shipment_id", result.Shipment.ID,
		"bid_id", result.Bid.ID,
		"carrier_id", result.Bid.CarrierID,
		"amount", result.Bid.Amount.String(),
		"trigger", input.Trigger,
		"rule_id", input.RuleID,
		"outbid_count", len(result.Outbid),
	)

	if s.settlementSvc != nil {
		s.settlementSvc.Dispatch(ctx, result.Shipment, result.Bid)
	}
}

// classifyAwardState 非竞价中的运单：同一报价已中标视为重放，其余情况返回冲突错误
func classifyAwardState(shipment *models.Shipment, bidID uint) (bool, error) {
	switch shipment.Status {
	case constants.ShipmentStatusOpenForBidding:
		return false, nil
	case constants.ShipmentStatusBidAwarded,
		constants.ShipmentStatusInTransit,
		constants.ShipmentStatusDelivered:
		if shipment.AwardedBidID != nil && *shipment.AwardedBidID == bidID {
			return true, nil
		}
		return false, ErrAlreadyAwarded
	default:
		return false, ErrInvalidStateTransition
	}
}

func awardOutcome(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyAwarded),
		errors.Is(err, ErrBidNotActive),
		errors.Is(err, ErrInvalidStateTransition):
		return "conflict"
	case errors.Is(err, ErrShipmentNotFound), errors.Is(err, ErrBidNotFound):
		return "not_found"
	default:
		return "error"
	}
}
