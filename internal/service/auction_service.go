package service

import (
	"context"
	"errors"
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

// 流拍原因
const (
	ExpireReasonNoBids        = "no_bids"
	ExpireReasonAwardDeadline = "award_deadline"
)

// AuctionService 竞价状态机：出价后评估与到期处理
type AuctionService struct {
	shipmentRepo repository.ShipmentRepository
	bidRepo      repository.BidRepository
	awardSvc     *AwardService
	matchingSvc  *MatchingService
	queueClient  *queue.Client
	publisher    events.Publisher
	cfg          config.AuctionConfig
	now          func() time.Time
}

// NewAuctionService 创建竞价状态机服务
func NewAuctionService(
	shipmentRepo repository.ShipmentRepository,
	bidRepo repository.BidRepository,
	awardSvc *AwardService,
	matchingSvc *MatchingService,
	queueClient *queue.Client,
	publisher events.Publisher,
	cfg config.AuctionConfig,
) *AuctionService {
	if publisher == nil {
		publisher = events.Nop
	}
	return &AuctionService{
		shipmentRepo: shipmentRepo,
		bidRepo:      bidRepo,
		awardSvc:     awardSvc,
		matchingSvc:  matchingSvc,
		queueClient:  queueClient,
		publisher:    publisher,
		cfg:          cfg,
		now:          time.Now,
	}
}

// AfterBidPlaced 出价提交后的自动授标评估：匹配规则 -> 自动接受
// 返回 nil 表示本次出价未触发授标
func (s *AuctionService) AfterBidPlaced(ctx context.Context, shipment *models.Shipment, bid *models.Bid) (*AwardResult, error) {
	if shipment == nil || bid == nil {
		return nil, nil
	}

	// 一口价已在出价事务内成交
	if shipment.AuctionType == constants.AuctionTypeBuyItNow {
		return nil, nil
	}

	if s.matchingSvc != nil {
		result, handled, err := s.applyMatchingRules(ctx, shipment, bid)
		if err != nil || handled {
			return result, err
		}
	}

	if auction.AutoAcceptSatisfied(shipment, bid) {
		return s.tryAward(ctx, AwardInput{
			ShipmentID: shipment.ID,
			BidID:      bid.ID,
			Trigger:    constants.AwardTriggerAutoAccept,
		})
	}
	return nil, nil
}

// applyMatchingRules 返回 handled=true 表示规则已执行授标，后续评估不再进行
func (s *AuctionService) applyMatchingRules(ctx context.Context, shipment *models.Shipment, bid *models.Bid) (*AwardResult, bool, error) {
	decision, err := s.matchingSvc.Evaluate(ctx, shipment, bid)
	if err != nil {
		logger.Warnw("matching_rules_evaluate_failed",
			"shipment_id", shipment.ID,
			"bid_id", bid.ID,
			"error", err,
		)
		return nil, false, nil
	}
	if decision == nil {
		return nil, false, nil
	}

	rule := decision.Rule
	switch decision.Action {
	case constants.RuleActionAutoAssign:
		if !auction.WithinReserve(shipment, bid.Amount) {
			logger.Infow("matching_rule_auto_assign_above_reserve",
				"shipment_id", shipment.ID,
				"bid_id", bid.ID,
				"rule_id", rule.ID,
			)
			return nil, false, nil
		}
		result, err := s.tryAward(ctx, AwardInput{
			ShipmentID: shipment.ID,
			BidID:      bid.ID,
			Trigger:    constants.AwardTriggerMatchingRule,
			RuleID:     rule.ID,
		})
		if err != nil || result == nil {
			return result, result != nil, err
		}
		if !result.Replayed {
			s.matchingSvc.RecordTriggered(rule.ID)
			s.matchingSvc.RecordSuccess(rule.ID)
		}
		return result, true, nil
	case constants.RuleActionNotifyBroker, constants.RuleActionSuggestOnly:
		eventType := constants.EventBrokerNotified
		if decision.Action == constants.RuleActionSuggestOnly {
			eventType = constants.EventMatchSuggested
		}
		s.matchingSvc.RecordTriggered(rule.ID)
		s.publisher.Publish(ctx, events.RuleMatched(eventType, bid, rule.BrokerID, rule.ID, s.now().UTC()))
		logger.Infow("matching_rule_triggered",
			"shipment_id", shipment.ID,
			"bid_id", bid.ID,
			"rule_id", rule.ID,
			"action", decision.Action,
		)
	}
	return nil, false, nil
}

// tryAward 自动授标，与并发操作冲突时记录日志并放弃
func (s *AuctionService) tryAward(ctx context.Context, input AwardInput) (*AwardResult, error) {
	if s.awardSvc == nil {
		return nil, nil
	}
	result, err := s.awardSvc.Award(ctx, input)
	if err != nil {
		if isAwardConflict(err) {
			logger.Infow("auction_auto_award_skipped",
				"shipment_id", input.ShipmentID,
				"bid_id", input.BidID,
				"trigger", input.Trigger,
				"reason", err.Error(),
			)
			return nil, nil
		}
		return nil, err
	}
	return result, nil
}

func isAwardConflict(err error) bool {
	return errors.Is(err, ErrAlreadyAwarded) ||
		errors.Is(err, ErrBidNotActive) ||
		errors.Is(err, ErrInvalidStateTransition) ||
		errors.Is(err, ErrAuctionClosed)
}

// ExpireIfDue 截标后无有效报价则流拍；启用授标截止时超时未授标同样流拍。重复调用无副作用
func (s *AuctionService) ExpireIfDue(ctx context.Context, shipmentID uint, now time.Time) (bool, error) {
	now = now.UTC()
	var (
		reason   string
		deadline *time.Time
	)
	err := s.shipmentRepo.Transaction(ctx, func(tx *gorm.DB) error {
		shipmentRepo := s.shipmentRepo.WithTx(tx)
		bidRepo := s.bidRepo.WithTx(tx)
		shipment, err := shipmentRepo.GetByIDForUpdate(shipmentID)
		if err != nil {
			return err
		}
		if shipment == nil {
			return ErrShipmentNotFound
		}
		if shipment.Status != constants.ShipmentStatusOpenForBidding || !auction.WindowClosed(shipment, now) {
			return nil
		}

		active, err := bidRepo.CountActive(shipment.ID)
		if err != nil {
			return err
		}
		if active > 0 {
			wait := s.cfg.AwardDeadline()
			if wait <= 0 {
				return nil
			}
			due := shipment.BidExpiresAt.Add(wait)
			if now.Before(due) {
				deadline = &due
				return nil
			}
			if _, err := bidRepo.TransitionActive(shipment.ID, nil, constants.BidStatusExpired, now); err != nil {
				return err
			}
			reason = ExpireReasonAwardDeadline
		} else {
			reason = ExpireReasonNoBids
		}

		affected, err := shipmentRepo.CompareAndSetStatus(shipment.ID, []string{constants.ShipmentStatusOpenForBidding}, map[string]interface{}{
			"status":     constants.ShipmentStatusExpired,
			"expired_at": now,
			"updated_at": now,
		})
		if err != nil {
			return err
		}
		if affected == 0 {
			reason = ""
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	if deadline != nil {
		scheduleExpiry(s.queueClient, shipmentID, *deadline, now)
	}
	if reason == "" {
		return false, nil
	}
	metrics.AuctionsExpiredTotal.WithLabelValues(reason).Inc()
	s.publisher.Publish(ctx, events.AuctionExpired(shipmentID, reason, now))
	logger.Infow("auction_expired",
		"shipment_id", shipmentID,
		"reason", reason,
	)
	return true, nil
}

// SweepExpired 批量处理到期运单，返回本次流拍数量
func (s *AuctionService) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()
	filter := repository.ExpiryCandidateFilter{
		ClosedBefore: now,
		Limit:        s.cfg.SweepBatchSize,
	}
	if wait := s.cfg.AwardDeadline(); wait > 0 {
		stale := now.Add(-wait)
		filter.StaleBefore = &stale
	}
	candidates, err := s.shipmentRepo.ListExpiryCandidates(filter)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, candidate := range candidates {
		if ctx.Err() != nil {
			return expired, ctx.Err()
		}
		ok, err := s.ExpireIfDue(ctx, candidate.ID, now)
		if err != nil {
			logger.Warnw("auction_expire_failed",
				"shipment_id", candidate.ID,
				"error", err,
			)
			continue
		}
		if ok {
			expired++
		}
	}
	return expired, nil
}

// scheduleExpiry 在截标时间点投递到期检查任务，队列未启用时由定时扫描兜底
func scheduleExpiry(client *queue.Client, shipmentID uint, at, now time.Time) {
	if !client.Enabled() {
		return
	}
	payload := queue.AuctionExpirePayload{
		ShipmentID: shipmentID,
		ExpiresAt:  at.Unix(),
	}
	if err := client.EnqueueAuctionExpire(payload, at.Sub(now)); err != nil {
		logger.Warnw("auction_expire_enqueue_failed",
			"shipment_id", shipmentID,
			"expires_at", at,
			"error", err,
		)
	}
}
