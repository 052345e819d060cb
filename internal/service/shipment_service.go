package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/freightbid/internal/auction"
	"github.com/freightbid/internal/config"
	"github.com/freightbid/internal/constants"
	"github.com/freightbid/internal/events"
	"github.com/freightbid/internal/logger"
	"github.com/freightbid/internal/models"
	"github.com/freightbid/internal/queue"
	"github.com/freightbid/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var maxCarrierRating = decimal.NewFromInt(5)

// ShipmentService 运单生命周期服务
type ShipmentService struct {
	shipmentRepo repository.ShipmentRepository
	bidRepo      repository.BidRepository
	queueClient  *queue.Client
	publisher    events.Publisher
	cfg          config.AuctionConfig
	now          func() time.Time
}

// CreateShipmentInput 创建运单输入
type CreateShipmentInput struct {
	ShipperID              uint
	BrokerID               *uint
	Title                  string
	Notes                  string
	OriginCity             string
	DestinationCity        string
	FreightType            string
	Urgency                string
	DistanceKm             int
	PickupAt               *time.Time
	AuctionType            string
	BiddingDurationMinutes int
	PostedRate             *models.Money
	ReservePrice           *models.Money
	BuyItNowPrice          *models.Money
	AutoAccept             models.AutoAcceptCriteria
	MarketplaceVisible     bool
}

// NewShipmentService 创建运单服务
func NewShipmentService(
	shipmentRepo repository.ShipmentRepository,
	bidRepo repository.BidRepository,
	queueClient *queue.Client,
	publisher events.Publisher,
	cfg config.AuctionConfig,
) *ShipmentService {
	if publisher == nil {
		publisher = events.Nop
	}
	return &ShipmentService{
		shipmentRepo: shipmentRepo,
		bidRepo:      bidRepo,
		queueClient:  queueClient,
		publisher:    publisher,
		cfg:          cfg,
		now:          time.Now,
	}
}

// CreateShipment 创建草稿运单
func (s *ShipmentService) CreateShipment(ctx context.Context, input CreateShipmentInput) (*models.Shipment, error) {
	if input.ShipperID == 0 {
		return nil, fmt.Errorf("%w: shipper required", ErrShipmentInvalid)
	}
	origin := strings.TrimSpace(input.OriginCity)
	destination := strings.TrimSpace(input.DestinationCity)
	if origin == "" || destination == "" {
		return nil, fmt.Errorf("%w: origin and destination required", ErrShipmentInvalid)
	}
	if input.DistanceKm < 0 {
		return nil, fmt.Errorf("%w: distance_km must not be negative", ErrShipmentInvalid)
	}
	urgency := strings.TrimSpace(input.Urgency)
	switch urgency {
	case "":
		urgency = constants.UrgencyStandard
	case constants.UrgencyStandard, constants.UrgencyExpress, constants.UrgencyUrgent:
	default:
		return nil, fmt.Errorf("%w: unknown urgency %q", ErrShipmentInvalid, urgency)
	}
	auctionType, err := s.validateAuctionConfig(&input)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	shipment := &models.Shipment{
		ShipmentNo:             generateShipmentNo(now),
		ShipperID:              input.ShipperID,
		BrokerID:               input.BrokerID,
		Status:                 constants.ShipmentStatusDraft,
		Title:                  strings.TrimSpace(input.Title),
		Notes:                  strings.TrimSpace(input.Notes),
		OriginCity:             origin,
		DestinationCity:        destination,
		FreightType:            strings.TrimSpace(input.FreightType),
		Urgency:                urgency,
		DistanceKm:             input.DistanceKm,
		PickupAt:               input.PickupAt,
		AuctionType:            auctionType,
		BiddingDurationMinutes: input.BiddingDurationMinutes,
		PostedRate:             input.PostedRate,
		ReservePrice:           input.ReservePrice,
		BuyItNowPrice:          input.BuyItNowPrice,
		AutoAccept:             input.AutoAccept,
		MarketplaceVisible:     input.MarketplaceVisible,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := s.shipmentRepo.Create(shipment); err != nil {
		return nil, err
	}
	logger.Infow("shipment_created",
		"shipment_id", shipment.ID,
		"shipment_no", shipment.ShipmentNo,
		"shipper_id", shipment.ShipperID,
		"auction_type", shipment.AuctionType,
	)
	return shipment, nil
}

func (s *ShipmentService) validateAuctionConfig(input *CreateShipmentInput) (string, error) {
	auctionType := strings.TrimSpace(input.AuctionType)
	if auctionType == "" {
		auctionType = constants.AuctionTypeStandard
	}
	switch auctionType {
	case constants.AuctionTypeStandard:
		if input.BiddingDurationMinutes < 0 {
			return "", fmt.Errorf("%w: bidding_duration_minutes must not be negative", ErrAuctionConfigInvalid)
		}
		if input.BiddingDurationMinutes == 0 {
			input.BiddingDurationMinutes = s.cfg.DefaultDurationMinutes
		}
		if input.BiddingDurationMinutes <= 0 {
			return "", fmt.Errorf("%w: bidding duration required", ErrAuctionConfigInvalid)
		}
	case constants.AuctionTypeBuyItNow:
		if input.BuyItNowPrice == nil || !input.BuyItNowPrice.IsPositive() {
			return "", fmt.Errorf("%w: buy_it_now_price required", ErrAuctionConfigInvalid)
		}
		input.BiddingDurationMinutes = 0
	case constants.AuctionTypeBestOffer:
		input.BiddingDurationMinutes = 0
	default:
		return "", fmt.Errorf("%w: unknown auction type %q", ErrAuctionConfigInvalid, auctionType)
	}
	for name, price := range map[string]*models.Money{
		"posted_rate":      input.PostedRate,
		"reserve_price":    input.ReservePrice,
		"buy_it_now_price": input.BuyItNowPrice,
	} {
		if price != nil && !price.IsPositive() {
			return "", fmt.Errorf("%w: %s must be positive", ErrAuctionConfigInvalid, name)
		}
	}
	criteria := input.AutoAccept
	if criteria.MaxPrice != nil && !criteria.MaxPrice.IsPositive() {
		return "", fmt.Errorf("%w: auto_accept.max_price must be positive", ErrAuctionConfigInvalid)
	}
	if criteria.MinRating != nil && (criteria.MinRating.IsNegative() || criteria.MinRating.GreaterThan(maxCarrierRating)) {
		return "", fmt.Errorf("%w: auto_accept.min_rating out of range", ErrAuctionConfigInvalid)
	}
	if criteria.MaxDeliveryDays != nil && *criteria.MaxDeliveryDays <= 0 {
		return "", fmt.Errorf("%w: auto_accept.max_delivery_days must be positive", ErrAuctionConfigInvalid)
	}
	return auctionType, nil
}

// GetShipment 获取运单
func (s *ShipmentService) GetShipment(id uint) (*models.Shipment, error) {
	shipment, err := s.shipmentRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if shipment == nil {
		return nil, ErrShipmentNotFound
	}
	return shipment, nil
}

// ListShipments 分页查询运单
func (s *ShipmentService) ListShipments(filter repository.ShipmentListFilter) ([]models.Shipment, int64, error) {
	filter.Page, filter.PageSize = NormalizePagination(filter.Page, filter.PageSize)
	return s.shipmentRepo.List(filter)
}

// PublishShipment 开标：draft -> open_for_bidding
func (s *ShipmentService) PublishShipment(ctx context.Context, actor Actor, shipmentID uint) (*models.Shipment, error) {
	var published *models.Shipment
	now := s.now().UTC()
	err := s.shipmentRepo.Transaction(ctx, func(tx *gorm.DB) error {
		shipmentRepo := s.shipmentRepo.WithTx(tx)
		shipment, err := shipmentRepo.GetByIDForUpdate(shipmentID)
		if err != nil {
			return err
		}
		if shipment == nil {
			return ErrShipmentNotFound
		}
		if !actor.ownsShipment(shipment) {
			return ErrShipmentForbidden
		}
		if !isShipmentTransitionAllowed(shipment.Status, constants.ShipmentStatusOpenForBidding) {
			return ErrInvalidStateTransition
		}

		updates := map[string]interface{}{
			"status":              constants.ShipmentStatusOpenForBidding,
			"bid_window_start_at": now,
			"updated_at":          now,
		}
		shipment.Status = constants.ShipmentStatusOpenForBidding
		shipment.BidWindowStartAt = &now
		if shipment.AuctionType == constants.AuctionTypeStandard {
			duration := time.Duration(shipment.BiddingDurationMinutes) * time.Minute
			if duration <= 0 {
				return fmt.Errorf("%w: bidding duration required", ErrAuctionConfigInvalid)
			}
			window := auction.NewWindow(now, duration, s.policy())
			shipment.BidExpiresAt = &window.ExpiresAt
			shipment.BidHardCloseAt = &window.HardCloseAt
			updates["bid_expires_at"] = window.ExpiresAt
			updates["bid_hard_close_at"] = window.HardCloseAt
		}
		affected, err := shipmentRepo.CompareAndSetStatus(shipment.ID, []string{constants.ShipmentStatusDraft}, updates)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrInvalidStateTransition
		}
		published = shipment
		return nil
	})
	if err != nil {
		return nil, err
	}

	if published.BidExpiresAt != nil {
		scheduleExpiry(s.queueClient, published.ID, *published.BidExpiresAt, now)
	}
	logger.Infow("shipment_published",
		"shipment_id", published.ID,
		"auction_type", published.AuctionType,
		"bid_expires_at", published.BidExpiresAt,
	)
	return published, nil
}

// CancelShipment 取消运单，有效报价全部拒绝
func (s *ShipmentService) CancelShipment(ctx context.Context, actor Actor, shipmentID uint) (*models.Shipment, error) {
	var (
		cancelled *models.Shipment
		rejected  []models.Bid
	)
	now := s.now().UTC()
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
		if !actor.ownsShipment(shipment) {
			return ErrShipmentForbidden
		}
		if !isShipmentTransitionAllowed(shipment.Status, constants.ShipmentStatusCancelled) {
			return ErrInvalidStateTransition
		}

		bids, err := bidRepo.ListActiveExcept(shipment.ID, 0)
		if err != nil {
			return err
		}
		if _, err := bidRepo.TransitionActive(shipment.ID, bidIDs(bids), constants.BidStatusRejected, now); err != nil {
			return err
		}
		affected, err := shipmentRepo.CompareAndSetStatus(shipment.ID, []string{shipment.Status}, map[string]interface{}{
			"status":       constants.ShipmentStatusCancelled,
			"cancelled_at": now,
			"updated_at":   now,
		})
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrInvalidStateTransition
		}
		shipment.Status = constants.ShipmentStatusCancelled
		shipment.CancelledAt = &now
		cancelled = shipment
		rejected = bids
		return nil
	})
	if err != nil {
		return nil, err
	}

	batch := make([]events.Event, 0, len(rejected)+1)
	batch = append(batch, events.ShipmentCancelled(cancelled.ID, now))
	for i := range rejected {
		batch = append(batch, events.BidRejected(&rejected[i], "shipment_cancelled", now))
	}
	s.publisher.Publish(ctx, batch...)
	logger.Infow("shipment_cancelled",
		"shipment_id", cancelled.ID,
		"actor_id", actor.UserID,
		"rejected_bids", len(rejected),
	)
	return cancelled, nil
}

// MarkInTransit bid_awarded -> in_transit
func (s *ShipmentService) MarkInTransit(ctx context.Context, actor Actor, shipmentID uint) (*models.Shipment, error) {
	return s.advance(ctx, actor, shipmentID, constants.ShipmentStatusInTransit, "in_transit_at")
}

// MarkDelivered in_transit -> delivered
func (s *ShipmentService) MarkDelivered(ctx context.Context, actor Actor, shipmentID uint) (*models.Shipment, error) {
	return s.advance(ctx, actor, shipmentID, constants.ShipmentStatusDelivered, "delivered_at")
}

// advance 授标后的运营状态推进，货主、中标承运商或管理员可操作
func (s *ShipmentService) advance(ctx context.Context, actor Actor, shipmentID uint, target, stampColumn string) (*models.Shipment, error) {
	shipment, err := s.shipmentRepo.GetByID(shipmentID)
	if err != nil {
		return nil, err
	}
	if shipment == nil {
		return nil, ErrShipmentNotFound
	}
	if !actor.ownsShipment(shipment) && !s.isAwardedCarrier(actor, shipment) {
		return nil, ErrShipmentForbidden
	}
	if !isShipmentTransitionAllowed(shipment.Status, target) {
		return nil, ErrInvalidStateTransition
	}
	now := s.now().UTC()
	affected, err := s.shipmentRepo.CompareAndSetStatus(shipment.ID, shipmentSourcesFor(target), map[string]interface{}{
		"status":     target,
		stampColumn:  now,
		"updated_at": now,
	})
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrInvalidStateTransition
	}
	updated, err := s.shipmentRepo.GetByID(shipment.ID)
	if err != nil {
		return nil, err
	}
	logger.Infow("shipment_status_advanced",
		"shipment_id", shipment.ID,
		"from", shipment.Status,
		"to", target,
		"actor_id", actor.UserID,
	)
	return updated, nil
}

func (s *ShipmentService) isAwardedCarrier(actor Actor, shipment *models.Shipment) bool {
	if actor.Role != constants.RoleCarrier || shipment.AwardedBidID == nil {
		return false
	}
	bid, err := s.bidRepo.GetByID(*shipment.AwardedBidID)
	if err != nil || bid == nil {
		return false
	}
	return bid.CarrierID == actor.UserID
}

func (s *ShipmentService) policy() auction.Policy {
	return policyFromConfig(s.cfg)
}

func policyFromConfig(cfg config.AuctionConfig) auction.Policy {
	return auction.Policy{
		TrailingWindow: cfg.TrailingWindow(),
		Extension:      cfg.Extension(),
		MaxExtension:   cfg.MaxExtension(),
	}
}
