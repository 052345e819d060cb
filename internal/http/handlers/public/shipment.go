package public

import (
	"context"
	"strings"
	"time"

	"github.com/freightbid/internal/constants"
	handlershared "github.com/freightbid/internal/http/handlers/shared"
	"github.com/freightbid/internal/http/response"
	"github.com/freightbid/internal/models"
	"github.com/freightbid/internal/repository"
	"github.com/freightbid/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// AutoAcceptRequest 自动接受条件
type AutoAcceptRequest struct {
	Enabled         bool             `json:"enabled"`
	MaxPrice        *models.Money    `json:"max_price"`
	MinRating       *decimal.Decimal `json:"min_rating"`
	MaxDeliveryDays *int             `json:"max_delivery_days"`
}

// CreateShipmentRequest 创建运单请求
type CreateShipmentRequest struct {
	BrokerID               *uint             `json:"broker_id"`
	Title                  string            `json:"title"`
	Notes                  string            `json:"notes"`
	OriginCity             string            `json:"origin_city" binding:"required"`
	DestinationCity        string            `json:"destination_city" binding:"required"`
	FreightType            string            `json:"freight_type"`
	Urgency                string            `json:"urgency"`
	DistanceKm             int               `json:"distance_km"`
	PickupAt               *time.Time        `json:"pickup_at"`
	AuctionType            string            `json:"auction_type"`
	BiddingDurationMinutes int               `json:"bidding_duration_minutes"`
	PostedRate             *models.Money     `json:"posted_rate"`
	ReservePrice           *models.Money     `json:"reserve_price"`
	BuyItNowPrice          *models.Money     `json:"buy_it_now_price"`
	AutoAccept             AutoAcceptRequest `json:"auto_accept"`
	MarketplaceVisible     *bool             `json:"marketplace_visible"`
}

func (r CreateShipmentRequest) toInput(actor service.Actor) service.CreateShipmentInput {
	visible := true
	if r.MarketplaceVisible != nil {
		visible = *r.MarketplaceVisible
	}
	brokerID := r.BrokerID
	if brokerID == nil && actor.Role == constants.RoleBroker {
		// 经纪人代发的运单默认挂在自己名下
		id := actor.UserID
		brokerID = &id
	}
	criteria := models.AutoAcceptCriteria{
		Enabled:         r.AutoAccept.Enabled,
		MaxPrice:        r.AutoAccept.MaxPrice,
		MinRating:       r.AutoAccept.MinRating,
		MaxDeliveryDays: r.AutoAccept.MaxDeliveryDays,
	}
	return service.CreateShipmentInput{
		ShipperID:              actor.UserID,
		BrokerID:               brokerID,
		Title:                  r.Title,
		Notes:                  r.Notes,
		OriginCity:             r.OriginCity,
		DestinationCity:        r.DestinationCity,
		FreightType:            r.FreightType,
		Urgency:                r.Urgency,
		DistanceKm:             r.DistanceKm,
		PickupAt:               r.PickupAt,
		AuctionType:            r.AuctionType,
		BiddingDurationMinutes: r.BiddingDurationMinutes,
		PostedRate:             r.PostedRate,
		ReservePrice:           r.ReservePrice,
		BuyItNowPrice:          r.BuyItNowPrice,
		AutoAccept:             criteria,
		MarketplaceVisible:     visible,
	}
}

// CreateShipment 创建草稿运单
func (h *Handler) CreateShipment(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	var req CreateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	shipment, err := h.ShipmentService.CreateShipment(c.Request.Context(), req.toInput(actor))
	if err != nil {
		respondShipmentCreateError(c, err)
		return
	}
	response.Success(c, shipment)
}

// ListShipments 运单列表
// 承运商只看到开放竞价的公开运单，托运方与经纪人看到自己的运单
func (h *Handler) ListShipments(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePage(c)
	filter := repository.ShipmentListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
		Search:   strings.TrimSpace(c.Query("search")),
	}
	scope := strings.TrimSpace(c.Query("scope"))
	switch {
	case actor.Role == constants.RoleCarrier || scope == "marketplace":
		filter.OnlyMarketplace = true
		filter.Status = ""
	case actor.Role == constants.RoleBroker:
		filter.BrokerID = actor.UserID
	case actor.IsAdmin():
	default:
		filter.ShipperID = actor.UserID
	}

	shipments, total, err := h.ShipmentService.ListShipments(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.shipment_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, shipments, response.BuildPagination(page, pageSize, total))
}

// GetShipment 运单详情，底价不对外输出
func (h *Handler) GetShipment(c *gin.Context) {
	if _, ok := getActor(c); !ok {
		return
	}
	shipmentID, ok := parseIDParam(c)
	if !ok {
		return
	}
	shipment, err := h.ShipmentService.GetShipment(shipmentID)
	if err != nil {
		respondWithMappedError(c, err, shipmentCommonErrorRules, response.CodeInternal, "error.shipment_fetch_failed")
		return
	}
	response.Success(c, shipment)
}

// PublishShipment 开标
func (h *Handler) PublishShipment(c *gin.Context) {
	h.transitionShipment(c, h.ShipmentService.PublishShipment)
}

// CancelShipment 取消运单
func (h *Handler) CancelShipment(c *gin.Context) {
	h.transitionShipment(c, h.ShipmentService.CancelShipment)
}

// MarkInTransit 标记运输中
func (h *Handler) MarkInTransit(c *gin.Context) {
	h.transitionShipment(c, h.ShipmentService.MarkInTransit)
}

// MarkDelivered 标记已送达
func (h *Handler) MarkDelivered(c *gin.Context) {
	h.transitionShipment(c, h.ShipmentService.MarkDelivered)
}

type shipmentTransitionFunc func(ctx context.Context, actor service.Actor, shipmentID uint) (*models.Shipment, error)

func (h *Handler) transitionShipment(c *gin.Context, fn shipmentTransitionFunc) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	shipmentID, ok := parseIDParam(c)
	if !ok {
		return
	}
	shipment, err := fn(c.Request.Context(), actor, shipmentID)
	if err != nil {
		respondShipmentUpdateError(c, err)
		return
	}
	response.Success(c, shipment)
}
