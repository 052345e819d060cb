package public

import (
	"strings"
	"time"

	handlershared "github.com/freightbid/internal/http/handlers/shared"
	"github.com/freightbid/internal/http/response"
	"github.com/freightbid/internal/models"
	"github.com/freightbid/internal/repository"
	"github.com/freightbid/internal/service"

	"github.com/gin-gonic/gin"
)

// PlaceBidRequest 出价请求
type PlaceBidRequest struct {
	Amount                models.Money `json:"amount"`
	EstimatedDeliveryDays *int         `json:"estimated_delivery_days"`
	Note                  string       `json:"note"`
}

// AwardRequest 手动授标请求
type AwardRequest struct {
	BidID uint `json:"bid_id" binding:"required"`
}

// PlaceBidResponse 出价结果
type PlaceBidResponse struct {
	Bid        *models.Bid    `json:"bid"`
	Superseded []uint         `json:"superseded_bid_ids,omitempty"`
	Extended   bool           `json:"extended"`
	NewExpiry  *time.Time     `json:"new_expiry,omitempty"`
	Award      *AwardResponse `json:"award,omitempty"`
}

// AwardResponse 授标结果
type AwardResponse struct {
	Shipment *models.Shipment `json:"shipment"`
	Bid      *models.Bid      `json:"bid"`
	Trigger  string           `json:"trigger"`
	Outbid   []uint           `json:"outbid_bid_ids,omitempty"`
	Replayed bool             `json:"replayed"`
}

func newAwardResponse(result *service.AwardResult) *AwardResponse {
	if result == nil {
		return nil
	}
	resp := &AwardResponse{
		Shipment: result.Shipment,
		Bid:      result.Bid,
		Trigger:  result.Trigger,
		Replayed: result.Replayed,
	}
	for _, bid := range result.Outbid {
		resp.Outbid = append(resp.Outbid, bid.ID)
	}
	return resp
}

// PlaceBid 承运商出价
func (h *Handler) PlaceBid(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	shipmentID, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	result, err := h.BidService.PlaceBid(c.Request.Context(), service.PlaceBidInput{
		ShipmentID:            shipmentID,
		CarrierID:             actor.UserID,
		Amount:                req.Amount,
		EstimatedDeliveryDays: req.EstimatedDeliveryDays,
		Note:                  strings.TrimSpace(req.Note),
	})
	if err != nil {
		respondBidPlaceError(c, err)
		return
	}

	resp := PlaceBidResponse{
		Bid:       result.Bid,
		Extended:  result.Extended,
		NewExpiry: result.NewExpiry,
		Award:     newAwardResponse(result.Award),
	}
	for _, bid := range result.Superseded {
		resp.Superseded = append(resp.Superseded, bid.ID)
	}
	response.Success(c, resp)
}

// ListShipmentBids 按排名列出运单的有效报价
func (h *Handler) ListShipmentBids(c *gin.Context) {
	if _, ok := getActor(c); !ok {
		return
	}
	shipmentID, ok := parseIDParam(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePage(c)
	bids, total, err := h.BidService.ListActiveBids(shipmentID, page, pageSize)
	if err != nil {
		respondWithMappedError(c, err, shipmentCommonErrorRules, response.CodeInternal, "error.bid_fetch_failed")
		return
	}
	response.SuccessWithPage(c, bids, response.BuildPagination(page, pageSize, total))
}

// ListMyBids 承运商自己的报价
func (h *Handler) ListMyBids(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePage(c)
	bids, total, err := h.BidService.ListCarrierBids(actor.UserID, repository.BidListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.bid_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, bids, response.BuildPagination(page, pageSize, total))
}

// WithdrawBid 撤回报价
func (h *Handler) WithdrawBid(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	bidID, ok := parseIDParam(c)
	if !ok {
		return
	}
	bid, err := h.BidService.WithdrawBid(c.Request.Context(), actor.UserID, bidID)
	if err != nil {
		respondBidWithdrawError(c, err)
		return
	}
	response.Success(c, bid)
}

// AwardShipment 托运方手动授标
func (h *Handler) AwardShipment(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	shipmentID, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req AwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	result, err := h.AwardService.ManualAward(c.Request.Context(), actor, shipmentID, req.BidID)
	if err != nil {
		respondAwardError(c, err)
		return
	}
	requestLog(c).Infow("handler_shipment_awarded",
		"shipment_id", shipmentID,
		"bid_id", req.BidID,
		"actor_id", actor.UserID,
		"replayed", result.Replayed,
	)
	response.Success(c, newAwardResponse(result))
}
