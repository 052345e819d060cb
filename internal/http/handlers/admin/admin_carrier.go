package admin

import (
	"strings"

	handlershared "github.com/freightbid/internal/http/handlers/shared"
	"github.com/freightbid/internal/http/response"
	"github.com/freightbid/internal/models"
	"github.com/freightbid/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

var (
	maxCarrierRating = decimal.NewFromInt(5)
	maxOnTimeRate    = decimal.NewFromInt(100)
)

// CarrierProfilePayload 承运商档案同步请求
type CarrierProfilePayload struct {
	DisplayName    string          `json:"display_name"`
	Rating         decimal.Decimal `json:"rating"`
	CompletedLoads int             `json:"completed_loads"`
	OnTimeRate     decimal.Decimal `json:"on_time_rate"`
}

func (p CarrierProfilePayload) valid() bool {
	if p.Rating.IsNegative() || p.Rating.GreaterThan(maxCarrierRating) {
		return false
	}
	if p.OnTimeRate.IsNegative() || p.OnTimeRate.GreaterThan(maxOnTimeRate) {
		return false
	}
	return p.CompletedLoads >= 0
}

// GetCarrierProfile 查看承运商档案
func (h *Handler) GetCarrierProfile(c *gin.Context) {
	carrierID, ok := handlershared.ParseUintParam(c, "carrier_id")
	if !ok {
		return
	}
	profile, err := h.CarrierProfileService.GetCarrierProfile(c.Request.Context(), carrierID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.carrier_profile_failed", err)
		return
	}
	if profile == nil {
		respondError(c, response.CodeNotFound, "error.carrier_profile_not_found", nil)
		return
	}
	response.Success(c, profile)
}

// UpsertCarrierProfile 同步承运商档案（评分、完成单量、准时率）
func (h *Handler) UpsertCarrierProfile(c *gin.Context) {
	carrierID, ok := handlershared.ParseUintParam(c, "carrier_id")
	if !ok {
		return
	}
	var req CarrierProfilePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if !req.valid() {
		respondError(c, response.CodeBadRequest, "error.carrier_profile_invalid", nil)
		return
	}

	profile := &models.CarrierProfile{
		CarrierID:      carrierID,
		DisplayName:    strings.TrimSpace(req.DisplayName),
		Rating:         req.Rating,
		CompletedLoads: req.CompletedLoads,
		OnTimeRate:     req.OnTimeRate,
	}
	if err := h.CarrierProfileService.UpsertCarrierProfile(c.Request.Context(), profile); err != nil {
		respondError(c, response.CodeInternal, "error.carrier_profile_failed", err)
		return
	}

	h.recordAudit(c, service.AuditRecordInput{
		Action:       "carrier_profile_upsert",
		TargetUserID: &carrierID,
		Detail: map[string]interface{}{
			"rating":          req.Rating.String(),
			"completed_loads": req.CompletedLoads,
			"on_time_rate":    req.OnTimeRate.String(),
		},
	})
	response.Success(c, profile)
}
