package admin

import (
	"time"

	"github.com/freightbid/internal/http/response"
	"github.com/freightbid/internal/service"

	"github.com/gin-gonic/gin"
)

// SweepAuctions 手动触发一次过期扫描
func (h *Handler) SweepAuctions(c *gin.Context) {
	count, err := h.AuctionService.SweepExpired(c.Request.Context(), time.Now())
	if err != nil {
		respondError(c, response.CodeInternal, "error.sweep_failed", err)
		return
	}
	h.recordAudit(c, service.AuditRecordInput{
		Action: "auction_sweep",
		Detail: map[string]interface{}{"expired": count},
	})
	response.Success(c, gin.H{"expired": count})
}
