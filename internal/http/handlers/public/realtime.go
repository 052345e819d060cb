package public

import (
	"strconv"

	"github.com/freightbid/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ShipmentStream 订阅单个运单的竞价事件（WebSocket）
func (h *Handler) ShipmentStream(c *gin.Context) {
	if _, ok := getActor(c); !ok {
		return
	}
	if h.Hub == nil {
		respondError(c, response.CodeInternal, "error.realtime_unavailable", nil)
		return
	}
	raw, err := strconv.ParseUint(c.Query("shipment_id"), 10, 64)
	if err != nil || raw == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	shipmentID := uint(raw)
	if _, err := h.ShipmentService.GetShipment(shipmentID); err != nil {
		respondWithMappedError(c, err, shipmentCommonErrorRules, response.CodeInternal, "error.shipment_fetch_failed")
		return
	}

	// 握手失败时 upgrader 已写回错误响应，这里只记录日志
	if err := h.Hub.Serve(c.Writer, c.Request, shipmentID); err != nil {
		requestLog(c).Warnw("handler_realtime_stream_failed", "shipment_id", shipmentID, "error", err)
	}
}
