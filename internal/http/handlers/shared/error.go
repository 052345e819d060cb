package shared

import (
	"github.com/freightbid/internal/http/response"
	"github.com/freightbid/internal/i18n"
	"github.com/freightbid/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 按请求语言返回错误消息。
// 竞价冲突、截标等业务拒绝很常见，只有 5xx 按错误级别记录
func RespondError(c *gin.Context, code int, key string, err error) {
	msg := i18n.T(i18n.ResolveLocale(c), key)
	if err != nil {
		log := RequestLog(c)
		if code >= response.CodeInternal {
			log.Errorw("handler_error", "code", code, "key", key, "error", err)
		} else {
			log.Warnw("handler_rejected", "code", code, "key", key, "error", err)
		}
	}
	response.Error(c, code, msg)
}
