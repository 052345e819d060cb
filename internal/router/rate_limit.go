package router

import (
	"strconv"
	"strings"

	handlershared "github.com/freightbid/internal/http/handlers/shared"
	"github.com/freightbid/internal/http/response"
	"github.com/freightbid/internal/i18n"
	"github.com/freightbid/internal/logger"
	"github.com/freightbid/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 限流规则
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	MessageKey    string
	// FailOpen 为 true 时 Redis 故障直接放行，出价不应因限流组件故障而中断
	FailOpen bool
	// RejectReason 非空时计入 freightbid_bids_rejected_total
	RejectReason string
}

// 固定窗口计数，返回 {当前计数, 剩余秒数}
var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("TTL", KEYS[1])
return {current, ttl}
`)

// RateLimitMiddleware Redis 频率限制中间件，client 为空时不限流
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || rule.WindowSeconds <= 0 || rule.MaxRequests <= 0 {
			c.Next()
			return
		}

		key := ""
		if keyFunc != nil {
			key = strings.TrimSpace(keyFunc(c))
		}
		if key == "" {
			key = c.ClientIP()
		}
		if rule.Prefix != "" {
			key = rule.Prefix + ":" + key
		}

		values, err := rateLimitScript.Run(c.Request.Context(), client, []string{key}, rule.WindowSeconds).Int64Slice()
		if err == nil && len(values) < 2 {
			err = redis.Nil
		}
		if err != nil {
			if rule.FailOpen {
				logger.Warnw("rate_limit_bypassed", "key", key, "error", err)
				c.Next()
				return
			}
			response.Error(c, response.CodeInternal, i18n.T(i18n.ResolveLocale(c), "error.rate_limit_unavailable"))
			c.Abort()
			return
		}

		count, ttlSeconds := values[0], values[1]
		if count <= int64(rule.MaxRequests) {
			c.Next()
			return
		}

		waitSeconds := int(ttlSeconds)
		if waitSeconds < 1 {
			waitSeconds = rule.WindowSeconds
		}
		msgKey := strings.TrimSpace(rule.MessageKey)
		if msgKey == "" {
			msgKey = "error.rate_limited"
		}
		if rule.RejectReason != "" {
			metrics.BidsRejectedTotal.WithLabelValues(rule.RejectReason).Inc()
		}
		c.Header("Retry-After", strconv.Itoa(waitSeconds))
		response.Error(c, response.CodeTooManyRequests, i18n.Sprintf(i18n.ResolveLocale(c), msgKey, waitSeconds))
		c.Abort()
	}
}

// KeyByUserID 使用鉴权后的用户 ID 作为限流 key，未鉴权时退回 IP
func KeyByUserID(c *gin.Context) string {
	value, ok := c.Get(handlershared.ContextUserIDKey)
	if !ok {
		return c.ClientIP()
	}
	if userID, typeOK := value.(uint); typeOK && userID != 0 {
		return "user:" + strconv.FormatUint(uint64(userID), 10)
	}
	return c.ClientIP()
}
