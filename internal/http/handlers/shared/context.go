package shared

import (
	"strconv"

	"github.com/freightbid/internal/http/response"
	"github.com/freightbid/internal/service"

	"github.com/gin-gonic/gin"
)

// GetContextUintWithKeys 从上下文读取 uint 值并统一处理错误响应。
func GetContextUintWithKeys(c *gin.Context, key, invalidKey, typeInvalidKey string) (uint, bool) {
	value, exists := c.Get(key)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			RespondError(c, response.CodeBadRequest, invalidKey, nil)
			return 0, false
		}
		return uint(v), true
	case float64:
		if v < 0 {
			RespondError(c, response.CodeBadRequest, invalidKey, nil)
			return 0, false
		}
		return uint(v), true
	default:
		RespondError(c, response.CodeInternal, typeInvalidKey, nil)
		return 0, false
	}
}

// 鉴权中间件写入上下文的键
const (
	ContextUserIDKey   = "user_id"
	ContextUserRoleKey = "user_role"
)

// GetActor 读取当前请求的操作者身份。
func GetActor(c *gin.Context) (service.Actor, bool) {
	userID, ok := GetContextUintWithKeys(c, ContextUserIDKey, "error.user_id_invalid", "error.user_id_type_invalid")
	if !ok {
		return service.Actor{}, false
	}
	role, _ := c.Get(ContextUserRoleKey)
	roleText, _ := role.(string)
	if roleText == "" {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return service.Actor{}, false
	}
	return service.Actor{UserID: userID, Role: roleText}, true
}

// ParseUintParam 解析路径中的正整数 ID。
func ParseUintParam(c *gin.Context, name string) (uint, bool) {
	raw, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || raw == 0 {
		RespondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return 0, false
	}
	return uint(raw), true
}

// ParsePage 读取 page 与 page_size，非法值按默认分页处理。
func ParsePage(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("page_size"))
	return service.NormalizePagination(page, pageSize)
}
