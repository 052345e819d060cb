package admin

import (
	"strconv"
	"strings"
	"time"

	handlershared "github.com/freightbid/internal/http/handlers/shared"
	"github.com/freightbid/internal/http/response"
	"github.com/freightbid/internal/service"

	"github.com/gin-gonic/gin"
)

func getOperator(c *gin.Context) (service.Actor, bool) {
	return handlershared.GetActor(c)
}

func currentRequestID(c *gin.Context) string {
	value, exists := c.Get("request_id")
	if !exists {
		return ""
	}
	if requestID, ok := value.(string); ok {
		return strings.TrimSpace(requestID)
	}
	return ""
}

func parseOptionalUintQuery(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, true
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return 0, false
	}
	return uint(value), true
}

func parseTimeNullable(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
