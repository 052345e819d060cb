package public

import (
	handlershared "github.com/freightbid/internal/http/handlers/shared"
	"github.com/freightbid/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func getActor(c *gin.Context) (service.Actor, bool) {
	return handlershared.GetActor(c)
}

func parseIDParam(c *gin.Context) (uint, bool) {
	return handlershared.ParseUintParam(c, "id")
}
