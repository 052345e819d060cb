package router

import (
	"net/http"
	"sort"
	"strings"

	"github.com/freightbid/internal/authz"
	"github.com/freightbid/internal/cache"
	"github.com/freightbid/internal/config"
	adminhandlers "github.com/freightbid/internal/http/handlers/admin"
	publichandlers "github.com/freightbid/internal/http/handlers/public"
	"github.com/freightbid/internal/http/response"
	"github.com/freightbid/internal/logger"
	"github.com/freightbid/internal/models"
	"github.com/freightbid/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const websocketPath = "/api/v1/ws"

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按业务/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	bidRule := RateLimitRule{
		Prefix:        cache.BuildKey("rate:bid"),
		WindowSeconds: cfg.Security.BidRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.BidRateLimit.MaxAttempts,
		MessageKey:    "error.bid_too_frequent",
		FailOpen:      true,
		RejectReason:  "rate_limited",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(MetricsMiddleware())
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组，全部接口需要令牌与路由权限
	apiV1 := r.Group("/api/v1")
	apiV1.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, cfg.JWT.Issuer))
	apiV1.Use(RBACMiddleware(c.AuthzService))
	{
		// 运单
		apiV1.GET("/shipments", publicHandler.ListShipments)
		apiV1.POST("/shipments", publicHandler.CreateShipment)
		apiV1.GET("/shipments/:id", publicHandler.GetShipment)
		apiV1.POST("/shipments/:id/publish", publicHandler.PublishShipment)
		apiV1.POST("/shipments/:id/cancel", publicHandler.CancelShipment)
		apiV1.POST("/shipments/:id/award", publicHandler.AwardShipment)
		apiV1.POST("/shipments/:id/in-transit", publicHandler.MarkInTransit)
		apiV1.POST("/shipments/:id/delivered", publicHandler.MarkDelivered)

		// 报价
		apiV1.GET("/shipments/:id/bids", publicHandler.ListShipmentBids)
		apiV1.POST("/shipments/:id/bids", RateLimitMiddleware(cache.Client(), bidRule, KeyByUserID), publicHandler.PlaceBid)
		apiV1.POST("/bids/:id/withdraw", publicHandler.WithdrawBid)
		apiV1.GET("/me/bids", publicHandler.ListMyBids)

		// 经纪人匹配规则
		apiV1.GET("/broker/matching-rules", publicHandler.ListMatchingRules)
		apiV1.POST("/broker/matching-rules", publicHandler.CreateMatchingRule)
		apiV1.GET("/broker/matching-rules/:id", publicHandler.GetMatchingRule)
		apiV1.PUT("/broker/matching-rules/:id", publicHandler.UpdateMatchingRule)
		apiV1.DELETE("/broker/matching-rules/:id", publicHandler.DeleteMatchingRule)

		// 实时推送
		apiV1.GET("/ws", publicHandler.ShipmentStream)

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			admin.GET("/authz/me", adminHandler.GetAuthzMe)
			admin.GET("/authz/roles", adminHandler.ListAuthzRoles)
			admin.POST("/authz/roles", adminHandler.CreateAuthzRole)
			admin.DELETE("/authz/roles/:role", adminHandler.DeleteAuthzRole)
			admin.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
			admin.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
			admin.DELETE("/authz/policies", adminHandler.RevokeAuthzPolicy)
			admin.POST("/authz/users/:id/policies", adminHandler.GrantAuthzUserPolicy)
			admin.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
				response.Success(ctx, buildPermissionCatalog(r))
			})
			admin.GET("/audit-logs", adminHandler.ListAuditLogs)
			admin.GET("/carrier-profiles/:carrier_id", adminHandler.GetCarrierProfile)
			admin.PUT("/carrier-profiles/:carrier_id", adminHandler.UpsertCarrierProfile)
			admin.POST("/auctions/sweep", adminHandler.SweepAuctions)
		}
	}

	// 健康检查
	r.GET("/healthz", func(ctx *gin.Context) {
		status := gin.H{"status": "ok", "database": "ok", "redis": "disabled"}
		if err := pingDatabase(); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
		}
		if cache.Enabled() {
			status["redis"] = "ok"
			if err := cache.Ping(ctx.Request.Context()); err != nil {
				status["status"] = "degraded"
				status["redis"] = err.Error()
			}
		}
		code := http.StatusOK
		if status["status"] != "ok" {
			code = http.StatusServiceUnavailable
		}
		ctx.JSON(code, status)
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func pingDatabase() error {
	if models.DB == nil {
		return nil
	}
	sqlDB, err := models.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

type permissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

// buildPermissionCatalog 列出 /api/v1 下全部可授权的路由
func buildPermissionCatalog(engine *gin.Engine) []permissionCatalogItem {
	if engine == nil {
		return []permissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]permissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/") {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, permissionCatalogItem{
			Module:     derivePermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func derivePermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	switch segments[0] {
	case "admin", "broker", "me":
		return segments[1]
	}
	return segments[0]
}
