package provider

import (
	"time"

	"github.com/freightbid/internal/authz"
	"github.com/freightbid/internal/cache"
	"github.com/freightbid/internal/config"
	"github.com/freightbid/internal/events"
	"github.com/freightbid/internal/logger"
	"github.com/freightbid/internal/models"
	"github.com/freightbid/internal/payment"
	"github.com/freightbid/internal/queue"
	"github.com/freightbid/internal/realtime"
	"github.com/freightbid/internal/repository"
	"github.com/freightbid/internal/service"

	"gorm.io/gorm"
)

const eventRelayChannel = "events"

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Events
	EventBus   *events.Bus
	EventRelay *events.RedisRelay
	Publisher  events.Publisher
	Hub        *realtime.Hub

	// Repositories
	ShipmentRepo       repository.ShipmentRepository
	BidRepo            repository.BidRepository
	CarrierProfileRepo repository.CarrierProfileRepository
	MatchingRuleRepo   repository.MatchingRuleRepository
	AuditLogRepo       repository.AuditLogRepository

	// Services
	AuthzService          *authz.Service
	AuditService          *service.AuditService
	NotificationService   *service.NotificationService
	CarrierProfileService *service.CarrierProfileService
	MatchingService       *service.MatchingService
	SettlementService     *service.SettlementService
	AwardService          *service.AwardService
	AuctionService        *service.AuctionService
	ShipmentService       *service.ShipmentService
	BidService            *service.BidService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories(models.DB)

	// 2. 初始化事件链路
	c.initEvents()

	// 3. 初始化 Services
	c.initServices(models.DB)

	return c
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.ShipmentRepo = repository.NewShipmentRepository(db)
	c.BidRepo = repository.NewBidRepository(db)
	c.CarrierProfileRepo = repository.NewCarrierProfileRepository(db)
	c.MatchingRuleRepo = repository.NewMatchingRuleRepository(db)
	c.AuditLogRepo = repository.NewAuditLogRepository(db)
}

func (c *Container) initEvents() {
	c.EventBus = events.NewBus(c.Config.Realtime.SendBufferSize)
	c.Hub = realtime.NewHub(c.EventBus, c.Config.Realtime)
	c.NotificationService = service.NewNotificationService(c.QueueClient, service.LogNotifier{})

	publishers := []events.Publisher{c.EventBus, c.NotificationService}
	if client := cache.Client(); client != nil {
		// 其他实例转发来的事件只进入本地总线，避免重复通知
		c.EventRelay = events.NewRedisRelay(client, cache.BuildKey(eventRelayChannel), c.EventBus)
		publishers = append(publishers, c.EventRelay)
	}
	c.Publisher = events.Multi(publishers...)
}

func (c *Container) initServices(db *gorm.DB) {
	authzService, err := authz.NewService(db)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.AuditService = service.NewAuditService(c.AuditLogRepo)

	gateway := payment.NewGateway(payment.Config{
		SettlementURL: c.Config.Payment.SettlementURL,
		Secret:        c.Config.Payment.Secret,
		Timeout:       time.Duration(c.Config.Payment.TimeoutMS) * time.Millisecond,
	})

	c.CarrierProfileService = service.NewCarrierProfileService(c.CarrierProfileRepo)
	c.MatchingService = service.NewMatchingService(c.MatchingRuleRepo)
	c.SettlementService = service.NewSettlementService(c.ShipmentRepo, c.BidRepo, gateway, c.QueueClient)
	c.AwardService = service.NewAwardService(c.ShipmentRepo, c.BidRepo, c.SettlementService, c.Publisher)
	c.AuctionService = service.NewAuctionService(c.ShipmentRepo, c.BidRepo, c.AwardService, c.MatchingService, c.QueueClient, c.Publisher, c.Config.Auction)
	c.ShipmentService = service.NewShipmentService(c.ShipmentRepo, c.BidRepo, c.QueueClient, c.Publisher, c.Config.Auction)
	c.BidService = service.NewBidService(c.ShipmentRepo, c.BidRepo, c.CarrierProfileService, c.AuctionService, c.QueueClient, c.Publisher, c.Config.Auction)
}

// Close 释放容器持有的连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.Hub != nil {
		c.Hub.Close()
	}
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Warnw("provider_close_queue_client_failed", "error", err)
		}
	}
	cache.Reset()
}
