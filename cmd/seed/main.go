package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/freightbid/internal/config"
	"github.com/freightbid/internal/constants"
	"github.com/freightbid/internal/events"
	"github.com/freightbid/internal/logger"
	"github.com/freightbid/internal/models"
	"github.com/freightbid/internal/repository"
	"github.com/freightbid/internal/service"

	"github.com/shopspring/decimal"
)

type demoUser struct {
	id   uint
	role string
}

var demoUsers = []demoUser{
	{id: 1, role: constants.RoleShipper},
	{id: 2, role: constants.RoleBroker},
	{id: 11, role: constants.RoleCarrier},
	{id: 12, role: constants.RoleCarrier},
	{id: 13, role: constants.RoleCarrier},
	{id: 100, role: constants.RoleAdmin},
}

func main() {
	var withShipment bool
	var tokenTTL time.Duration
	flag.BoolVar(&withShipment, "shipment", true, "是否创建一张开放竞价的示例运单")
	flag.DurationVar(&tokenTTL, "token-ttl", 24*time.Hour, "示例访问令牌有效期")
	flag.Parse()

	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	ctx := context.Background()
	shipmentRepo := repository.NewShipmentRepository(models.DB)
	bidRepo := repository.NewBidRepository(models.DB)
	profiles := service.NewCarrierProfileService(repository.NewCarrierProfileRepository(models.DB))

	// 承运商档案
	carrierProfiles := []models.CarrierProfile{
		{CarrierID: 11, DisplayName: "Lakeshore Freight", Rating: decimal.RequireFromString("4.80"), CompletedLoads: 312, OnTimeRate: decimal.RequireFromString("97.50")},
		{CarrierID: 12, DisplayName: "Red River Haulers", Rating: decimal.RequireFromString("4.20"), CompletedLoads: 88, OnTimeRate: decimal.RequireFromString("91.00")},
		{CarrierID: 13, DisplayName: "Prairie Express", Rating: decimal.RequireFromString("3.60"), CompletedLoads: 19, OnTimeRate: decimal.RequireFromString("84.00")},
	}
	for i := range carrierProfiles {
		profile := carrierProfiles[i]
		if err := profiles.UpsertCarrierProfile(ctx, &profile); err != nil {
			stdLog.Printf("Failed to upsert carrier profile %d: %v", profile.CarrierID, err)
			continue
		}
		stdLog.Printf("Upserted carrier profile: %d %s", profile.CarrierID, profile.DisplayName)
	}

	// 示例运单
	if withShipment {
		shipments := service.NewShipmentService(shipmentRepo, bidRepo, nil, events.Nop, cfg.Auction)
		shipper := service.Actor{UserID: 1, Role: constants.RoleShipper}
		created, err := shipments.CreateShipment(ctx, service.CreateShipmentInput{
			ShipperID:              shipper.UserID,
			Title:                  "Dry van Chicago to Dallas",
			OriginCity:             "Chicago",
			DestinationCity:        "Dallas",
			FreightType:            "dry_van",
			Urgency:                constants.UrgencyStandard,
			DistanceKm:             1490,
			AuctionType:            constants.AuctionTypeStandard,
			BiddingDurationMinutes: 120,
			ReservePrice:           models.MoneyPtr(models.MustMoney("2400")),
			MarketplaceVisible:     true,
		})
		if err != nil {
			stdLog.Fatalf("Failed to create demo shipment: %v", err)
		}
		opened, err := shipments.PublishShipment(ctx, shipper, created.ID)
		if err != nil {
			stdLog.Fatalf("Failed to publish demo shipment: %v", err)
		}
		stdLog.Printf("Opened demo shipment %d, bidding closes at %s", opened.ID, opened.BidExpiresAt.Format(time.RFC3339))
	}

	// 示例令牌
	if cfg.JWT.SecretKey == "" {
		stdLog.Printf("JWT secret is empty, skip demo tokens")
		return
	}
	for _, u := range demoUsers {
		token, expiresAt, err := service.IssueAccessToken(cfg.JWT.SecretKey, cfg.JWT.Issuer, u.id, u.role, tokenTTL)
		if err != nil {
			stdLog.Printf("Failed to issue token for %s %d: %v", u.role, u.id, err)
			continue
		}
		fmt.Printf("%-8s user=%-4d expires=%s\n  %s\n", u.role, u.id, expiresAt.Format(time.RFC3339), token)
	}
}
