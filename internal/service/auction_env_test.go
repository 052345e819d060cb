package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/freightbid/internal/config"
	"github.com/freightbid/internal/constants"
	"github.com/freightbid/internal/events"
	"github.com/freightbid/internal/models"
	"github.com/freightbid/internal/payment"
	"github.com/freightbid/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

var auctionTestStart = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(at time.Time) {
	c.mu.Lock()
	c.now = at
	c.mu.Unlock()
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) Publish(_ context.Context, batch ...events.Event) {
	r.mu.Lock()
	r.events = append(r.events, batch...)
	r.mu.Unlock()
}

func (r *eventRecorder) ofType(eventType string) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fakeGateway struct {
	mu    sync.Mutex
	calls []payment.AwardInput
	err   error
}

func (g *fakeGateway) OnAward(_ context.Context, input payment.AwardInput) (*payment.AwardResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.calls = append(g.calls, input)
	return &payment.AwardResult{TransactionID: fmt.Sprintf("txn-%d-%d", input.ShipmentID, input.BidID)}, nil
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type auctionTestEnv struct {
	db         *gorm.DB
	clock      *testClock
	recorder   *eventRecorder
	gateway    *fakeGateway
	cfg        config.AuctionConfig
	shipments  *ShipmentService
	bids       *BidService
	awards     *AwardService
	auctions   *AuctionService
	matching   *MatchingService
	settlement *SettlementService
	profiles   *CarrierProfileService
}

var (
	testShipper = Actor{UserID: 1, Role: constants.RoleShipper}
	testAdmin   = Actor{UserID: 99, Role: constants.RoleAdmin}
)

func defaultTestAuctionConfig() config.AuctionConfig {
	return config.AuctionConfig{
		DefaultDurationMinutes: 60,
		TrailingWindowMinutes:  5,
		ExtensionMinutes:       5,
		MaxExtensionMinutes:    30,
		SweepIntervalSeconds:   30,
		SweepBatchSize:         100,
	}
}

func setupAuctionServiceTest(t *testing.T, cfg config.AuctionConfig) *auctionTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:auction_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	env := &auctionTestEnv{
		db:       db,
		clock:    &testClock{now: auctionTestStart},
		recorder: &eventRecorder{},
		gateway:  &fakeGateway{},
		cfg:      cfg,
	}
	shipmentRepo := repository.NewShipmentRepository(db)
	bidRepo := repository.NewBidRepository(db)
	ruleRepo := repository.NewMatchingRuleRepository(db)
	profileRepo := repository.NewCarrierProfileRepository(db)

	env.profiles = NewCarrierProfileService(profileRepo)
	env.matching = NewMatchingService(ruleRepo)
	env.settlement = NewSettlementService(shipmentRepo, bidRepo, env.gateway, nil)
	env.awards = NewAwardService(shipmentRepo, bidRepo, env.settlement, env.recorder)
	env.auctions = NewAuctionService(shipmentRepo, bidRepo, env.awards, env.matching, nil, env.recorder, cfg)
	env.shipments = NewShipmentService(shipmentRepo, bidRepo, nil, env.recorder, cfg)
	env.bids = NewBidService(shipmentRepo, bidRepo, env.profiles, env.auctions, nil, env.recorder, cfg)

	env.awards.now = env.clock.Now
	env.auctions.now = env.clock.Now
	env.shipments.now = env.clock.Now
	env.bids.now = env.clock.Now
	return env
}

// openShipment 以 testShipper 身份创建并开标
func (env *auctionTestEnv) openShipment(t *testing.T, mutate func(*CreateShipmentInput)) *models.Shipment {
	t.Helper()
	input := CreateShipmentInput{
		ShipperID:          testShipper.UserID,
		Title:              "Steel coils",
		OriginCity:         "Chicago",
		DestinationCity:    "Dallas",
		FreightType:        "flatbed",
		DistanceKm:         1500,
		MarketplaceVisible: true,
	}
	if mutate != nil {
		mutate(&input)
	}
	created, err := env.shipments.CreateShipment(context.Background(), input)
	if err != nil {
		t.Fatalf("create shipment failed: %v", err)
	}
	opened, err := env.shipments.PublishShipment(context.Background(), testShipper, created.ID)
	if err != nil {
		t.Fatalf("publish shipment failed: %v", err)
	}
	return opened
}

func (env *auctionTestEnv) placeBid(t *testing.T, shipmentID, carrierID uint, amount string) *PlaceBidResult {
	t.Helper()
	result, err := env.bids.PlaceBid(context.Background(), PlaceBidInput{
		ShipmentID: shipmentID,
		CarrierID:  carrierID,
		Amount:     models.MustMoney(amount),
	})
	if err != nil {
		t.Fatalf("place bid %s by carrier %d failed: %v", amount, carrierID, err)
	}
	return result
}

func (env *auctionTestEnv) reloadShipment(t *testing.T, id uint) *models.Shipment {
	t.Helper()
	var shipment models.Shipment
	if err := env.db.First(&shipment, id).Error; err != nil {
		t.Fatalf("reload shipment failed: %v", err)
	}
	return &shipment
}

func (env *auctionTestEnv) reloadBid(t *testing.T, id uint) *models.Bid {
	t.Helper()
	var bid models.Bid
	if err := env.db.First(&bid, id).Error; err != nil {
		t.Fatalf("reload bid failed: %v", err)
	}
	return &bid
}

func (env *auctionTestEnv) countBids(t *testing.T, shipmentID uint, status string) int64 {
	t.Helper()
	var count int64
	if err := env.db.Model(&models.Bid{}).Where("shipment_id = ? AND status = ?", shipmentID, status).Count(&count).Error; err != nil {
		t.Fatalf("count bids failed: %v", err)
	}
	return count
}
