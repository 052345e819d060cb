package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/freightbid/internal/constants"
	"github.com/freightbid/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupAuctionRepositoryTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:auction_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db
}

func seedOpenShipment(t *testing.T, db *gorm.DB, no string, expiresAt time.Time) *models.Shipment {
	t.Helper()
	shipment := &models.Shipment{
		ShipmentNo:         no,
		ShipperID:          1,
		Status:             constants.ShipmentStatusOpenForBidding,
		AuctionType:        constants.AuctionTypeStandard,
		OriginCity:         "Chicago",
		DestinationCity:    "Dallas",
		BidExpiresAt:       &expiresAt,
		MarketplaceVisible: true,
	}
	if err := db.Create(shipment).Error; err != nil {
		t.Fatalf("create shipment failed: %v", err)
	}
	return shipment
}

func seedBid(t *testing.T, db *gorm.DB, shipmentID, carrierID uint, amount string, at time.Time) *models.Bid {
	t.Helper()
	bid := &models.Bid{
		ShipmentID:    shipmentID,
		CarrierID:     carrierID,
		Amount:        models.MustMoney(amount),
		Status:        constants.BidStatusActive,
		CarrierRating: decimal.NewFromInt(4),
		CreatedAt:     at,
		UpdatedAt:     at,
	}
	if err := db.Create(bid).Error; err != nil {
		t.Fatalf("create bid failed: %v", err)
	}
	return bid
}

func TestBidRepositoryListActiveByShipmentRanking(t *testing.T) {
	db := setupAuctionRepositoryTest(t)
	repo := NewBidRepository(db)
	now := time.Now().UTC().Truncate(time.Second)
	shipment := seedOpenShipment(t, db, "SH-RANK", now.Add(time.Hour))

	b1 := seedBid(t, db, shipment.ID, 11, "1200.50", now)
	b2 := seedBid(t, db, shipment.ID, 12, "999.99", now.Add(2*time.Second))
	b3 := seedBid(t, db, shipment.ID, 13, "999.99", now.Add(time.Second))
	withdrawn := seedBid(t, db, shipment.ID, 14, "10", now)
	if err := db.Model(withdrawn).Update("status", constants.BidStatusWithdrawn).Error; err != nil {
		t.Fatalf("withdraw seed failed: %v", err)
	}

	bids, total, err := repo.ListActiveByShipment(shipment.ID, 1, 10)
	if err != nil {
		t.Fatalf("list active bids failed: %v", err)
	}
	if total != 3 || len(bids) != 3 {
		t.Fatalf("expected 3 active bids, got total=%d len=%d", total, len(bids))
	}
	want := []uint{b3.ID, b2.ID, b1.ID}
	for i, id := range want {
		if bids[i].ID != id {
			t.Fatalf("rank %d want bid %d got %d", i, id, bids[i].ID)
		}
	}
	if bids[0].Amount.String() != "999.99" {
		t.Fatalf("unexpected amount round trip: %s", bids[0].Amount.String())
	}

	page2, _, err := repo.ListActiveByShipment(shipment.ID, 2, 2)
	if err != nil {
		t.Fatalf("list page 2 failed: %v", err)
	}
	if len(page2) != 1 || page2[0].ID != b1.ID {
		t.Fatalf("unexpected page 2: %+v", page2)
	}
}

func TestBidRepositoryCompareAndSetStatus(t *testing.T) {
	db := setupAuctionRepositoryTest(t)
	repo := NewBidRepository(db)
	now := time.Now().UTC().Truncate(time.Second)
	shipment := seedOpenShipment(t, db, "SH-CAS", now.Add(time.Hour))
	bid := seedBid(t, db, shipment.ID, 21, "500", now)

	affected, err := repo.CompareAndSetStatus(bid.ID, shipment.ID, constants.BidStatusActive, constants.BidStatusAwarded, now)
	if err != nil || affected != 1 {
		t.Fatalf("first cas should win, affected=%d err=%v", affected, err)
	}
	affected, err = repo.CompareAndSetStatus(bid.ID, shipment.ID, constants.BidStatusActive, constants.BidStatusOutbid, now)
	if err != nil || affected != 0 {
		t.Fatalf("second cas should miss, affected=%d err=%v", affected, err)
	}
	affected, _ = repo.CompareAndSetStatus(bid.ID, shipment.ID+1, constants.BidStatusAwarded, constants.BidStatusOutbid, now)
	if affected != 0 {
		t.Fatalf("cas must be scoped to shipment")
	}

	reloaded, err := repo.GetByID(bid.ID)
	if err != nil || reloaded == nil {
		t.Fatalf("reload bid failed: %v", err)
	}
	if reloaded.Status != constants.BidStatusAwarded || reloaded.ResolvedAt == nil {
		t.Fatalf("unexpected bid after cas: status=%s resolved_at=%v", reloaded.Status, reloaded.ResolvedAt)
	}
}

func TestBidRepositoryTransitionActive(t *testing.T) {
	db := setupAuctionRepositoryTest(t)
	repo := NewBidRepository(db)
	now := time.Now().UTC().Truncate(time.Second)
	shipment := seedOpenShipment(t, db, "SH-BULK", now.Add(time.Hour))
	a := seedBid(t, db, shipment.ID, 31, "700", now)
	b := seedBid(t, db, shipment.ID, 32, "710", now)
	c := seedBid(t, db, shipment.ID, 33, "720", now)

	affected, err := repo.TransitionActive(shipment.ID, []uint{}, constants.BidStatusOutbid, now)
	if err != nil || affected != 0 {
		t.Fatalf("empty id list must be a no-op, affected=%d err=%v", affected, err)
	}

	others, err := repo.ListActiveExcept(shipment.ID, a.ID)
	if err != nil || len(others) != 2 {
		t.Fatalf("list others failed: len=%d err=%v", len(others), err)
	}
	affected, err = repo.TransitionActive(shipment.ID, []uint{b.ID, c.ID}, constants.BidStatusOutbid, now)
	if err != nil || affected != 2 {
		t.Fatalf("transition others failed: affected=%d err=%v", affected, err)
	}

	affected, err = repo.TransitionActive(shipment.ID, nil, constants.BidStatusRejected, now)
	if err != nil || affected != 1 {
		t.Fatalf("transition all remaining failed: affected=%d err=%v", affected, err)
	}
	count, err := repo.CountActive(shipment.ID)
	if err != nil || count != 0 {
		t.Fatalf("expected no active bids, got %d err=%v", count, err)
	}
}

func TestShipmentRepositoryCompareAndSetStatus(t *testing.T) {
	db := setupAuctionRepositoryTest(t)
	repo := NewShipmentRepository(db)
	now := time.Now().UTC().Truncate(time.Second)
	shipment := seedOpenShipment(t, db, "SH-SCAS", now.Add(time.Hour))

	affected, err := repo.CompareAndSetStatus(shipment.ID, []string{constants.ShipmentStatusOpenForBidding}, map[string]interface{}{
		"status": constants.ShipmentStatusBidAwarded,
	})
	if err != nil || affected != 1 {
		t.Fatalf("cas open->awarded failed: affected=%d err=%v", affected, err)
	}
	affected, err = repo.UpdateWhileOpen(shipment.ID, map[string]interface{}{"extension_count": 3})
	if err != nil || affected != 0 {
		t.Fatalf("update while open must miss after award: affected=%d err=%v", affected, err)
	}

	ok, err := repo.SetSettlementRef(shipment.ID, "txn-1")
	if err != nil || !ok {
		t.Fatalf("set settlement ref failed: ok=%v err=%v", ok, err)
	}
	ok, err = repo.SetSettlementRef(shipment.ID, "txn-2")
	if err != nil || ok {
		t.Fatalf("settlement ref must not be overwritten: ok=%v err=%v", ok, err)
	}
}

func TestShipmentRepositoryListExpiryCandidates(t *testing.T) {
	db := setupAuctionRepositoryTest(t)
	repo := NewShipmentRepository(db)
	now := time.Now().UTC().Truncate(time.Second)
	due := seedOpenShipment(t, db, "SH-DUE", now.Add(-time.Minute))
	seedOpenShipment(t, db, "SH-LATER", now.Add(time.Minute))
	closed := seedOpenShipment(t, db, "SH-CLOSED", now.Add(-time.Hour))
	if err := db.Model(closed).Update("status", constants.ShipmentStatusExpired).Error; err != nil {
		t.Fatalf("close seed failed: %v", err)
	}

	awaiting := seedOpenShipment(t, db, "SH-AWAITING", now.Add(-2*time.Hour))
	seedBid(t, db, awaiting.ID, 21, "800", now.Add(-3*time.Hour))

	candidates, err := repo.ListExpiryCandidates(ExpiryCandidateFilter{ClosedBefore: now, Limit: 10})
	if err != nil {
		t.Fatalf("list expiry candidates failed: %v", err)
	}
	if len(candidates) != 1 || candidates[0].ID != due.ID {
		t.Fatalf("unexpected candidates: %+v", candidates)
	}

	stale := now.Add(-time.Hour)
	candidates, err = repo.ListExpiryCandidates(ExpiryCandidateFilter{ClosedBefore: now, StaleBefore: &stale, Limit: 10})
	if err != nil {
		t.Fatalf("list stale candidates failed: %v", err)
	}
	if len(candidates) != 2 || candidates[0].ID != awaiting.ID || candidates[1].ID != due.ID {
		t.Fatalf("unexpected stale candidates: %+v", candidates)
	}

	list, total, err := repo.List(ShipmentListFilter{OnlyMarketplace: true, Search: "dallas", Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list marketplace failed: %v", err)
	}
	if total != 3 || len(list) != 3 {
		t.Fatalf("expected three open marketplace shipments, got %d", total)
	}
}

func TestMatchingRuleRepositoryOrderingAndCounters(t *testing.T) {
	db := setupAuctionRepositoryTest(t)
	repo := NewMatchingRuleRepository(db)
	now := time.Now().UTC().Truncate(time.Second)

	mk := func(name string, priority int, active bool, origin string, created time.Time) *models.MatchingRule {
		rule := &models.MatchingRule{
			BrokerID:   5,
			Name:       name,
			Priority:   priority,
			IsActive:   active,
			Action:     constants.RuleActionNotifyBroker,
			Conditions: datatypes.NewJSONType(models.RuleConditions{OriginCity: origin}),
			CreatedAt:  created,
		}
		if err := repo.Create(rule); err != nil {
			t.Fatalf("create rule failed: %v", err)
		}
		return rule
	}
	low := mk("low", 1, true, "Chicago", now)
	high := mk("high", 9, true, "Denver", now.Add(time.Second))
	mk("off", 50, false, "Chicago", now)

	rules, err := repo.ListActiveByBroker(5)
	if err != nil {
		t.Fatalf("list active rules failed: %v", err)
	}
	if len(rules) != 2 || rules[0].ID != high.ID || rules[1].ID != low.ID {
		t.Fatalf("unexpected rule order: %+v", rules)
	}
	if rules[1].Conditions.Data().OriginCity != "Chicago" {
		t.Fatalf("conditions did not round trip: %+v", rules[1].Conditions.Data())
	}

	byCity, total, err := repo.List(MatchingRuleListFilter{BrokerID: 5, OriginCity: "chicago"})
	if err != nil {
		t.Fatalf("list by origin failed: %v", err)
	}
	if total != 2 || len(byCity) != 2 {
		t.Fatalf("expected two chicago rules, got %d", total)
	}

	if err := repo.IncrementTriggered(low.ID); err != nil {
		t.Fatalf("increment triggered failed: %v", err)
	}
	if err := repo.IncrementSuccessful(low.ID); err != nil {
		t.Fatalf("increment successful failed: %v", err)
	}
	reloaded, err := repo.GetByID(low.ID)
	if err != nil || reloaded == nil {
		t.Fatalf("reload rule failed: %v", err)
	}
	if reloaded.TimesTriggered != 1 || reloaded.SuccessfulMatches != 1 {
		t.Fatalf("unexpected counters: %+v", reloaded)
	}

	affected, err := repo.Delete(low.ID, 999)
	if err != nil || affected != 0 {
		t.Fatalf("delete by other broker must miss: affected=%d err=%v", affected, err)
	}
}

func TestCarrierProfileRepositoryUpsert(t *testing.T) {
	db := setupAuctionRepositoryTest(t)
	repo := NewCarrierProfileRepository(db)

	profile := &models.CarrierProfile{CarrierID: 8, DisplayName: "Acme", Rating: decimal.RequireFromString("4.5"), CompletedLoads: 10}
	if err := repo.Upsert(profile); err != nil {
		t.Fatalf("insert profile failed: %v", err)
	}
	profile.Rating = decimal.RequireFromString("4.75")
	profile.CompletedLoads = 11
	if err := repo.Upsert(profile); err != nil {
		t.Fatalf("update profile failed: %v", err)
	}
	got, err := repo.GetByCarrierID(8)
	if err != nil || got == nil {
		t.Fatalf("get profile failed: %v", err)
	}
	if got.CompletedLoads != 11 || !got.Rating.Equal(decimal.RequireFromString("4.75")) {
		t.Fatalf("unexpected profile: %+v", got)
	}
	missing, err := repo.GetByCarrierID(9)
	if err != nil || missing != nil {
		t.Fatalf("missing profile should be nil, got %+v err=%v", missing, err)
	}
}

type traceRecorder struct {
	gormlogger.Interface
	errs []error
}

func (r *traceRecorder) Trace(_ context.Context, _ time.Time, _ func() (string, int64), err error) {
	if err != nil {
		r.errs = append(r.errs, err)
	}
}

func TestCarrierProfileLookupMissIsQuiet(t *testing.T) {
	db := setupAuctionRepositoryTest(t)
	recorder := &traceRecorder{Interface: gormlogger.Discard}
	repo := NewCarrierProfileRepository(db.Session(&gorm.Session{Logger: recorder}))

	missing, err := repo.GetByCarrierID(42)
	if err != nil || missing != nil {
		t.Fatalf("missing profile should be nil, got %+v err=%v", missing, err)
	}
	if len(recorder.errs) != 0 {
		t.Fatalf("lookup miss must not surface a query error, got %v", recorder.errs)
	}
}
