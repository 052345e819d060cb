package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/freightbid/internal/constants"
	"github.com/freightbid/internal/models"
	"github.com/freightbid/internal/repository"

	"github.com/shopspring/decimal"
)

func TestPlaceBidRejectsInvalidAmount(t *testing.T) {
	env := setupAuctionServiceTest(t, defaultTestAuctionConfig())
	shipment := env.openShipment(t, nil)

	for _, raw := range []string{"0", "-10"} {
		_, err := env.bids.PlaceBid(context.Background(), PlaceBidInput{
			ShipmentID: shipment.ID,
			CarrierID:  11,
			Amount:     models.MustMoney(raw),
		})
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %s: expected ErrInvalidAmount, got %v", raw, err)
		}
	}
	if n := env.countBids(t, shipment.ID, constants.BidStatusActive); n != 0 {
		t.Fatalf("rejected bids must not be stored, got %d", n)
	}
}

func TestPlaceBidRejectsUnknownShipmentAndOwnLoad(t *testing.T) {
	env := setupAuctionServiceTest(t, defaultTestAuctionConfig())
	shipment := env.openShipment(t, nil)

	_, err := env.bids.PlaceBid(context.Background(), PlaceBidInput{ShipmentID: 9999, CarrierID: 11, Amount: models.MustMoney("100")})
	if !errors.Is(err, ErrShipmentNotFound) {
		t.Fatalf("expected ErrShipmentNotFound, got %v", err)
	}
	_, err = env.bids.PlaceBid(context.Background(), PlaceBidInput{ShipmentID: shipment.ID, CarrierID: testShipper.UserID, Amount: models.MustMoney("100")})
	if !errors.Is(err, ErrBidForbidden) {
		t.Fatalf("expected ErrBidForbidden for own shipment, got %v", err)
	}
}

func TestPlaceBidRejectsDraftAndClosedAuction(t *testing.T) {
	env := setupAuctionServiceTest(t, defaultTestAuctionConfig())
	draft, err := env.shipments.CreateShipment(context.Background(), CreateShipmentInput{
		ShipperID:       testShipper.UserID,
		OriginCity:      "Chicago",
		DestinationCity: "Dallas",
	})
	if err != nil {
		t.Fatalf("create draft failed: %v", err)
	}
	_, err = env.bids.PlaceBid(context.Background(), PlaceBidInput{ShipmentID: draft.ID, CarrierID: 11, Amount: models.MustMoney("100")})
	if !errors.Is(err, ErrAuctionClosed) {
		t.Fatalf("expected ErrAuctionClosed for draft, got %v", err)
	}

	shipment := env.openShipment(t, nil)
	env.clock.Set(*shipment.BidExpiresAt)
	_, err = env.bids.PlaceBid(context.Background(), PlaceBidInput{ShipmentID: shipment.ID, CarrierID: 11, Amount: models.MustMoney("100")})
	if !errors.Is(err, ErrAuctionClosed) {
		t.Fatalf("expected ErrAuctionClosed at expiry, got %v", err)
	}

	after := env.reloadShipment(t, shipment.ID)
	if !after.BidExpiresAt.Equal(*shipment.BidExpiresAt) || after.ExtensionCount != 0 {
		t.Fatalf("closed auction must not change: %+v", after)
	}
	if n := env.countBids(t, shipment.ID, constants.BidStatusActive); n != 0 {
		t.Fatalf("no bid should be stored, got %d", n)
	}
}

func TestPlaceBidSelfSupersedesOnlyOwnBid(t *testing.T) {
	env := setupAuctionServiceTest(t, defaultTestAuctionConfig())
	shipment := env.openShipment(t, nil)

	first := env.placeBid(t, shipment.ID, 11, "1000")
	env.clock.Advance(time.Minute)
	competitor := env.placeBid(t, shipment.ID, 12, "990")
	env.clock.Advance(time.Minute)
	second := env.placeBid(t, shipment.ID, 11, "950")

	if len(second.Superseded) != 1 || second.Superseded[0].ID != first.Bid.ID {
		t.Fatalf("expected first bid superseded, got %+v", second.Superseded)
	}
	if got := env.reloadBid(t, first.Bid.ID).Status; got != constants.BidStatusOutbid {
		t.Fatalf("expected first bid outbid, got %s", got)
	}
	if got := env.reloadBid(t, competitor.Bid.ID).Status; got != constants.BidStatusActive {
		t.Fatalf("competitor must stay active, got %s", got)
	}
	if got := env.reloadBid(t, second.Bid.ID).Status; got != constants.BidStatusActive {
		t.Fatalf("expected new bid active, got %s", got)
	}

	outbid := env.recorder.ofType(constants.EventOutbid)
	if len(outbid) != 1 || outbid[0].BidID != first.Bid.ID || outbid[0].Reason != "superseded" {
		t.Fatalf("unexpected outbid events: %+v", outbid)
	}

	bids, total, err := env.bids.ListActiveBids(shipment.ID, 1, 20)
	if err != nil {
		t.Fatalf("list active bids failed: %v", err)
	}
	if total != 2 || bids[0].ID != second.Bid.ID || bids[1].ID != competitor.Bid.ID {
		t.Fatalf("unexpected ranking: total=%d bids=%+v", total, bids)
	}
}

func TestPlaceBidSnapshotsCarrierProfile(t *testing.T) {
	env := setupAuctionServiceTest(t, defaultTestAuctionConfig())
	if err := env.profiles.UpsertCarrierProfile(context.Background(), &models.CarrierProfile{
		CarrierID:      11,
		DisplayName:    "Lone Star Haulers",
		Rating:         decimal.RequireFromString("4.60"),
		CompletedLoads: 120,
	}); err != nil {
		t.Fatalf("upsert profile failed: %v", err)
	}
	shipment := env.openShipment(t, nil)

	result := env.placeBid(t, shipment.ID, 11, "1000")
	stored := env.reloadBid(t, result.Bid.ID)
	if !stored.CarrierRating.Equal(decimal.RequireFromString("4.6")) || stored.CarrierCompletedLoads != 120 {
		t.Fatalf("unexpected snapshot: rating=%s loads=%d", stored.CarrierRating, stored.CarrierCompletedLoads)
	}
}

func TestPlaceBidExtendsWithinTrailingWindowUpToCap(t *testing.T) {
	env := setupAuctionServiceTest(t, defaultTestAuctionConfig())
	shipment := env.openShipment(t, nil)
	originalExpiry := *shipment.BidExpiresAt
	hardClose := *shipment.BidHardCloseAt
	if !hardClose.Equal(originalExpiry.Add(30 * time.Minute)) {
		t.Fatalf("unexpected hard close: %v", hardClose)
	}

	// 尾段之外不延时
	env.clock.Set(originalExpiry.Add(-10 * time.Minute))
	early := env.placeBid(t, shipment.ID, 11, "1000")
	if early.Extended {
		t.Fatalf("bid outside trailing window must not extend")
	}

	expiry := originalExpiry
	for i := 0; i < 10; i++ {
		env.clock.Set(expiry.Add(-time.Minute))
		result := env.placeBid(t, shipment.ID, uint(20+i%2), "900")
		stored := env.reloadShipment(t, shipment.ID)
		if stored.BidExpiresAt.After(hardClose) {
			t.Fatalf("expiry passed hard close: %v > %v", stored.BidExpiresAt, hardClose)
		}
		if result.Extended {
			want := expiry.Add(5 * time.Minute)
			if want.After(hardClose) {
				want = hardClose
			}
			if !stored.BidExpiresAt.Equal(want) || !result.NewExpiry.Equal(want) {
				t.Fatalf("round %d: expected expiry %v, got %v", i, want, stored.BidExpiresAt)
			}
		} else if !stored.BidExpiresAt.Equal(expiry) {
			t.Fatalf("round %d: expiry changed without extension", i)
		}
		expiry = *stored.BidExpiresAt
	}

	final := env.reloadShipment(t, shipment.ID)
	if !final.BidExpiresAt.Equal(hardClose) {
		t.Fatalf("expected expiry capped at hard close, got %v", final.BidExpiresAt)
	}
	if final.ExtensionCount != 6 {
		t.Fatalf("expected 6 extensions, got %d", final.ExtensionCount)
	}
	extended := env.recorder.ofType(constants.EventAuctionExtended)
	if len(extended) != 6 {
		t.Fatalf("expected 6 auction_extended events, got %d", len(extended))
	}
	if !extended[0].OldExpiry.Equal(originalExpiry) || !extended[0].NewExpiry.Equal(originalExpiry.Add(5*time.Minute)) {
		t.Fatalf("unexpected first extension event: %+v", extended[0])
	}
}

func TestWithdrawBid(t *testing.T) {
	env := setupAuctionServiceTest(t, defaultTestAuctionConfig())
	shipment := env.openShipment(t, nil)
	placed := env.placeBid(t, shipment.ID, 11, "1000")

	if _, err := env.bids.WithdrawBid(context.Background(), 12, placed.Bid.ID); !errors.Is(err, ErrBidNotFound) {
		t.Fatalf("expected ErrBidNotFound for other carrier, got %v", err)
	}
	if _, err := env.bids.WithdrawBid(context.Background(), 11, 9999); !errors.Is(err, ErrBidNotFound) {
		t.Fatalf("expected ErrBidNotFound for missing bid, got %v", err)
	}

	withdrawn, err := env.bids.WithdrawBid(context.Background(), 11, placed.Bid.ID)
	if err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if withdrawn.Status != constants.BidStatusWithdrawn {
		t.Fatalf("unexpected status: %s", withdrawn.Status)
	}
	if _, err := env.bids.WithdrawBid(context.Background(), 11, placed.Bid.ID); err != nil {
		t.Fatalf("second withdraw should be idempotent: %v", err)
	}
	if n := len(env.recorder.ofType(constants.EventBidWithdrawn)); n != 1 {
		t.Fatalf("expected one bid_withdrawn event, got %d", n)
	}

	other := env.placeBid(t, shipment.ID, 12, "990")
	if _, err := env.awards.ManualAward(context.Background(), testShipper, shipment.ID, other.Bid.ID); err != nil {
		t.Fatalf("award failed: %v", err)
	}
	if _, err := env.bids.WithdrawBid(context.Background(), 12, other.Bid.ID); !errors.Is(err, ErrBidNotActive) {
		t.Fatalf("expected ErrBidNotActive after award, got %v", err)
	}
}

func TestListCarrierBids(t *testing.T) {
	env := setupAuctionServiceTest(t, defaultTestAuctionConfig())
	first := env.openShipment(t, nil)
	second := env.openShipment(t, nil)
	env.placeBid(t, first.ID, 11, "1000")
	env.placeBid(t, second.ID, 11, "800")
	env.placeBid(t, second.ID, 12, "700")

	bids, total, err := env.bids.ListCarrierBids(11, repository.BidListFilter{})
	if err != nil {
		t.Fatalf("list carrier bids failed: %v", err)
	}
	if total != 2 || len(bids) != 2 {
		t.Fatalf("expected 2 bids for carrier, got %d", total)
	}
	for _, bid := range bids {
		if bid.CarrierID != 11 {
			t.Fatalf("foreign bid leaked: %+v", bid)
		}
	}
}
