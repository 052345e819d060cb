package service

import (
	"context"
	"errors"
	"testing"

	"github.com/freightbid/internal/constants"
	"github.com/freightbid/internal/models"
	"github.com/freightbid/internal/repository"
)

func TestCreateShipmentValidation(t *testing.T) {
	env := setupAuctionServiceTest(t, defaultTestAuctionConfig())
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreateShipmentInput
		want  error
	}{
		{"missing shipper", CreateShipmentInput{OriginCity: "A", DestinationCity: "B"}, ErrShipmentInvalid},
		{"missing route", CreateShipmentInput{ShipperID: 1, OriginCity: "A"}, ErrShipmentInvalid},
		{"bad urgency", CreateShipmentInput{ShipperID: 1, OriginCity: "A", DestinationCity: "B", Urgency: "asap"}, ErrShipmentInvalid},
		{"unknown auction type", CreateShipmentInput{ShipperID: 1, OriginCity: "A", DestinationCity: "B", AuctionType: "dutch"}, ErrAuctionConfigInvalid},
		{"buy it now without price", CreateShipmentInput{ShipperID: 1, OriginCity: "A", DestinationCity: "B", AuctionType: constants.AuctionTypeBuyItNow}, ErrAuctionConfigInvalid},
		{"negative duration", CreateShipmentInput{ShipperID: 1, OriginCity: "A", DestinationCity: "B", BiddingDurationMinutes: -5}, ErrAuctionConfigInvalid},
		{"zero reserve", CreateShipmentInput{ShipperID: 1, OriginCity: "A", DestinationCity: "B", ReservePrice: models.MoneyPtr(models.MustMoney("0"))}, ErrAuctionConfigInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := env.shipments.CreateShipment(ctx, tc.input); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	created, err := env.shipments.CreateShipment(ctx, CreateShipmentInput{ShipperID: 1, OriginCity: " Chicago ", DestinationCity: "Dallas"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.Status != constants.ShipmentStatusDraft || created.OriginCity != "Chicago" {
		t.Fatalf("unexpected shipment: %+v", created)
	}
	if created.BiddingDurationMinutes != 60 || created.Urgency != constants.UrgencyStandard {
		t.Fatalf("expected defaults applied: %+v", created)
	}
}

func TestPublishShipment(t *testing.T) {
	env := setupAuctionServiceTest(t, defaultTestAuctionConfig())
	ctx := context.Background()

	created, err := env.shipments.CreateShipment(ctx, CreateShipmentInput{ShipperID: testShipper.UserID, OriginCity: "A", DestinationCity: "B"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	stranger := Actor{UserID: 2, Role: constants.RoleShipper}
	if _, err := env.shipments.PublishShipment(ctx, stranger, created.ID); !errors.Is(err, ErrShipmentForbidden) {
		t.Fatalf("expected ErrShipmentForbidden, got %v", err)
	}
	opened, err := env.shipments.PublishShipment(ctx, testShipper, created.ID)
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if opened.Status != constants.ShipmentStatusOpenForBidding || opened.BidExpiresAt == nil || opened.BidHardCloseAt == nil {
		t.Fatalf("unexpected opened shipment: %+v", opened)
	}
	if _, err := env.shipments.PublishShipment(ctx, testShipper, created.ID); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition on re-publish, got %v", err)
	}
	if _, err := env.shipments.PublishShipment(ctx, testShipper, 9999); !errors.Is(err, ErrShipmentNotFound) {
		t.Fatalf("expected ErrShipmentNotFound, got %v", err)
	}

	bestOffer := env.openShipment(t, func(in *CreateShipmentInput) {
		in.AuctionType = constants.AuctionTypeBestOffer
	})
	if bestOffer.BidExpiresAt != nil {
		t.Fatalf("best offer shipments have no expiry, got %v", bestOffer.BidExpiresAt)
	}
}

func TestCancelShipmentRejectsActiveBids(t *testing.T) {
	env := setupAuctionServiceTest(t, defaultTestAuctionConfig())
	ctx := context.Background()
	shipment := env.openShipment(t, nil)
	env.placeBid(t, shipment.ID, 11, "1000")
	env.placeBid(t, shipment.ID, 12, "990")

	stranger := Actor{UserID: 2, Role: constants.RoleShipper}
	if _, err := env.shipments.CancelShipment(ctx, stranger, shipment.ID); !errors.Is(err, ErrShipmentForbidden) {
		t.Fatalf("expected ErrShipmentForbidden, got %v", err)
	}

	cancelled, err := env.shipments.CancelShipment(ctx, testShipper, shipment.ID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != constants.ShipmentStatusCancelled || cancelled.CancelledAt == nil {
		t.Fatalf("unexpected cancelled shipment: %+v", cancelled)
	}
	if n := env.countBids(t, shipment.ID, constants.BidStatusRejected); n != 2 {
		t.Fatalf("expected 2 rejected bids, got %d", n)
	}
	if n := len(env.recorder.ofType(constants.EventShipmentCancelled)); n != 1 {
		t.Fatalf("expected one shipment_cancelled event, got %d", n)
	}
	if n := len(env.recorder.ofType(constants.EventBidRejected)); n != 2 {
		t.Fatalf("expected two bid_rejected events, got %d", n)
	}
	if _, err := env.shipments.CancelShipment(ctx, testShipper, shipment.ID); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition on second cancel, got %v", err)
	}
	if _, err := env.bids.PlaceBid(ctx, PlaceBidInput{ShipmentID: shipment.ID, CarrierID: 13, Amount: models.MustMoney("900")}); !errors.Is(err, ErrAuctionClosed) {
		t.Fatalf("expected ErrAuctionClosed on cancelled shipment, got %v", err)
	}
}

func TestOperationalTransitionsAfterAward(t *testing.T) {
	env := setupAuctionServiceTest(t, defaultTestAuctionConfig())
	ctx := context.Background()
	shipment := env.openShipment(t, nil)

	if _, err := env.shipments.MarkInTransit(ctx, testShipper, shipment.ID); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition before award, got %v", err)
	}
	placed := env.placeBid(t, shipment.ID, 11, "1000")
	if _, err := env.awards.ManualAward(ctx, testShipper, shipment.ID, placed.Bid.ID); err != nil {
		t.Fatalf("award failed: %v", err)
	}
	if _, err := env.shipments.CancelShipment(ctx, testShipper, shipment.ID); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("awarded shipment cannot be cancelled, got %v", err)
	}

	otherCarrier := Actor{UserID: 12, Role: constants.RoleCarrier}
	if _, err := env.shipments.MarkInTransit(ctx, otherCarrier, shipment.ID); !errors.Is(err, ErrShipmentForbidden) {
		t.Fatalf("expected ErrShipmentForbidden for losing carrier, got %v", err)
	}
	winner := Actor{UserID: 11, Role: constants.RoleCarrier}
	inTransit, err := env.shipments.MarkInTransit(ctx, winner, shipment.ID)
	if err != nil {
		t.Fatalf("mark in transit failed: %v", err)
	}
	if inTransit.Status != constants.ShipmentStatusInTransit || inTransit.InTransitAt == nil {
		t.Fatalf("unexpected shipment: %+v", inTransit)
	}
	delivered, err := env.shipments.MarkDelivered(ctx, testShipper, shipment.ID)
	if err != nil {
		t.Fatalf("mark delivered failed: %v", err)
	}
	if delivered.Status != constants.ShipmentStatusDelivered || delivered.DeliveredAt == nil {
		t.Fatalf("unexpected shipment: %+v", delivered)
	}
}

func TestListShipmentsMarketplace(t *testing.T) {
	env := setupAuctionServiceTest(t, defaultTestAuctionConfig())
	env.openShipment(t, nil)
	env.openShipment(t, func(in *CreateShipmentInput) { in.MarketplaceVisible = false })
	if _, err := env.shipments.CreateShipment(context.Background(), CreateShipmentInput{
		ShipperID:          testShipper.UserID,
		OriginCity:         "Chicago",
		DestinationCity:    "Denver",
		MarketplaceVisible: true,
	}); err != nil {
		t.Fatalf("create draft failed: %v", err)
	}

	list, total, err := env.shipments.ListShipments(repository.ShipmentListFilter{OnlyMarketplace: true})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 || len(list) != 1 {
		t.Fatalf("expected one visible open shipment, got %d", total)
	}
	if _, err := env.shipments.GetShipment(9999); !errors.Is(err, ErrShipmentNotFound) {
		t.Fatalf("expected ErrShipmentNotFound, got %v", err)
	}
}
