package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/freightbid/internal/constants"
	"github.com/freightbid/internal/models"
)

func TestBusDeliversByTopic(t *testing.T) {
	bus := NewBus(4)
	ch1, cancel1 := bus.Subscribe(ShipmentTopic(1))
	defer cancel1()
	all, cancelAll := bus.Subscribe(constants.EventTopicAll)
	defer cancelAll()
	ch2, cancel2 := bus.Subscribe(ShipmentTopic(2))
	defer cancel2()

	bid := &models.Bid{ID: 9, ShipmentID: 1, CarrierID: 3, Amount: models.MustMoney("100")}
	bus.Publish(context.Background(), BidPlaced(bid, time.Now()))

	select {
	case e := <-ch1:
		if e.Type != constants.EventBidPlaced || e.BidID != 9 || e.Amount == nil {
			t.Fatalf("unexpected event: %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatalf("topic subscriber did not receive event")
	}
	select {
	case <-all:
	case <-time.After(time.Second):
		t.Fatalf("wildcard subscriber did not receive event")
	}
	select {
	case e := <-ch2:
		t.Fatalf("other topic should not receive event: %+v", e)
	default:
	}
}

func TestBusDropsWhenSubscriberIsFull(t *testing.T) {
	bus := NewBus(1)
	ch, cancel := bus.Subscribe(ShipmentTopic(5))

	for i := 0; i < 3; i++ {
		bus.Publish(context.Background(), ShipmentCancelled(5, time.Now()))
	}
	if len(ch) != 1 {
		t.Fatalf("expected buffered event count 1, got %d", len(ch))
	}

	cancel()
	cancel()
	if bus.SubscriberCount(ShipmentTopic(5)) != 0 {
		t.Fatalf("subscription should be removed")
	}
	// 取消后发布不应 panic
	bus.Publish(context.Background(), ShipmentCancelled(5, time.Now()))
}

func TestMultiFansOut(t *testing.T) {
	var got []string
	record := func(name string) Publisher {
		return PublisherFunc(func(_ context.Context, events ...Event) {
			for range events {
				got = append(got, name)
			}
		})
	}
	Multi(record("a"), nil, record("b")).Publish(context.Background(), AuctionExpired(1, "no_bids", time.Now()))
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected fan out: %v", got)
	}
}

func TestRelaySkipsOwnEvents(t *testing.T) {
	var received []Event
	local := PublisherFunc(func(_ context.Context, events ...Event) {
		received = append(received, events...)
	})
	relay := NewRedisRelay(nil, "fb:events", local)

	own := AuctionExpired(1, "no_bids", time.Now())
	own.Origin = relay.Instance()
	payload, _ := json.Marshal(own)
	relay.handle(context.Background(), string(payload))

	foreign := AuctionExpired(2, "no_bids", time.Now())
	foreign.Origin = "other-instance"
	payload, _ = json.Marshal(foreign)
	relay.handle(context.Background(), string(payload))
	relay.handle(context.Background(), "not-json")

	if len(received) != 1 || received[0].ShipmentID != 2 {
		t.Fatalf("unexpected relayed events: %+v", received)
	}
	// 未配置客户端时发布为空操作
	relay.Publish(context.Background(), foreign)
}
