package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/freightbid/internal/config"
	"github.com/freightbid/internal/events"
)

func TestDisabledClientSkipsEnqueue(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new disabled client failed: %v", err)
	}
	if client.Enabled() {
		t.Fatalf("client should be disabled")
	}
	if err := client.EnqueueAuctionExpire(AuctionExpirePayload{ShipmentID: 1}, time.Minute); err != nil {
		t.Fatalf("disabled enqueue should be nil: %v", err)
	}
	if err := client.EnqueueAuctionSettle(AuctionSettlePayload{ShipmentID: 1, BidID: 2}); err != nil {
		t.Fatalf("disabled enqueue should be nil: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close disabled client failed: %v", err)
	}
}

func TestTaskPayloadRoundTrip(t *testing.T) {
	task, err := NewAuctionExpireTask(AuctionExpirePayload{ShipmentID: 7, ExpiresAt: 1700000000})
	if err != nil {
		t.Fatalf("new expire task failed: %v", err)
	}
	if task.Type() != TaskAuctionExpire {
		t.Fatalf("unexpected task type: %s", task.Type())
	}
	var payload AuctionExpirePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		t.Fatalf("decode payload failed: %v", err)
	}
	if payload.ShipmentID != 7 || payload.ExpiresAt != 1700000000 {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	notify, err := NewAuctionNotifyTask(AuctionNotifyPayload{Event: events.ShipmentCancelled(3, time.Now())})
	if err != nil {
		t.Fatalf("new notify task failed: %v", err)
	}
	if notify.Type() != TaskAuctionNotify {
		t.Fatalf("unexpected notify type: %s", notify.Type())
	}
}

func TestTaskIDsAreDeterministic(t *testing.T) {
	a := expireTaskID(AuctionExpirePayload{ShipmentID: 4, ExpiresAt: 100})
	b := expireTaskID(AuctionExpirePayload{ShipmentID: 4, ExpiresAt: 100})
	c := expireTaskID(AuctionExpirePayload{ShipmentID: 4, ExpiresAt: 400})
	if a != b || a == c {
		t.Fatalf("unexpected expire task ids: %s %s %s", a, b, c)
	}
	if settleTaskID(AuctionSettlePayload{ShipmentID: 4, BidID: 9}) != "settle:4:9" {
		t.Fatalf("unexpected settle task id")
	}
}

func TestBuildServerConfigDefaults(t *testing.T) {
	opt, cfg := BuildServerConfig(nil)
	if opt.Addr != "127.0.0.1:6379" {
		t.Fatalf("unexpected addr: %s", opt.Addr)
	}
	if cfg.Concurrency != 10 || cfg.Queues[CriticalQueue] != 6 {
		t.Fatalf("unexpected server config: %+v", cfg)
	}
}
