package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/freightbid/internal/config"
	"github.com/freightbid/internal/constants"
	"github.com/freightbid/internal/events"

	"github.com/gorilla/websocket"
)

func setupHubTest(t *testing.T, shipmentID uint) (*Hub, *events.Bus, *websocket.Conn) {
	t.Helper()
	bus := events.NewBus(8)
	hub := NewHub(bus, config.RealtimeConfig{PingIntervalSeconds: 1})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, shipmentID)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	waitFor(t, func() bool { return bus.SubscriberCount(events.ShipmentTopic(shipmentID)) == 1 })
	return hub, bus, conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestHubPushesShipmentEvents(t *testing.T) {
	_, bus, conn := setupHubTest(t, 7)
	now := time.Now()

	bus.Publish(t.Context(),
		events.AuctionExpired(8, "no_bids", now),
		events.ShipmentCancelled(7, now),
	)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got events.Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read event failed: %v", err)
	}
	if got.Type != constants.EventShipmentCancelled || got.ShipmentID != 7 {
		t.Fatalf("expected only shipment 7 events, got %+v", got)
	}
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	hub, bus, conn := setupHubTest(t, 3)
	if hub.ConnectionCount() != 1 {
		t.Fatalf("expected one connection, got %d", hub.ConnectionCount())
	}

	hub.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected connection closed after hub shutdown")
	}
	waitFor(t, func() bool { return bus.SubscriberCount(events.ShipmentTopic(3)) == 0 })
	if hub.ConnectionCount() != 0 {
		t.Fatalf("expected no connections, got %d", hub.ConnectionCount())
	}
}
