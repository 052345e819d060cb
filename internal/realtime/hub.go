package realtime

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/freightbid/internal/config"
	"github.com/freightbid/internal/events"
	"github.com/freightbid/internal/logger"
	"github.com/freightbid/internal/metrics"

	"github.com/gorilla/websocket"
)

const (
	defaultPingInterval = 25 * time.Second
	writeWait           = 10 * time.Second
)

// ErrHubClosed Hub 已关闭
var ErrHubClosed = errors.New("realtime hub closed")

// Hub 将运单事件推送给 WebSocket 订阅者
// 每个连接独立订阅事件总线上的运单主题
type Hub struct {
	bus          *events.Bus
	upgrader     websocket.Upgrader
	pingInterval time.Duration

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// NewHub 创建推送中心
func NewHub(bus *events.Bus, cfg config.RealtimeConfig) *Hub {
	readSize := cfg.ReadBufferSize
	if readSize <= 0 {
		readSize = 1024
	}
	writeSize := cfg.WriteBufferSize
	if writeSize <= 0 {
		writeSize = 1024
	}
	ping := time.Duration(cfg.PingIntervalSeconds) * time.Second
	if ping <= 0 {
		ping = defaultPingInterval
	}
	return &Hub{
		bus: bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readSize,
			WriteBufferSize: writeSize,
			// 鉴权已在路由层完成
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		pingInterval: ping,
		clients:      make(map[*client]struct{}),
	}
}

// Serve 升级连接并持续推送指定运单的事件，直到连接断开
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, shipmentID uint) error {
	if h == nil || h.bus == nil {
		return ErrHubClosed
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{conn: conn, done: make(chan struct{})}
	if !h.register(c) {
		_ = conn.Close()
		return ErrHubClosed
	}
	defer h.unregister(c)

	feed, cancel := h.bus.Subscribe(events.ShipmentTopic(shipmentID))
	defer cancel()

	logger.Debugw("realtime_client_connected", "shipment_id", shipmentID, "remote", r.RemoteAddr)
	go h.readLoop(c)
	h.writeLoop(c, feed)
	logger.Debugw("realtime_client_disconnected", "shipment_id", shipmentID, "remote", r.RemoteAddr)
	return nil
}

// 客户端不发送业务消息，读循环只处理控制帧与断开
func (h *Hub) readLoop(c *client) {
	defer c.close()
	pongWait := 2 * h.pingInterval
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debugw("realtime_client_read_failed", "error", err)
			}
			return
		}
	}
}

func (h *Hub) writeLoop(c *client, feed <-chan events.Event) {
	defer c.close()
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case e, ok := <-feed:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(e); err != nil {
				logger.Debugw("realtime_client_write_failed", "event_type", e.Type, "error", err)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	metrics.RealtimeConnections.Inc()
	return true
}

func (h *Hub) unregister(c *client) {
	c.close()
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		metrics.RealtimeConnections.Dec()
	}
}

// ConnectionCount 当前连接数
func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close 断开全部连接并拒绝新连接
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(time.Second))
		c.close()
	}
}
