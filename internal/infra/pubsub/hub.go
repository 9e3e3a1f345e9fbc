package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"quote_relay/internal/domain"
	"quote_relay/internal/infra"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Compile-time check to ensure Hub implements TopicPublisher
var _ domain.TopicPublisher = (*Hub)(nil)

// Hub is the in-process WebSocket broker for downstream listeners.
// Clients pick topics themselves; a slow client loses messages instead of
// stalling the feed.
type Hub struct {
	upgrader   websocket.Upgrader
	sendBuffer int
	metrics    *infra.Metrics

	mu      sync.RWMutex
	topics  map[string]map[*client]struct{}
	clients map[*client]struct{}
}

// NewHub creates a hub whose clients buffer up to sendBuffer messages.
func NewHub(sendBuffer int, metrics *infra.Metrics) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sendBuffer: sendBuffer,
		metrics:    metrics,
		topics:     make(map[string]map[*client]struct{}),
		clients:    make(map[*client]struct{}),
	}
}

// Name implements domain.TopicPublisher.
func (h *Hub) Name() string { return "hub" }

// Publish pushes the quote to every client on topic without blocking.
func (h *Hub) Publish(_ context.Context, topic string, q domain.Quote) error {
	payload, err := json.Marshal(Envelope{Topic: topic, Data: q})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.topics[topic] {
		if !c.enqueue(payload) {
			slog.Debug("[HUB] client buffer full, message dropped",
				slog.String("client", c.id),
				slog.String("topic", topic),
			)
		}
	}
	return nil
}

// ServeHTTP upgrades the request and serves one client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("[HUB] upgrade failed", slog.Any("error", err))
		return
	}

	c := &client{
		id:     uuid.NewString(),
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, h.sendBuffer),
		topics: make(map[string]struct{}),
	}
	h.register(c)

	go c.writePump()
	c.readPump()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.conn.Close()
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.metrics.AddDownstreamClients(1)
	slog.Info("[HUB] client connected", slog.String("client", c.id))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	for topic := range c.topics {
		h.removeLocked(topic, c)
	}
	close(c.send)
	h.mu.Unlock()

	h.metrics.AddDownstreamClients(-1)
	slog.Info("[HUB] client disconnected", slog.String("client", c.id))
}

func (h *Hub) subscribe(c *client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*client]struct{})
		h.topics[topic] = subs
	}
	subs[c] = struct{}{}
	c.topics[topic] = struct{}{}
}

func (h *Hub) unsubscribe(c *client, topic string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := c.topics[topic]; !ok {
		return false
	}
	delete(c.topics, topic)
	h.removeLocked(topic, c)
	return true
}

func (h *Hub) removeLocked(topic string, c *client) {
	subs := h.topics[topic]
	delete(subs, c)
	if len(subs) == 0 {
		delete(h.topics, topic)
	}
}

// client is one downstream WebSocket connection.
// topics and send are guarded by the hub's mutex.
type client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	topics map[string]struct{}
}

// enqueue must be called with the hub lock held. false means the message was dropped.
func (c *client) enqueue(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// reply queues a response to the client.
func (c *client) reply(resp Response) {
	b, err := json.Marshal(resp)
	if err != nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c]; ok {
		c.enqueue(b)
	}
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("[HUB] client read error", slog.String("client", c.id), slog.Any("error", err))
			}
			return
		}
		c.handle(message)
	}
}

func (c *client) handle(message []byte) {
	var req Request
	if err := json.Unmarshal(message, &req); err != nil {
		c.reply(Response{Type: "error", Message: "invalid JSON"})
		return
	}

	// Topics match exactly as published: /topic/<symbol as the feed sends it>.
	if _, ok := domain.SymbolFromTopic(req.Topic); !ok {
		c.reply(Response{Type: "error", Topic: req.Topic, Message: "topic must look like " + domain.TopicPrefix + "<symbol>"})
		return
	}
	topic := req.Topic

	switch req.Action {
	case actionSubscribe:
		c.hub.subscribe(c, topic)
		slog.Debug("[HUB] subscribe", slog.String("client", c.id), slog.String("topic", topic))
		c.reply(Response{Type: "ack", Topic: topic, Message: "subscribed"})
	case actionUnsubscribe:
		if !c.hub.unsubscribe(c, topic) {
			c.reply(Response{Type: "error", Topic: topic, Message: "not subscribed"})
			return
		}
		slog.Debug("[HUB] unsubscribe", slog.String("client", c.id), slog.String("topic", topic))
		c.reply(Response{Type: "ack", Topic: topic, Message: "unsubscribed"})
	default:
		c.reply(Response{Type: "error", Topic: topic, Message: "unknown action: " + req.Action})
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
