package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/jap-panel/internal/device"
	"github.com/nerrad567/jap-panel/internal/infrastructure/config"
	"github.com/nerrad567/jap-panel/internal/infrastructure/logging"
)

// Frame types on the panel socket.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"

	// wsSendBufferSize bounds the frames queued for one client.
	wsSendBufferSize = 256
)

// Event names a client may subscribe to.
const (
	EventControlApplied = "device.control_applied"
	EventStateRefreshed = "device.state_refreshed"
)

// WSMessage is a frame exchanged with a panel client.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload names the events a subscribe or unsubscribe frame
// applies to.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// inboundFrame keeps the payload raw until the frame type is known.
type inboundFrame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// wsTiming holds the keepalive durations derived from config.
type wsTiming struct {
	pingEvery time.Duration
	writeWait time.Duration
	readWait  time.Duration
}

func newWSTiming(cfg config.WebSocketConfig) wsTiming {
	ping := time.Duration(cfg.PingInterval) * time.Second
	pong := time.Duration(cfg.PongTimeout) * time.Second
	return wsTiming{pingEvery: ping, writeWait: pong, readWait: ping + pong}
}

// Hub fans control reports and rendered states out to panel clients.
// It is registered with the control service as a control.Listener.
type Hub struct {
	maxMessage int64
	timing     wsTiming
	logger     *logging.Logger

	mu      sync.RWMutex
	clients map[*WSClient]struct{}
}

// WSClient is one connected panel socket.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// mu guards subscriptions and closed. Holding it for reading while
	// queueing a frame keeps shutdown from closing send underneath.
	mu            sync.RWMutex
	subscriptions map[string]struct{}
	closed        bool
}

// Origins are enforced by the CORS middleware in front of the route.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// NewHub returns an empty hub using cfg for limits and keepalives.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		maxMessage: int64(cfg.MaxMessageSize),
		timing:     newWSTiming(cfg),
		logger:     logger,
		clients:    make(map[*WSClient]struct{}),
	}
}

// Run waits for ctx to end and then drops every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register starts delivering events to client.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("panel client connected", "clients", n)
}

// Unregister stops delivery to client and closes its queue.
// It is safe to call more than once.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	delete(h.clients, client)
	n := len(h.clients)
	h.mu.Unlock()

	client.shutdown()
	h.logger.Debug("panel client disconnected", "clients", n)
}

// Broadcast queues an event frame for each client subscribed to event.
// Slow clients whose queue is full miss the frame.
func (h *Hub) Broadcast(event string, payload any) {
	frame, err := encodeFrame(WSMessage{Type: WSTypeEvent, EventType: event, Payload: payload})
	if err != nil {
		h.logger.Error("encoding panel event", "event", event, "error", err)
		return
	}

	delivered := 0
	for _, client := range h.subscribers(event) {
		if client.trySend(frame) {
			delivered++
		}
	}
	if delivered > 0 {
		h.logger.Debug("panel event delivered", "event", event, "recipients", delivered)
	}
}

// ControlApplied publishes a submission report.
func (h *Hub) ControlApplied(report device.Report) {
	h.Broadcast(EventControlApplied, report)
}

// StateRefreshed publishes a rendered device state.
func (h *Hub) StateRefreshed(state device.State) {
	h.Broadcast(EventStateRefreshed, state)
}

// ClientCount reports how many panel sockets are open.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// subscribers snapshots the clients interested in event so frames are
// queued without holding the hub lock.
func (h *Hub) subscribers(event string) []*WSClient {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		if client.isSubscribed(event) {
			out = append(out, client)
		}
	}
	return out
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*WSClient]struct{})
	h.mu.Unlock()

	for client := range clients {
		client.shutdown()
		if client.conn != nil {
			client.conn.Close() //nolint:errcheck // shutting down
		}
	}
}

// handleWebSocket upgrades a panel request and attaches it to the hub.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		hub:           s.hub,
		conn:          conn,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}),
	}
	s.hub.Register(client)

	go client.writeLoop()
	go client.readLoop()
}

// readLoop consumes client frames until the socket fails or goes quiet
// for longer than the keepalive window.
func (c *WSClient) readLoop() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close() //nolint:errcheck // connection is done
	}()

	wait := c.hub.timing.readWait
	extend := func() error { return c.conn.SetReadDeadline(time.Now().Add(wait)) }

	c.conn.SetReadLimit(c.hub.maxMessage)
	extend() //nolint:errcheck // a failed deadline surfaces on the next read
	c.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("panel socket read failed", "error", err)
			} else {
				c.hub.logger.Debug("panel socket closed", "error", err)
			}
			return
		}
		extend() //nolint:errcheck // a failed deadline surfaces on the next read
		c.handleMessage(data)
	}
}

// writeLoop drains the send queue and pings on an interval. A closed
// queue sends a close frame and ends the loop.
func (c *WSClient) writeLoop() {
	t := c.hub.timing
	ticker := time.NewTicker(t.pingEvery)
	defer func() {
		ticker.Stop()
		c.conn.Close() //nolint:errcheck // connection is done
	}()

	write := func(kind int, data []byte) error {
		c.conn.SetWriteDeadline(time.Now().Add(t.writeWait)) //nolint:errcheck // write reports the failure
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				write(websocket.CloseMessage, nil) //nolint:errcheck // peer may already be gone
				return
			}
			if err := write(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WSClient) handleMessage(data []byte) {
	var in inboundFrame
	if err := json.Unmarshal(data, &in); err != nil {
		c.sendError("", "invalid JSON message")
		return
	}

	switch in.Type {
	case WSTypeSubscribe, WSTypeUnsubscribe:
		c.updateSubscriptions(in)
	case WSTypePing:
		c.sendResponse(in.ID, WSTypePong, nil)
	default:
		c.sendError(in.ID, "unknown message type: "+in.Type)
	}
}

// updateSubscriptions applies a subscribe or unsubscribe frame and
// acknowledges it with the affected event names.
func (c *WSClient) updateSubscriptions(in inboundFrame) {
	var sub WSSubscribePayload
	if err := json.Unmarshal(in.Payload, &sub); err != nil || len(sub.Channels) == 0 {
		c.sendError(in.ID, "invalid "+in.Type+" payload")
		return
	}

	subscribe := in.Type == WSTypeSubscribe
	c.mu.Lock()
	for _, event := range sub.Channels {
		if subscribe {
			c.subscriptions[event] = struct{}{}
		} else {
			delete(c.subscriptions, event)
		}
	}
	c.mu.Unlock()

	ack := map[string]any{"unsubscribed": sub.Channels}
	if subscribe {
		ack = map[string]any{"subscribed": sub.Channels}
		c.hub.logger.Debug("panel client subscribed", "events", sub.Channels)
	}
	c.sendResponse(in.ID, WSTypeResponse, ack)
}

// trySend queues frame without blocking. It reports false when the
// client is gone or its queue is full.
func (c *WSClient) trySend(frame []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// shutdown closes the send queue once.
func (c *WSClient) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *WSClient) isSubscribed(event string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subscriptions[event]
	return ok
}

func (c *WSClient) sendResponse(id, msgType string, payload any) {
	frame, err := encodeFrame(WSMessage{Type: msgType, ID: id, Payload: payload})
	if err != nil {
		c.hub.logger.Error("encoding panel response", "type", msgType, "error", err)
		return
	}
	c.trySend(frame)
}

func (c *WSClient) sendError(id, message string) {
	c.sendResponse(id, WSTypeError, map[string]string{"message": message})
}

// encodeFrame stamps msg with the current UTC time and marshals it.
func encodeFrame(msg WSMessage) ([]byte, error) {
	msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	return json.Marshal(msg)
}
