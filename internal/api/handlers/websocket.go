// Package handlers provides HTTP request handlers for the Uplink API.
// This file implements the event hub: scan output, completions, follow-up
// output, alarms and graph frames are fanned out to browser clients over
// WebSockets, and clients send graph and alarm commands back.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/anstrom/uplink/internal/errors"
	"github.com/anstrom/uplink/internal/followup"
	"github.com/anstrom/uplink/internal/logging"
	"github.com/anstrom/uplink/internal/metrics"
	"github.com/anstrom/uplink/internal/scanning"
)

const (
	// WebSocket configuration constants.
	writeWait       = 10 * time.Second                                   // Time allowed to write a message to the peer
	pongWait        = 60 * time.Second                                   // Time to read next pong message from peer
	pingPeriodRatio = 0.9                                                // Ratio of pongWait for pingPeriod
	pingPeriod      = time.Duration(float64(pongWait) * pingPeriodRatio) // Send pings to peer (must be < pongWait)
	maxMessageSize  = 4096                                               // Maximum message size allowed from peer
	bufferSize      = 256                                                // Size of the broadcast and client buffers
)

// Event types sent to clients.
const (
	EventState          = "state"
	EventScanStarted    = "scan_started"
	EventOutput         = "output"
	EventScanCompleted  = "scan_completed"
	EventFollowupOutput = "followup_output"
	EventAlarm          = "alarm"
	EventGraphOpened    = "graph_opened"
	EventGraphFrame     = "graph_frame"
	EventGraphClosed    = "graph_closed"
	EventError          = "error"
)

// WebSocketMessage represents a WebSocket message structure.
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

// ClientCommand is a message sent by a client.
type ClientCommand struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"request_id,omitempty"`
}

// OutputEvent is a chunk of scan log text.
type OutputEvent struct {
	Text string `json:"text"`
}

// FollowupEvent is a chunk of follow-up output for the post-scan pane.
type FollowupEvent struct {
	Action string `json:"action"`
	Host   string `json:"host"`
	Text   string `json:"text"`
}

// AlarmEvent tells clients to show or dismiss the acknowledgement prompt.
type AlarmEvent struct {
	Active  bool   `json:"active"`
	Message string `json:"message,omitempty"`
}

// MsgAlarm is the acknowledgement prompt text.
const MsgAlarm = "Scan complete. Click OK to stop the alarm."

// CommandFunc handles a client command. A non-nil reply is sent to the
// issuing client only.
type CommandFunc func(ctx context.Context, data json.RawMessage) (interface{}, error)

// StateFunc returns the snapshot sent to each client on connect.
type StateFunc func() interface{}

// Client is a connected WebSocket peer.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

type event struct {
	kind    string
	payload []byte
}

type directMessage struct {
	client  *Client
	payload []byte
}

// Hub serializes events to all connected clients from a single goroutine.
type Hub struct {
	logger   *logging.Logger
	registry metrics.MetricsRegistry
	prom     *metrics.PrometheusMetrics
	upgrader websocket.Upgrader

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan event
	direct     chan directMessage
	shutdown   chan struct{}
	done       chan struct{}
	once       sync.Once

	mu       sync.RWMutex
	state    StateFunc
	commands map[string]CommandFunc
}

// NewHub creates a hub. Call Run to start delivering events.
func NewHub(logger *logging.Logger, registry metrics.MetricsRegistry, prom *metrics.PrometheusMetrics) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	return &Hub{
		logger:   logger.WithComponent("events"),
		registry: registry,
		prom:     prom,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     sameOrigin,
		},
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan event, bufferSize),
		direct:     make(chan directMessage, bufferSize),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		commands:   make(map[string]CommandFunc),
	}
}

// sameOrigin accepts requests without an Origin header and those whose
// origin host matches the request host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

// SetCheckOrigin replaces the origin check, for use behind CORS configuration.
func (h *Hub) SetCheckOrigin(fn func(r *http.Request) bool) {
	h.upgrader.CheckOrigin = fn
}

// SetState sets the snapshot sent to new clients.
func (h *Hub) SetState(fn StateFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = fn
}

// Handle registers a command handler for messages of type name.
func (h *Hub) Handle(name string, fn CommandFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commands[name] = fn
}

// Run delivers events until ctx is canceled or Shutdown is called.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.shutdown:
			return
		case client := <-h.register:
			h.clients[client] = true
			h.sendState(client)
			h.updateClientMetrics()
			h.logger.Debug("WebSocket client connected", "clients", len(h.clients))
		case client := <-h.unregister:
			if h.clients[client] {
				delete(h.clients, client)
				close(client.send)
				h.updateClientMetrics()
				h.logger.Debug("WebSocket client disconnected", "clients", len(h.clients))
			}
		case ev := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- ev.payload:
				default:
					// Slow consumer.
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.countEvent(ev.kind)
		case msg := <-h.direct:
			if h.clients[msg.client] {
				select {
				case msg.client.send <- msg.payload:
				default:
				}
			}
		}
	}
}

// Shutdown stops Run and disconnects every client.
func (h *Hub) Shutdown() {
	h.once.Do(func() { close(h.shutdown) })
}

// Done is closed when Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) closeAll() {
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
	h.updateClientMetrics()
}

func (h *Hub) sendState(client *Client) {
	h.mu.RLock()
	state := h.state
	h.mu.RUnlock()
	if state == nil {
		return
	}

	payload, err := encodeMessage(EventState, state(), "")
	if err != nil {
		h.logger.Error("Failed to encode state", "error", err)
		return
	}
	client.send <- payload
}

func (h *Hub) updateClientMetrics() {
	n := len(h.clients)
	if h.registry != nil {
		h.registry.Gauge(metrics.MetricEventClients, float64(n), nil)
	}
	if h.prom != nil {
		h.prom.SetEventClients(n)
	}
}

func (h *Hub) countEvent(kind string) {
	if h.registry != nil {
		h.registry.Counter(metrics.MetricEventBroadcast, metrics.Labels{metrics.LabelEvent: kind})
	}
	if h.prom != nil {
		h.prom.IncrementEvents(kind)
	}
}

func encodeMessage(kind string, data interface{}, requestID string) ([]byte, error) {
	return json.Marshal(WebSocketMessage{
		Type:      kind,
		Timestamp: time.Now().UTC(),
		Data:      data,
		RequestID: requestID,
	})
}

// Publish queues an event for every client. Events are delivered in the
// order they are published. Publish blocks while the queue is full and
// returns without sending once the hub has shut down.
func (h *Hub) Publish(kind string, data interface{}) {
	payload, err := encodeMessage(kind, data, "")
	if err != nil {
		h.logger.Error("Failed to encode event", "type", kind, "error", err)
		return
	}

	select {
	case h.broadcast <- event{kind: kind, payload: payload}:
	case <-h.shutdown:
	case <-h.done:
	}
}

// Started implements scanning.Sink.
func (h *Hub) Started(info scanning.ScanInfo) {
	h.Publish(EventScanStarted, info)
}

// Output implements scanning.Sink.
func (h *Hub) Output(text string) {
	h.Publish(EventOutput, OutputEvent{Text: text})
}

// Completed implements scanning.Sink. Scans that asked for the alarm also
// raise the acknowledgement prompt.
func (h *Hub) Completed(result scanning.Completion) {
	h.Publish(EventScanCompleted, result)
	if result.Alarm {
		h.Publish(EventAlarm, AlarmEvent{Active: true, Message: MsgAlarm})
	}
}

// FollowupOutput implements followup.Sink.
func (h *Hub) FollowupOutput(action followup.Action, host, text string) {
	h.Publish(EventFollowupOutput, FollowupEvent{Action: string(action), Host: host, Text: text})
}

// ServeWS handles GET /api/v1/events.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err,
			"request_id", getRequestIDFromContext(r))
		return
	}

	client := &Client{hub: h, conn: conn, send: make(chan []byte, bufferSize)}

	select {
	case h.register <- client:
	case <-h.shutdown:
		_ = conn.Close()
		return
	case <-h.done:
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump dispatches client commands until the connection closes.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("WebSocket read error", "error", err)
			}
			return
		}
		c.handleCommand(message)
	}
}

func (c *Client) handleCommand(message []byte) {
	var cmd ClientCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		c.reply(EventError, MessageResponse{Message: fmt.Sprintf("invalid message: %v", err)}, "")
		return
	}

	c.hub.mu.RLock()
	fn, ok := c.hub.commands[cmd.Type]
	c.hub.mu.RUnlock()
	if !ok {
		c.reply(EventError, MessageResponse{Message: fmt.Sprintf("unknown command: %s", cmd.Type)}, cmd.RequestID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()

	result, err := fn(ctx, cmd.Data)
	if err != nil {
		c.reply(EventError, ErrorResponse{
			Error:     cmd.Type,
			Message:   errors.UserMessage(err),
			Timestamp: time.Now().UTC(),
			RequestID: cmd.RequestID,
		}, cmd.RequestID)
		return
	}
	if result != nil {
		c.reply(cmd.Type, result, cmd.RequestID)
	}
}

func (c *Client) reply(kind string, data interface{}, requestID string) {
	payload, err := encodeMessage(kind, data, requestID)
	if err != nil {
		c.hub.logger.Error("Failed to encode reply", "type", kind, "error", err)
		return
	}
	select {
	case c.hub.direct <- directMessage{client: c, payload: payload}:
	case <-c.hub.done:
	}
}

// writePump writes queued messages and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
