package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"showdown/internal/game"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket connections allowed
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 10

	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = pongWait * 9 / 10
	maxMessageSize   = 4096
	clientSendBuffer = 64

	// DefaultBroadcastInterval is the snapshot cadence when none is configured
	DefaultBroadcastInterval = 50 * time.Millisecond
)

// Format selects the websocket frame encoding.
type Format uint8

const (
	FormatJSON Format = iota
	FormatMsgpack
)

// ParseFormat maps the ?format= query value to a Format.
func ParseFormat(s string) Format {
	if s == "msgpack" {
		return FormatMsgpack
	}
	return FormatJSON
}

func (f Format) String() string {
	if f == FormatMsgpack {
		return "msgpack"
	}
	return "json"
}

func (f Format) messageType() int {
	if f == FormatMsgpack {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

// wsMessage is the envelope of every server frame.
type wsMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// clientMessage is a frame sent by a client.
type clientMessage struct {
	Type   string     `json:"type" msgpack:"type"`
	Input  game.Input `json:"input" msgpack:"input"`
	SentAt int64      `json:"sentAt" msgpack:"sentAt"`
}

type helloMessage struct {
	Format   string `json:"format"`
	Control  bool   `json:"control"`
	TickRate int    `json:"tickRate,omitempty"`
}

type heartbeatMessage struct {
	ServerTime int64 `json:"serverTime"`
	ClientTime int64 `json:"clientTime"`
}

// Encode serializes an envelope in the given format. Msgpack frames reuse
// the json field names so both encodings share one schema.
func Encode(f Format, event string, data interface{}) ([]byte, error) {
	msg := wsMessage{Event: event, Data: data}
	if f == FormatMsgpack {
		var buf bytes.Buffer
		enc := msgpack.NewEncoder(&buf)
		enc.SetCustomStructTag("json")
		enc.UseCompactInts(true)
		if err := enc.Encode(msg); err != nil {
			return nil, fmt.Errorf("msgpack encode %s: %w", event, err)
		}
		return buf.Bytes(), nil
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("json encode %s: %w", event, err)
	}
	return b, nil
}

func decodeClientMessage(messageType int, data []byte) (clientMessage, error) {
	var msg clientMessage
	var err error
	if messageType == websocket.BinaryMessage {
		err = msgpack.Unmarshal(data, &msg)
	} else {
		err = json.Unmarshal(data, &msg)
	}
	return msg, err
}

// outbound is a broadcast encoded lazily, once per format.
type outbound struct {
	event   string
	data    interface{}
	encoded [2][]byte
}

func (o *outbound) bytes(f Format) []byte {
	if o.encoded[f] == nil {
		b, err := Encode(f, o.event, o.data)
		if err != nil {
			log.Printf("⚠️ WebSocket %v", err)
			return nil
		}
		o.encoded[f] = b
	}
	return o.encoded[f]
}

// wsClient tracks a WebSocket connection with its source IP
type wsClient struct {
	conn    *websocket.Conn
	ip      string
	format  Format
	control bool // may submit input

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (c *wsClient) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// enqueue hands a frame to the write pump without blocking.
func (c *wsClient) enqueue(b []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

// HubConfig configures a WebSocketHub.
type HubConfig struct {
	ControlToken      string
	CORSOrigins       []string
	BroadcastInterval time.Duration
	TickRate          int
}

// WebSocketHub manages all WebSocket connections with DoS protection.
// Run owns the client set; each client has its own write pump, so a slow
// client never stalls the others.
type WebSocketHub struct {
	engine EngineInterface
	cfg    HubConfig

	clients    map[*wsClient]bool
	broadcast  chan *outbound
	register   chan *wsClient
	unregister chan *wsClient
	mu         sync.RWMutex

	wsLimiter *WebSocketRateLimiter
	origins   *OriginChecker
	upgrader  websocket.Upgrader

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewWebSocketHub creates a new hub with connection limiting
func NewWebSocketHub(engine EngineInterface, cfg HubConfig) *WebSocketHub {
	if cfg.BroadcastInterval <= 0 {
		cfg.BroadcastInterval = DefaultBroadcastInterval
	}
	h := &WebSocketHub{
		engine:     engine,
		cfg:        cfg,
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan *outbound, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		wsLimiter:  NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
		origins:    NewOriginChecker(cfg.CORSOrigins),
		stopChan:   make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if h.origins.Allowed(origin) {
				return true
			}
			log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
			RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// Run starts the hub. It returns after Stop.
func (h *WebSocketHub) Run() {
	for {
		select {
		case <-h.stopChan:
			h.mu.Lock()
			for c := range h.clients {
				h.wsLimiter.Release(c.ip)
				c.close()
				delete(h.clients, c)
			}
			h.mu.Unlock()
			UpdateWSConnections(0)
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Client connected from %s (%s, %d total)", c.ip, c.format, count)
			UpdateWSConnections(count)

		case c := <-h.unregister:
			if h.removeClient(c) {
				log.Printf("📱 Client disconnected (%d remaining)", h.ClientCount())
			}

		case msg := <-h.broadcast:
			var slow []*wsClient
			h.mu.RLock()
			for c := range h.clients {
				b := msg.bytes(c.format)
				if b == nil {
					continue
				}
				if !c.enqueue(b) {
					slow = append(slow, c)
				}
			}
			h.mu.RUnlock()

			for _, c := range slow {
				log.Printf("⚠️ Dropping slow WebSocket client %s", c.ip)
				h.removeClient(c)
			}
			IncrementWSMessages()
		}
	}
}

func (h *WebSocketHub) removeClient(c *wsClient) bool {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		h.wsLimiter.Release(c.ip)
	}
	count := len(h.clients)
	h.mu.Unlock()

	c.close()
	if ok {
		UpdateWSConnections(count)
	}
	return ok
}

// Stop disconnects every client and ends Run and the broadcast loop.
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChan)
	})
}

// Broadcast queues a message for every connected client
func (h *WebSocketHub) Broadcast(event string, data interface{}) {
	select {
	case h.broadcast <- &outbound{event: event, data: data}:
	default:
		// Channel full, skip (backpressure)
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PublishEvents forwards an event batch to clients. Tick markers are
// dropped since every snapshot already carries the tick.
func (h *WebSocketHub) PublishEvents(batch []game.Event) {
	if h.ClientCount() == 0 {
		return
	}
	events := make([]game.Event, 0, len(batch))
	for _, e := range batch {
		if e.Type != game.EventTick {
			events = append(events, e)
		}
	}
	if len(events) > 0 {
		h.Broadcast("events", events)
	}
}

// StartBroadcastLoop publishes each new snapshot at the configured cadence
func (h *WebSocketHub) StartBroadcastLoop() {
	go func() {
		ticker := time.NewTicker(h.cfg.BroadcastInterval)
		defer ticker.Stop()

		var lastSeq uint64
		for {
			select {
			case <-h.stopChan:
				return
			case <-ticker.C:
				if h.ClientCount() == 0 {
					continue
				}
				snap := h.engine.GetSnapshot()
				if snap == nil || snap.Sequence == lastSeq {
					continue
				}
				lastSeq = snap.Sequence
				h.Broadcast("snapshot", snap)
			}
		}
	}()
}

// HandleWebSocket handles incoming WebSocket connections with DoS protection
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if total := h.ClientCount(); total >= MaxWSConnectionsTotal {
		log.Printf("⚠️ WebSocket connection rejected: total limit reached (%d)", total)
		RecordConnectionRejected("ws_total_limit")
		writeError(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	if !h.wsLimiter.Allow(ip) {
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		writeError(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.wsLimiter.Release(ip)
		return
	}

	c := &wsClient{
		conn:    conn,
		ip:      ip,
		format:  ParseFormat(r.URL.Query().Get("format")),
		control: Authorized(r, h.cfg.ControlToken),
		send:    make(chan []byte, clientSendBuffer),
		done:    make(chan struct{}),
	}

	// Greeting and the current state go out before any broadcast.
	h.sendTo(c, "hello", helloMessage{Format: c.format.String(), Control: c.control, TickRate: h.cfg.TickRate})
	if snap := h.engine.GetSnapshot(); snap != nil {
		h.sendTo(c, "snapshot", snap)
	}

	select {
	case h.register <- c:
	case <-h.stopChan:
		h.wsLimiter.Release(ip)
		conn.Close()
		return
	}

	go h.writePump(c)
	go h.readPump(c)
}

func (h *WebSocketHub) sendTo(c *wsClient, event string, data interface{}) {
	b, err := Encode(c.format, event, data)
	if err != nil {
		log.Printf("⚠️ WebSocket %v", err)
		return
	}
	c.enqueue(b)
}

func (h *WebSocketHub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case b := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(c.format.messageType(), b); err != nil {
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

func (h *WebSocketHub) readPump(c *wsClient) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.stopChan:
		}
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		msg, err := decodeClientMessage(mt, data)
		if err != nil {
			log.Printf("discarding malformed message from %s: %v", c.ip, err)
			continue
		}

		switch msg.Type {
		case "input":
			if !c.control {
				h.sendTo(c, "error", map[string]string{"error": "unauthorized"})
				continue
			}
			h.engine.SetInput(msg.Input)
		case "heartbeat":
			h.sendTo(c, "heartbeat", heartbeatMessage{
				ServerTime: time.Now().UnixMilli(),
				ClientTime: msg.SentAt,
			})
		default:
			log.Printf("unknown message type %q from %s", msg.Type, c.ip)
		}
	}
}
