package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"RailScan/internal/domain/models"
	domrepo "RailScan/internal/domain/repository"
	"RailScan/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	sendBuffer = 256
)

// Frame is the envelope pushed to clients.
type Frame struct {
	Type   string             `json:"type"`
	Result *models.ScanResult `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// subscribeMsg narrows a client to a symbol set. An empty set means all.
type subscribeMsg struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols"`
}

// Hub pushes published scan results to connected WebSocket clients.
type Hub struct {
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	log          *logger.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte

	mu      sync.RWMutex
	symbols map[string]struct{}
}

var _ domrepo.SignalPublisher = (*Hub)(nil)

func NewHub(lgr *logger.Logger, pingInterval time.Duration) *Hub {
	if lgr == nil {
		lgr = logger.Nop()
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		pingInterval: pingInterval,
		log:          lgr.With(logger.String("component", "ws_hub")),
		clients:      make(map[*client]struct{}),
	}
}

// Handle upgrades the request and serves the client until it disconnects.
func (h *Hub) Handle(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	cl := &client{conn: conn, send: make(chan []byte, sendBuffer), symbols: map[string]struct{}{}}
	h.add(cl)

	go h.writePump(cl)
	h.readPump(cl)
	return nil
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PublishResults broadcasts each result to subscribed clients. Slow clients
// drop frames instead of blocking the publisher.
func (h *Hub) PublishResults(_ context.Context, results []models.ScanResult) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.clients) == 0 {
		return nil
	}

	for i := range results {
		b, err := json.Marshal(Frame{Type: "result", Result: &results[i]})
		if err != nil {
			return err
		}
		for cl := range h.clients {
			if !cl.wants(results[i].Symbol) {
				continue
			}
			select {
			case cl.send <- b:
			default:
				h.log.Warn("ws: client backlog full, frame dropped", logger.String("symbol", results[i].Symbol))
			}
		}
	}
	return nil
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		close(cl.send)
		delete(h.clients, cl)
	}
}

func (h *Hub) add(cl *client) {
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Debug("ws: client connected", logger.Int("clients", n))
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
	}
}

func (h *Hub) readPump(cl *client) {
	defer func() {
		h.remove(cl)
		_ = cl.conn.Close()
	}()

	cl.conn.SetReadLimit(4096)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, b, err := cl.conn.ReadMessage()
		if err != nil {
			return
		}
		var m subscribeMsg
		if err := json.Unmarshal(b, &m); err != nil || m.Type != "subscribe" {
			h.reply(cl, Frame{Type: "error", Error: `expected {"type":"subscribe","symbols":[...]}`})
			continue
		}
		cl.subscribe(m.Symbols)
		h.reply(cl, Frame{Type: "subscribed"})
	}
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()

	for {
		select {
		case b, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (cl *client) subscribe(symbols []string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.symbols = make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			cl.symbols[s] = struct{}{}
		}
	}
}

func (cl *client) wants(symbol string) bool {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	if len(cl.symbols) == 0 {
		return true
	}
	_, ok := cl.symbols[symbol]
	return ok
}

func (h *Hub) reply(cl *client, f Frame) {
	b, err := json.Marshal(f)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[cl]; !ok {
		return
	}
	select {
	case cl.send <- b:
	default:
	}
}
