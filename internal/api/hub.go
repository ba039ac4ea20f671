package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/retaildemo/feedsync/pkg/contracts"
	"github.com/retaildemo/feedsync/pkg/models"
)

const (
	messageSyncCycle      = "sync_cycle"
	messageResultDeclared = "result_declared"

	clientSendBuffer = 256
	writeWait        = 10 * time.Second
)

// ErrHubBusy is returned when the broadcast queue is full
var ErrHubBusy = errors.New("websocket hub broadcast queue full")

// WSMessage is one message pushed to websocket clients
type WSMessage struct {
	Type      string `json:"type"`
	Game      string `json:"game,omitempty"`
	EventID   string `json:"event_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// Hub fans cycle reports and declared results out to websocket clients.
// Clients can narrow what they receive by game.
type Hub struct {
	clients    map[*wsClient]bool
	broadcast  chan *WSMessage
	register   chan *wsClient
	unregister chan *wsClient
	done       chan struct{}
	logger     logrus.FieldLogger

	mu    sync.RWMutex
	count int
}

var _ contracts.Publisher = (*Hub)(nil)

// NewHub creates a hub; call Run to start delivering
func NewHub(logger logrus.FieldLogger) *Hub {
	return &Hub{
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan *WSMessage, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
		logger:     logger.WithField("component", "ws_hub"),
	}
}

// Run delivers broadcasts until ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.setCount(0)
			return

		case c := <-h.register:
			h.clients[c] = true
			h.setCount(len(h.clients))
			h.logger.WithField("clients", len(h.clients)).Debug("websocket client registered")

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.setCount(len(h.clients))

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg)
			if err != nil {
				h.logger.WithError(err).Warn("marshal websocket message")
				continue
			}
			for c := range h.clients {
				if !c.wants(msg.Game) {
					continue
				}
				select {
				case c.send <- data:
				default:
					// Slow client, drop it
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.setCount(len(h.clients))
		}
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

// PublishCycle broadcasts a cycle report
func (h *Hub) PublishCycle(ctx context.Context, report models.CycleReport) error {
	return h.enqueue(&WSMessage{
		Type:      messageSyncCycle,
		Game:      report.Game,
		Timestamp: report.Timestamp.UnixMilli(),
		Data:      report,
	})
}

// PublishResult broadcasts a newly stored result
func (h *Hub) PublishResult(ctx context.Context, result models.GameResult) error {
	return h.enqueue(&WSMessage{
		Type:      messageResultDeclared,
		Game:      result.GameName,
		EventID:   result.EventID,
		Timestamp: time.Now().UnixMilli(),
		Data:      result,
	})
}

func (h *Hub) enqueue(msg *WSMessage) error {
	select {
	case h.broadcast <- msg:
		return nil
	default:
		return ErrHubBusy
	}
}

// wsClient is one websocket connection
type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu    sync.RWMutex
	games map[string]bool
}

// wants reports whether the client subscribed to the game; no subscription
// means everything
func (c *wsClient) wants(game string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.games) == 0 || c.games[game]
}

// clientMessage is what a client may send: {"type":"subscribe","games":[...]}
// or {"type":"unsubscribe"}
type clientMessage struct {
	Type  string   `json:"type"`
	Games []string `json:"games"`
}

func (c *wsClient) handleMessage(raw []byte) {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.hub.logger.WithError(err).Debug("ignore malformed client message")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch msg.Type {
	case "subscribe":
		c.games = make(map[string]bool, len(msg.Games))
		for _, g := range msg.Games {
			c.games[g] = true
		}
	case "unsubscribe":
		c.games = nil
	}
}

func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.WithError(err).Warn("websocket read")
			}
			return
		}
		c.handleMessage(message)
	}
}

func (c *wsClient) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// serveWS upgrades the request and attaches the connection to the hub
func (h *Hub) serveWS(upgrader *websocket.Upgrader, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade")
		return
	}

	c := &wsClient{
		hub:  h,
		conn: conn,
		send: make(chan []byte, clientSendBuffer),
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}
