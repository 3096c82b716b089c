package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"uk.co.dudmesh.viberrelay/internal/model"
)

const (
	broadcastBufferSize = 256
	clientBufferSize    = 64
)

type BotService interface {
	GetBotStatus(id model.BotID) (model.BotState, error)
	SendMessage(ctx context.Context, id model.BotID, message *model.OutboundMessage) (*model.SendResult, error)
}

// Hub fans events out to connected socket clients. Publish never blocks;
// a client that cannot keep up is disconnected.
type Hub struct {
	clients    map[*client]struct{}
	broadcast  chan model.Event
	register   chan *client
	unregister chan *client
	done       chan struct{}
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	logger     *log.Logger
}

func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{
		clients:    map[*client]struct{}{},
		broadcast:  make(chan model.Event, broadcastBufferSize),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		logger:     log.New("realtime"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin(allowedOrigins, h.logger),
	}
	return h
}

func checkOrigin(allowed []string, logger *log.Logger) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		logger.Warnf("rejected socket from origin %s", origin)
		return false
	}
}

// Run processes registrations and broadcasts until ctx is done, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				c.close()
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()
			h.logger.Debugf("client %s connected", c.id)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				c.close()
				delete(h.clients, c)
			}
			h.mu.Unlock()
			h.logger.Debugf("client %s disconnected", c.id)

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Errorf("marshalling %s event: %v", event.Type, err)
				continue
			}
			h.mu.Lock()
			for c := range h.clients {
				if event.BotID != "" && !c.subscribed(event.BotID) {
					continue
				}
				if !c.enqueue(data) {
					h.logger.Warnf("dropping slow client %s", c.id)
					c.close()
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish queues event for delivery to subscribers of its bot, or to every
// client when the event names no bot. Events are dropped when the queue is full.
func (h *Hub) Publish(event model.Event) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warnf("broadcast queue full, dropping %s event", event.Type)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Handler upgrades the request to a socket whose requests are served by service.
func (h *Hub) Handler(service BotService) echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			h.logger.Errorf("socket upgrade failed: %v", err)
			return nil
		}

		cl := newClient(h, conn, service)
		select {
		case h.register <- cl:
		case <-h.done:
			conn.Close()
			return nil
		}

		go cl.writePump()
		go cl.readPump()
		return nil
	}
}

func (h *Hub) leave(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
