package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"uk.co.dudmesh.viberrelay/internal/model"
	"uk.co.dudmesh.viberrelay/internal/service/bot"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxFrameSize   = 64 << 10
	requestTimeout = 30 * time.Second
)

const (
	requestSubscribe   = "subscribe"
	requestUnsubscribe = "unsubscribe"
)

type request struct {
	ID      string                 `json:"id,omitempty"`
	Type    string                 `json:"type"`
	BotID   model.BotID            `json:"botId"`
	Message *model.OutboundMessage `json:"message,omitempty"`
}

type client struct {
	id      string
	hub     *Hub
	conn    *websocket.Conn
	service BotService
	ctx     context.Context
	cancel  context.CancelFunc

	mu            sync.Mutex
	send          chan []byte
	closed        bool
	subscriptions map[model.BotID]struct{}
}

func newClient(hub *Hub, conn *websocket.Conn, service BotService) *client {
	ctx, cancel := context.WithCancel(context.Background())
	return &client{
		id:            model.CreateID(),
		hub:           hub,
		conn:          conn,
		service:       service,
		ctx:           ctx,
		cancel:        cancel,
		send:          make(chan []byte, clientBufferSize),
		subscriptions: map[model.BotID]struct{}{},
	}
}

// enqueue reports false when the client's buffer is full.
func (c *client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
		c.cancel()
	}
}

func (c *client) subscribe(id model.BotID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions[id] = struct{}{}
}

func (c *client) unsubscribe(id model.BotID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscriptions, id)
}

func (c *client) subscribed(id model.BotID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subscriptions[id]
	return ok
}

func (c *client) reply(event model.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		c.hub.logger.Errorf("marshalling %s reply: %v", event.Type, err)
		return
	}
	if !c.enqueue(data) {
		c.hub.logger.Warnf("reply to client %s dropped, buffer full", c.id)
	}
}

func (c *client) replyError(req *request, err error) {
	event := model.NewEvent(model.EventError, req.BotID, model.NewErrorPayload(err))
	event.RequestID = req.ID
	c.reply(event)
}

func (c *client) readPump() {
	defer func() {
		c.cancel()
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warnf("client %s read failed: %v", c.id, err)
			}
			return
		}
		c.dispatch(frame)
	}
}

func (c *client) dispatch(frame []byte) {
	var req request
	if err := json.Unmarshal(frame, &req); err != nil {
		c.replyError(&req, &model.ValidationError{Reason: "malformed frame: " + err.Error()})
		return
	}
	if req.BotID == "" {
		c.replyError(&req, &model.ValidationError{Field: "botId", Reason: "required"})
		return
	}

	switch req.Type {
	case requestSubscribe:
		if _, err := c.service.GetBotStatus(req.BotID); err != nil {
			c.replyError(&req, err)
			return
		}
		c.subscribe(req.BotID)
	case requestUnsubscribe:
		c.unsubscribe(req.BotID)
	case string(model.EventBotStatus):
		go c.status(req)
	case string(model.EventBotMessage):
		go c.sendMessage(req)
	default:
		c.replyError(&req, &model.ValidationError{Field: "type", Reason: "unsupported request type " + req.Type})
	}
}

func (c *client) status(req request) {
	state, err := c.service.GetBotStatus(req.BotID)
	if err != nil {
		c.replyError(&req, err)
		return
	}
	c.subscribe(req.BotID)

	event := model.NewEvent(model.EventBotStatus, req.BotID, state)
	event.RequestID = req.ID
	c.reply(event)
}

// sendMessage answers local failures directly. Platform outcomes reach the
// requester through the broadcast it was subscribed to.
func (c *client) sendMessage(req request) {
	if _, err := c.service.GetBotStatus(req.BotID); err != nil {
		c.replyError(&req, err)
		return
	}
	c.subscribe(req.BotID)

	ctx, cancel := context.WithTimeout(bot.WithRequestID(c.ctx, req.ID), requestTimeout)
	defer cancel()

	_, err := c.service.SendMessage(ctx, req.BotID, req.Message)
	if err == nil || errors.Is(err, model.ErrorRemoteRejected) || errors.Is(err, model.ErrorRemoteUnavailable) {
		return
	}
	c.replyError(&req, err)
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
