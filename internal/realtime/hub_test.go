package realtime

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uk.co.dudmesh.viberrelay/internal/model"
	"uk.co.dudmesh.viberrelay/internal/service/bot"
)

type fakeService struct {
	hub *Hub
}

func (s *fakeService) GetBotStatus(id model.BotID) (model.BotState, error) {
	if id != "alpha" && id != "beta" {
		return model.BotState{}, fmt.Errorf("%w: %s", model.ErrorBotNotFound, id)
	}
	return model.BotState{ID: id, Status: model.BotStatusActive}, nil
}

func (s *fakeService) SendMessage(ctx context.Context, id model.BotID, message *model.OutboundMessage) (*model.SendResult, error) {
	if err := message.Validate(); err != nil {
		return nil, err
	}
	if message.Text == "blocked" {
		err := &model.RemoteRejectedError{Op: "send_message", Status: 7, StatusMessage: "publicAccountBlocked"}
		event := model.NewEvent(model.EventError, id, model.NewErrorPayload(err))
		event.RequestID = bot.RequestID(ctx)
		s.hub.Publish(event)
		return nil, err
	}
	result := &model.SendResult{BotID: id, Receiver: message.Receiver, Type: message.Type, Success: true, MessageToken: 42}
	event := model.NewEvent(model.EventBotMessageSent, id, result)
	event.RequestID = bot.RequestID(ctx)
	s.hub.Publish(event)
	return result, nil
}

type frame struct {
	Type      model.EventType        `json:"type"`
	BotID     model.BotID            `json:"botId"`
	RequestID string                 `json:"requestId"`
	Data      map[string]interface{} `json:"data"`
}

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub([]string{"https://app.example.com"})
	go hub.Run(ctx)

	e := echo.New()
	e.GET("/ws", hub.Handler(&fakeService{hub: hub}))
	srv := httptest.NewServer(e)

	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestStatusRequest(t *testing.T) {
	assert := assert.New(t)
	_, url := startHub(t)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(map[string]string{"id": "r1", "type": "bot:status", "botId": "alpha"}))
	f := readFrame(t, conn)
	assert.Equal(model.EventBotStatus, f.Type)
	assert.Equal(model.BotID("alpha"), f.BotID)
	assert.Equal("r1", f.RequestID)
	assert.Equal("active", f.Data["status"])

	require.NoError(t, conn.WriteJSON(map[string]string{"id": "r2", "type": "bot:status", "botId": "nope"}))
	f = readFrame(t, conn)
	assert.Equal(model.EventError, f.Type)
	assert.Equal("r2", f.RequestID)
	assert.Equal("not_found", f.Data["code"])
}

func TestMalformedFrame(t *testing.T) {
	_, url := startHub(t)
	conn := dial(t, url)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	f := readFrame(t, conn)
	assert.Equal(t, model.EventError, f.Type)
	assert.Equal(t, "validation", f.Data["code"])

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "dance", "botId": "alpha"}))
	f = readFrame(t, conn)
	assert.Equal(t, model.EventError, f.Type)
	assert.Equal(t, "validation", f.Data["code"])
}

func TestSubscriptionsFilterBroadcasts(t *testing.T) {
	assert := assert.New(t)
	hub, url := startHub(t)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "bot:status", "botId": "alpha"}))
	require.Equal(t, model.EventBotStatus, readFrame(t, conn).Type)

	hub.Publish(model.NewEvent(model.EventBotStatusUpdate, "beta", model.BotState{ID: "beta"}))
	hub.Publish(model.NewEvent(model.EventBotStatusUpdate, "alpha", model.BotState{ID: "alpha"}))

	f := readFrame(t, conn)
	assert.Equal(model.EventBotStatusUpdate, f.Type)
	assert.Equal(model.BotID("alpha"), f.BotID)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "unsubscribe", "botId": "alpha"}))
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "subscribe", "botId": "beta"}))
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "bot:status", "botId": "beta"}))
	require.Equal(t, model.EventBotStatus, readFrame(t, conn).Type)

	hub.Publish(model.NewEvent(model.EventBotStatusUpdate, "alpha", model.BotState{ID: "alpha"}))
	hub.Publish(model.NewEvent(model.EventBotStatusUpdate, "beta", model.BotState{ID: "beta"}))
	assert.Equal(model.BotID("beta"), readFrame(t, conn).BotID)
}

func TestMessageRequest(t *testing.T) {
	_, url := startHub(t)
	conn := dial(t, url)

	t.Run("sent", func(t *testing.T) {
		assert := assert.New(t)
		require.NoError(t, conn.WriteJSON(map[string]interface{}{
			"id":      "m1",
			"type":    "bot:message",
			"botId":   "alpha",
			"message": map[string]string{"receiver": "u1", "type": "text", "text": "hello"},
		}))
		f := readFrame(t, conn)
		assert.Equal(model.EventBotMessageSent, f.Type)
		assert.Equal("m1", f.RequestID)
		assert.Equal("42", f.Data["messageToken"])
	})

	t.Run("invalid", func(t *testing.T) {
		assert := assert.New(t)
		require.NoError(t, conn.WriteJSON(map[string]interface{}{
			"id":      "m2",
			"type":    "bot:message",
			"botId":   "alpha",
			"message": map[string]string{"receiver": "u1", "type": "gif"},
		}))
		f := readFrame(t, conn)
		assert.Equal(model.EventError, f.Type)
		assert.Equal("m2", f.RequestID)
		assert.Equal("validation", f.Data["code"])
	})

	t.Run("rejected arrives once via broadcast", func(t *testing.T) {
		assert := assert.New(t)
		require.NoError(t, conn.WriteJSON(map[string]interface{}{
			"id":      "m3",
			"type":    "bot:message",
			"botId":   "alpha",
			"message": map[string]string{"receiver": "u1", "type": "text", "text": "blocked"},
		}))
		f := readFrame(t, conn)
		assert.Equal(model.EventError, f.Type)
		assert.Equal("remote_rejected", f.Data["code"])

		require.NoError(t, conn.WriteJSON(map[string]string{"id": "s1", "type": "bot:status", "botId": "alpha"}))
		assert.Equal("s1", readFrame(t, conn).RequestID)
	})
}

func TestSlowClientDropped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil)
	go hub.Run(ctx)

	c := newClient(hub, nil, &fakeService{hub: hub})
	c.subscribe("alpha")
	hub.register <- c
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	for i := 0; i < clientBufferSize+1; i++ {
		hub.Publish(model.NewEvent(model.EventBotStatusUpdate, "alpha", nil))
	}

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, c.ctx.Err(), context.Canceled)
}

func TestCheckOrigin(t *testing.T) {
	hub := NewHub([]string{"https://app.example.com"})

	req := httptest.NewRequest("GET", "/ws", nil)
	assert.True(t, hub.upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "https://app.example.com")
	assert.True(t, hub.upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, hub.upgrader.CheckOrigin(req))
}
