package viber

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uk.co.dudmesh.viberrelay/internal/model"
)

type testConfig struct {
	url     string
	timeout time.Duration
}

func (c testConfig) ViberAPIURL() string          { return c.url }
func (c testConfig) RemoteTimeout() time.Duration { return c.timeout }
func (c testConfig) SenderName() string           { return "Relay" }
func (c testConfig) SenderAvatar() string         { return "" }
func (c testConfig) MinAPIVersion() int           { return 1 }

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(testConfig{url: server.URL, timeout: timeout})
}

func TestSendMessage(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		assert := assert.New(t)
		var received map[string]interface{}

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal("/send_message", r.URL.Path)
			assert.Equal("T1", r.Header.Get(AuthTokenHeader))
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &received)
			w.Write([]byte(`{"status":0,"status_message":"ok","message_token":5741311803571721087,"chat_hostname":"SN-CHAT-05_"}`))
		}, time.Second)

		result, err := client.SendMessage(context.Background(), "T1", &model.OutboundMessage{
			Receiver: "U1",
			Type:     model.MessageTypeText,
			Text:     "hi",
			Media:    "https://example.com/ignored.jpg",
		})
		require.NoError(t, err)
		assert.True(result.Success)
		assert.Equal(int64(5741311803571721087), result.MessageToken)
		assert.Equal("SN-CHAT-05_", result.ChatHostname)

		assert.Equal("U1", received["receiver"])
		assert.Equal("text", received["type"])
		assert.Equal("hi", received["text"])
		assert.NotContains(received, "media")
		assert.Equal(map[string]interface{}{"name": "Relay"}, received["sender"])
	})

	t.Run("Business rejection", func(t *testing.T) {
		assert := assert.New(t)
		body := `{"status":7,"status_message":"publicAccountBlocked","message_token":0}`
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}, time.Second)

		result, err := client.SendMessage(context.Background(), "T1", &model.OutboundMessage{Receiver: "U1", Type: model.MessageTypeText, Text: "hi"})
		assert.Nil(result)
		assert.True(errors.Is(err, model.ErrorRemoteRejected))

		var rejected *model.RemoteRejectedError
		require.True(t, errors.As(err, &rejected))
		assert.Equal(7, rejected.Status)
		assert.Equal("publicAccountBlocked", rejected.StatusMessage)
		assert.JSONEq(body, string(rejected.Detail))
	})

	t.Run("Timeout", func(t *testing.T) {
		assert := assert.New(t)
		release := make(chan struct{})
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}, 50*time.Millisecond)
		defer close(release)

		_, err := client.SendMessage(context.Background(), "T1", &model.OutboundMessage{Receiver: "U1", Type: model.MessageTypeText, Text: "hi"})
		assert.True(errors.Is(err, model.ErrorRemoteUnavailable))
		assert.False(errors.Is(err, model.ErrorRemoteRejected))
	})

	t.Run("HTTP failure", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}, time.Second)

		_, err := client.SendMessage(context.Background(), "T1", &model.OutboundMessage{Receiver: "U1", Type: model.MessageTypeText, Text: "hi"})
		assert.True(t, errors.Is(err, model.ErrorRemoteUnavailable))
	})

	t.Run("Undecodable body", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>`))
		}, time.Second)

		_, err := client.SendMessage(context.Background(), "T1", &model.OutboundMessage{Receiver: "U1", Type: model.MessageTypeText, Text: "hi"})
		assert.True(t, errors.Is(err, model.ErrorRemoteUnavailable))
	})
}

func TestGetAccountInfo(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		assert := assert.New(t)
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal("/get_account_info", r.URL.Path)
			w.Write([]byte(`{"status":0,"status_message":"ok","id":"pa:75346594275468546724","name":"account name","uri":"accountUri","subscribers_count":35,"event_types":["delivered","seen"],"location":{"lat":1.5,"lon":2.5}}`))
		}, time.Second)

		info, err := client.GetAccountInfo(context.Background(), "T1")
		require.NoError(t, err)
		assert.Equal("account name", info.Name)
		assert.Equal("accountUri", info.URI)
		assert.Equal(35, info.SubscribersCount)
		assert.Equal([]string{"delivered", "seen"}, info.EventTypes)
		assert.Equal(1.5, info.Location.Lat)
	})

	t.Run("Invalid token", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":2}`))
		}, time.Second)

		_, err := client.GetAccountInfo(context.Background(), "bad")
		var rejected *model.RemoteRejectedError
		require.True(t, errors.As(err, &rejected))
		assert.Equal(t, "invalidAuthToken", rejected.StatusMessage)
	})
}

func TestSetWebhook(t *testing.T) {
	assert := assert.New(t)
	var received setWebhookRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/set_webhook", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.Write([]byte(`{"status":0,"status_message":"ok","event_types":["delivered"]}`))
	}, time.Second)

	err := client.SetWebhook(context.Background(), "T1", "https://relay.example.com/api/webhook?botId=B1", DefaultEventTypes)
	assert.Nil(err)
	assert.Equal("https://relay.example.com/api/webhook?botId=B1", received.URL)
	assert.Equal(DefaultEventTypes, received.EventTypes)
}

func TestParseCallback(t *testing.T) {
	t.Run("Message", func(t *testing.T) {
		assert := assert.New(t)
		event, err := ParseCallback([]byte(`{
			"event":"message",
			"timestamp":1457764197627,
			"message_token":4912661846655238145,
			"sender":{"id":"01234567890A=","name":"John McClane","api_version":1},
			"message":{"type":"text","text":"a message to the service","tracking_data":"tracking data"}
		}`))
		require.NoError(t, err)
		assert.Equal(model.InboundEventMessage, event.Event)
		assert.Equal("01234567890A=", event.UserID)
		assert.Equal("John McClane", event.User.Name)
		assert.Equal(model.MessageTypeText, event.Message.Type)
		assert.Equal("a message to the service", event.Message.Text)
		assert.Equal(int64(1457764197627), event.Timestamp.UnixMilli())
	})

	t.Run("Delivered", func(t *testing.T) {
		assert := assert.New(t)
		event, err := ParseCallback([]byte(`{"event":"delivered","timestamp":1457764197627,"chat_hostname":"SN-376_","message_token":491266184665523145,"user_id":"01234567890A="}`))
		require.NoError(t, err)
		assert.Equal(model.InboundEventDelivered, event.Event)
		assert.Equal("01234567890A=", event.UserID)
		assert.Nil(event.Message)
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := ParseCallback([]byte(`{"event":`))
		assert.True(t, errors.Is(err, model.ErrorValidation))

		_, err = ParseCallback([]byte(`{"timestamp":1}`))
		assert.True(t, errors.Is(err, model.ErrorValidation))
	})
}
