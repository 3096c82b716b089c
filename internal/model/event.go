package model

import "time"

type EventType string

const (
	EventBotStatus       EventType = "bot:status"
	EventBotStatusUpdate EventType = "bot:status:update"
	EventBotMessage      EventType = "bot:message"
	EventBotMessageSent  EventType = "bot:message:sent"
	EventError           EventType = "error"
)

type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	BotID     BotID       `json:"botId,omitempty"`
	RequestID string      `json:"requestId,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

func NewEvent(eventType EventType, botID BotID, data interface{}) Event {
	return Event{
		ID:        CreateID(),
		Type:      eventType,
		BotID:     botID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

type ErrorPayload struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Detail  interface{} `json:"detail,omitempty"`
}

type InboundEventType string

const (
	InboundEventWebhook             InboundEventType = "webhook"
	InboundEventSubscribed          InboundEventType = "subscribed"
	InboundEventUnsubscribed        InboundEventType = "unsubscribed"
	InboundEventConversationStarted InboundEventType = "conversation_started"
	InboundEventDelivered           InboundEventType = "delivered"
	InboundEventSeen                InboundEventType = "seen"
	InboundEventFailed              InboundEventType = "failed"
	InboundEventMessage             InboundEventType = "message"
	InboundEventClientStatus        InboundEventType = "client_status"
)

type InboundUser struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
	Country    string `json:"country,omitempty"`
	Language   string `json:"language,omitempty"`
	APIVersion int    `json:"apiVersion,omitempty"`
}

type InboundMessage struct {
	Type         MessageType `json:"type"`
	Text         string      `json:"text,omitempty"`
	Media        string      `json:"media,omitempty"`
	FileName     string      `json:"fileName,omitempty"`
	StickerID    int64       `json:"stickerId,omitempty"`
	Contact      *Contact    `json:"contact,omitempty"`
	Location     *Location   `json:"location,omitempty"`
	TrackingData string      `json:"trackingData,omitempty"`
}

// InboundEvent is a platform callback delivered to the webhook.
type InboundEvent struct {
	Event        InboundEventType `json:"event"`
	Timestamp    time.Time        `json:"timestamp"`
	MessageToken int64            `json:"messageToken,string,omitempty"`
	ChatHostname string           `json:"chatHostname,omitempty"`
	UserID       string           `json:"userId,omitempty"`
	User         *InboundUser     `json:"user,omitempty"`
	Message      *InboundMessage  `json:"message,omitempty"`
	Description  string           `json:"description,omitempty"`
	Subscribed   bool             `json:"subscribed,omitempty"`
}
