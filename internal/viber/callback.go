package viber

import (
	"encoding/json"
	"fmt"
	"time"

	"uk.co.dudmesh.viberrelay/internal/model"
)

// DefaultEventTypes are requested when registering a webhook. The platform
// always sends webhook, subscribed, unsubscribed and conversation_started.
var DefaultEventTypes = []string{
	string(model.InboundEventDelivered),
	string(model.InboundEventSeen),
	string(model.InboundEventFailed),
	string(model.InboundEventSubscribed),
	string(model.InboundEventUnsubscribed),
	string(model.InboundEventConversationStarted),
}

type callbackUser struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Avatar     string `json:"avatar"`
	Country    string `json:"country"`
	Language   string `json:"language"`
	APIVersion int    `json:"api_version"`
}

type callbackMessage struct {
	Type         string    `json:"type"`
	Text         string    `json:"text"`
	Media        string    `json:"media"`
	FileName     string    `json:"file_name"`
	StickerID    int64     `json:"sticker_id"`
	Contact      *contact  `json:"contact"`
	Location     *location `json:"location"`
	TrackingData string    `json:"tracking_data"`
}

type callback struct {
	Event        string           `json:"event"`
	Timestamp    int64            `json:"timestamp"`
	MessageToken int64            `json:"message_token"`
	ChatHostname string           `json:"chat_hostname"`
	UserID       string           `json:"user_id"`
	User         *callbackUser    `json:"user"`
	Sender       *callbackUser    `json:"sender"`
	Message      *callbackMessage `json:"message"`
	Desc         string           `json:"desc"`
	Subscribed   bool             `json:"subscribed"`
}

// ParseCallback decodes a webhook body sent by the platform.
func ParseCallback(raw []byte) (*model.InboundEvent, error) {
	var cb callback
	if err := json.Unmarshal(raw, &cb); err != nil {
		return nil, &model.ValidationError{Reason: fmt.Sprintf("decoding callback: %v", err)}
	}
	if cb.Event == "" {
		return nil, &model.ValidationError{Field: "event", Reason: "required"}
	}

	event := &model.InboundEvent{
		Event:        model.InboundEventType(cb.Event),
		MessageToken: cb.MessageToken,
		ChatHostname: cb.ChatHostname,
		UserID:       cb.UserID,
		Description:  cb.Desc,
		Subscribed:   cb.Subscribed,
	}
	if cb.Timestamp > 0 {
		event.Timestamp = time.UnixMilli(cb.Timestamp).UTC()
	} else {
		event.Timestamp = time.Now().UTC()
	}

	user := cb.User
	if user == nil {
		user = cb.Sender
	}
	if user != nil {
		event.User = &model.InboundUser{
			ID:         user.ID,
			Name:       user.Name,
			Avatar:     user.Avatar,
			Country:    user.Country,
			Language:   user.Language,
			APIVersion: user.APIVersion,
		}
		if event.UserID == "" {
			event.UserID = user.ID
		}
	}

	if cb.Message != nil {
		msg := &model.InboundMessage{
			Type:         model.MessageType(cb.Message.Type),
			Text:         cb.Message.Text,
			Media:        cb.Message.Media,
			FileName:     cb.Message.FileName,
			StickerID:    cb.Message.StickerID,
			TrackingData: cb.Message.TrackingData,
		}
		if cb.Message.Contact != nil {
			msg.Contact = &model.Contact{Name: cb.Message.Contact.Name, PhoneNumber: cb.Message.Contact.PhoneNumber}
		}
		if cb.Message.Location != nil {
			msg.Location = &model.Location{Lat: cb.Message.Location.Lat, Lon: cb.Message.Location.Lon}
		}
		event.Message = msg
	}

	return event, nil
}
