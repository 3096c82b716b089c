package viber

import (
	"uk.co.dudmesh.viberrelay/internal/model"
)

const StatusOK = 0

var statusMessages = map[int]string{
	0:  "ok",
	1:  "invalidUrl",
	2:  "invalidAuthToken",
	3:  "badData",
	4:  "missingData",
	5:  "receiverNotRegistered",
	6:  "receiverNotSubscribed",
	7:  "publicAccountBlocked",
	8:  "publicAccountNotFound",
	9:  "publicAccountSuspended",
	10: "webhookNotSet",
	11: "receiverNoSuitableDevice",
	12: "tooManyRequests",
	13: "apiVersionNotSupported",
	14: "incompatibleWithVersion",
}

func StatusName(status int) string {
	if name, ok := statusMessages[status]; ok {
		return name
	}
	return "generalError"
}

type envelope struct {
	Status        int    `json:"status"`
	StatusMessage string `json:"status_message"`
}

type sender struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

type contact struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

type location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type button struct {
	Columns    int    `json:"Columns,omitempty"`
	Rows       int    `json:"Rows,omitempty"`
	ActionType string `json:"ActionType,omitempty"`
	ActionBody string `json:"ActionBody"`
	Text       string `json:"Text,omitempty"`
	Image      string `json:"Image,omitempty"`
	BgColor    string `json:"BgColor,omitempty"`
	Silent     bool   `json:"Silent,omitempty"`
}

type keyboard struct {
	Type          string   `json:"Type"`
	DefaultHeight bool     `json:"DefaultHeight,omitempty"`
	BgColor       string   `json:"BgColor,omitempty"`
	Buttons       []button `json:"Buttons"`
}

type sendMessageRequest struct {
	Receiver      string    `json:"receiver"`
	Type          string    `json:"type"`
	MinAPIVersion int       `json:"min_api_version,omitempty"`
	Sender        *sender   `json:"sender,omitempty"`
	TrackingData  string    `json:"tracking_data,omitempty"`
	Text          string    `json:"text,omitempty"`
	Media         string    `json:"media,omitempty"`
	Thumbnail     string    `json:"thumbnail,omitempty"`
	Size          int64     `json:"size,omitempty"`
	Duration      int       `json:"duration,omitempty"`
	FileName      string    `json:"file_name,omitempty"`
	StickerID     int64     `json:"sticker_id,omitempty"`
	Contact       *contact  `json:"contact,omitempty"`
	Location      *location `json:"location,omitempty"`
	Keyboard      *keyboard `json:"keyboard,omitempty"`
}

type sendMessageResponse struct {
	envelope
	MessageToken int64  `json:"message_token"`
	ChatHostname string `json:"chat_hostname"`
}

type member struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Role   string `json:"role"`
}

type accountInfoResponse struct {
	envelope
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	URI              string   `json:"uri"`
	Icon             string   `json:"icon"`
	Background       string   `json:"background"`
	Category         string   `json:"category"`
	Subcategory      string   `json:"subcategory"`
	Location         location `json:"location"`
	Country          string   `json:"country"`
	Webhook          string   `json:"webhook"`
	EventTypes       []string `json:"event_types"`
	SubscribersCount int      `json:"subscribers_count"`
	Members          []member `json:"members"`
}

type setWebhookRequest struct {
	URL        string   `json:"url"`
	EventTypes []string `json:"event_types,omitempty"`
	SendName   bool     `json:"send_name"`
	SendPhoto  bool     `json:"send_photo"`
}

type setWebhookResponse struct {
	envelope
	EventTypes []string `json:"event_types"`
}

// newSendMessageRequest copies only the fields that belong to the message type.
func newSendMessageRequest(m *model.OutboundMessage, defaultSender *sender, minAPIVersion int) *sendMessageRequest {
	req := &sendMessageRequest{
		Receiver:      m.Receiver,
		Type:          string(m.Type),
		MinAPIVersion: minAPIVersion,
		Sender:        defaultSender,
		TrackingData:  m.TrackingData,
	}
	if m.MinAPIVersion > 0 {
		req.MinAPIVersion = m.MinAPIVersion
	}
	if m.Sender != nil {
		req.Sender = &sender{Name: m.Sender.Name, Avatar: m.Sender.Avatar}
	}
	if m.Keyboard != nil {
		req.Keyboard = newKeyboard(m.Keyboard)
	}

	switch m.Type {
	case model.MessageTypeText:
		req.Text = m.Text
	case model.MessageTypePicture:
		req.Text = m.Text
		req.Media = m.Media
		req.Thumbnail = m.Thumbnail
	case model.MessageTypeVideo:
		req.Media = m.Media
		req.Thumbnail = m.Thumbnail
		req.Size = m.Size
		req.Duration = m.Duration
	case model.MessageTypeFile:
		req.Media = m.Media
		req.Size = m.Size
		req.FileName = m.FileName
	case model.MessageTypeSticker:
		req.StickerID = m.StickerID
	case model.MessageTypeContact:
		if m.Contact != nil {
			req.Contact = &contact{Name: m.Contact.Name, PhoneNumber: m.Contact.PhoneNumber}
		}
	case model.MessageTypeURL:
		req.Media = m.Media
	case model.MessageTypeLocation:
		if m.Location != nil {
			req.Location = &location{Lat: m.Location.Lat, Lon: m.Location.Lon}
		}
	}
	return req
}

func newKeyboard(k *model.Keyboard) *keyboard {
	out := &keyboard{
		Type:          "keyboard",
		DefaultHeight: k.DefaultHeight,
		BgColor:       k.BgColor,
		Buttons:       make([]button, 0, len(k.Buttons)),
	}
	for _, b := range k.Buttons {
		out.Buttons = append(out.Buttons, button{
			Columns:    b.Columns,
			Rows:       b.Rows,
			ActionType: b.ActionType,
			ActionBody: b.ActionBody,
			Text:       b.Text,
			Image:      b.Image,
			BgColor:    b.BgColor,
			Silent:     b.Silent,
		})
	}
	return out
}

func (r *accountInfoResponse) toModel() *model.AccountInfo {
	return &model.AccountInfo{
		ID:               r.ID,
		Name:             r.Name,
		URI:              r.URI,
		Icon:             r.Icon,
		Background:       r.Background,
		Category:         r.Category,
		Subcategory:      r.Subcategory,
		Country:          r.Country,
		Location:         model.Location{Lat: r.Location.Lat, Lon: r.Location.Lon},
		Webhook:          r.Webhook,
		EventTypes:       r.EventTypes,
		SubscribersCount: r.SubscribersCount,
	}
}

type statusCarrier interface {
	result() envelope
}

func (e envelope) result() envelope { return e }

var _ statusCarrier = (*sendMessageResponse)(nil)
