package model

type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypePicture  MessageType = "picture"
	MessageTypeVideo    MessageType = "video"
	MessageTypeFile     MessageType = "file"
	MessageTypeSticker  MessageType = "sticker"
	MessageTypeContact  MessageType = "contact"
	MessageTypeURL      MessageType = "url"
	MessageTypeLocation MessageType = "location"
)

// MessageTypes is the wire enumeration accepted by the platform, in its documented order.
var MessageTypes = []MessageType{
	MessageTypeText,
	MessageTypePicture,
	MessageTypeVideo,
	MessageTypeFile,
	MessageTypeSticker,
	MessageTypeContact,
	MessageTypeURL,
	MessageTypeLocation,
}

func (t MessageType) Valid() bool {
	for _, known := range MessageTypes {
		if t == known {
			return true
		}
	}
	return false
}

type Sender struct {
	Name   string `json:"name" validate:"required,max=28"`
	Avatar string `json:"avatar,omitempty" validate:"omitempty,url"`
}

type Contact struct {
	Name        string `json:"name" validate:"required,max=28"`
	PhoneNumber string `json:"phoneNumber" validate:"required,max=18"`
}

type Button struct {
	Columns    int    `json:"columns,omitempty" validate:"omitempty,min=1,max=6"`
	Rows       int    `json:"rows,omitempty" validate:"omitempty,min=1,max=2"`
	ActionType string `json:"actionType,omitempty" validate:"omitempty,oneof=reply open-url location-picker share-phone none"`
	ActionBody string `json:"actionBody" validate:"required"`
	Text       string `json:"text,omitempty" validate:"max=250"`
	Image      string `json:"image,omitempty" validate:"omitempty,url"`
	BgColor    string `json:"bgColor,omitempty"`
	Silent     bool   `json:"silent,omitempty"`
}

type Keyboard struct {
	DefaultHeight bool     `json:"defaultHeight,omitempty"`
	BgColor       string   `json:"bgColor,omitempty"`
	Buttons       []Button `json:"buttons" validate:"required,min=1,dive"`
}

// OutboundMessage is the closed, per-type payload accepted for sending. Fields
// that do not belong to Type are dropped when the message is put on the wire.
type OutboundMessage struct {
	Receiver      string      `json:"receiver" validate:"required"`
	Type          MessageType `json:"type" validate:"required,oneof=text picture video file sticker contact url location"`
	Text          string      `json:"text,omitempty" validate:"required_if=Type text,max=7000"`
	Media         string      `json:"media,omitempty" validate:"required_if=Type picture,required_if=Type video,required_if=Type file,required_if=Type url,max=2000"`
	Thumbnail     string      `json:"thumbnail,omitempty" validate:"omitempty,url"`
	Size          int64       `json:"size,omitempty" validate:"required_if=Type video,required_if=Type file,gte=0"`
	Duration      int         `json:"duration,omitempty" validate:"gte=0,lte=180"`
	FileName      string      `json:"fileName,omitempty" validate:"required_if=Type file,max=256"`
	StickerID     int64       `json:"stickerId,omitempty" validate:"required_if=Type sticker"`
	Contact       *Contact    `json:"contact,omitempty" validate:"required_if=Type contact"`
	Location      *Location   `json:"location,omitempty" validate:"required_if=Type location"`
	Sender        *Sender     `json:"sender,omitempty"`
	TrackingData  string      `json:"trackingData,omitempty" validate:"max=4096"`
	MinAPIVersion int         `json:"minApiVersion,omitempty" validate:"gte=0"`
	Keyboard      *Keyboard   `json:"keyboard,omitempty"`
}

type SendResult struct {
	BotID        BotID       `json:"botId"`
	Receiver     string      `json:"receiver"`
	Type         MessageType `json:"type"`
	Success      bool        `json:"success"`
	MessageToken int64       `json:"messageToken,string"`
	ChatHostname string      `json:"chatHostname,omitempty"`
}
