package ingest

import (
	"errors"
	"fmt"

	"github.com/labstack/gommon/log"

	"uk.co.dudmesh.viberrelay/internal/model"
	"uk.co.dudmesh.viberrelay/internal/viber"
)

type Observer interface {
	Observe(id model.BotID, event *model.InboundEvent) error
}

var knownEvents = map[model.InboundEventType]bool{
	model.InboundEventWebhook:             true,
	model.InboundEventSubscribed:          true,
	model.InboundEventUnsubscribed:        true,
	model.InboundEventConversationStarted: true,
	model.InboundEventDelivered:           true,
	model.InboundEventSeen:                true,
	model.InboundEventFailed:              true,
	model.InboundEventMessage:             true,
	model.InboundEventClientStatus:        true,
}

// Ingestor turns platform callbacks into observations on the bot manager.
type Ingestor struct {
	observer Observer
	logger   *log.Logger
}

func New(observer Observer) *Ingestor {
	return &Ingestor{
		observer: observer,
		logger:   log.New("ingest"),
	}
}

// Ingest decodes raw and records it against id. Callbacks that name no bot,
// or a bot the relay does not know, are logged and dropped without error so
// the platform's handshake succeeds and it does not retry them.
func (i *Ingestor) Ingest(id model.BotID, raw []byte) (*model.InboundEvent, error) {
	if id == "" {
		i.logger.Warnf("ignoring callback without a bot id")
		return nil, nil
	}

	event, err := viber.ParseCallback(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing callback for bot %s: %w", id, err)
	}

	if !knownEvents[event.Event] {
		i.logger.Warnf("bot %s received unrecognised callback %q", id, event.Event)
	}

	if err := i.observer.Observe(id, event); err != nil {
		if errors.Is(err, model.ErrorBotNotFound) {
			i.logger.Warnf("ignoring %s callback for unknown bot %s", event.Event, id)
			return event, nil
		}
		return nil, fmt.Errorf("observing %s callback: %w", event.Event, err)
	}

	i.logger.Debugf("bot %s received %s callback", id, event.Event)
	return event, nil
}
