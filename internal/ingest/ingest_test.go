package ingest

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uk.co.dudmesh.viberrelay/internal/model"
)

type fakeObserver struct {
	observed map[model.BotID][]*model.InboundEvent
	err      error
}

func (o *fakeObserver) Observe(id model.BotID, event *model.InboundEvent) error {
	if o.err != nil {
		return o.err
	}
	if id != "alpha" {
		return fmt.Errorf("%w: %s", model.ErrorBotNotFound, id)
	}
	if o.observed == nil {
		o.observed = map[model.BotID][]*model.InboundEvent{}
	}
	o.observed[id] = append(o.observed[id], event)
	return nil
}

const messageCallback = `{
	"event": "message",
	"timestamp": 1457764197627,
	"message_token": 4912661846655238145,
	"sender": {"id": "01234567890A=", "name": "John McClane"},
	"message": {"type": "text", "text": "a message to the service"}
}`

func TestIngest(t *testing.T) {
	t.Run("registered bot", func(t *testing.T) {
		assert := assert.New(t)
		observer := &fakeObserver{}
		ingestor := New(observer)

		event, err := ingestor.Ingest("alpha", []byte(messageCallback))
		require.NoError(t, err)
		assert.Equal(model.InboundEventMessage, event.Event)
		require.Len(t, observer.observed["alpha"], 1)
		assert.Equal("a message to the service", observer.observed["alpha"][0].Message.Text)
	})

	t.Run("unknown bot is ignored", func(t *testing.T) {
		observer := &fakeObserver{}
		ingestor := New(observer)

		event, err := ingestor.Ingest("ghost", []byte(messageCallback))
		require.NoError(t, err)
		assert.NotNil(t, event)
		assert.Empty(t, observer.observed)
	})

	t.Run("malformed body", func(t *testing.T) {
		ingestor := New(&fakeObserver{})
		_, err := ingestor.Ingest("alpha", []byte(`{"event":`))
		assert.ErrorIs(t, err, model.ErrorValidation)
	})

	t.Run("missing bot id is ignored", func(t *testing.T) {
		observer := &fakeObserver{}
		ingestor := New(observer)
		event, err := ingestor.Ingest("", []byte(`{"event":"webhook","timestamp":1457764197627,"message_token":241256543215}`))
		assert.NoError(t, err)
		assert.Nil(t, event)
		assert.Empty(t, observer.observed)
	})

	t.Run("observer failure", func(t *testing.T) {
		ingestor := New(&fakeObserver{err: errors.New("boom")})
		_, err := ingestor.Ingest("alpha", []byte(messageCallback))
		assert.Error(t, err)
	})
}
