package handlers

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"uk.co.dudmesh.viberrelay/internal/model"
)

type WebhookIngestor interface {
	Ingest(id model.BotID, raw []byte) (*model.InboundEvent, error)
}

// Webhook accepts platform callbacks. The bot is named by the :id path
// parameter or the botId query parameter.
func Webhook(ingestor WebhookIngestor) echo.HandlerFunc {
	return func(c echo.Context) error {
		body := c.Request().Body
		defer body.Close()

		raw, err := io.ReadAll(body)
		if err != nil {
			return &model.ValidationError{Reason: "reading body: " + err.Error()}
		}

		id := c.Param("id")
		if id == "" {
			id = c.QueryParam("botId")
		}

		if _, err := ingestor.Ingest(model.BotID(id), raw); err != nil {
			return err
		}
		return c.NoContent(http.StatusOK)
	}
}
