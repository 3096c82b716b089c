package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"uk.co.dudmesh.viberrelay/internal/model"
	"uk.co.dudmesh.viberrelay/internal/service/bot"
)

type BotService interface {
	GetBotStatus(id model.BotID) (model.BotState, error)
	RefreshBotStatus(ctx context.Context, id model.BotID) (model.BotState, error)
	SendMessage(ctx context.Context, id model.BotID, message *model.OutboundMessage) (*model.SendResult, error)
	ListBots() []model.BotState
}

func requestContext(c echo.Context) context.Context {
	ctx := c.Request().Context()
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		ctx = bot.WithRequestID(ctx, id)
	}
	return ctx
}

func SendMessage(botService BotService) echo.HandlerFunc {
	return func(c echo.Context) error {
		message := &model.OutboundMessage{}
		if err := c.Bind(message); err != nil {
			return &model.ValidationError{Reason: "malformed body"}
		}
		if err := c.Validate(message); err != nil {
			return err
		}

		result, err := botService.SendMessage(requestContext(c), model.BotID(c.Param("id")), message)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, result)
	}
}

func GetStatus(botService BotService) echo.HandlerFunc {
	return func(c echo.Context) error {
		state, err := botService.GetBotStatus(model.BotID(c.Param("id")))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, state)
	}
}

func RefreshStatus(botService BotService) echo.HandlerFunc {
	return func(c echo.Context) error {
		state, err := botService.RefreshBotStatus(requestContext(c), model.BotID(c.Param("id")))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, state)
	}
}

func ListBots(botService BotService) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, botService.ListBots())
	}
}

type health struct {
	Status   string         `json:"status"`
	Bots     int            `json:"bots"`
	ByStatus map[string]int `json:"byStatus"`
}

// Health reports "ok" while at least one bot is active or none are registered.
func Health(botService BotService) echo.HandlerFunc {
	return func(c echo.Context) error {
		states := botService.ListBots()
		h := health{Status: "ok", Bots: len(states), ByStatus: map[string]int{}}
		for _, s := range states {
			h.ByStatus[s.Status.String()]++
		}
		if len(states) > 0 && h.ByStatus[model.BotStatusActive.String()] == 0 {
			h.Status = "degraded"
		}
		return c.JSON(http.StatusOK, h)
	}
}
