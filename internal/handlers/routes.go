package handlers

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

type Routes struct {
	Bots     BotService
	Webhooks WebhookIngestor
	Socket   echo.HandlerFunc
	Secret   []byte
}

// Register mounts the API on e. Webhook callbacks and the health check are
// never authenticated; everything else is when a secret is configured.
func (r *Routes) Register(e *echo.Echo) {
	var protected []echo.MiddlewareFunc
	if len(r.Secret) > 0 {
		protected = append(protected, Authenticate(r.Secret))
	} else {
		log.Warn("JWT_SECRET is not set, API authentication is disabled")
	}

	e.GET("/healthz", Health(r.Bots))
	e.POST("/api/webhook", Webhook(r.Webhooks))
	e.POST("/api/webhook/:id", Webhook(r.Webhooks))

	api := e.Group("/api", protected...)
	api.GET("/bots", ListBots(r.Bots))
	api.GET("/bot/:id/status", GetStatus(r.Bots))
	api.POST("/bot/:id/refresh", RefreshStatus(r.Bots))
	api.POST("/bot/:id/send", SendMessage(r.Bots))

	if r.Socket != nil {
		e.GET("/ws", r.Socket, protected...)
	}
}
