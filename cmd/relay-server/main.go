package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/nrednav/cuid2"
	"golang.org/x/time/rate"

	"uk.co.dudmesh.viberrelay/internal/boot"
	"uk.co.dudmesh.viberrelay/internal/handlers"
	"uk.co.dudmesh.viberrelay/internal/ingest"
	"uk.co.dudmesh.viberrelay/internal/realtime"
	"uk.co.dudmesh.viberrelay/internal/scheduler"
	"uk.co.dudmesh.viberrelay/internal/service/bot"
	"uk.co.dudmesh.viberrelay/internal/store"
	"uk.co.dudmesh.viberrelay/internal/viber"
)

func main() {
	config, err := boot.Load()
	if err != nil {
		log.Fatalf("boot: %+v", err)
	}

	botStore, err := store.NewBotStore(config)
	if err != nil {
		log.Fatalf("opening bot store: %+v", err)
	}
	defer botStore.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := realtime.NewHub(config.AllowedOrigins())
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	manager := bot.New(config, botStore, viber.New(config), hub)
	report, err := manager.Initialize(ctx)
	if err != nil {
		log.Fatalf("initializing bots: %+v", err)
	}
	log.Infof("%d of %d bots active", report.Active, report.Total)

	server := echo.New()
	server.HideBanner = true
	server.Logger.SetLevel(log.INFO)
	server.Validator = handlers.NewValidator()
	server.HTTPErrorHandler = handlers.NewErrorHandler()

	server.Use(middleware.BodyLimit("2M"))
	server.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string {
			return cuid2.Generate()
		},
	}))
	server.Use(echoprometheus.NewMiddleware("viberrelay"))
	server.Use(middleware.Logger())
	server.Use(middleware.Recover())
	server.Use(middleware.Secure())

	headers := []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization}
	server.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     config.AllowedOrigins(),
		AllowHeaders:     headers,
		AllowCredentials: true,
	}))
	if config.Server.RateLimit > 0 {
		server.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(config.Server.RateLimit))))
	}

	routes := &handlers.Routes{
		Bots:     manager,
		Webhooks: ingest.New(manager),
		Socket:   hub.Handler(manager),
		Secret:   config.Secret(),
	}
	routes.Register(server)

	metrics := echo.New()
	metrics.HideBanner = true
	metrics.GET("/metrics", echoprometheus.NewHandler())
	go func() {
		if err := metrics.Start(":" + config.Server.MetricsPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	go func() {
		if err := server.Start(":" + config.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			server.Logger.Fatal("shutting down the server")
		}
	}()

	// the platform calls the webhook back while registering it
	if failures := manager.RegisterWebhooks(ctx); len(failures) > 0 {
		log.Warnf("webhook registration failed for %d bots", len(failures))
	}

	refresher, err := scheduler.New(config, manager)
	if err != nil {
		log.Fatalf("creating scheduler: %+v", err)
	}
	refresher.Start()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
	defer cancel()

	if err := refresher.Shutdown(); err != nil {
		log.Error(err)
	}
	if err := manager.Shutdown(shutdownCtx); err != nil {
		log.Error(err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(err)
	}
	if err := metrics.Shutdown(shutdownCtx); err != nil {
		log.Error(err)
	}
}
