package app

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"

	"github.com/sellerfunnel/api/internal/config"
	"github.com/sellerfunnel/api/internal/handler"
	"github.com/sellerfunnel/api/internal/jobs"
	"github.com/sellerfunnel/api/internal/middleware"
	"github.com/sellerfunnel/api/internal/service"
	ws "github.com/sellerfunnel/api/internal/websocket"
	"github.com/sellerfunnel/api/pkg/response"
)

// NewRouter builds the Fiber app with every route mounted.
func NewRouter(cfg *config.Config, deps *Deps, registry *jobs.Registry, hub *ws.Hub, validate *validator.Validate) *fiber.App {
	policies := service.PoliciesFromConfig(&cfg.Jobs)
	bodyLimit := cfg.Server.BodyLimitMB * 1024 * 1024

	importService := service.NewImportService(registry, deps.Store, deps.Archiver, validate, policies.Import)
	campaignService := service.NewCampaignService(registry, deps.Store, deps.Email, deps.SMS, validate, policies.Campaign)
	jobService := service.NewJobService(registry)

	importHandler := handler.NewImportHandler(importService, int64(bodyLimit))
	campaignHandler := handler.NewCampaignHandler(campaignService, validate)
	jobHandler := handler.NewJobHandler(jobService)

	emailProvider := ""
	if deps.Email != nil {
		emailProvider = deps.Email.Name()
	}
	healthHandler := handler.NewHealthHandler(deps.Store, emailProvider, deps.SMS != nil, deps.Archiver != nil)

	app := fiber.New(fiber.Config{
		ErrorHandler:          errorHandler,
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		Output: log.Logger.With().Str("component", "http").Logger(),
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	app.Get("/health", healthHandler.Check)

	api := app.Group("/api")

	if deps.Redis != nil {
		rateLimiter := middleware.NewRateLimiter(middleware.NewRedisCounter(deps.Redis))
		api.Post("/imports", rateLimiter.ImportLimit(cfg.RateLimit.ImportsPerHour), importHandler.Upload)
		campaigns := api.Group("/campaigns", rateLimiter.CampaignLimit(cfg.RateLimit.CampaignsPerHour))
		campaigns.Post("/email", campaignHandler.Email)
		campaigns.Post("/sms", campaignHandler.SMS)
	} else {
		api.Post("/imports", importHandler.Upload)
		api.Post("/campaigns/email", campaignHandler.Email)
		api.Post("/campaigns/sms", campaignHandler.SMS)
	}

	api.Get("/jobs", jobHandler.List)
	api.Get("/jobs/:jobId", jobHandler.Status)
	api.Delete("/jobs/:jobId", jobHandler.Cancel)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, c.Params("jobId"), registry)
	}))

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	return response.Error(c, code, response.CodeServiceError, message, nil)
}
