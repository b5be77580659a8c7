package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger is anything whose reachability the health check reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store     Pinger
	email     string
	smsReady  bool
	archiving bool
}

// NewHealthHandler creates the handler. email names the active email
// provider.
func NewHealthHandler(store Pinger, email string, smsReady, archiving bool) *HealthHandler {
	return &HealthHandler{
		store:     store,
		email:     email,
		smsReady:  smsReady,
		archiving: archiving,
	}
}

// Check handles GET /health
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status, code := "ok", fiber.StatusOK
	storeStatus := "ok"
	if err := h.store.Ping(ctx); err != nil {
		status, code = "degraded", fiber.StatusServiceUnavailable
		storeStatus = err.Error()
	}

	return c.Status(code).JSON(fiber.Map{
		"status": status,
		"store":  storeStatus,
		"transports": fiber.Map{
			"email":     h.email,
			"sms":       h.smsReady,
			"archiving": h.archiving,
		},
	})
}
