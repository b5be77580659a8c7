package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/sellerfunnel/api/internal/client"
	"github.com/sellerfunnel/api/internal/jobs"
	"github.com/sellerfunnel/api/pkg/response"
)

func formatValidationErrors(err error) interface{} {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		errs := make(map[string]string)
		for _, e := range validationErrors {
			errs[e.Field()] = e.Tag()
		}
		return errs
	}
	return nil
}

// submitError maps a job submission failure to its HTTP response.
func submitError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, jobs.ErrDispatcherFull):
		return response.Busy(c, "Too many jobs in progress, try again shortly")
	case errors.Is(err, jobs.ErrRegistryClosed):
		return response.Busy(c, "Server is shutting down")
	case errors.Is(err, client.ErrEmailNotConfigured):
		return response.NotConfigured(c, "Email delivery is not configured")
	case errors.Is(err, client.ErrSMSNotConfigured):
		return response.NotConfigured(c, "SMS delivery is not configured")
	}
	return response.ServiceError(c, "Failed to start job")
}
