package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/sellerfunnel/api/internal/model"
	"github.com/sellerfunnel/api/internal/service"
	"github.com/sellerfunnel/api/pkg/response"
)

type CampaignHandler struct {
	service   *service.CampaignService
	validator *validator.Validate
}

func NewCampaignHandler(svc *service.CampaignService, v *validator.Validate) *CampaignHandler {
	return &CampaignHandler{
		service:   svc,
		validator: v,
	}
}

// Email handles POST /api/campaigns/email
// @Summary Start an email campaign
// @Tags campaigns
// @Accept json
// @Produce json
// @Param request body model.EmailCampaignRequest true "Campaign"
// @Success 202 {object} model.JobStartResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 503 {object} response.ErrorResponse
// @Router /api/campaigns/email [post]
func (h *CampaignHandler) Email(c *fiber.Ctx) error {
	var req model.EmailCampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.StartEmail(c.UserContext(), &req)
	if err != nil {
		log.Error().Str("component", "handler").Err(err).Msg("Failed to start email campaign")
		return submitError(c, err)
	}

	return response.Accepted(c, result)
}

// SMS handles POST /api/campaigns/sms
// @Summary Start an SMS campaign
// @Tags campaigns
// @Accept json
// @Produce json
// @Param request body model.SMSCampaignRequest true "Campaign"
// @Success 202 {object} model.JobStartResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 503 {object} response.ErrorResponse
// @Router /api/campaigns/sms [post]
func (h *CampaignHandler) SMS(c *fiber.Ctx) error {
	var req model.SMSCampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.StartSMS(c.UserContext(), &req)
	if err != nil {
		log.Error().Str("component", "handler").Err(err).Msg("Failed to start SMS campaign")
		return submitError(c, err)
	}

	return response.Accepted(c, result)
}
