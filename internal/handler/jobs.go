package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/sellerfunnel/api/internal/jobs"
	"github.com/sellerfunnel/api/internal/service"
	"github.com/sellerfunnel/api/pkg/response"
)

type JobHandler struct {
	service *service.JobService
}

func NewJobHandler(svc *service.JobService) *JobHandler {
	return &JobHandler{service: svc}
}

// Status handles GET /api/jobs/:jobId
// @Summary Get job progress
// @Tags jobs
// @Produce json
// @Param jobId path string true "Job ID"
// @Success 200 {object} model.JobSnapshot
// @Failure 404 {object} response.ErrorResponse
// @Router /api/jobs/{jobId} [get]
func (h *JobHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.Status(jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, "Failed to get job status")
	}

	return response.OK(c, result)
}

// List handles GET /api/jobs
// @Summary List retained jobs
// @Tags jobs
// @Produce json
// @Success 200 {object} model.JobListResponse
// @Router /api/jobs [get]
func (h *JobHandler) List(c *fiber.Ctx) error {
	return response.OK(c, h.service.List())
}

// Cancel handles DELETE /api/jobs/:jobId
// @Summary Cancel a running job
// @Tags jobs
// @Produce json
// @Param jobId path string true "Job ID"
// @Success 202 {object} model.JobSnapshot
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/jobs/{jobId} [delete]
func (h *JobHandler) Cancel(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.Cancel(jobID)
	if err != nil {
		switch {
		case errors.Is(err, jobs.ErrJobNotFound):
			return response.NotFound(c, "Job not found")
		case errors.Is(err, jobs.ErrJobFinished):
			return response.Conflict(c, "Job already finished")
		}
		return response.ServiceError(c, "Failed to cancel job")
	}

	return response.Accepted(c, result)
}
