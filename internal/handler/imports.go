package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/sellerfunnel/api/internal/service"
	"github.com/sellerfunnel/api/pkg/response"
)

type ImportHandler struct {
	service *service.ImportService
	maxSize int64
}

// NewImportHandler creates the handler. Uploads larger than maxSize bytes are
// rejected; zero disables the check.
func NewImportHandler(svc *service.ImportService, maxSize int64) *ImportHandler {
	return &ImportHandler{
		service: svc,
		maxSize: maxSize,
	}
}

// Upload handles POST /api/imports
// @Summary Import clients from a spreadsheet
// @Tags imports
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Spreadsheet (.xlsx or .csv)"
// @Success 202 {object} model.JobStartResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 503 {object} response.ErrorResponse
// @Router /api/imports [post]
func (h *ImportHandler) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, "File is required", nil)
	}

	if h.maxSize > 0 && file.Size > h.maxSize {
		return response.ValidationError(c, "File is too large", map[string]interface{}{
			"maxSize":  h.maxSize,
			"fileSize": file.Size,
		})
	}

	f, err := file.Open()
	if err != nil {
		return response.ValidationError(c, "Failed to read file", nil)
	}
	defer f.Close()

	result, err := h.service.Start(c.UserContext(), file.Filename, f)
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedFile) {
			return response.ValidationError(c, "Unsupported file type", map[string]interface{}{
				"filename": file.Filename,
				"accepted": []string{".xlsx", ".csv"},
			})
		}
		log.Error().Str("component", "handler").Err(err).Msg("Failed to start import")
		return submitError(c, err)
	}

	return response.Accepted(c, result)
}
