package handler

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/chief-impact7/OCRvKing/internal/service"
	"github.com/chief-impact7/OCRvKing/internal/utils"
)

// ExportHandler serves result downloads and the archived history.
type ExportHandler struct {
	export  service.ExportService
	archive service.ArchiveService
	logger  zerolog.Logger
}

// NewExportHandler builds an export handler instance.
func NewExportHandler(export service.ExportService, archive service.ArchiveService, logger zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		export:  export,
		archive: archive,
		logger:  logger.With().Str("component", "export_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ExportHandler) Register(router fiber.Router) {
	router.Get("/export", h.download)
	router.Get("/archive", h.archived)
}

func (h *ExportHandler) download(c *fiber.Ctx) error {
	format := c.Query("format", service.FormatCSV)

	data, contentType, err := h.export.Export(format)
	if err != nil {
		return h.handleError(c, err)
	}

	fileName := fmt.Sprintf("grading_results_%s.%s", time.Now().Format("20060102_150405"), format)
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", fileName))

	return c.Send(data)
}

func (h *ExportHandler) archived(c *fiber.Ctx) error {
	var runID, studentClass *string
	if value := c.Query("run_id"); value != "" {
		runID = &value
	}
	if value := c.Query("student_class"); value != "" {
		studentClass = &value
	}

	records, err := h.archive.List(c.Context(), runID, studentClass)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "archived grades retrieved", records)
}

func (h *ExportHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrNothingToExport):
		return utils.SendError(c, fiber.StatusNotFound, "no completed submissions to export")
	case errors.Is(err, service.ErrUnsupportedFormat):
		return utils.SendError(c, fiber.StatusBadRequest, "unsupported export format")
	case errors.Is(err, service.ErrArchiveUnavailable):
		return utils.SendError(c, fiber.StatusServiceUnavailable, "archive store not configured")
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
