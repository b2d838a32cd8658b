package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/chief-impact7/OCRvKing/internal/dto"
	"github.com/chief-impact7/OCRvKing/internal/queue"
	"github.com/chief-impact7/OCRvKing/internal/service"
	"github.com/chief-impact7/OCRvKing/internal/utils"
	"github.com/chief-impact7/OCRvKing/pkg/pdfimg"
)

// SubmissionHandler manages the submission queue endpoints.
type SubmissionHandler struct {
	service service.IntakeService
	logger  zerolog.Logger
}

// NewSubmissionHandler builds a submission handler instance.
func NewSubmissionHandler(service service.IntakeService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		logger:  logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Post("/bulk", h.createBulk)
	router.Patch("/:id", h.correct)
	router.Delete("/:id", h.remove)
	router.Delete("", h.reset)
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	filter := dto.SubmissionFilter{}
	if status := c.Query("status"); status != "" {
		filter.Status = &status
	}

	submissions, err := h.service.List(c.Context(), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *SubmissionHandler) create(c *fiber.Ctx) error {
	files, err := readMultipartFiles(c, "files")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "files are required")
	}

	submissions, err := h.service.AddDirect(c.Context(), files)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submissions queued", submissions)
}

func (h *SubmissionHandler) createBulk(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	pagesPerStudent, err := parseFormInt(c, "pages_per_student")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	file, err := readFileHeader(header)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "failed to read uploaded file")
	}

	submissions, err := h.service.AddBulk(c.Context(), file, dto.BulkUploadRequest{PagesPerStudent: pagesPerStudent})
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "bulk submissions queued", submissions)
}

func (h *SubmissionHandler) correct(c *fiber.Ctx) error {
	var payload dto.CorrectionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.service.Correct(c.Context(), c.Params("id"), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission corrected", submission)
}

func (h *SubmissionHandler) remove(c *fiber.Ctx) error {
	if err := h.service.Remove(c.Context(), c.Params("id")); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission removed", nil)
}

func (h *SubmissionHandler) reset(c *fiber.Ctx) error {
	h.service.Reset(c.Context())

	return utils.SendSuccess(c, "submission queue reset", nil)
}

func (h *SubmissionHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, queue.ErrRecordNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrNoFilesProvided):
		return utils.SendError(c, fiber.StatusBadRequest, "no files provided")
	case errors.Is(err, service.ErrBlankCorrection):
		return utils.SendError(c, fiber.StatusBadRequest, "corrected field must not be blank")
	case errors.Is(err, service.ErrRecordNotGraded):
		return utils.SendError(c, fiber.StatusConflict, "submission has no grading result to correct")
	case errors.Is(err, service.ErrUploadTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, "file exceeds maximum allowed size")
	case errors.Is(err, service.ErrUploadTypeNotAllowed):
		return utils.SendError(c, fiber.StatusUnsupportedMediaType, "file type not allowed")
	case errors.Is(err, pdfimg.ErrRenderFailed):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "failed to render pdf pages")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
