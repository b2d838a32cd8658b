package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/chief-impact7/OCRvKing/internal/service"
	"github.com/chief-impact7/OCRvKing/internal/utils"
	"github.com/chief-impact7/OCRvKing/pkg/pdfimg"
)

// AnswerKeyHandler manages the reference answer key endpoints.
type AnswerKeyHandler struct {
	service service.AnswerKeyService
	logger  zerolog.Logger
}

// NewAnswerKeyHandler builds an answer key handler instance.
func NewAnswerKeyHandler(service service.AnswerKeyService, logger zerolog.Logger) *AnswerKeyHandler {
	return &AnswerKeyHandler{
		service: service,
		logger:  logger.With().Str("component", "answer_key_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *AnswerKeyHandler) Register(router fiber.Router) {
	router.Post("", h.register)
	router.Get("", h.current)
}

func (h *AnswerKeyHandler) register(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	file, err := readFileHeader(header)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "failed to read uploaded file")
	}

	key, err := h.service.Register(c.Context(), file.Name, file.Data)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "answer key registered", key)
}

func (h *AnswerKeyHandler) current(c *fiber.Ctx) error {
	key, err := h.service.Current(c.Context())
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "answer key retrieved", key)
}

func (h *AnswerKeyHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrAnswerKeyMissing):
		return utils.SendError(c, fiber.StatusNotFound, "answer key not registered")
	case errors.Is(err, service.ErrUploadTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, "file exceeds maximum allowed size")
	case errors.Is(err, service.ErrUploadTypeNotAllowed):
		return utils.SendError(c, fiber.StatusUnsupportedMediaType, "file type not allowed")
	case errors.Is(err, pdfimg.ErrRenderFailed):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "failed to render pdf pages")
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
