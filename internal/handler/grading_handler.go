package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/chief-impact7/OCRvKing/internal/service"
	"github.com/chief-impact7/OCRvKing/internal/utils"
)

// GradingHandler controls the grading run lifecycle.
type GradingHandler struct {
	service service.GradingService
	logger  zerolog.Logger
}

// NewGradingHandler builds a grading handler instance.
func NewGradingHandler(service service.GradingService, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		service: service,
		logger:  logger.With().Str("component", "grading_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *GradingHandler) Register(router fiber.Router) {
	router.Post("/start", h.start)
	router.Post("/cancel", h.cancel)
	router.Get("/progress", h.progress)
}

func (h *GradingHandler) start(c *fiber.Ctx) error {
	runID, err := h.service.Start(c.Context())
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "grading run started", fiber.Map{"run_id": runID})
}

func (h *GradingHandler) cancel(c *fiber.Ctx) error {
	if err := h.service.Cancel(); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "grading run cancelled", nil)
}

func (h *GradingHandler) progress(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "grading progress", h.service.Progress())
}

func (h *GradingHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrRunInProgress):
		return utils.SendError(c, fiber.StatusConflict, "grading run already in progress")
	case errors.Is(err, service.ErrNoActiveRun):
		return utils.SendError(c, fiber.StatusConflict, "no grading run in progress")
	case errors.Is(err, service.ErrNoPendingRecords):
		return utils.SendError(c, fiber.StatusBadRequest, "no pending submissions to grade")
	case errors.Is(err, service.ErrAnswerKeyMissing):
		return utils.SendError(c, fiber.StatusPreconditionFailed, "answer key not registered")
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
