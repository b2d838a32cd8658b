package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/chief-impact7/OCRvKing/internal/dto"
	"github.com/chief-impact7/OCRvKing/internal/service"
)

const progressWriteWait = 10 * time.Second

// ProgressHandler streams grading progress events over a websocket.
type ProgressHandler struct {
	notifier service.NotifyService
	grading  service.GradingService
	logger   zerolog.Logger
}

// NewProgressHandler builds a progress handler instance.
func NewProgressHandler(notifier service.NotifyService, grading service.GradingService, logger zerolog.Logger) *ProgressHandler {
	return &ProgressHandler{
		notifier: notifier,
		grading:  grading,
		logger:   logger.With().Str("component", "progress_handler").Logger(),
	}
}

// Register binds the websocket route under the provided router group.
func (h *ProgressHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/ws", websocket.New(h.handleConnection))
}

func (h *ProgressHandler) handleConnection(conn *websocket.Conn) {
	defer func() { _ = conn.Close() }()

	events, cleanup := h.notifier.Subscribe()
	defer cleanup()

	h.logger.Info().Msg("progress websocket connected")
	defer h.logger.Info().Msg("progress websocket disconnected")

	// The initial snapshot lets late joiners render current state at once.
	progress := h.grading.Progress()
	if err := h.writeEvent(conn, dto.ProgressEvent{Kind: dto.EventProgress, Progress: &progress}); err != nil {
		return
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := h.writeEvent(conn, event); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

func (h *ProgressHandler) writeEvent(conn *websocket.Conn, event dto.ProgressEvent) error {
	_ = conn.SetWriteDeadline(time.Now().Add(progressWriteWait))
	return conn.WriteJSON(event)
}
