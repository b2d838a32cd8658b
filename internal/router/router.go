package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/chief-impact7/OCRvKing/internal/config"
	"github.com/chief-impact7/OCRvKing/internal/handler"
	"github.com/chief-impact7/OCRvKing/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AnswerKeyHandler  *handler.AnswerKeyHandler
	SubmissionHandler *handler.SubmissionHandler
	GradingHandler    *handler.GradingHandler
	ExportHandler     *handler.ExportHandler
	ProgressHandler   *handler.ProgressHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AnswerKeyHandler != nil {
		answerKey := api.Group("/answer-key", jwtMiddleware)
		deps.AnswerKeyHandler.Register(answerKey)
	}

	if deps.SubmissionHandler != nil {
		submissions := api.Group("/submissions", jwtMiddleware)
		deps.SubmissionHandler.Register(submissions)
	}

	if deps.GradingHandler != nil {
		grading := api.Group("/grading", jwtMiddleware)
		deps.GradingHandler.Register(grading)
	}

	if deps.ExportHandler != nil {
		deps.ExportHandler.Register(api.Group("", jwtMiddleware))
	}

	if deps.ProgressHandler != nil {
		deps.ProgressHandler.Register(api)
	}
}
