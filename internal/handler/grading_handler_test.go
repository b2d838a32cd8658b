package handler_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/chief-impact7/OCRvKing/internal/dto"
	"github.com/chief-impact7/OCRvKing/internal/handler"
	"github.com/chief-impact7/OCRvKing/internal/service"
)

type mockGradingService struct {
	runID     string
	progress  dto.GradingProgress
	startErr  error
	cancelErr error
	cancels   int
}

func (m *mockGradingService) Start(_ context.Context) (string, error) {
	return m.runID, m.startErr
}

func (m *mockGradingService) Run(_ context.Context) (dto.RunSummary, error) {
	return dto.RunSummary{}, nil
}

func (m *mockGradingService) Cancel() error {
	m.cancels++
	return m.cancelErr
}

func (m *mockGradingService) Progress() dto.GradingProgress {
	return m.progress
}

func newGradingApp(svc service.GradingService) *fiber.App {
	app := fiber.New()
	handler.NewGradingHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/api/v1/grading"))
	return app
}

func TestGradingHandler_StartAccepted(t *testing.T) {
	svc := &mockGradingService{runID: "run-1"}
	app := newGradingApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/grading/start", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	var response struct {
		Success bool              `json:"success"`
		Data    map[string]string `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.True(t, response.Success)
	require.Equal(t, "run-1", response.Data["run_id"])
}

func TestGradingHandler_StartErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		statusCode int
	}{
		{name: "already running", err: service.ErrRunInProgress, statusCode: fiber.StatusConflict},
		{name: "empty queue", err: service.ErrNoPendingRecords, statusCode: fiber.StatusBadRequest},
		{name: "missing key", err: service.ErrAnswerKeyMissing, statusCode: fiber.StatusPreconditionFailed},
		{name: "generic", err: errors.New("boom"), statusCode: fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newGradingApp(&mockGradingService{startErr: tc.err})

			resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/grading/start", nil))
			require.NoError(t, err)
			require.Equal(t, tc.statusCode, resp.StatusCode)
		})
	}
}

func TestGradingHandler_Cancel(t *testing.T) {
	svc := &mockGradingService{}
	app := newGradingApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/grading/cancel", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, 1, svc.cancels)

	svc.cancelErr = service.ErrNoActiveRun
	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/grading/cancel", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestGradingHandler_Progress(t *testing.T) {
	svc := &mockGradingService{progress: dto.GradingProgress{Running: true, Total: 4, Completed: 2, Errored: 1, Ratio: 0.75}}
	app := newGradingApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/grading/progress", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Data dto.GradingProgress `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.True(t, response.Data.Running)
	require.Equal(t, 0.75, response.Data.Ratio)
}
