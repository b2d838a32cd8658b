package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/chief-impact7/OCRvKing/internal/dto"
	"github.com/chief-impact7/OCRvKing/internal/handler"
	"github.com/chief-impact7/OCRvKing/internal/queue"
	"github.com/chief-impact7/OCRvKing/internal/service"
)

type mockIntakeService struct {
	direct      []service.UploadedFile
	bulkFile    service.UploadedFile
	bulkPayload dto.BulkUploadRequest
	correction  dto.CorrectionRequest
	removedID   string
	resets      int
	responses   []dto.SubmissionResponse
	err         error
}

func (m *mockIntakeService) AddDirect(_ context.Context, files []service.UploadedFile) ([]dto.SubmissionResponse, error) {
	m.direct = files
	return m.responses, m.err
}

func (m *mockIntakeService) AddBulk(_ context.Context, file service.UploadedFile, payload dto.BulkUploadRequest) ([]dto.SubmissionResponse, error) {
	m.bulkFile = file
	m.bulkPayload = payload
	return m.responses, m.err
}

func (m *mockIntakeService) List(_ context.Context, _ dto.SubmissionFilter) ([]dto.SubmissionResponse, error) {
	return m.responses, m.err
}

func (m *mockIntakeService) Remove(_ context.Context, id string) error {
	m.removedID = id
	return m.err
}

func (m *mockIntakeService) Correct(_ context.Context, _ string, payload dto.CorrectionRequest) (dto.SubmissionResponse, error) {
	m.correction = payload
	if m.err != nil {
		return dto.SubmissionResponse{}, m.err
	}
	if len(m.responses) > 0 {
		return m.responses[0], nil
	}
	return dto.SubmissionResponse{}, nil
}

func (m *mockIntakeService) Reset(_ context.Context) {
	m.resets++
}

func newSubmissionApp(svc service.IntakeService) *fiber.App {
	app := fiber.New()
	handler.NewSubmissionHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/api/v1/submissions"))
	return app
}

func decodeResponse(t *testing.T, resp *http.Response, out any) {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, out))
}

func multipartBody(t *testing.T, files map[string][]byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, data := range files {
		part, err := writer.CreateFormFile(fileFieldFor(name), name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	return &buf, writer.FormDataContentType()
}

func fileFieldFor(name string) string {
	if name == "bulk.pdf" {
		return "file"
	}
	return "files"
}

func TestSubmissionHandler_CreateQueuesFiles(t *testing.T) {
	svc := &mockIntakeService{responses: []dto.SubmissionResponse{{ID: "rec-1", SourceName: "kim.jpg", Status: "pending"}}}
	app := newSubmissionApp(svc)

	body, contentType := multipartBody(t, map[string][]byte{"kim.jpg": {0xFF, 0xD8, 0xFF}}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var response struct {
		Success bool                     `json:"success"`
		Data    []dto.SubmissionResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.True(t, response.Success)
	require.Len(t, response.Data, 1)

	require.Len(t, svc.direct, 1)
	require.Equal(t, "kim.jpg", svc.direct[0].Name)
}

func TestSubmissionHandler_BulkForwardsPageCount(t *testing.T) {
	svc := &mockIntakeService{}
	app := newSubmissionApp(svc)

	body, contentType := multipartBody(t, map[string][]byte{"bulk.pdf": []byte("%PDF-1.4")}, map[string]string{"pages_per_student": "3"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions/bulk", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Equal(t, "bulk.pdf", svc.bulkFile.Name)
	require.Equal(t, 3, svc.bulkPayload.PagesPerStudent)
}

func TestSubmissionHandler_BulkRequiresPageCount(t *testing.T) {
	svc := &mockIntakeService{}
	app := newSubmissionApp(svc)

	body, contentType := multipartBody(t, map[string][]byte{"bulk.pdf": []byte("%PDF-1.4")}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions/bulk", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSubmissionHandler_CorrectParsesBody(t *testing.T) {
	svc := &mockIntakeService{responses: []dto.SubmissionResponse{{ID: "rec-1"}}}
	app := newSubmissionApp(svc)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/submissions/rec-1", bytes.NewReader([]byte(`{"student_name":"김철수"}`)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NotNil(t, svc.correction.StudentName)
	require.Equal(t, "김철수", *svc.correction.StudentName)
}

func TestSubmissionHandler_RemoveAndReset(t *testing.T) {
	svc := &mockIntakeService{}
	app := newSubmissionApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/api/v1/submissions/rec-9", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "rec-9", svc.removedID)

	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/api/v1/submissions", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, 1, svc.resets)
}

func TestSubmissionHandler_ServiceErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		statusCode int
	}{
		{name: "not found", err: queue.ErrRecordNotFound, statusCode: fiber.StatusNotFound},
		{name: "too large", err: service.ErrUploadTooLarge, statusCode: fiber.StatusRequestEntityTooLarge},
		{name: "bad type", err: service.ErrUploadTypeNotAllowed, statusCode: fiber.StatusUnsupportedMediaType},
		{name: "not graded", err: service.ErrRecordNotGraded, statusCode: fiber.StatusConflict},
		{name: "blank correction", err: service.ErrBlankCorrection, statusCode: fiber.StatusBadRequest},
		{name: "generic", err: errors.New("boom"), statusCode: fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockIntakeService{err: tc.err}
			app := newSubmissionApp(svc)

			body, contentType := multipartBody(t, map[string][]byte{"kim.jpg": {0xFF, 0xD8, 0xFF}}, nil)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions", body)
			req.Header.Set("Content-Type", contentType)

			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.statusCode, resp.StatusCode)
		})
	}
}
