package handler_test

import (
	"context"
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

type mockExportService struct {
	format string
	data   []byte
	err    error
}

func (m *mockExportService) Export(format string) ([]byte, string, error) {
	m.format = format
	if m.err != nil {
		return nil, "", m.err
	}
	return m.data, "text/csv; charset=utf-8", nil
}

type mockArchiveService struct {
	records []dto.ArchivedGradeResponse
	err     error
}

func (m *mockArchiveService) List(_ context.Context, _, _ *string) ([]dto.ArchivedGradeResponse, error) {
	return m.records, m.err
}

func newExportApp(export service.ExportService, archive service.ArchiveService) *fiber.App {
	app := fiber.New()
	handler.NewExportHandler(export, archive, zerolog.New(io.Discard)).Register(app.Group("/api/v1"))
	return app
}

func TestExportHandler_DownloadDefaultsToCSV(t *testing.T) {
	export := &mockExportService{data: []byte("이름,반\n")}
	app := newExportApp(export, &mockArchiveService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/export", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, service.FormatCSV, export.format)
	require.Equal(t, "text/csv; charset=utf-8", resp.Header.Get(fiber.HeaderContentType))
	require.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "attachment")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "이름,반\n", string(body))
}

func TestExportHandler_DownloadErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		statusCode int
	}{
		{name: "empty", err: service.ErrNothingToExport, statusCode: fiber.StatusNotFound},
		{name: "bad format", err: service.ErrUnsupportedFormat, statusCode: fiber.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newExportApp(&mockExportService{err: tc.err}, &mockArchiveService{})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/export?format=tsv", nil))
			require.NoError(t, err)
			require.Equal(t, tc.statusCode, resp.StatusCode)
		})
	}
}

func TestExportHandler_ArchiveList(t *testing.T) {
	archive := &mockArchiveService{records: []dto.ArchivedGradeResponse{{RunID: "run-1", StudentName: "김철수"}}}
	app := newExportApp(&mockExportService{}, archive)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/archive?run_id=run-1", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Data []dto.ArchivedGradeResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.Len(t, response.Data, 1)
	require.Equal(t, "김철수", response.Data[0].StudentName)
}

func TestExportHandler_ArchiveUnavailable(t *testing.T) {
	app := newExportApp(&mockExportService{}, &mockArchiveService{err: service.ErrArchiveUnavailable})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/archive", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
