package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/chief-impact7/OCRvKing/internal/service"
)

func readFileHeader(header *multipart.FileHeader) (service.UploadedFile, error) {
	file, err := header.Open()
	if err != nil {
		return service.UploadedFile{}, fmt.Errorf("failed to open %s: %w", header.Filename, err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return service.UploadedFile{}, fmt.Errorf("failed to read %s: %w", header.Filename, err)
	}

	return service.UploadedFile{Name: header.Filename, Data: data}, nil
}

func readMultipartFiles(c *fiber.Ctx, field string) ([]service.UploadedFile, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}

	headers := form.File[field]
	files := make([]service.UploadedFile, 0, len(headers))
	for _, header := range headers {
		file, err := readFileHeader(header)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}

	return files, nil
}

func parseFormInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.FormValue(key))
	if value == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return parsed, nil
}
