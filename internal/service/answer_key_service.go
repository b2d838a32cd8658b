package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/chief-impact7/OCRvKing/internal/dto"
	"github.com/chief-impact7/OCRvKing/internal/models"
	"github.com/chief-impact7/OCRvKing/internal/repository"
	"github.com/chief-impact7/OCRvKing/pkg/ai"
	"github.com/chief-impact7/OCRvKing/pkg/pdfimg"
)

// ErrAnswerKeyMissing indicates no reference key has been registered yet.
var ErrAnswerKeyMissing = errors.New("answer key not registered")

// PageRasterizer renders PDF bytes into ordered page images.
type PageRasterizer interface {
	Rasterize(pdf []byte, originalName string) ([]pdfimg.Page, error)
}

// AnswerKeyService manages the instructor-supplied reference key.
type AnswerKeyService interface {
	Register(ctx context.Context, fileName string, data []byte) (dto.AnswerKeyResponse, error)
	Current(ctx context.Context) (dto.AnswerKeyResponse, error)
	ReferencePages(ctx context.Context) ([]ai.ImageInput, error)
}

type answerKeyService struct {
	repo       repository.AnswerKeyRepository
	rasterizer PageRasterizer
	maxSize    int64
	logger     zerolog.Logger

	mu    sync.RWMutex
	pages []ai.ImageInput
}

// NewAnswerKeyService constructs an AnswerKeyService instance.
func NewAnswerKeyService(repo repository.AnswerKeyRepository, rasterizer PageRasterizer, maxSizeMB int, logger zerolog.Logger) AnswerKeyService {
	if maxSizeMB <= 0 {
		maxSizeMB = 20
	}

	return &answerKeyService{
		repo:       repo,
		rasterizer: rasterizer,
		maxSize:    int64(maxSizeMB) * 1024 * 1024,
		logger:     logger.With().Str("component", "answer_key_service").Logger(),
	}
}

func (s *answerKeyService) Register(ctx context.Context, fileName string, data []byte) (dto.AnswerKeyResponse, error) {
	mime, err := validateScanUpload(data, s.maxSize)
	if err != nil {
		return dto.AnswerKeyResponse{}, err
	}

	pages, err := s.buildPages(fileName, mime, data)
	if err != nil {
		return dto.AnswerKeyResponse{}, err
	}

	key := models.AnswerKey{
		FileName:  fileName,
		MimeType:  mime,
		Data:      data,
		PageCount: len(pages),
	}

	if err := s.repo.Replace(ctx, &key); err != nil {
		return dto.AnswerKeyResponse{}, fmt.Errorf("persist answer key: %w", err)
	}

	s.mu.Lock()
	s.pages = pages
	s.mu.Unlock()

	s.logger.Info().Str("file", fileName).Int("pages", len(pages)).Msg("answer key registered")

	return dto.NewAnswerKeyResponse(key), nil
}

func (s *answerKeyService) Current(ctx context.Context) (dto.AnswerKeyResponse, error) {
	key, err := s.repo.Current(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AnswerKeyResponse{}, ErrAnswerKeyMissing
		}
		return dto.AnswerKeyResponse{}, err
	}

	return dto.NewAnswerKeyResponse(key), nil
}

// ReferencePages returns the rasterized key pages, restoring them from the
// archived original after a restart.
func (s *answerKeyService) ReferencePages(ctx context.Context) ([]ai.ImageInput, error) {
	s.mu.RLock()
	cached := s.pages
	s.mu.RUnlock()

	if len(cached) > 0 {
		return cached, nil
	}

	key, err := s.repo.Current(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAnswerKeyMissing
		}
		return nil, err
	}

	pages, err := s.buildPages(key.FileName, key.MimeType, key.Data)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.pages = pages
	s.mu.Unlock()

	return pages, nil
}

func (s *answerKeyService) buildPages(fileName, mime string, data []byte) ([]ai.ImageInput, error) {
	if mime == "application/pdf" {
		rendered, err := s.rasterizer.Rasterize(data, fileName)
		if err != nil {
			return nil, err
		}
		pages := make([]ai.ImageInput, 0, len(rendered))
		for _, page := range rendered {
			pages = append(pages, ai.ImageInput{Name: page.Name, MIME: "image/jpeg", Data: page.Data})
		}
		return pages, nil
	}

	return []ai.ImageInput{{Name: fileName, MIME: mime, Data: data}}, nil
}
