package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/chief-impact7/OCRvKing/internal/dto"
	"github.com/chief-impact7/OCRvKing/internal/repository"
)

// ErrArchiveUnavailable indicates the archive store is not configured.
var ErrArchiveUnavailable = errors.New("archive store not configured")

// ArchiveService exposes the persisted grading history.
type ArchiveService interface {
	List(ctx context.Context, runID, studentClass *string) ([]dto.ArchivedGradeResponse, error)
}

type archiveService struct {
	repo   repository.GradeRecordRepository
	logger zerolog.Logger
}

// NewArchiveService constructs an ArchiveService. repo may be nil when no
// database is configured; List then reports ErrArchiveUnavailable.
func NewArchiveService(repo repository.GradeRecordRepository, logger zerolog.Logger) ArchiveService {
	return &archiveService{
		repo:   repo,
		logger: logger.With().Str("component", "archive_service").Logger(),
	}
}

func (s *archiveService) List(ctx context.Context, runID, studentClass *string) ([]dto.ArchivedGradeResponse, error) {
	if s.repo == nil {
		return nil, ErrArchiveUnavailable
	}

	records, err := s.repo.List(ctx, repository.GradeRecordFilter{RunID: runID, StudentClass: studentClass})
	if err != nil {
		return nil, fmt.Errorf("failed to list archived grades: %w", err)
	}

	return dto.NewArchivedGradeResponseSlice(records), nil
}
