package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/chief-impact7/OCRvKing/internal/dto"
	"github.com/chief-impact7/OCRvKing/internal/observability"
	"github.com/chief-impact7/OCRvKing/internal/pipeline"
	"github.com/chief-impact7/OCRvKing/internal/queue"
	"github.com/chief-impact7/OCRvKing/pkg/ai"
)

var (
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the MIME type is not permitted.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
	// ErrNoFilesProvided indicates the intake request carried no files.
	ErrNoFilesProvided = errors.New("no files provided")
	// ErrRecordNotGraded indicates a correction was attempted on an ungraded record.
	ErrRecordNotGraded = errors.New("record has no grading result to correct")
	// ErrBlankCorrection indicates a correction field was empty after trimming.
	ErrBlankCorrection = errors.New("corrected field must not be blank")
)

// UploadedFile is one raw file handed to the intake pipeline.
type UploadedFile struct {
	Name string
	Data []byte
}

// ArtifactStore archives raw uploads to external storage. Optional.
type ArtifactStore interface {
	Store(ctx context.Context, name string, reader io.Reader) (string, error)
}

// IntakeService feeds uploaded files into the submission queue and manages
// queue records outside of grading runs.
type IntakeService interface {
	AddDirect(ctx context.Context, files []UploadedFile) ([]dto.SubmissionResponse, error)
	AddBulk(ctx context.Context, file UploadedFile, payload dto.BulkUploadRequest) ([]dto.SubmissionResponse, error)
	List(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error)
	Remove(ctx context.Context, id string) error
	Correct(ctx context.Context, id string, payload dto.CorrectionRequest) (dto.SubmissionResponse, error)
	Reset(ctx context.Context)
}

type intakeService struct {
	queue      *queue.Queue
	rasterizer PageRasterizer
	store      ArtifactStore
	notifier   NotifyService
	validator  *validator.Validate
	maxSize    int64
	logger     zerolog.Logger
	tracer     trace.Tracer
}

// NewIntakeService constructs an IntakeService instance. store may be nil.
func NewIntakeService(q *queue.Queue, rasterizer PageRasterizer, store ArtifactStore, notifier NotifyService, validate *validator.Validate, maxSizeMB int, logger zerolog.Logger) IntakeService {
	if maxSizeMB <= 0 {
		maxSizeMB = 20
	}

	return &intakeService{
		queue:      q,
		rasterizer: rasterizer,
		store:      store,
		notifier:   notifier,
		validator:  validate,
		maxSize:    int64(maxSizeMB) * 1024 * 1024,
		logger:     logger.With().Str("component", "intake_service").Logger(),
		tracer:     otel.Tracer("github.com/chief-impact7/OCRvKing/internal/service/intake"),
	}
}

// AddDirect queues one pending record per uploaded file.
func (s *intakeService) AddDirect(ctx context.Context, files []UploadedFile) ([]dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "intake.add_direct", trace.WithAttributes(
		attribute.Int("intake.file_count", len(files)),
	))
	defer span.End()

	if len(files) == 0 {
		return nil, ErrNoFilesProvided
	}

	records := make([]queue.Record, 0, len(files))
	for _, file := range files {
		mime, err := validateScanUpload(file.Data, s.maxSize)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("%s: %w", file.Name, err)
		}

		records = append(records, queue.Record{
			SourceName: file.Name,
			Pages:      []pipeline.Artifact{{Name: file.Name, MIME: mime, Data: file.Data}},
		})
	}

	s.archive(ctx, files)

	appended := s.queue.Append(records...)
	s.publishSnapshot(ctx, appended)
	s.logger.Info().Int("records", len(appended)).Msg("direct submissions queued")

	return dto.NewSubmissionResponseSlice(appended), nil
}

// AddBulk rasterizes one combined PDF and segments it into per-student
// records by fixed page count. A render failure aborts the whole upload;
// nothing is queued.
func (s *intakeService) AddBulk(ctx context.Context, file UploadedFile, payload dto.BulkUploadRequest) ([]dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "intake.add_bulk", trace.WithAttributes(
		attribute.Int("intake.pages_per_student", payload.PagesPerStudent),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return nil, err
	}

	mime, err := validateScanUpload(file.Data, s.maxSize)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%s: %w", file.Name, err)
	}
	if mime != "application/pdf" {
		observability.UploadRejected().WithLabelValues("type").Inc()
		return nil, fmt.Errorf("%s: bulk mode requires a pdf: %w", file.Name, ErrUploadTypeNotAllowed)
	}

	rendered, err := s.rasterizer.Rasterize(file.Data, file.Name)
	if err != nil {
		observability.UploadRejected().WithLabelValues("render").Inc()
		span.RecordError(err)
		return nil, err
	}

	pages := make([]pipeline.Artifact, 0, len(rendered))
	for _, page := range rendered {
		pages = append(pages, pipeline.Artifact{Name: page.Name, MIME: "image/jpeg", Data: page.Data})
	}

	chunks := pipeline.Split(pages, payload.PagesPerStudent)
	if len(chunks) == 0 {
		return []dto.SubmissionResponse{}, nil
	}

	records := make([]queue.Record, 0, len(chunks))
	for i, chunk := range chunks {
		records = append(records, queue.Record{
			SourceName: fmt.Sprintf("%s #%d", file.Name, i+1),
			Pages:      chunk,
		})
	}

	s.archive(ctx, []UploadedFile{file})

	appended := s.queue.Append(records...)
	s.publishSnapshot(ctx, appended)
	s.logger.Info().
		Str("file", file.Name).
		Int("pages", len(pages)).
		Int("students", len(appended)).
		Msg("bulk pdf segmented and queued")

	return dto.NewSubmissionResponseSlice(appended), nil
}

func (s *intakeService) List(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	records := s.queue.Snapshot()
	if filter.Status != nil {
		filtered := records[:0]
		for _, record := range records {
			if string(record.Status) == *filter.Status {
				filtered = append(filtered, record)
			}
		}
		records = filtered
	}

	return dto.NewSubmissionResponseSlice(records), nil
}

func (s *intakeService) Remove(ctx context.Context, id string) error {
	if err := s.queue.Remove(id); err != nil {
		return err
	}

	s.publishProgress(ctx)
	s.logger.Info().Str("record_id", id).Msg("submission removed")

	return nil
}

// Correct patches the identifying fields of a graded record. The OCR-issue
// flag is recomputed: it clears once neither field carries a sentinel.
func (s *intakeService) Correct(ctx context.Context, id string, payload dto.CorrectionRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	record, err := s.queue.Get(id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if record.Status != queue.StatusCompleted || record.Result == nil {
		return dto.SubmissionResponse{}, ErrRecordNotGraded
	}

	// Fields are trimmed before validation; the identifying fields must never
	// end up empty, a record the user cannot fill stays on the sentinel.
	result := *record.Result
	if payload.StudentName != nil {
		name := strings.TrimSpace(*payload.StudentName)
		if name == "" {
			return dto.SubmissionResponse{}, fmt.Errorf("student_name: %w", ErrBlankCorrection)
		}
		result.StudentName = name
	}
	if payload.StudentClass != nil {
		class := strings.TrimSpace(*payload.StudentClass)
		if class == "" {
			return dto.SubmissionResponse{}, fmt.Errorf("student_class: %w", ErrBlankCorrection)
		}
		result.StudentClass = class
	}
	result.HasOCRIssues = result.StudentName == ai.UnknownStudentName || result.StudentClass == ai.UnknownStudentClass

	updated, err := s.queue.Update(id, queue.Patch{Result: &result})
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	response := dto.NewSubmissionResponse(updated)
	s.notifier.Publish(ctx, dto.ProgressEvent{Kind: dto.EventRecordUpdate, Record: &response})
	s.logger.Info().Str("record_id", id).Msg("submission corrected")

	return response, nil
}

// Reset drops every record, abandoning any results not yet exported.
func (s *intakeService) Reset(ctx context.Context) {
	s.queue.Reset()
	s.publishProgress(ctx)
	s.logger.Info().Msg("submission queue reset")
}

func (s *intakeService) archive(ctx context.Context, files []UploadedFile) {
	if s.store == nil {
		return
	}

	for _, file := range files {
		if _, err := s.store.Store(ctx, file.Name, bytes.NewReader(file.Data)); err != nil {
			s.logger.Warn().Err(err).Str("file", file.Name).Msg("failed to archive upload")
		}
	}
}

func (s *intakeService) publishSnapshot(ctx context.Context, appended []queue.Record) {
	for _, record := range appended {
		response := dto.NewSubmissionResponse(record)
		s.notifier.Publish(ctx, dto.ProgressEvent{Kind: dto.EventRecordUpdate, Record: &response})
	}
	s.publishProgress(ctx)
}

func (s *intakeService) publishProgress(ctx context.Context) {
	progress := queueProgress(s.queue)
	s.notifier.Publish(ctx, dto.ProgressEvent{Kind: dto.EventProgress, Progress: &progress})
}

// validateScanUpload sniffs the payload type and enforces the size cap.
// Accepted types are raster images and PDFs.
func validateScanUpload(data []byte, maxSize int64) (string, error) {
	if int64(len(data)) > maxSize {
		observability.UploadRejected().WithLabelValues("size").Inc()
		return "", ErrUploadTooLarge
	}
	if len(data) == 0 {
		observability.UploadRejected().WithLabelValues("empty").Inc()
		return "", ErrUploadTypeNotAllowed
	}

	mime := mimetype.Detect(data)
	switch {
	case mime.Is("application/pdf"):
		return "application/pdf", nil
	case strings.HasPrefix(mime.String(), "image/"):
		return mime.String(), nil
	default:
		observability.UploadRejected().WithLabelValues("type").Inc()
		return "", fmt.Errorf("unsupported file type %s: %w", mime.String(), ErrUploadTypeNotAllowed)
	}
}

func queueProgress(q *queue.Queue) dto.GradingProgress {
	snapshot := q.Snapshot()
	progress := dto.GradingProgress{Total: len(snapshot)}
	for _, record := range snapshot {
		switch record.Status {
		case queue.StatusCompleted:
			progress.Completed++
		case queue.StatusError:
			progress.Errored++
		}
	}
	if progress.Total > 0 {
		progress.Ratio = float64(progress.Completed+progress.Errored) / float64(progress.Total)
	}

	return progress
}
