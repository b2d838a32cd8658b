package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/chief-impact7/OCRvKing/internal/dto"
	"github.com/chief-impact7/OCRvKing/internal/models"
	"github.com/chief-impact7/OCRvKing/internal/observability"
	"github.com/chief-impact7/OCRvKing/internal/pipeline"
	"github.com/chief-impact7/OCRvKing/internal/queue"
	"github.com/chief-impact7/OCRvKing/internal/repository"
	"github.com/chief-impact7/OCRvKing/pkg/ai"
)

var (
	// ErrRunInProgress indicates a grading run is already active.
	ErrRunInProgress = errors.New("grading run already in progress")
	// ErrNoPendingRecords indicates the queue holds nothing to grade.
	ErrNoPendingRecords = errors.New("no pending submissions to grade")
	// ErrNoActiveRun indicates a cancel was requested without a running grading loop.
	ErrNoActiveRun = errors.New("no grading run in progress")
)

// GradingService drives the sequential grading loop over the submission queue.
type GradingService interface {
	// Start launches a run in the background and returns its id.
	Start(ctx context.Context) (string, error)
	// Run executes the grading loop synchronously over a snapshot of the
	// pending records taken at entry. Records appended while the loop is
	// active stay pending and are picked up by the next run.
	Run(ctx context.Context) (dto.RunSummary, error)
	Cancel() error
	Progress() dto.GradingProgress
}

// ReferenceProvider supplies the rasterized answer key pages.
type ReferenceProvider interface {
	ReferencePages(ctx context.Context) ([]ai.ImageInput, error)
}

type gradingService struct {
	queue    *queue.Queue
	grader   ai.Grader
	keys     ReferenceProvider
	archive  repository.GradeRecordRepository
	notifier NotifyService
	rules    string
	logger   zerolog.Logger

	mu      sync.Mutex
	running bool
	runID   string
	cancel  context.CancelFunc
}

// NewGradingService constructs a GradingService instance. archive may be nil
// when no database is configured.
func NewGradingService(q *queue.Queue, grader ai.Grader, keys ReferenceProvider, archive repository.GradeRecordRepository, notifier NotifyService, rules string, logger zerolog.Logger) GradingService {
	return &gradingService{
		queue:    q,
		grader:   grader,
		keys:     keys,
		archive:  archive,
		notifier: notifier,
		rules:    rules,
		logger:   logger.With().Str("component", "grading_service").Logger(),
	}
}

func (s *gradingService) Start(ctx context.Context) (string, error) {
	// Fail fast before spawning the loop so the caller gets a meaningful error.
	if _, err := s.keys.ReferencePages(ctx); err != nil {
		return "", err
	}
	if len(s.queue.PendingIDs()) == 0 {
		return "", ErrNoPendingRecords
	}

	// The run outlives the originating HTTP request.
	runCtx, cancel := context.WithCancel(context.Background())

	// Claim the run before returning so a second Start (or a Cancel issued
	// right after this one) observes it.
	runID := uuid.NewString()
	if err := s.claim(runID, cancel); err != nil {
		cancel()
		return "", err
	}

	go func() {
		defer cancel()
		defer s.release()
		if _, err := s.execute(runCtx, runID); err != nil {
			s.logger.Error().Err(err).Str("run_id", runID).Msg("grading run aborted")
		}
	}()

	return runID, nil
}

func (s *gradingService) Run(ctx context.Context) (dto.RunSummary, error) {
	runID := uuid.NewString()
	if err := s.claim(runID, nil); err != nil {
		return dto.RunSummary{}, err
	}
	defer s.release()

	return s.execute(ctx, runID)
}

func (s *gradingService) claim(runID string, cancel context.CancelFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrRunInProgress
	}

	s.running = true
	s.runID = runID
	s.cancel = cancel

	return nil
}

func (s *gradingService) release() {
	s.mu.Lock()
	s.running = false
	s.runID = ""
	s.cancel = nil
	s.mu.Unlock()
}

func (s *gradingService) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.cancel == nil {
		return ErrNoActiveRun
	}

	s.cancel()

	return nil
}

func (s *gradingService) Progress() dto.GradingProgress {
	progress := queueProgress(s.queue)

	s.mu.Lock()
	progress.Running = s.running
	progress.RunID = s.runID
	s.mu.Unlock()

	return progress
}

// execute runs the grading loop. The caller must hold the claimed run state
// and release it when execute returns.
func (s *gradingService) execute(ctx context.Context, runID string) (dto.RunSummary, error) {
	reference, err := s.keys.ReferencePages(ctx)
	if err != nil {
		return dto.RunSummary{}, err
	}

	// The snapshot fixes the run's scope; records appended mid-run wait
	// for the next run.
	ids := s.queue.PendingIDs()
	if len(ids) == 0 {
		return dto.RunSummary{}, ErrNoPendingRecords
	}

	s.logger.Info().Str("run_id", runID).Int("records", len(ids)).Msg("grading run started")

	summary := dto.RunSummary{RunID: runID, Total: len(ids)}
	settled := make([]string, 0, len(ids))

	for _, id := range ids {
		if ctx.Err() != nil {
			summary.Cancelled = true
			break
		}

		record, err := s.queue.Get(id)
		if err != nil {
			// Removed by the user between snapshot and visit.
			continue
		}

		s.transition(ctx, id, queue.Patch{Status: statusPtr(queue.StatusProcessing)}, false)

		result, gradeErr := s.grader.Grade(ctx, ai.GradeInput{
			ReferencePages: reference,
			StudentPages:   toImageInputs(record.Pages),
			ExtraRules:     s.rules,
		})

		if gradeErr != nil {
			message := gradeErr.Error()
			s.transition(ctx, id, queue.Patch{Status: statusPtr(queue.StatusError), ErrorMessage: &message}, true)
			observability.RecordsSettled().WithLabelValues("error").Inc()
			summary.Errored++
			settled = append(settled, id)
			s.logger.Warn().Err(gradeErr).Str("record_id", id).Msg("grading failed for record")
			continue
		}

		s.transition(ctx, id, queue.Patch{Status: statusPtr(queue.StatusCompleted), Result: &result}, true)
		observability.RecordsSettled().WithLabelValues("completed").Inc()
		summary.Completed++
		settled = append(settled, id)

		if result.HasOCRIssues {
			observability.OCRIssues().Inc()
			s.notifier.Publish(ctx, dto.ProgressEvent{
				Kind:    dto.EventNotice,
				Message: "이름 또는 반을 인식하지 못했습니다. 결과를 확인해주세요: " + record.SourceName,
			})
		}
	}

	s.archiveRun(ctx, runID, settled)

	s.notifier.Publish(ctx, dto.ProgressEvent{Kind: dto.EventRunDone, Summary: &summary})
	s.logger.Info().
		Str("run_id", runID).
		Int("completed", summary.Completed).
		Int("errored", summary.Errored).
		Bool("cancelled", summary.Cancelled).
		Msg("grading run finished")

	return summary, nil
}

// transition applies the patch and publishes the record update before any
// further work, so observers see the processing state ahead of the model call.
func (s *gradingService) transition(ctx context.Context, id string, patch queue.Patch, withProgress bool) {
	updated, err := s.queue.Update(id, patch)
	if err != nil {
		s.logger.Warn().Err(err).Str("record_id", id).Msg("failed to update record status")
		return
	}

	response := dto.NewSubmissionResponse(updated)
	s.notifier.Publish(ctx, dto.ProgressEvent{Kind: dto.EventRecordUpdate, Record: &response})

	if withProgress {
		progress := queueProgress(s.queue)
		observability.RunProgress().Set(progress.Ratio)
		s.notifier.Publish(ctx, dto.ProgressEvent{Kind: dto.EventProgress, Progress: &progress})
	}
}

func (s *gradingService) archiveRun(ctx context.Context, runID string, ids []string) {
	if s.archive == nil || len(ids) == 0 {
		return
	}

	records := make([]models.GradeRecord, 0, len(ids))
	for _, id := range ids {
		record, err := s.queue.Get(id)
		if err != nil || record.Status != queue.StatusCompleted || record.Result == nil {
			continue
		}

		scores, err := json.Marshal(record.Result.Scores)
		if err != nil {
			scores = []byte("[]")
		}

		records = append(records, models.GradeRecord{
			RunID:        runID,
			RecordID:     record.ID,
			SourceName:   record.SourceName,
			StudentName:  record.Result.StudentName,
			StudentClass: record.Result.StudentClass,
			TotalScore:   record.Result.TotalScore,
			Feedback:     record.Result.Feedback,
			Scores:       datatypes.JSON(scores),
			HasOCRIssues: record.Result.HasOCRIssues,
		})
	}

	if err := s.archive.CreateBatch(ctx, records); err != nil {
		s.logger.Error().Err(err).Str("run_id", runID).Msg("failed to archive run results")
	}
}

func toImageInputs(pages []pipeline.Artifact) []ai.ImageInput {
	inputs := make([]ai.ImageInput, 0, len(pages))
	for _, page := range pages {
		inputs = append(inputs, ai.ImageInput{Name: page.Name, MIME: page.MIME, Data: page.Data})
	}

	return inputs
}

func statusPtr(status queue.Status) *queue.Status {
	return &status
}
