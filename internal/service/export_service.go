package service

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/chief-impact7/OCRvKing/internal/queue"
	"github.com/chief-impact7/OCRvKing/pkg/ai"
)

var (
	// ErrNothingToExport indicates no completed records are available.
	ErrNothingToExport = errors.New("no completed submissions to export")
	// ErrUnsupportedFormat indicates an export format other than csv or tsv.
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// Export formats.
const (
	FormatCSV = "csv"
	FormatTSV = "tsv"
)

// ExportService renders the completed grading results as delimited text.
type ExportService interface {
	// Export returns the rendered table and its MIME content type.
	Export(format string) ([]byte, string, error)
}

type exportService struct {
	queue  *queue.Queue
	logger zerolog.Logger
}

func NewExportService(q *queue.Queue, logger zerolog.Logger) ExportService {
	return &exportService{
		queue:  q,
		logger: logger.With().Str("component", "export_service").Logger(),
	}
}

func (s *exportService) Export(format string) ([]byte, string, error) {
	var comma rune
	var contentType string

	switch format {
	case FormatCSV:
		comma = ','
		contentType = "text/csv; charset=utf-8"
	case FormatTSV:
		comma = '\t'
		contentType = "text/tab-separated-values; charset=utf-8"
	default:
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	records := s.queue.Completed()
	if len(records) == 0 {
		return nil, "", ErrNothingToExport
	}

	questions := collectQuestionNumbers(records)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = comma

	header := []string{"이름", "반", "총점", "피드백"}
	for _, q := range questions {
		header = append(header, fmt.Sprintf("%d번 답안", q), fmt.Sprintf("%d번 점수", q))
	}
	if err := w.Write(header); err != nil {
		return nil, "", fmt.Errorf("failed to write export header: %w", err)
	}

	for _, record := range records {
		result := record.Result

		row := []string{
			result.StudentName,
			result.StudentClass,
			strconv.FormatFloat(result.TotalScore, 'f', -1, 64),
			result.Feedback,
		}

		byQuestion := indexScores(result.Scores)
		for _, q := range questions {
			score, ok := byQuestion[q]
			if !ok {
				row = append(row, "", "")
				continue
			}
			row = append(row, score.StudentAnswer, strconv.FormatFloat(score.Score, 'f', -1, 64))
		}

		if err := w.Write(row); err != nil {
			return nil, "", fmt.Errorf("failed to write export row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", fmt.Errorf("failed to flush export: %w", err)
	}

	s.logger.Debug().Str("format", format).Int("records", len(records)).Msg("export rendered")

	return buf.Bytes(), contentType, nil
}

// collectQuestionNumbers gathers every distinct question number across the
// records, ascending. Gaps in the numbering are kept as-is.
func collectQuestionNumbers(records []queue.Record) []int {
	seen := make(map[int]struct{})
	for _, record := range records {
		for _, score := range record.Result.Scores {
			seen[score.QuestionNumber] = struct{}{}
		}
	}

	questions := make([]int, 0, len(seen))
	for q := range seen {
		questions = append(questions, q)
	}
	sort.Ints(questions)

	return questions
}

// indexScores maps question number to score entry. When a record repeats a
// question number the last entry wins.
func indexScores(scores []ai.QuestionScore) map[int]ai.QuestionScore {
	byQuestion := make(map[int]ai.QuestionScore, len(scores))
	for _, score := range scores {
		byQuestion[score.QuestionNumber] = score
	}

	return byQuestion
}
