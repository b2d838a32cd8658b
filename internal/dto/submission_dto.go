package dto

import (
	"time"

	"github.com/chief-impact7/OCRvKing/internal/queue"
	"github.com/chief-impact7/OCRvKing/pkg/ai"
)

// SubmissionResponse is returned to API clients when viewing queue records.
type SubmissionResponse struct {
	ID           string               `json:"id"`
	SourceName   string               `json:"source_name"`
	PageCount    int                  `json:"page_count"`
	PageNames    []string             `json:"page_names"`
	Status       string               `json:"status"`
	Result       *GradeResultResponse `json:"result,omitempty"`
	ErrorMessage string               `json:"error_message,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// GradeResultResponse serializes a grading outcome.
type GradeResultResponse struct {
	StudentName  string                  `json:"student_name"`
	StudentClass string                  `json:"student_class"`
	TotalScore   float64                 `json:"total_score"`
	Feedback     string                  `json:"feedback"`
	HasOCRIssues bool                    `json:"has_ocr_issues"`
	Scores       []QuestionScoreResponse `json:"scores"`
}

// QuestionScoreResponse serializes one per-question score entry.
type QuestionScoreResponse struct {
	QuestionNumber int     `json:"q_num"`
	Score          float64 `json:"score"`
	StudentAnswer  string  `json:"student_answer"`
	Reason         string  `json:"reason"`
}

// CorrectionRequest patches identifying fields of a graded record.
type CorrectionRequest struct {
	StudentName  *string `json:"student_name" validate:"omitempty,min=1"`
	StudentClass *string `json:"student_class" validate:"omitempty,min=1"`
}

// BulkUploadRequest accompanies a bulk PDF upload.
type BulkUploadRequest struct {
	PagesPerStudent int `form:"pages_per_student" validate:"required,gte=1"`
}

// SubmissionFilter narrows queue listings.
type SubmissionFilter struct {
	Status *string `query:"status" validate:"omitempty,oneof=pending processing completed error"`
}

// NewSubmissionResponse converts a queue record into a DTO.
func NewSubmissionResponse(record queue.Record) SubmissionResponse {
	response := SubmissionResponse{
		ID:           record.ID,
		SourceName:   record.SourceName,
		PageCount:    len(record.Pages),
		Status:       string(record.Status),
		ErrorMessage: record.ErrorMessage,
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
	}

	response.PageNames = make([]string, 0, len(record.Pages))
	for _, page := range record.Pages {
		response.PageNames = append(response.PageNames, page.Name)
	}

	if record.Result != nil {
		result := NewGradeResultResponse(*record.Result)
		response.Result = &result
	}

	return response
}

// NewSubmissionResponseSlice converts queue records into DTOs.
func NewSubmissionResponseSlice(records []queue.Record) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, NewSubmissionResponse(record))
	}

	return responses
}

// NewGradeResultResponse converts a grading outcome into a DTO.
func NewGradeResultResponse(result ai.GradeResult) GradeResultResponse {
	response := GradeResultResponse{
		StudentName:  result.StudentName,
		StudentClass: result.StudentClass,
		TotalScore:   result.TotalScore,
		Feedback:     result.Feedback,
		HasOCRIssues: result.HasOCRIssues,
	}

	response.Scores = make([]QuestionScoreResponse, 0, len(result.Scores))
	for _, score := range result.Scores {
		response.Scores = append(response.Scores, QuestionScoreResponse{
			QuestionNumber: score.QuestionNumber,
			Score:          score.Score,
			StudentAnswer:  score.StudentAnswer,
			Reason:         score.Reason,
		})
	}

	return response
}
