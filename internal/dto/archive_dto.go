package dto

import (
	"encoding/json"
	"time"

	"github.com/chief-impact7/OCRvKing/internal/models"
)

// ArchivedGradeResponse serializes one archived grading result.
type ArchivedGradeResponse struct {
	ID           uint                    `json:"id"`
	RunID        string                  `json:"run_id"`
	RecordID     string                  `json:"record_id"`
	SourceName   string                  `json:"source_name"`
	StudentName  string                  `json:"student_name"`
	StudentClass string                  `json:"student_class"`
	TotalScore   float64                 `json:"total_score"`
	Feedback     string                  `json:"feedback"`
	Scores       []QuestionScoreResponse `json:"scores"`
	HasOCRIssues bool                    `json:"has_ocr_issues"`
	CreatedAt    time.Time               `json:"created_at"`
}

// NewArchivedGradeResponse converts a GradeRecord model into a DTO.
func NewArchivedGradeResponse(model models.GradeRecord) ArchivedGradeResponse {
	response := ArchivedGradeResponse{
		ID:           model.ID,
		RunID:        model.RunID,
		RecordID:     model.RecordID,
		SourceName:   model.SourceName,
		StudentName:  model.StudentName,
		StudentClass: model.StudentClass,
		TotalScore:   model.TotalScore,
		Feedback:     model.Feedback,
		HasOCRIssues: model.HasOCRIssues,
		CreatedAt:    model.CreatedAt,
	}

	if len(model.Scores) > 0 {
		_ = json.Unmarshal(model.Scores, &response.Scores)
	}
	if response.Scores == nil {
		response.Scores = []QuestionScoreResponse{}
	}

	return response
}

// NewArchivedGradeResponseSlice converts GradeRecord models into DTOs.
func NewArchivedGradeResponseSlice(records []models.GradeRecord) []ArchivedGradeResponse {
	responses := make([]ArchivedGradeResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, NewArchivedGradeResponse(record))
	}

	return responses
}
