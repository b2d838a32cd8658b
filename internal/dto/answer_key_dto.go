package dto

import (
	"time"

	"github.com/chief-impact7/OCRvKing/internal/models"
)

// AnswerKeyResponse describes the currently registered reference key.
type AnswerKeyResponse struct {
	ID        uint      `json:"id"`
	FileName  string    `json:"file_name"`
	MimeType  string    `json:"mime_type"`
	PageCount int       `json:"page_count"`
	CreatedAt time.Time `json:"created_at"`
}

// NewAnswerKeyResponse converts an AnswerKey model into a DTO.
func NewAnswerKeyResponse(model models.AnswerKey) AnswerKeyResponse {
	return AnswerKeyResponse{
		ID:        model.ID,
		FileName:  model.FileName,
		MimeType:  model.MimeType,
		PageCount: model.PageCount,
		CreatedAt: model.CreatedAt,
	}
}
