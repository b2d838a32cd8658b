package models

import "time"

// AnswerKey is the instructor-supplied reference document used as the grading
// baseline. Only one key is active at a time; registering a new one replaces it.
type AnswerKey struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FileName  string    `gorm:"size:255;not null" json:"file_name"`
	MimeType  string    `gorm:"size:64" json:"mime_type"`
	Data      []byte    `json:"-"`
	PageCount int       `json:"page_count"`
	CreatedAt time.Time `json:"created_at"`
}
