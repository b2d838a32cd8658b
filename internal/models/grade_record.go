package models

import (
	"time"

	"gorm.io/datatypes"
)

// GradeRecord archives one completed grading result so finished runs survive
// a queue reset or a process restart.
type GradeRecord struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	RunID        string         `gorm:"size:64;index" json:"run_id"`
	RecordID     string         `gorm:"size:64;index" json:"record_id"`
	SourceName   string         `gorm:"size:255" json:"source_name"`
	StudentName  string         `gorm:"size:128" json:"student_name"`
	StudentClass string         `gorm:"size:128" json:"student_class"`
	TotalScore   float64        `json:"total_score"`
	Feedback     string         `gorm:"type:text" json:"feedback"`
	Scores       datatypes.JSON `json:"scores"`
	HasOCRIssues bool           `json:"has_ocr_issues"`
	CreatedAt    time.Time      `json:"created_at"`
}
