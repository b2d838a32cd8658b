package ai

import "context"

// ImageInput is one page image sent to the grading model.
type ImageInput struct {
	Name string
	MIME string
	Data []byte
}

// GradeInput contains the artefacts needed to grade one student submission
// against the registered answer key.
type GradeInput struct {
	ReferencePages []ImageInput
	StudentPages   []ImageInput
	ExtraRules     string
}

// QuestionScore is the per-question breakdown returned by the model. Question
// numbers are not guaranteed sorted or unique; consumers must tolerate
// duplicates and gaps.
type QuestionScore struct {
	QuestionNumber int     `json:"q_num"`
	Score          float64 `json:"score"`
	StudentAnswer  string  `json:"student_answer"`
	Reason         string  `json:"reason"`
}

// GradeResult is the normalized grading outcome for a single submission.
// HasOCRIssues is set when the model could not confidently extract the
// identifying fields and manual review is advised.
type GradeResult struct {
	StudentName  string          `json:"student_name"`
	StudentClass string          `json:"student_class"`
	TotalScore   float64         `json:"total_score"`
	Feedback     string          `json:"feedback"`
	Scores       []QuestionScore `json:"scores"`
	HasOCRIssues bool            `json:"has_ocr_issues"`
}

// Grader describes a multimodal model capable of OCR-based exam grading.
type Grader interface {
	Grade(ctx context.Context, input GradeInput) (GradeResult, error)
}
