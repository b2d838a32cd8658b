package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Sentinel placeholders substituted when the model omits identifying fields.
// They are never empty so downstream tables and exports stay well-formed.
const (
	UnknownStudentName  = "Unknown"
	UnknownStudentClass = "Unknown"
	NoFeedback          = "피드백 없음"
)

// normalizeGradeResponse parses the untrusted model payload. A payload that is
// not a JSON object at all is a hard failure; individually missing or
// mistyped fields are filled with defaults, flagging OCR issues where the
// identifying fields are affected.
func normalizeGradeResponse(content string) (GradeResult, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return GradeResult{}, fmt.Errorf("parse grading json: %w", err)
	}

	result := GradeResult{
		TotalScore: asNumber(payload["total_score"]),
		Scores:     asScores(payload["scores"]),
	}

	if name, ok := asNonEmptyString(payload["student_name"]); ok {
		result.StudentName = name
	} else {
		result.StudentName = UnknownStudentName
		result.HasOCRIssues = true
	}

	if class, ok := asNonEmptyString(payload["student_class"]); ok {
		result.StudentClass = class
	} else {
		result.StudentClass = UnknownStudentClass
		result.HasOCRIssues = true
	}

	if feedback, ok := asNonEmptyString(payload["feedback"]); ok {
		result.Feedback = feedback
	} else {
		result.Feedback = NoFeedback
	}

	return result, nil
}

func asNonEmptyString(value interface{}) (string, bool) {
	str, ok := value.(string)
	if !ok {
		return "", false
	}
	str = strings.TrimSpace(str)
	if str == "" {
		return "", false
	}
	return str, true
}

func asNumber(value interface{}) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

func asScores(value interface{}) []QuestionScore {
	entries, ok := value.([]interface{})
	if !ok {
		return []QuestionScore{}
	}

	scores := make([]QuestionScore, 0, len(entries))
	for _, entry := range entries {
		fields, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		score := QuestionScore{
			QuestionNumber: int(asNumber(fields["q_num"])),
			Score:          asNumber(fields["score"]),
		}
		if answer, ok := asNonEmptyString(fields["student_answer"]); ok {
			score.StudentAnswer = answer
		}
		if reason, ok := asNonEmptyString(fields["reason"]); ok {
			score.Reason = reason
		}
		scores = append(scores, score)
	}

	return scores
}
