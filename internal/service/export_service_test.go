package service

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/chief-impact7/OCRvKing/internal/queue"
	"github.com/chief-impact7/OCRvKing/pkg/ai"
)

func completedQueue(t *testing.T, results ...ai.GradeResult) *queue.Queue {
	t.Helper()

	q := queue.New()
	for i := range results {
		record := q.Append(queue.Record{SourceName: results[i].StudentName + ".jpg"})[0]
		status := queue.StatusCompleted
		_, err := q.Update(record.ID, queue.Patch{Status: &status, Result: &results[i]})
		require.NoError(t, err)
	}

	return q
}

func TestExportBuildsDynamicQuestionColumns(t *testing.T) {
	q := completedQueue(t,
		ai.GradeResult{
			StudentName:  "김철수",
			StudentClass: "3-1",
			TotalScore:   70,
			Feedback:     "서술 보완 필요",
			Scores: []ai.QuestionScore{
				{QuestionNumber: 1, Score: 30, StudentAnswer: "x=2"},
				{QuestionNumber: 3, Score: 40, StudentAnswer: "y=5"},
			},
		},
		ai.GradeResult{
			StudentName:  "이영희",
			StudentClass: "3-2",
			TotalScore:   90,
			Feedback:     "피드백 없음",
			Scores: []ai.QuestionScore{
				{QuestionNumber: 2, Score: 90, StudentAnswer: "정답"},
			},
		},
	)

	svc := NewExportService(q, zerolog.Nop())

	data, contentType, err := svc.Export(FormatCSV)
	require.NoError(t, err)
	require.Equal(t, "text/csv; charset=utf-8", contentType)

	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.Equal(t, []string{
		"이름", "반", "총점", "피드백",
		"1번 답안", "1번 점수", "2번 답안", "2번 점수", "3번 답안", "3번 점수",
	}, rows[0])

	require.Equal(t, []string{"김철수", "3-1", "70", "서술 보완 필요", "x=2", "30", "", "", "y=5", "40"}, rows[1])
	require.Equal(t, []string{"이영희", "3-2", "90", "피드백 없음", "", "", "정답", "90", "", ""}, rows[2])
}

func TestExportDuplicateQuestionLastWins(t *testing.T) {
	q := completedQueue(t, ai.GradeResult{
		StudentName:  "김철수",
		StudentClass: "3-1",
		TotalScore:   10,
		Scores: []ai.QuestionScore{
			{QuestionNumber: 1, Score: 0, StudentAnswer: "first"},
			{QuestionNumber: 1, Score: 10, StudentAnswer: "second"},
		},
	})

	svc := NewExportService(q, zerolog.Nop())

	data, _, err := svc.Export(FormatCSV)
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Equal(t, []string{"김철수", "3-1", "10", "", "second", "10"}, rows[1])
}

func TestExportTSVUsesTabs(t *testing.T) {
	q := completedQueue(t, ai.GradeResult{StudentName: "김철수", StudentClass: "3-1", TotalScore: 55.5, Feedback: "좋음"})

	svc := NewExportService(q, zerolog.Nop())

	data, contentType, err := svc.Export(FormatTSV)
	require.NoError(t, err)
	require.Equal(t, "text/tab-separated-values; charset=utf-8", contentType)

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "이름\t반\t총점\t피드백", lines[0])
	require.Equal(t, "김철수\t3-1\t55.5\t좋음", lines[1])
}

func TestExportSkipsUnsettledRecords(t *testing.T) {
	q := queue.New()
	q.Append(queue.Record{SourceName: "pending.jpg"})

	svc := NewExportService(q, zerolog.Nop())

	_, _, err := svc.Export(FormatCSV)
	require.ErrorIs(t, err, ErrNothingToExport)
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(queue.New(), zerolog.Nop())

	_, _, err := svc.Export("xlsx")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}
