package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	gradeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ocrvking",
		Subsystem: "ai",
		Name:      "grade_duration_seconds",
		Help:      "Duration of AI grading requests",
	}, []string{"model"})

	gradeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ocrvking",
		Subsystem: "ai",
		Name:      "grade_failures_total",
		Help:      "Number of AI grading failures",
	}, []string{"model"})
)

// OpenAIConfig defines configuration options for the OpenAI grader.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIGrader implements Grader against the OpenAI vision chat completion API.
type OpenAIGrader struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIGrader builds a new grader using the provided configuration.
func NewOpenAIGrader(cfg OpenAIConfig) (*OpenAIGrader, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2048
	}

	tracer := otel.Tracer("github.com/chief-impact7/OCRvKing/pkg/ai/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	client := openai.NewClientWithConfig(config)

	return &OpenAIGrader{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger,
	}, nil
}

// Grade sends the answer key and student pages to OpenAI and parses the response.
func (g *OpenAIGrader) Grade(parent context.Context, input GradeInput) (GradeResult, error) {
	ctx, span := g.tracer.Start(parent, "openai.grade", trace.WithAttributes(
		attribute.String("model", g.cfg.Model),
		attribute.Int("reference_pages", len(input.ReferencePages)),
		attribute.Int("student_pages", len(input.StudentPages)),
	))
	defer span.End()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: graderSystemPrompt(),
			},
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: buildGradeParts(input),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := g.client.CreateChatCompletion(ctx, request)
	duration := time.Since(start)
	gradeDuration.WithLabelValues(g.cfg.Model).Observe(duration.Seconds())
	if err != nil {
		gradeFailures.WithLabelValues(g.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return GradeResult{}, fmt.Errorf("openai grade: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		gradeFailures.WithLabelValues(g.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return GradeResult{}, err
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	result, err := normalizeGradeResponse(content)
	if err != nil {
		gradeFailures.WithLabelValues(g.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return GradeResult{}, err
	}

	g.logger.Debug().Str("model", g.cfg.Model).Dur("duration", duration).Msg("grading call completed")

	return result, nil
}

func graderSystemPrompt() string {
	return strings.Join([]string{
		"너는 엄격하고 공정한 시험 채점관이다.",
		"먼저 제공되는 [정답지/채점기준] 이미지와 이어지는 [학생 답안] 이미지를 비교하여 각 문제별로 채점하라.",
		"채점 규칙:",
		"- 체크 표시(✓)만 답안으로 인정한다.",
		"- 답이 표시되지 않은 문제의 student_answer는 \"X\"로 기록한다.",
		"- 한 문제에 복수의 표시가 있으면 student_answer를 \"Multi\"로 기록하고 0점 처리한다.",
		"- feedback은 반드시 한국어로 작성한다.",
		"반드시 다음 JSON 형식으로만 응답하라:",
		`{"student_name": "답안지에서 식별된 학생 이름", "student_class": "답안지에서 식별된 반", ` +
			`"scores": [{"q_num": 1, "score": 10, "student_answer": "2", "reason": "정답"}], ` +
			`"total_score": 85, "feedback": "전반적으로 우수합니다."}`,
		"이름이나 반을 식별할 수 없으면 해당 필드를 비워 두어라.",
	}, "\n")
}

func buildGradeParts(input GradeInput) []openai.ChatMessagePart {
	parts := make([]openai.ChatMessagePart, 0, len(input.ReferencePages)+len(input.StudentPages)+2)

	prompt := "이 학생의 답안을 정답지와 비교하여 채점해주세요."
	if input.ExtraRules != "" {
		prompt += "\n\n[추가 OCR 및 채점 규칙]\n" + input.ExtraRules
	}
	parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: prompt})

	parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: "[정답지/채점기준]"})
	for _, page := range input.ReferencePages {
		parts = append(parts, imagePart(page))
	}

	parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: "[학생 답안]"})
	for _, page := range input.StudentPages {
		parts = append(parts, imagePart(page))
	}

	return parts
}

func imagePart(page ImageInput) openai.ChatMessagePart {
	mime := page.MIME
	if mime == "" {
		mime = "image/jpeg"
	}

	return openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeImageURL,
		ImageURL: &openai.ChatMessageImageURL{
			URL:    fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(page.Data)),
			Detail: openai.ImageURLDetailHigh,
		},
	}
}
