package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/pf-reconciler/internal/narrative"
	"github.com/spigell/pf-reconciler/internal/report"
	"github.com/spigell/pf-reconciler/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Narrator explains reports with a Gemini model.
type Narrator struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

var _ narrative.Narrator = (*Narrator)(nil)

func NewNarrator(generator contentGenerator, maxLogLength int, logger *zap.Logger) *Narrator {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Narrator{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (n *Narrator) Narrate(ctx context.Context, r *report.Report) (*narrative.Narrative, error) {
	if r == nil {
		return nil, fmt.Errorf("report is required")
	}

	reportJSON, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report payload: %w", err)
	}

	prompt := buildPrompt(string(reportJSON))

	n.logger.Debug("gemini generate content request",
		zap.String("report_id", r.ID),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, n.maxLogLen)),
	)

	raw, err := n.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	n.logger.Debug("gemini generate content response",
		zap.String("report_id", r.ID),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, n.maxLogLen)),
	)

	out, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	if out.Status == "" {
		out.Status = narrative.StatusFor(r.Summary.Status)
		n.logger.Debug("narrator returned no readable status, using report verdict",
			zap.String("report_id", r.ID),
			zap.String("status", string(out.Status)),
		)
	}

	out.ReportID = r.ID
	out.Raw = raw
	return out, nil
}

func buildPrompt(reportJSON string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Report:\n{{REPORT_JSON}}\n\nJSON Response:"
	}
	return strings.ReplaceAll(template, "{{REPORT_JSON}}", reportJSON)
}

func parseResponse(raw string) (*narrative.Narrative, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	out := &narrative.Narrative{
		Summary:  coerceString(data["summary"]),
		Analysis: coerceString(data["analysis"]),
	}
	if status, ok := narrative.ParseStatus(coerceString(data["status"])); ok {
		out.Status = status
	}

	if out.Summary == "" && out.Analysis == "" {
		return nil, fmt.Errorf("parse gemini response: no summary or analysis")
	}

	return out, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
