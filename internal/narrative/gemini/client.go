package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/pf-reconciler/internal/logger"
	"github.com/spigell/pf-reconciler/internal/utils"
)

const (
	defaultModel      = "gemini-2.5-pro"
	defaultMaxRetries = 2
	initialBackoff    = 2 * time.Second
)

// contentModels is the part of the GenAI client the generator uses.
type contentModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator wraps the Google GenAI client to provide simple prompt-based interactions.
type Generator struct {
	models     contentModels
	modelName  string
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
// A negative maxRetries selects the default.
func NewGenerator(ctx context.Context, apiKey, model string, maxRetries int, log *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(client.Models, model, maxRetries, log), nil
}

func newGenerator(models contentModels, model string, maxRetries int, log *zap.Logger) *Generator {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}

	return &Generator{
		models:     models,
		modelName:  model,
		maxRetries: maxRetries,
		backoff:    initialBackoff,
		logger:     logger.WithProviderFields(log, "gemini", model),
	}
}

// GenerateContent sends the prompt to Gemini and returns the first textual
// response. Rate limits and server errors are retried with a doubling backoff.
func (g *Generator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	backoff := g.backoff
	for attempt := 0; ; attempt++ {
		output, err := g.generateContent(ctx, prompt)
		if err == nil {
			return output, nil
		}
		if attempt >= g.maxRetries || !retryable(err) {
			return "", err
		}

		g.logger.Warn("retrying gemini request",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		if err := utils.WaitFor(ctx, backoff); err != nil {
			return "", err
		}
		backoff *= 2
	}
}

func (g *Generator) generateContent(ctx context.Context, prompt string) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.modelName, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

func retryable(err error) bool {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}
