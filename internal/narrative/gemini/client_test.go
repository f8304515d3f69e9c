package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/genai"
)

type fakeResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

type fakeModels struct {
	mu      sync.Mutex
	queue   []fakeResponse
	models  []string
	prompts []string
}

func (f *fakeModels) enqueue(resp *genai.GenerateContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, fakeResponse{resp: resp, err: err})
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return nil, errors.New("unexpected call")
	}
	res := f.queue[0]
	f.queue = f.queue[1:]
	f.models = append(f.models, model)
	for _, content := range contents {
		for _, part := range content.Parts {
			f.prompts = append(f.prompts, part.Text)
		}
	}
	return res.resp, res.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: genai.RoleModel}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func testGenerator(models contentModels, maxRetries int, log *zap.Logger) *Generator {
	g := newGenerator(models, "gemini-test", maxRetries, log)
	g.backoff = time.Millisecond
	return g
}

func TestGeneratorJoinsTextParts(t *testing.T) {
	t.Parallel()

	models := &fakeModels{}
	models.enqueue(textResponse(" first ", "", "second"), nil)

	g := testGenerator(models, 0, zap.NewNop())
	out, err := g.GenerateContent(context.Background(), "  explain  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "first\nsecond" {
		t.Fatalf("unexpected output %q", out)
	}
	if len(models.models) != 1 || models.models[0] != "gemini-test" {
		t.Fatalf("unexpected models called: %v", models.models)
	}
	if len(models.prompts) != 1 || models.prompts[0] != "explain" {
		t.Fatalf("expected trimmed prompt, got %v", models.prompts)
	}
}

func TestGeneratorRetriesOnTemporaryError(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"})
	models.enqueue(nil, genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"})
	models.enqueue(textResponse("ok"), nil)

	g := testGenerator(models, 2, zap.New(core))
	out, err := g.GenerateContent(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "ok" {
		t.Fatalf("unexpected output %q", out)
	}
	if len(models.models) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(models.models))
	}

	retries := logs.FilterMessage("retrying gemini request").All()
	if len(retries) != 2 {
		t.Fatalf("expected 2 retry logs, got %d", len(retries))
	}
	fields := retries[0].ContextMap()
	if fields["ai_provider"] != "gemini" || fields["ai_model"] != "gemini-test" {
		t.Fatalf("expected provider fields on retry log, got %v", fields)
	}
}

func TestGeneratorStopsAfterMaxRetries(t *testing.T) {
	t.Parallel()

	models := &fakeModels{}
	for i := 0; i < 3; i++ {
		models.enqueue(nil, genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"})
	}

	g := testGenerator(models, 1, zap.NewNop())
	_, err := g.GenerateContent(context.Background(), "prompt")

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusInternalServerError {
		t.Fatalf("expected internal server error, got %v", err)
	}
	if len(models.models) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.models))
	}
}

func TestGeneratorDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"})

	g := testGenerator(models, 3, zap.NewNop())
	if _, err := g.GenerateContent(context.Background(), "prompt"); err == nil {
		t.Fatalf("expected error")
	}
	if len(models.models) != 1 {
		t.Fatalf("expected a single call, got %d", len(models.models))
	}
}

func TestGeneratorErrors(t *testing.T) {
	t.Parallel()

	t.Run("empty response", func(t *testing.T) {
		t.Parallel()
		models := &fakeModels{}
		models.enqueue(textResponse("  "), nil)
		g := testGenerator(models, 0, zap.NewNop())
		_, err := g.GenerateContent(context.Background(), "prompt")
		if err == nil || !strings.Contains(err.Error(), "empty response") {
			t.Fatalf("expected empty response error, got %v", err)
		}
	})

	t.Run("empty prompt", func(t *testing.T) {
		t.Parallel()
		g := testGenerator(&fakeModels{}, 0, zap.NewNop())
		if _, err := g.GenerateContent(context.Background(), "   "); err == nil {
			t.Fatalf("expected error for empty prompt")
		}
	})

	t.Run("nil generator", func(t *testing.T) {
		t.Parallel()
		var g *Generator
		if _, err := g.GenerateContent(context.Background(), "prompt"); err == nil {
			t.Fatalf("expected error for nil generator")
		}
		if g.Model() != "" {
			t.Fatalf("expected empty model for nil generator")
		}
	})
}

func TestNewGeneratorDefaults(t *testing.T) {
	t.Parallel()

	g := newGenerator(&fakeModels{}, " ", -1, nil)
	if g.Model() != defaultModel {
		t.Fatalf("expected default model, got %q", g.Model())
	}
	if g.maxRetries != defaultMaxRetries {
		t.Fatalf("expected default retries, got %d", g.maxRetries)
	}

	if _, err := NewGenerator(context.Background(), "  ", "", 0, nil); err == nil {
		t.Fatalf("expected error for missing api key")
	}
}
