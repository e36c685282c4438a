package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"matchmail/backend/internal/settings"
)

const defaultCompletionModel = "gemini-2.0-flash"

// DynamicCompleter runs structured completions against the model named in
// settings, resolving the API key per call like DynamicEmbedder does.
type DynamicCompleter struct {
	settingsSvc *settings.Service
	client      *genai.Client
	currentKey  string
	mu          sync.RWMutex
	clientOpts  []option.ClientOption
}

func NewDynamicCompleter(svc *settings.Service, opts ...option.ClientOption) *DynamicCompleter {
	return &DynamicCompleter{
		settingsSvc: svc,
		clientOpts:  opts,
	}
}

// Complete sends the prompt with a JSON response schema and returns the raw
// JSON bytes of the first candidate. Temperature is pinned to zero so
// extraction output is stable for the same input.
func (c *DynamicCompleter) Complete(ctx context.Context, prompt string, schema *genai.Schema) ([]byte, error) {
	s, err := c.settingsSvc.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	if s.GeminiAPIKey == "" {
		return nil, fmt.Errorf("gemini api key not configured")
	}

	client, err := c.getClient(ctx, s.GeminiAPIKey)
	if err != nil {
		return nil, err
	}

	modelName := s.CompletionModel
	if modelName == "" {
		modelName = defaultCompletionModel
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = schema

	res, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, err
	}

	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty completion received")
	}

	var b strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}

	out := cleanJSONBlock(b.String())
	if out == "" {
		return nil, fmt.Errorf("completion contained no text parts")
	}
	return []byte(out), nil
}

// cleanJSONBlock strips markdown code fences some models wrap JSON in even
// when a response schema is set.
func cleanJSONBlock(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

func (c *DynamicCompleter) getClient(ctx context.Context, key string) (*genai.Client, error) {
	c.mu.RLock()
	if c.client != nil && c.currentKey == key {
		defer c.mu.RUnlock()
		return c.client, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double check
	if c.client != nil && c.currentKey == key {
		return c.client, nil
	}

	if c.client != nil {
		if err := c.client.Close(); err != nil {
			slog.Warn("failed to close previous genai client", "error", err)
		}
	}

	opts := append(c.clientOpts, option.WithAPIKey(key))
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	c.client = client
	c.currentKey = key
	return client, nil
}
