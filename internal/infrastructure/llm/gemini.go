package llm

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"TruthFilter/internal/ports"
)

// GeminiClient implements ports.LanguageModel on the Gemini API. Search
// requests enable the Google Search tool.
type GeminiClient struct {
	client    *genai.Client
	maxTokens int32
	timeout   time.Duration
}

var _ ports.LanguageModel = (*GeminiClient)(nil)

// NewGeminiClient builds a client for the Gemini developer API.
func NewGeminiClient(ctx context.Context, apiKey string, maxTokens int64, timeout time.Duration) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini client misconfigured: api key is empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client, maxTokens: int32(maxTokens), timeout: timeout}, nil
}

func (c *GeminiClient) GenerateContent(ctx context.Context, req ports.GenerateRequest) (ports.Generation, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if req.Image != nil {
		parts = append(parts, genai.NewPartFromBytes(req.Image.Data, req.Image.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	cfg := &genai.GenerateContentConfig{}
	if c.maxTokens > 0 {
		cfg.MaxOutputTokens = c.maxTokens
	}
	if req.Search {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	resp, err := c.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return ports.Generation{}, fmt.Errorf("gemini API error: %w", err)
	}

	gen := ports.Generation{Text: resp.Text()}
	if len(resp.Candidates) > 0 {
		if meta := resp.Candidates[0].GroundingMetadata; meta != nil && meta.SearchEntryPoint != nil {
			gen.Grounded = true
		}
	}
	return gen, nil
}
