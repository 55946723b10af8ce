package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"TruthFilter/internal/ports"
)

const defaultAnthropicMaxTokens = 2048

// AnthropicClient implements ports.LanguageModel on the Messages API.
type AnthropicClient struct {
	client    *anthropic.Client
	maxTokens int64
	timeout   time.Duration
}

var _ ports.LanguageModel = (*AnthropicClient)(nil)

func NewAnthropicClient(apiKey, endpoint string, maxTokens int64, timeout time.Duration) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic client misconfigured: api key is empty")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(1),
	}
	if endpoint != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(endpoint, "/")))
	}
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicClient{client: &client, maxTokens: maxTokens, timeout: timeout}, nil
}

func (c *AnthropicClient) GenerateContent(ctx context.Context, req ports.GenerateRequest) (ports.Generation, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	var blocks []anthropic.ContentBlockParamUnion
	if req.Image != nil {
		blocks = append(blocks, anthropic.NewImageBlockBase64(req.Image.MIMEType, base64.StdEncoding.EncodeToString(req.Image.Data)))
	}
	blocks = append(blocks, anthropic.NewTextBlock(req.Prompt))

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	})
	if err != nil {
		return ports.Generation{}, fmt.Errorf("anthropic API error: %w", err)
	}
	if len(resp.Content) == 0 {
		return ports.Generation{}, fmt.Errorf("no response from anthropic")
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return ports.Generation{Text: text.String()}, nil
}
