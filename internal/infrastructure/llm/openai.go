package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"TruthFilter/internal/ports"
)

// OpenAIClient implements ports.LanguageModel backed by OpenAI-compatible APIs.
// Web search is not available through chat completions and is ignored.
type OpenAIClient struct {
	client    *openai.Client
	maxTokens int64
	timeout   time.Duration
}

var _ ports.LanguageModel = (*OpenAIClient)(nil)

// NewOpenAIClient builds a client; endpoint overrides the base URL when set.
func NewOpenAIClient(apiKey, endpoint string, maxTokens int64, timeout time.Duration) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai client misconfigured: api key is empty")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(1),
	}
	if endpoint != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(endpoint, "/")+"/"))
	}
	client := openai.NewClient(opts...)
	return &OpenAIClient{client: &client, maxTokens: maxTokens, timeout: timeout}, nil
}

func (c *OpenAIClient) GenerateContent(ctx context.Context, req ports.GenerateRequest) (ports.Generation, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	var user openai.ChatCompletionMessageParamUnion
	if req.Image != nil {
		dataURL := fmt.Sprintf("data:%s;base64,%s", req.Image.MIMEType, base64.StdEncoding.EncodeToString(req.Image.Data))
		user = openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(req.Prompt),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
		})
	} else {
		user = openai.UserMessage(req.Prompt)
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{user},
	}
	if c.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(c.maxTokens)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return ports.Generation{}, fmt.Errorf("openai API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return ports.Generation{}, fmt.Errorf("no response from openai")
	}
	return ports.Generation{Text: resp.Choices[0].Message.Content}, nil
}
