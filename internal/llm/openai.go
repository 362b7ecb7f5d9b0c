package llm

import (
	"context"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

// OpenAIClient sends each chat message as a single user turn to an
// OpenAI-compatible supplier.
type OpenAIClient struct {
	client *openai.Client
	model  string
	log    *zap.Logger
}

func NewOpenAIClient(baseURL, apiKey, model string, timeout time.Duration, log *zap.Logger) *OpenAIClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	clientVal := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(0),
	)
	return &OpenAIClient{
		client: &clientVal,
		model:  model,
		log:    log,
	}
}

func (c *OpenAIClient) Reply(ctx context.Context, text string) string {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(text),
		},
		Model: openai.ChatModel(c.model),
	})
	if err != nil {
		c.log.Error("openai request failed", zap.String("model", c.model), zap.Error(err))
		return ReplyRequestFailed
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		c.log.Error(ReplyGetTextFailed, zap.String("model", c.model), zap.String("resp_id", resp.ID))
		return ReplyGetTextFailed
	}
	return resp.Choices[0].Message.Content
}
