package assistant

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// Model tiers. The caller picks per request via ChatRequest.Mode; "smart"
// selects the capable model, anything else the cheap one.
const (
	DefaultBaseModel  = "gpt-4o-mini"
	DefaultSmartModel = "gpt-4o"
)

// ChatStream yields incremental chunks of one chat completion.
// *openai.ChatCompletionStream satisfies it; tests substitute scripted
// streams.
type ChatStream interface {
	Recv() (openai.ChatCompletionStreamResponse, error)
	Close() error
}

// ChatClient starts streaming chat completions.
type ChatClient interface {
	StreamChat(ctx context.Context, req openai.ChatCompletionRequest) (ChatStream, error)
}

// OpenAIClient is the production ChatClient backed by the OpenAI API.
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient creates a client with the given API key.
func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{client: openai.NewClient(apiKey)}
}

// StreamChat implements ChatClient.
func (c *OpenAIClient) StreamChat(ctx context.Context, req openai.ChatCompletionRequest) (ChatStream, error) {
	return c.client.CreateChatCompletionStream(ctx, req)
}
