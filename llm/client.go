package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
)

// Client produces a chat completion for a conversation.
type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// OpenAIClient talks to any OpenAI-compatible chat API (Gemini's
// compatibility endpoint, Ollama, OpenAI itself).
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float64
}

// NewOpenAIClient builds a client against the given base URL.
func NewOpenAIClient(baseURL, apiKey, model string, temperature float64) *OpenAIClient {
	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)
	return &OpenAIClient{
		client:      &client,
		model:       model,
		temperature: temperature,
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, messages []Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    convertMessages(messages),
		Temperature: param.NewOpt(c.temperature),
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", &RequestError{Model: c.model, Err: err}
	}
	if len(completion.Choices) == 0 {
		return "", &RequestError{Model: c.model, Err: fmt.Errorf("no choices returned")}
	}
	return completion.Choices[0].Message.Content, nil
}

func convertMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
