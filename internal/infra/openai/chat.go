package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"askme/internal/domain"
)

const chatProvider = "openai"

// MaxCompletionTokens is the generation budget for every answer.
const MaxCompletionTokens = 150

type ChatClient struct {
	client openai.Client
	model  openai.ChatModel
}

func NewChatClient(apiKey, model string) *ChatClient {
	return NewChatClientWithURL(apiKey, model, "")
}

func NewChatClientWithURL(apiKey, model, baseURL string) *ChatClient {
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &ChatClient{
		client: openai.NewClient(opts...),
		model:  openai.ChatModel(model),
	}
}

func prompt(question string) string {
	return fmt.Sprintf("Answer the following question clearly and concisely.\n\nQuestion: %s", question)
}

func (c *ChatClient) Complete(ctx context.Context, question string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt(question)),
		},
		Model:               c.model,
		MaxCompletionTokens: openai.Int(MaxCompletionTokens),
	})
	if err != nil {
		return "", chatError(err)
	}

	if len(resp.Choices) == 0 {
		return "", &domain.ProviderError{Provider: chatProvider, Message: "no choices in response"}
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func chatError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error()
		}
		return &domain.ProviderError{Provider: chatProvider, StatusCode: apiErr.StatusCode, Message: msg}
	}
	return &domain.ProviderError{Provider: chatProvider, Message: err.Error()}
}
