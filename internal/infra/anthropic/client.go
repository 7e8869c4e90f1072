package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"askme/internal/domain"
)

const providerName = "anthropic"

// MaxTokens is the generation budget for every answer.
const MaxTokens = 150

type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	model      string
}

func NewClient(apiKey, model string) *Client {
	return NewClientWithURL(apiKey, model, "https://api.anthropic.com/v1")
}

func NewClientWithURL(apiKey, model, baseURL string) *Client {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		model:      model,
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []message `json:"messages"`
}

type response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

const systemPrompt = "You answer general-knowledge questions. Answer clearly and concisely in plain prose, without markdown."

func (c *Client) Complete(ctx context.Context, question string) (string, error) {
	reqBody := request{
		Model:     c.model,
		MaxTokens: MaxTokens,
		System:    systemPrompt,
		Messages: []message{
			{Role: "user", Content: question},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &domain.ProviderError{Provider: providerName, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(respBody))
		var apiErr errorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return "", &domain.ProviderError{Provider: providerName, StatusCode: resp.StatusCode, Message: msg}
	}

	var result response
	if err = json.Unmarshal(respBody, &result); err != nil {
		return "", &domain.ProviderError{Provider: providerName, Message: fmt.Sprintf("malformed response: %v", err)}
	}

	if len(result.Content) == 0 {
		return "", &domain.ProviderError{Provider: providerName, Message: "empty response from claude"}
	}

	return strings.TrimSpace(result.Content[0].Text), nil
}
