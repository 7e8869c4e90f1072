package gemini

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

const providerName = "gemini"

// MaxOutputTokens is the generation budget for every answer.
const MaxOutputTokens = 150

type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	model      string
}

func NewClient(apiKey, model string) *Client {
	return NewClientWithURL(apiKey, model, "https://generativelanguage.googleapis.com/v1beta")
}

func NewClientWithURL(apiKey, model, baseURL string) *Client {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		model:      model,
	}
}

type content struct {
	Parts []part `json:"parts"`
	Role  string `json:"role,omitempty"`
}

type part struct {
	Text string `json:"text"`
}

type request struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens"`
}

type response struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Status  string `json:"status"`
}

func Prompt(question string) string {
	return fmt.Sprintf("Answer the following question clearly and concisely.\n\nQuestion: %s", question)
}

// Complete sends the question to the model and returns the first candidate's
// text. Requests are not retried.
func (c *Client) Complete(ctx context.Context, question string) (string, error) {
	reqBody := request{
		Contents: []content{
			{
				Role:  "user",
				Parts: []part{{Text: Prompt(question)}},
			},
		},
		GenerationConfig: generationConfig{
			MaxOutputTokens: MaxOutputTokens,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &domain.ProviderError{Provider: providerName, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var result response
	decodeErr := json.Unmarshal(respBody, &result)

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(respBody))
		if decodeErr == nil && result.Error != nil && result.Error.Message != "" {
			msg = result.Error.Message
		}
		return "", &domain.ProviderError{Provider: providerName, StatusCode: resp.StatusCode, Message: msg}
	}

	if decodeErr != nil {
		return "", &domain.ProviderError{Provider: providerName, Message: fmt.Sprintf("malformed response: %v", decodeErr)}
	}

	if result.Error != nil {
		return "", &domain.ProviderError{Provider: providerName, StatusCode: result.Error.Code, Message: result.Error.Message}
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", &domain.ProviderError{Provider: providerName, Message: "empty response from gemini"}
	}

	var sb strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}

	answer := strings.TrimSpace(sb.String())
	if answer == "" {
		return "", &domain.ProviderError{Provider: providerName, Message: "empty response from gemini"}
	}

	return answer, nil
}
