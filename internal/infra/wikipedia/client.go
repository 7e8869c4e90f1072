package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"askme/internal/domain"
)

const providerName = "wikipedia"

const defaultUserAgent = "askme/1.0 (https://github.com/askme; askme@example.com)"

type Client struct {
	http *resty.Client
}

func NewClient(language, userAgent string) *Client {
	if language == "" {
		language = "en"
	}
	return NewClientWithURL(fmt.Sprintf("https://%s.wikipedia.org", language), userAgent)
}

func NewClientWithURL(baseURL, userAgent string) *Client {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	rc := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(15*time.Second).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")

	return &Client{http: rc}
}

type queryResponse struct {
	Query struct {
		Pages []page `json:"pages"`
	} `json:"query"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error,omitempty"`
}

type page struct {
	PageID  int64  `json:"pageid"`
	Title   string `json:"title"`
	Extract string `json:"extract"`
	Missing bool   `json:"missing"`
	Invalid bool   `json:"invalid"`
}

// Lookup fetches the plain-text body of the page matching topic, following
// redirects to the canonical title.
func (c *Client) Lookup(ctx context.Context, topic string) (domain.LookupResult, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"action":        "query",
			"format":        "json",
			"formatversion": "2",
			"prop":          "extracts",
			"explaintext":   "1",
			"redirects":     "1",
			"titles":        topic,
		}).
		Get("/w/api.php")
	if err != nil {
		return domain.LookupResult{}, &domain.ProviderError{Provider: providerName, Message: err.Error()}
	}

	if resp.IsError() {
		return domain.LookupResult{}, &domain.ProviderError{
			Provider:   providerName,
			StatusCode: resp.StatusCode(),
			Message:    strings.TrimSpace(resp.String()),
		}
	}

	var result queryResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return domain.LookupResult{}, &domain.ProviderError{
			Provider:   providerName,
			StatusCode: resp.StatusCode(),
			Message:    fmt.Sprintf("malformed response: %v", err),
		}
	}

	if result.Error != nil {
		return domain.LookupResult{}, &domain.ProviderError{
			Provider:   providerName,
			StatusCode: resp.StatusCode(),
			Message:    fmt.Sprintf("%s: %s", result.Error.Code, result.Error.Info),
		}
	}

	// A missing title still yields a page entry flagged missing.
	if len(result.Query.Pages) == 0 {
		return domain.LookupResult{}, &domain.ProviderError{
			Provider:   providerName,
			StatusCode: resp.StatusCode(),
			Message:    "malformed response: no pages",
		}
	}

	for _, p := range result.Query.Pages {
		if p.Missing || p.Invalid {
			continue
		}
		return domain.LookupResult{Found: true, Text: p.Extract}, nil
	}

	return domain.LookupResult{Found: false}, nil
}
