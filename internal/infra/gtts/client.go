package gtts

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"askme/internal/domain"
)

const providerName = "gtts"

// MaxChunkChars is the longest text the endpoint accepts in one request.
const MaxChunkChars = 100

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// Client synthesizes English speech through the Google Translate TTS
// endpoint. The output is MP3.
type Client struct {
	http     *resty.Client
	language string
}

func NewClient() *Client {
	return NewClientWithURL("https://translate.google.com")
}

func NewClientWithURL(baseURL string) *Client {
	rc := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(15*time.Second).
		SetHeader("User-Agent", defaultUserAgent).
		SetHeader("Referer", "https://translate.google.com/")

	return &Client{http: rc, language: "en"}
}

func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	chunks := Chunk(text, MaxChunkChars)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("nothing to synthesize")
	}

	var audio []byte
	for i, chunk := range chunks {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"ie":      "UTF-8",
				"q":       chunk,
				"tl":      c.language,
				"client":  "tw-ob",
				"total":   strconv.Itoa(len(chunks)),
				"idx":     strconv.Itoa(i),
				"textlen": strconv.Itoa(len([]rune(chunk))),
			}).
			Get("/translate_tts")
		if err != nil {
			return nil, &domain.ProviderError{Provider: providerName, Message: err.Error()}
		}

		if resp.IsError() {
			return nil, &domain.ProviderError{
				Provider:   providerName,
				StatusCode: resp.StatusCode(),
				Message:    strings.TrimSpace(resp.String()),
			}
		}

		audio = append(audio, resp.Body()...)
	}

	return audio, nil
}

// Chunk splits text into pieces of at most limit characters, breaking on
// whitespace. Words longer than limit are cut.
func Chunk(text string, limit int) []string {
	var chunks []string
	var current []rune

	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, string(current))
			current = current[:0]
		}
	}

	for _, word := range strings.Fields(text) {
		w := []rune(word)
		for len(w) > limit {
			flush()
			chunks = append(chunks, string(w[:limit]))
			w = w[limit:]
		}

		switch {
		case len(current) == 0:
			current = append(current, w...)
		case len(current)+1+len(w) <= limit:
			current = append(current, ' ')
			current = append(current, w...)
		default:
			flush()
			current = append(current, w...)
		}
	}
	flush()

	return chunks
}
