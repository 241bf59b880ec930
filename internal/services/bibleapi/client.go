package bibleapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"biblestudy/internal/bible"
	"biblestudy/internal/services"
)

const (
	// DefaultBaseURL is the public chapter text service.
	DefaultBaseURL     = "https://bible-api.com"
	defaultHTTPTimeout = 20 * time.Second
	maxErrorBody       = 64 << 10
	userAgent          = "biblestudy/1.0"
)

// Client fetches chapters from the remote chapter text service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a client for baseURL. A non-positive timeout uses the
// default.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// ChapterURL builds the request URL for a chapter. The book and translation
// are escaped and the chapter follows the book after a "+".
func (c *Client) ChapterURL(book string, chapter int, translation string) string {
	return fmt.Sprintf("%s/%s+%d?translation=%s",
		c.baseURL, url.PathEscape(book), chapter, url.QueryEscape(translation))
}

// FetchChapter requests a chapter. Non-2xx responses are reported using the
// body's "error" field when present and the status code otherwise.
func (c *Client) FetchChapter(ctx context.Context, book string, chapter int, translation string) (bible.Chapter, error) {
	var empty bible.Chapter
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ChapterURL(book, chapter, translation), nil)
	if err != nil {
		return empty, services.Wrap(services.ErrValidation, "bibleapi", "fetch chapter", "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return empty, services.Wrap(services.ErrTransport, "bibleapi", "fetch chapter", "Could not load chapter", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		marker := services.ErrTransport
		if resp.StatusCode == http.StatusNotFound {
			marker = services.ErrNotFound
		}
		return empty, services.Wrap(marker, "bibleapi", "fetch chapter",
			"Failed to fetch chapter: "+errorMessage(resp.StatusCode, body), nil)
	}

	var chapterData bible.Chapter
	if err := json.NewDecoder(resp.Body).Decode(&chapterData); err != nil {
		return empty, services.Wrap(services.ErrTransport, "bibleapi", "fetch chapter", "decode response", err)
	}
	if len(chapterData.Verses) == 0 {
		return empty, services.Wrap(services.ErrNotFound, "bibleapi", "fetch chapter",
			fmt.Sprintf("no verses returned for %s %d", book, chapter), nil)
	}
	if chapterData.TranslationID == "" {
		chapterData.TranslationID = strings.ToLower(translation)
	}
	return chapterData, nil
}

// errorMessage prefers the JSON error string in body and falls back to the
// status code.
func errorMessage(status int, body []byte) string {
	if gjson.ValidBytes(body) {
		if msg := strings.TrimSpace(gjson.GetBytes(body, "error").String()); msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("HTTP error! status: %d", status)
}
