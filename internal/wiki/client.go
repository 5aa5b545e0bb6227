// Package wiki fetches page summaries from the Wikipedia REST API.
package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://en.wikipedia.org/api/rest_v1"
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

// ErrNoExtract is returned when the summary response has no extract field.
var ErrNoExtract = errors.New("summary has no extract")

// StatusError reports a non-success response from the summary endpoint.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("wikipedia summary http %d", e.StatusCode)
}

// Client is a minimal page-summary client.
type Client struct {
	baseURL   string
	userAgent string
	httpDo    *http.Client
}

// New returns a Client. Empty baseURL and non-positive timeout use the defaults.
func New(baseURL, userAgent string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		httpDo:    &http.Client{Timeout: timeout},
	}
}

type summaryResponse struct {
	Title   string          `json:"title"`
	Extract json.RawMessage `json:"extract"`
}

// Summary returns the plain-text extract of the page titled title.
// An extract of null yields an empty summary and no error.
func (c *Client) Summary(ctx context.Context, title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", errors.New("summary title is required")
	}

	endpoint := fmt.Sprintf("%s/page/summary/%s", c.baseURL, url.PathEscape(title))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpDo.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch summary %q: %w", title, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return "", &StatusError{StatusCode: resp.StatusCode}
	}

	var out summaryResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&out); err != nil {
		return "", fmt.Errorf("decode summary %q: %w", title, err)
	}
	if len(out.Extract) == 0 {
		return "", ErrNoExtract
	}
	var extract *string
	if err := json.Unmarshal(out.Extract, &extract); err != nil {
		return "", fmt.Errorf("decode extract %q: %w", title, err)
	}
	if extract == nil {
		return "", nil
	}
	return *extract, nil
}
