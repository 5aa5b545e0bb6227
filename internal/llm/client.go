// Package llm is a minimal client for OpenAI-compatible chat completions
// endpoints such as GitHub Models.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL    = "https://models.inference.ai.azure.com"
	DefaultModel      = "gpt-4o-mini"
	defaultAPIVersion = "2023-10-16"
	defaultTimeout    = 60 * time.Second
	maxErrorBody      = 4 << 10
)

var (
	// ErrMissingToken is returned when no bearer credential is configured.
	ErrMissingToken = errors.New("ai token is empty")

	// ErrMalformedResponse is returned when choices[0].message.content is absent.
	ErrMalformedResponse = errors.New("malformed chat completion response")
)

// UpstreamError reports a non-success status from the completion endpoint.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("chat completion http %d: %s", e.StatusCode, e.Body)
}

// Client sends chat completion requests with a bearer token.
type Client struct {
	baseURL    string
	token      string
	model      string
	apiVersion string
	httpDo     *http.Client
}

type Options struct {
	BaseURL    string
	Token      string
	Model      string
	APIVersion string
	Timeout    time.Duration
}

func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.APIVersion == "" {
		opts.APIVersion = defaultAPIVersion
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		token:      opts.Token,
		model:      opts.Model,
		apiVersion: opts.APIVersion,
		httpDo:     &http.Client{Timeout: opts.Timeout},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionsRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type chatChoice struct {
	Index   int `json:"index"`
	Message *struct {
		Role    string  `json:"role"`
		Content *string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

type chatCompletionsResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

// Ask sends one system and one user message and returns the first choice's content.
func (c *Client) Ask(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.token == "" {
		return "", ErrMissingToken
	}
	reqBody := chatCompletionsRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/chat/completions", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("X-GitHub-Api-Version", c.apiVersion)

	resp, err := c.httpDo.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("chat completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &UpstreamError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out chatCompletionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message == nil || out.Choices[0].Message.Content == nil {
		return "", ErrMalformedResponse
	}
	return *out.Choices[0].Message.Content, nil
}
