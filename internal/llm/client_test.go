package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return New(Options{BaseURL: url, Token: "gh-token", Timeout: time.Second})
}

func TestAskSuccess(t *testing.T) {
	var got chatCompletionsRequest
	var auth, version, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		version = r.Header.Get("X-GitHub-Api-Version")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","choices":[{"index":0,"message":{"role":"assistant","content":"The war ended in 1945."}}]}`))
	}))
	defer srv.Close()

	answer, err := newTestClient(srv.URL).Ask(context.Background(), "be a guide", "When did WWII end?")
	require.NoError(t, err)
	require.Equal(t, "The war ended in 1945.", answer)

	require.Equal(t, "/chat/completions", path)
	require.Equal(t, "Bearer gh-token", auth)
	require.Equal(t, "2023-10-16", version)
	require.Equal(t, DefaultModel, got.Model)
	require.Equal(t, []message{
		{Role: "system", Content: "be a guide"},
		{Role: "user", Content: "When did WWII end?"},
	}, got.Messages)
}

func TestAskUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Ask(context.Background(), "s", "u")

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	require.Equal(t, http.StatusTooManyRequests, upstream.StatusCode)
	require.Contains(t, upstream.Body, "rate limited")
}

func TestAskMalformedResponses(t *testing.T) {
	bodies := map[string]string{
		"not json":        `<html>`,
		"no choices":      `{"choices":[]}`,
		"no message":      `{"choices":[{"index":0}]}`,
		"no content":      `{"choices":[{"message":{"role":"assistant"}}]}`,
		"missing choices": `{"id":"x"}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).Ask(context.Background(), "s", "u")
			require.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestAskRequiresToken(t *testing.T) {
	_, err := New(Options{}).Ask(context.Background(), "s", "u")
	require.ErrorIs(t, err, ErrMissingToken)
}
