package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatPrompt(t *testing.T) {
	got := FormatPrompt("hello")
	require.Equal(t, "<|system|>You are a helpful AI assistant.</s><|user|>hello</s><|assistant|>", got)
}

func TestTrimResponse(t *testing.T) {
	require.Equal(t, "hi there", TrimResponse("hi there"))
	require.Equal(t, "hi there", TrimResponse("<|system|>...</s><|assistant|> hi there \n"))
	require.Equal(t, "", TrimResponse("<|assistant|>"))
}

func TestClientComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/completion", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var creq CompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creq))
		require.Equal(t, 64, creq.NPredict)
		require.False(t, creq.Stream)

		err := json.NewEncoder(w).Encode(map[string]string{"content": " generated text "})
		require.NoError(t, err)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	content, err := client.Complete(context.Background(), CompletionRequest{
		Prompt:      FormatPrompt("hello"),
		NPredict:    64,
		Temperature: 0.7,
		TopP:        0.95,
	})
	require.NoError(t, err)
	require.Equal(t, " generated text ", content)
}

func TestClientCompleteServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Complete(context.Background(), CompletionRequest{Prompt: "x"})
	require.Error(t, err)
}

func TestClientHealth(t *testing.T) {
	healthy := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		if healthy {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	require.Error(t, client.Health(context.Background()))
	healthy = true
	require.NoError(t, client.Health(context.Background()))
}
