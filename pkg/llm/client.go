// Package llm runs GGUF models through a local llama-server process and
// talks to it over HTTP.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client is a minimal llama-server HTTP client.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// Health reports whether the server is up and has finished loading the model.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("health status=%d", res.StatusCode)
	}
	return nil
}

type CompletionRequest struct {
	Prompt      string  `json:"prompt"`
	NPredict    int     `json:"n_predict"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	Stream      bool    `json:"stream"`
}

type completionResponse struct {
	Content string `json:"content"`
}

// Complete runs a single non-streaming completion.
func (c *Client) Complete(ctx context.Context, creq CompletionRequest) (string, error) {
	body, err := json.Marshal(creq)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/completion", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return "", fmt.Errorf("completion status=%d", res.StatusCode)
	}

	var out completionResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Content, nil
}

const assistantMarker = "<|assistant|>"

// FormatPrompt wraps user text in the TinyLlama chat template.
func FormatPrompt(prompt string) string {
	return "<|system|>You are a helpful AI assistant.</s><|user|>" + prompt + "</s>" + assistantMarker
}

// TrimResponse strips the chat template scaffolding from a completion.
func TrimResponse(s string) string {
	if i := strings.LastIndex(s, assistantMarker); i >= 0 {
		s = s[i+len(assistantMarker):]
	}
	return strings.TrimSpace(s)
}
