package server

// GenerateRequest is the body of POST /generate.
type GenerateRequest struct {
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
}

// GenerateResponse is the classification plus the model's reply. Failures
// collapse into the same shape with Category "Error" so clients handle one
// schema.
type GenerateResponse struct {
	Category    string `json:"category"`
	Confidence  string `json:"confidence"`
	Explanation string `json:"explanation"`
	Response    string `json:"response,omitempty"`
}

// HealthCheck is the body of GET /health-check.
type HealthCheck struct {
	Status    string `json:"status"`
	Model     string `json:"model"`
	StartedAt string `json:"started_at"`
}
