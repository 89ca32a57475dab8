// Package server exposes the generation API the request handlers consume.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/modelyard/modelyard/pkg/classify"
	"github.com/modelyard/modelyard/pkg/llm"
	"github.com/modelyard/modelyard/pkg/logging"
)

// TextGenerator is the slice of the manager the handler needs.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error)
}

type Handler struct {
	gen       TextGenerator
	model     string
	startedAt time.Time

	logger *logging.SugaredLogger
}

func NewHandler(gen TextGenerator, model string, baseLogger *logging.Logger) *Handler {
	return &Handler{
		gen:       gen,
		model:     model,
		startedAt: time.Now(),
		logger:    baseLogger.Sugar().Named("handler"),
	}
}

func NewServeMux(handler *Handler) *http.ServeMux {
	serveMux := http.NewServeMux()
	serveMux.HandleFunc("GET /{$}", handler.Root)
	serveMux.HandleFunc("GET /health-check", handler.HealthCheck)
	serveMux.HandleFunc("POST /generate", handler.Generate)
	return serveMux
}

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthCheck{
		Status:    "healthy",
		Model:     h.model,
		StartedAt: h.startedAt.Format(time.RFC3339),
	})
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.logger.Debugw("processing prompt", "length", len(req.Prompt))
	category, confidence := classify.Classify(req.Prompt)

	response, err := h.gen.Generate(r.Context(), req.Prompt, llm.GenerateOptions{
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	})
	if err != nil {
		h.logger.Errorw("generation failed", "category", category, "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, GenerateResponse{
		Category:    category,
		Confidence:  confidence,
		Explanation: classify.Explanation(category),
		Response:    response,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, GenerateResponse{
		Category:    "Error",
		Confidence:  classify.ConfidenceLow,
		Explanation: msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
