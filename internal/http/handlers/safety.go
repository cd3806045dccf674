// Package handlers exposes the safety gate and the moderation queue over
// HTTP for the conversation orchestrator and the reviewer dashboard.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/wardenlabs/childguard/internal/gate"
	"github.com/wardenlabs/childguard/internal/safety"
	"github.com/wardenlabs/childguard/pkg/logging"
)

// SafetyHandler serves the pre-check and post-check endpoints.
type SafetyHandler struct {
	gate   *gate.Gate
	logger *logging.Logger
}

// SafetyConfig assembles a SafetyHandler.
type SafetyConfig struct {
	Gate   *gate.Gate
	Logger *logging.Logger
}

// NewSafetyHandler creates the safety endpoint handler.
func NewSafetyHandler(cfg SafetyConfig) *SafetyHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &SafetyHandler{gate: cfg.Gate, logger: cfg.Logger}
}

type checkRequest struct {
	Text          string   `json:"text"`
	ChildID       string   `json:"child_id"`
	Age           int      `json:"age"`
	AllowedTopics []string `json:"allowed_topics,omitempty"`
	BlockedTopics []string `json:"blocked_topics,omitempty"`
}

type checkResponse struct {
	Verdict safety.Verdict `json:"verdict"`
}

func (h *SafetyHandler) parseCheck(w http.ResponseWriter, r *http.Request) (checkRequest, safety.ChildContext, bool) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return checkRequest{}, safety.ChildContext{}, false
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return checkRequest{}, safety.ChildContext{}, false
	}
	if req.Age <= 0 {
		writeError(w, http.StatusBadRequest, "age must be positive")
		return checkRequest{}, safety.ChildContext{}, false
	}
	child := safety.NewChildContext(req.ChildID, req.Age, req.AllowedTopics, req.BlockedTopics)
	return req, child, true
}

// PreCheck evaluates an inbound child message.
func (h *SafetyHandler) PreCheck(w http.ResponseWriter, r *http.Request) {
	req, child, ok := h.parseCheck(w, r)
	if !ok {
		return
	}
	verdict := h.gate.PreCheck(r.Context(), req.Text, child)
	writeJSON(w, http.StatusOK, checkResponse{Verdict: verdict})
}

// PostCheck evaluates a generated reply before it reaches the child.
func (h *SafetyHandler) PostCheck(w http.ResponseWriter, r *http.Request) {
	req, child, ok := h.parseCheck(w, r)
	if !ok {
		return
	}
	verdict := h.gate.PostCheck(r.Context(), req.Text, child)
	writeJSON(w, http.StatusOK, checkResponse{Verdict: verdict})
}

// HealthCheck reports liveness.
func (h *SafetyHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
