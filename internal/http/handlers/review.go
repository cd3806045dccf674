package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wardenlabs/childguard/internal/http/middleware"
	"github.com/wardenlabs/childguard/internal/review"
	"github.com/wardenlabs/childguard/internal/safety"
	"github.com/wardenlabs/childguard/pkg/logging"
)

// ReviewHandler hosts the moderation endpoints used by human reviewers.
type ReviewHandler struct {
	queue  *review.Queue
	logger *logging.Logger
}

// ReviewConfig assembles a ReviewHandler.
type ReviewConfig struct {
	Queue  *review.Queue
	Logger *logging.Logger
}

// NewReviewHandler creates the moderation endpoint handler.
func NewReviewHandler(cfg ReviewConfig) *ReviewHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &ReviewHandler{queue: cfg.Queue, logger: cfg.Logger}
}

// Pending lists pending tickets, urgent first. Query params: limit (default
// 10), priority (low|medium|high|urgent).
func (h *ReviewHandler) Pending(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	priority := review.Priority(r.URL.Query().Get("priority"))

	tickets := h.queue.Pending(r.Context(), limit, priority)
	writeJSON(w, http.StatusOK, map[string]any{
		"tickets": tickets,
		"count":   len(tickets),
	})
}

// Get returns one ticket by ID.
func (h *ReviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "ticketID")
	ticket, ok := h.queue.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "ticket not found")
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

// Decision returns the adjudicated action for a ticket, or 404 while the
// ticket is still pending. The orchestrator polls this to resolve verdicts
// that were parked behind human review.
func (h *ReviewHandler) Decision(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "ticketID")
	decision := h.queue.Decision(id)
	if decision == nil {
		writeError(w, http.StatusNotFound, "no decision available")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ticket_id": id,
		"decision":  decision.String(),
	})
}

type submitReviewRequest struct {
	Decision string `json:"decision"`
	Notes    string `json:"notes,omitempty"`
}

// Submit records a reviewer decision on a pending ticket. The reviewer
// identity comes from the JWT subject.
func (h *ReviewHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "ticketID")

	var req submitReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	decision, ok := safety.ParseAction(req.Decision)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown decision action")
		return
	}

	reviewerID, _ := middleware.ReviewerFromContext(r.Context())
	if reviewerID == "" {
		reviewerID = "unknown"
	}

	if ok := h.queue.SubmitReview(r.Context(), id, decision, reviewerID, req.Notes); !ok {
		writeError(w, http.StatusConflict, "ticket not found or no longer pending")
		return
	}

	ticket, _ := h.queue.Get(id)
	writeJSON(w, http.StatusOK, ticket)
}

// Stats reports queue totals for the reviewer dashboard.
func (h *ReviewHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.queue.Stats())
}
