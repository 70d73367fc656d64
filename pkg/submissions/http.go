package submissions

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/ragequit-tracker/platform/pkg/common/logger"
	"github.com/ragequit-tracker/platform/pkg/common/models"
	"github.com/ragequit-tracker/platform/pkg/departures"
)

type Handler struct {
	moderator *Moderator
}

func NewHandler(moderator *Moderator) *Handler {
	return &Handler{moderator: moderator}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/submissions", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/submissions/{id}", h.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/submissions/{id}/approve", h.handleApprove).Methods(http.MethodPost)
	r.HandleFunc("/submissions/{id}/reject", h.handleReject).Methods(http.MethodPost)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	status := models.SubmissionStatus(r.URL.Query().Get("status"))
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	subs, err := h.moderator.List(r.Context(), status, limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list submissions")
		http.Error(w, "failed to list submissions", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": subs})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid submission id", http.StatusBadRequest)
		return
	}

	sub, err := h.moderator.Get(r.Context(), id)
	if err != nil {
		writeModerationError(w, err, "failed to get submission")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"submission": sub})
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid submission id", http.StatusBadRequest)
		return
	}

	var req models.ApproveSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	dep, err := h.moderator.Approve(r.Context(), id, req)
	if err != nil {
		writeModerationError(w, err, "failed to approve submission")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"departure": dep})
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid submission id", http.StatusBadRequest)
		return
	}

	if err := h.moderator.Reject(r.Context(), id); err != nil {
		writeModerationError(w, err, "failed to reject submission")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeModerationError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, ErrSubmissionNotFound):
		http.Error(w, "submission not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidState):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, departures.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		logger.Log.WithError(err).Error(msg)
		http.Error(w, msg, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
	}
}
